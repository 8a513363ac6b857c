package eventmodels

type EventName string

const (
	EscrowCreatedEventName       EventName = "EscrowCreated"
	CollateralDepositedEventName EventName = "CollateralDeposited"
	EscrowSettledEventName       EventName = "EscrowSettled"
	EscrowCancelledEventName     EventName = "EscrowCancelled"
	GovernanceUpdatedEventName   EventName = "GovernanceUpdated"

	// DisbursementPendingEventName is published in process only: it wakes
	// the reconciliation worker after a partial vault failure.
	DisbursementPendingEventName EventName = "DisbursementPending"
)
