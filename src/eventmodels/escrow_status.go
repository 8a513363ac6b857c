package eventmodels

import "fmt"

type EscrowStatus string

const (
	// EscrowStatusCreated means the contract terms are registered but no
	// funds are locked yet.
	EscrowStatusCreated EscrowStatus = "created"

	// EscrowStatusCollateralized means the initializer's collateral is
	// locked in the vault and the contract is live.
	EscrowStatusCollateralized EscrowStatus = "collateralized"

	// EscrowStatusExercised marks a settlement in flight. It is a
	// transient guard against re-entry while vault transfers execute; no
	// operation may start from it.
	EscrowStatusExercised EscrowStatus = "exercised"

	EscrowStatusSettled   EscrowStatus = "settled"
	EscrowStatusCancelled EscrowStatus = "cancelled"
)

func (s EscrowStatus) Validate() error {
	switch s {
	case EscrowStatusCreated, EscrowStatusCollateralized, EscrowStatusExercised, EscrowStatusSettled, EscrowStatusCancelled:
		return nil
	default:
		return fmt.Errorf("EscrowStatus: Validate: invalid escrow status: %s", s)
	}
}

func (s EscrowStatus) IsTerminal() bool {
	return s == EscrowStatusSettled || s == EscrowStatusCancelled
}

// CanTransitionTo enforces the lifecycle graph:
//
//	created -> collateralized -> exercised -> settled
//	created -> cancelled       collateralized -> settled
//
// Terminal states have no outgoing edges. There is no cancellation once
// collateral is locked.
func (s EscrowStatus) CanTransitionTo(next EscrowStatus) bool {
	switch s {
	case EscrowStatusCreated:
		return next == EscrowStatusCollateralized || next == EscrowStatusCancelled
	case EscrowStatusCollateralized:
		return next == EscrowStatusExercised || next == EscrowStatusSettled
	case EscrowStatusExercised:
		return next == EscrowStatusSettled
	default:
		return false
	}
}

func (s EscrowStatus) String() string {
	return string(s)
}
