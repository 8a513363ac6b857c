package eventmodels

import "github.com/google/uuid"

type EscrowCancelledEvent struct {
	BaseEscrowEvent
	EscrowID    uuid.UUID `json:"escrow_id"`
	CancelledBy AccountID `json:"cancelled_by"`
}

func NewEscrowCancelledEvent(escrowID uuid.UUID, cancelledBy AccountID) *EscrowCancelledEvent {
	return &EscrowCancelledEvent{
		BaseEscrowEvent: BaseEscrowEvent{Meta: &MetaData{RequestID: uuid.New()}},
		EscrowID:        escrowID,
		CancelledBy:     cancelledBy,
	}
}

func (e *EscrowCancelledEvent) GetSavedEventParameters() SavedEventParameters {
	return SavedEventParameters{
		StreamName:    EscrowsStream,
		EventName:     EscrowCancelledEventName,
		SchemaVersion: 1,
	}
}
