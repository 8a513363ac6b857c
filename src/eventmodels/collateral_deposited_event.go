package eventmodels

import "github.com/google/uuid"

type CollateralDepositedEvent struct {
	BaseEscrowEvent
	EscrowID  uuid.UUID   `json:"escrow_id"`
	Depositor AccountID   `json:"depositor"`
	Asset     AssetSymbol `json:"asset"`
	Amount    int64       `json:"amount"`
}

func NewCollateralDepositedEvent(escrowID uuid.UUID, depositor AccountID, asset AssetSymbol, amount int64) *CollateralDepositedEvent {
	return &CollateralDepositedEvent{
		BaseEscrowEvent: BaseEscrowEvent{Meta: &MetaData{RequestID: uuid.New()}},
		EscrowID:        escrowID,
		Depositor:       depositor,
		Asset:           asset,
		Amount:          amount,
	}
}

func (e *CollateralDepositedEvent) GetSavedEventParameters() SavedEventParameters {
	return SavedEventParameters{
		StreamName:    EscrowsStream,
		EventName:     CollateralDepositedEventName,
		SchemaVersion: 1,
	}
}
