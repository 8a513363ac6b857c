package eventmodels

import (
	"time"

	"github.com/google/uuid"
)

type EscrowCreatedEvent struct {
	BaseEscrowEvent
	EscrowID        uuid.UUID   `json:"escrow_id"`
	Initializer     AccountID   `json:"initializer"`
	Counterparty    AccountID   `json:"counterparty,omitempty"`
	OptionType      OptionType  `json:"option_type"`
	Style           OptionStyle `json:"style"`
	StrikePrice     int64       `json:"strike_price"`
	Notional        int64       `json:"notional"`
	ExpirationTime  time.Time   `json:"expiration_time"`
	CollateralAsset AssetSymbol `json:"collateral_asset"`
	MaxCollateral   int64       `json:"max_collateral"`
	CreatedAt       time.Time   `json:"created_at"`
}

func NewEscrowCreatedEvent(escrow *Escrow) *EscrowCreatedEvent {
	return &EscrowCreatedEvent{
		BaseEscrowEvent: BaseEscrowEvent{Meta: &MetaData{RequestID: uuid.New()}},
		EscrowID:        escrow.ID,
		Initializer:     escrow.Initializer,
		Counterparty:    escrow.Counterparty,
		OptionType:      escrow.OptionType,
		Style:           escrow.Style,
		StrikePrice:     escrow.StrikePrice,
		Notional:        escrow.Notional,
		ExpirationTime:  escrow.ExpirationTime,
		CollateralAsset: escrow.CollateralAsset,
		MaxCollateral:   escrow.MaxCollateral,
		CreatedAt:       escrow.CreatedAt,
	}
}

func (e *EscrowCreatedEvent) GetSavedEventParameters() SavedEventParameters {
	return SavedEventParameters{
		StreamName:    EscrowsStream,
		EventName:     EscrowCreatedEventName,
		SchemaVersion: 1,
	}
}

// ToEscrow rebuilds the aggregate as it stood immediately after creation.
func (e *EscrowCreatedEvent) ToEscrow() *Escrow {
	return &Escrow{
		ID:              e.EscrowID,
		Initializer:     e.Initializer,
		Counterparty:    e.Counterparty,
		OptionType:      e.OptionType,
		Style:           e.Style,
		StrikePrice:     e.StrikePrice,
		Notional:        e.Notional,
		ExpirationTime:  e.ExpirationTime,
		CollateralAsset: e.CollateralAsset,
		MaxCollateral:   e.MaxCollateral,
		Status:          EscrowStatusCreated,
		CreatedAt:       e.CreatedAt,
	}
}
