package eventmodels

import (
	"time"

	"github.com/google/uuid"
)

type EscrowSettledEvent struct {
	BaseEscrowEvent
	EscrowID          uuid.UUID         `json:"escrow_id"`
	Outcome           SettlementOutcome `json:"outcome"`
	SpotPrice         int64             `json:"spot_price"`
	GrossPayoff       int64             `json:"gross_payoff"`
	PayoffNet         int64             `json:"payoff_net"`
	ResidualNet       int64             `json:"residual_net"`
	FeeAmount         int64             `json:"fee_amount"`
	PayoffRecipient   AccountID         `json:"payoff_recipient,omitempty"`
	FeeCollector      AccountID         `json:"fee_collector"`
	GovernanceVersion uint64            `json:"governance_version"`
	EarlyExercise     bool              `json:"early_exercise"`
	SettledAt         time.Time         `json:"settled_at"`
}

func NewEscrowSettledEvent(result *SettlementResult) *EscrowSettledEvent {
	return &EscrowSettledEvent{
		BaseEscrowEvent:   BaseEscrowEvent{Meta: &MetaData{RequestID: uuid.New()}},
		EscrowID:          result.EscrowID,
		Outcome:           result.Outcome,
		SpotPrice:         result.SpotPrice,
		GrossPayoff:       result.GrossPayoff,
		PayoffNet:         result.PayoffNet,
		ResidualNet:       result.ResidualNet,
		FeeAmount:         result.FeeAmount,
		PayoffRecipient:   result.PayoffRecipient,
		FeeCollector:      result.FeeCollector,
		GovernanceVersion: result.GovernanceVersion,
		EarlyExercise:     result.EarlyExercise,
		SettledAt:         result.SettledAt,
	}
}

func (e *EscrowSettledEvent) GetSavedEventParameters() SavedEventParameters {
	return SavedEventParameters{
		StreamName:    EscrowsStream,
		EventName:     EscrowSettledEventName,
		SchemaVersion: 1,
	}
}

func (e *EscrowSettledEvent) ToResult() *SettlementResult {
	return &SettlementResult{
		EscrowID:          e.EscrowID,
		Outcome:           e.Outcome,
		SpotPrice:         e.SpotPrice,
		GrossPayoff:       e.GrossPayoff,
		PayoffNet:         e.PayoffNet,
		ResidualNet:       e.ResidualNet,
		FeeAmount:         e.FeeAmount,
		PayoffRecipient:   e.PayoffRecipient,
		FeeCollector:      e.FeeCollector,
		GovernanceVersion: e.GovernanceVersion,
		EarlyExercise:     e.EarlyExercise,
		SettledAt:         e.SettledAt,
	}
}
