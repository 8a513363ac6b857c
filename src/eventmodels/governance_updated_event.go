package eventmodels

import "github.com/google/uuid"

type GovernanceUpdatedEvent struct {
	BaseEscrowEvent
	Authority    AccountID `json:"authority"`
	FeeRateBps   int64     `json:"fee_rate_bps"`
	FeeCollector AccountID `json:"fee_collector"`
	FeePolicy    FeePolicy `json:"fee_policy"`
	Version      uint64    `json:"version"`
	UpdatedBy    AccountID `json:"updated_by"`
	Change       string    `json:"change"`
}

func NewGovernanceUpdatedEvent(config GovernanceConfig, updatedBy AccountID, change string) *GovernanceUpdatedEvent {
	return &GovernanceUpdatedEvent{
		BaseEscrowEvent: BaseEscrowEvent{Meta: &MetaData{RequestID: uuid.New()}},
		Authority:       config.Authority,
		FeeRateBps:      config.FeeRateBps,
		FeeCollector:    config.FeeCollector,
		FeePolicy:       config.FeePolicy,
		Version:         config.Version,
		UpdatedBy:       updatedBy,
		Change:          change,
	}
}

func (e *GovernanceUpdatedEvent) GetSavedEventParameters() SavedEventParameters {
	return SavedEventParameters{
		StreamName:    GovernanceStream,
		EventName:     GovernanceUpdatedEventName,
		SchemaVersion: 1,
	}
}

func (e *GovernanceUpdatedEvent) ToConfig() GovernanceConfig {
	return GovernanceConfig{
		Authority:    e.Authority,
		FeeRateBps:   e.FeeRateBps,
		FeeCollector: e.FeeCollector,
		FeePolicy:    e.FeePolicy,
		Version:      e.Version,
	}
}
