package models

import (
	"github.com/google/uuid"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
)

// IDatabaseService is the persistence boundary for escrow, settlement
// and governance records.
type IDatabaseService interface {
	SaveEscrowRecord(escrow *eventmodels.Escrow) error
	FetchEscrowRecord(escrowID uuid.UUID) (*eventmodels.Escrow, error)
	FetchEscrowRecords() ([]*eventmodels.Escrow, error)

	SaveSettlementRecord(result *eventmodels.SettlementResult) error
	FetchSettlementRecord(escrowID uuid.UUID) (*eventmodels.SettlementResult, error)
	FetchSettlementRecords() ([]*eventmodels.SettlementResult, error)

	SaveGovernanceRecord(config *eventmodels.GovernanceConfig) error
	FetchGovernanceRecord() (*eventmodels.GovernanceConfig, bool, error)
}
