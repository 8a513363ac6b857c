package data

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jiaming2012/options-escrow/src/escrow-api/models"
	"github.com/jiaming2012/options-escrow/src/eventmodels"
)

// SaveSettlementRecord stores one settlement outcome per escrow. A
// record that already exists is left untouched: settlement commits
// exactly once upstream, so a duplicate save is a replay, not new data.
func (s *DatabaseService) SaveSettlementRecord(result *eventmodels.SettlementResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if result == nil {
		return fmt.Errorf("SaveSettlementRecord: result is nil")
	}

	var existing models.SettlementRecord
	err := db.Where("escrow_id = ?", result.EscrowID).First(&existing).Error

	if err == nil {
		return nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("SaveSettlementRecord: failed to query settlement record: %w", err)
	}

	record := models.NewSettlementRecord(result)
	if err := db.Create(record).Error; err != nil {
		return fmt.Errorf("SaveSettlementRecord: failed to create settlement record: %w", err)
	}

	return nil
}

func (s *DatabaseService) FetchSettlementRecord(escrowID uuid.UUID) (*eventmodels.SettlementResult, error) {
	var record models.SettlementRecord

	if err := db.Where("escrow_id = ?", escrowID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("FetchSettlementRecord: escrow %s: %w", escrowID, eventmodels.ErrEscrowNotFound)
		}

		return nil, fmt.Errorf("FetchSettlementRecord: failed to query settlement record: %w", err)
	}

	return record.ToResult(), nil
}

func (s *DatabaseService) FetchSettlementRecords() ([]*eventmodels.SettlementResult, error) {
	var records []models.SettlementRecord

	if err := db.Order("settled_at asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("FetchSettlementRecords: failed to query settlement records: %w", err)
	}

	results := make([]*eventmodels.SettlementResult, 0, len(records))
	for _, record := range records {
		results = append(results, record.ToResult())
	}

	return results, nil
}

// SaveGovernanceRecord upserts the singleton governance row inside a
// transaction so a version is never half written.
func (s *DatabaseService) SaveGovernanceRecord(config *eventmodels.GovernanceConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if config == nil {
		return fmt.Errorf("SaveGovernanceRecord: config is nil")
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var existing models.GovernanceRecord
		err := tx.Where("singleton = ?", true).First(&existing).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			record := models.NewGovernanceRecord(config)
			if err := tx.Create(record).Error; err != nil {
				return fmt.Errorf("SaveGovernanceRecord: failed to create governance record: %w", err)
			}

			return nil
		}

		if err != nil {
			return fmt.Errorf("SaveGovernanceRecord: failed to query governance record: %w", err)
		}

		record := models.NewGovernanceRecord(config)
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt

		if err := tx.Save(record).Error; err != nil {
			return fmt.Errorf("SaveGovernanceRecord: failed to update governance record: %w", err)
		}

		return nil
	})
}

// FetchGovernanceRecord returns the stored configuration, or found=false
// when the singleton row has never been written.
func (s *DatabaseService) FetchGovernanceRecord() (*eventmodels.GovernanceConfig, bool, error) {
	var record models.GovernanceRecord

	if err := db.Where("singleton = ?", true).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("FetchGovernanceRecord: failed to query governance record: %w", err)
	}

	config, err := record.ToConfig()
	if err != nil {
		return nil, false, fmt.Errorf("FetchGovernanceRecord: %w", err)
	}

	return config, true, nil
}
