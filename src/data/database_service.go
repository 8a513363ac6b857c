package data

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jiaming2012/options-escrow/src/escrow-api/models"
	"github.com/jiaming2012/options-escrow/src/eventmodels"
)

// DatabaseService projects escrow state into Postgres. The registry
// stays the source of truth for live escrows; these records back
// lookups across restarts, reporting queries and the export tooling.
type DatabaseService struct {
	mu sync.Mutex
}

var _ models.IDatabaseService = (*DatabaseService)(nil)

var (
	db *gorm.DB
)

func NewDatabaseService(_db *gorm.DB) *DatabaseService {
	db = _db

	return &DatabaseService{}
}

// SaveEscrowRecord upserts the durable row for an escrow, keyed by the
// escrow id rather than the gorm primary key.
func (s *DatabaseService) SaveEscrowRecord(escrow *eventmodels.Escrow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if escrow == nil {
		return fmt.Errorf("SaveEscrowRecord: escrow is nil")
	}

	var existing models.EscrowRecord
	err := db.Where("escrow_id = ?", escrow.ID).First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		record := models.NewEscrowRecord(escrow)
		if err := db.Create(record).Error; err != nil {
			return fmt.Errorf("SaveEscrowRecord: failed to create escrow record: %w", err)
		}

		return nil
	}

	if err != nil {
		return fmt.Errorf("SaveEscrowRecord: failed to query escrow record: %w", err)
	}

	record := models.NewEscrowRecord(escrow)
	record.ID = existing.ID
	record.CreatedAt = existing.CreatedAt

	if err := db.Save(record).Error; err != nil {
		return fmt.Errorf("SaveEscrowRecord: failed to update escrow record: %w", err)
	}

	return nil
}

func (s *DatabaseService) FetchEscrowRecord(escrowID uuid.UUID) (*eventmodels.Escrow, error) {
	var record models.EscrowRecord

	if err := db.Where("escrow_id = ?", escrowID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("FetchEscrowRecord: escrow %s: %w", escrowID, eventmodels.ErrEscrowNotFound)
		}

		return nil, fmt.Errorf("FetchEscrowRecord: failed to query escrow record: %w", err)
	}

	escrow, err := record.ToEscrow()
	if err != nil {
		return nil, fmt.Errorf("FetchEscrowRecord: %w", err)
	}

	return escrow, nil
}

func (s *DatabaseService) FetchEscrowRecords() ([]*eventmodels.Escrow, error) {
	var records []models.EscrowRecord

	if err := db.Order("created_on asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("FetchEscrowRecords: failed to query escrow records: %w", err)
	}

	escrows := make([]*eventmodels.Escrow, 0, len(records))
	for _, record := range records {
		escrow, err := record.ToEscrow()
		if err != nil {
			return nil, fmt.Errorf("FetchEscrowRecords: %w", err)
		}

		escrows = append(escrows, escrow)
	}

	return escrows, nil
}
