package models

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
)

// MockDatabase is an in-memory IDatabaseService for tests and the
// sandbox binary.
type MockDatabase struct {
	mu          sync.Mutex
	escrows     map[uuid.UUID]*eventmodels.Escrow
	settlements map[uuid.UUID]*eventmodels.SettlementResult
	governance  *eventmodels.GovernanceConfig
}

func NewMockDatabase() *MockDatabase {
	return &MockDatabase{
		escrows:     make(map[uuid.UUID]*eventmodels.Escrow),
		settlements: make(map[uuid.UUID]*eventmodels.SettlementResult),
	}
}

func (m *MockDatabase) SaveEscrowRecord(escrow *eventmodels.Escrow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if escrow == nil {
		return fmt.Errorf("SaveEscrowRecord: escrow is nil")
	}

	m.escrows[escrow.ID] = escrow.Copy()
	return nil
}

func (m *MockDatabase) FetchEscrowRecord(escrowID uuid.UUID) (*eventmodels.Escrow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	escrow, found := m.escrows[escrowID]
	if !found {
		return nil, fmt.Errorf("FetchEscrowRecord: escrow %s: %w", escrowID, eventmodels.ErrEscrowNotFound)
	}

	return escrow.Copy(), nil
}

func (m *MockDatabase) FetchEscrowRecords() ([]*eventmodels.Escrow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	escrows := make([]*eventmodels.Escrow, 0, len(m.escrows))
	for _, escrow := range m.escrows {
		escrows = append(escrows, escrow.Copy())
	}

	sort.Slice(escrows, func(i, j int) bool {
		return escrows[i].CreatedAt.Before(escrows[j].CreatedAt)
	})

	return escrows, nil
}

func (m *MockDatabase) SaveSettlementRecord(result *eventmodels.SettlementResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if result == nil {
		return fmt.Errorf("SaveSettlementRecord: result is nil")
	}

	if _, found := m.settlements[result.EscrowID]; found {
		return nil
	}

	cp := *result
	m.settlements[result.EscrowID] = &cp
	return nil
}

func (m *MockDatabase) FetchSettlementRecord(escrowID uuid.UUID) (*eventmodels.SettlementResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result, found := m.settlements[escrowID]
	if !found {
		return nil, fmt.Errorf("FetchSettlementRecord: escrow %s: %w", escrowID, eventmodels.ErrEscrowNotFound)
	}

	cp := *result
	return &cp, nil
}

func (m *MockDatabase) FetchSettlementRecords() ([]*eventmodels.SettlementResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	results := make([]*eventmodels.SettlementResult, 0, len(m.settlements))
	for _, result := range m.settlements {
		cp := *result
		results = append(results, &cp)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].SettledAt.Before(results[j].SettledAt)
	})

	return results, nil
}

func (m *MockDatabase) SaveGovernanceRecord(config *eventmodels.GovernanceConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if config == nil {
		return fmt.Errorf("SaveGovernanceRecord: config is nil")
	}

	cp := *config
	m.governance = &cp
	return nil
}

func (m *MockDatabase) FetchGovernanceRecord() (*eventmodels.GovernanceConfig, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.governance == nil {
		return nil, false, nil
	}

	cp := *m.governance
	return &cp, true, nil
}

var _ IDatabaseService = (*MockDatabase)(nil)
