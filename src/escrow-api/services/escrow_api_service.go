package services

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/options-escrow/src/escrow-api/models"
	"github.com/jiaming2012/options-escrow/src/eventmodels"
	"github.com/jiaming2012/options-escrow/src/eventpubsub"
)

// EscrowApiService glues the registry to the durable plumbing: every
// committed operation is appended to the event journal, mirrored into
// the record store and announced on the in-process bus. The registry
// stays the synchronous authority; the journal is what survives a
// restart.
type EscrowApiService struct {
	registry  *models.EscrowRegistry
	dbService models.IDatabaseService
	journal   models.IEventJournal

	settlementsMutex sync.Mutex
	settlements      []*eventmodels.SettlementResult
}

func NewEscrowApiService(registry *models.EscrowRegistry, dbService models.IDatabaseService, journal models.IEventJournal) *EscrowApiService {
	return &EscrowApiService{
		registry:  registry,
		dbService: dbService,
		journal:   journal,
	}
}

func (s *EscrowApiService) GetRegistry() *models.EscrowRegistry {
	return s.registry
}

func (s *EscrowApiService) GetDbService() models.IDatabaseService {
	return s.dbService
}

// journalEvent appends the event to the durable journal. The registry
// has already committed, so a failed append would fork memory from the
// journal; partial saves are not allowed.
func (s *EscrowApiService) journalEvent(ctx context.Context, event eventmodels.SavedEvent) {
	if s.journal == nil {
		return
	}

	if err := s.journal.Save(ctx, event); err != nil {
		log.Fatalf("EscrowApiService: failed to journal %s event: %v", event.GetSavedEventParameters().EventName, err)
	}
}

// saveEscrowRecord mirrors the escrow into the record store. Records are
// a queryable read model rebuilt from the journal, so failures are
// reported but do not fail the operation.
func (s *EscrowApiService) saveEscrowRecord(escrow *eventmodels.Escrow) {
	if s.dbService == nil {
		return
	}

	if err := s.dbService.SaveEscrowRecord(escrow); err != nil {
		log.Errorf("EscrowApiService: failed to save escrow record %s: %v", escrow.ID, err)
		eventpubsub.PublishError("EscrowApiService", err)
	}
}

func (s *EscrowApiService) saveSettlementRecord(result *eventmodels.SettlementResult) {
	if s.dbService == nil {
		return
	}

	if err := s.dbService.SaveSettlementRecord(result); err != nil {
		log.Errorf("EscrowApiService: failed to save settlement record %s: %v", result.EscrowID, err)
		eventpubsub.PublishError("EscrowApiService", err)
	}
}

func (s *EscrowApiService) recordSettlement(result *eventmodels.SettlementResult) {
	s.settlementsMutex.Lock()
	defer s.settlementsMutex.Unlock()

	for _, existing := range s.settlements {
		if existing.EscrowID == result.EscrowID {
			return
		}
	}

	s.settlements = append(s.settlements, result)
}

// Settlements returns every settlement observed by this process,
// including those restored from the journal or record store at boot.
func (s *EscrowApiService) Settlements() []*eventmodels.SettlementResult {
	s.settlementsMutex.Lock()
	defer s.settlementsMutex.Unlock()

	out := make([]*eventmodels.SettlementResult, len(s.settlements))
	copy(out, s.settlements)
	return out
}
