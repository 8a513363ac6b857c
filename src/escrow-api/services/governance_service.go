package services

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/options-escrow/src/escrow-api/models"
	"github.com/jiaming2012/options-escrow/src/eventmodels"
	"github.com/jiaming2012/options-escrow/src/eventpubsub"
)

// GovernanceService wraps the governance store with the same durability
// follow-ups as the escrow service: every accepted mutation is journaled
// to the governance stream and mirrored into the singleton record.
type GovernanceService struct {
	store     *models.GovernanceStore
	dbService models.IDatabaseService
	journal   models.IEventJournal
}

func NewGovernanceService(store *models.GovernanceStore, dbService models.IDatabaseService, journal models.IEventJournal) *GovernanceService {
	return &GovernanceService{
		store:     store,
		dbService: dbService,
		journal:   journal,
	}
}

func (s *GovernanceService) GetStore() *models.GovernanceStore {
	return s.store
}

func (s *GovernanceService) GetConfig() *eventmodels.GovernanceConfig {
	return s.store.Snapshot()
}

func (s *GovernanceService) UpdateFeeRate(ctx context.Context, caller eventmodels.AccountID, feeRateBps int64) (*eventmodels.GovernanceConfig, error) {
	config, err := s.store.UpdateFeeRate(caller, feeRateBps)
	if err != nil {
		return nil, fmt.Errorf("GovernanceService.UpdateFeeRate: %w", err)
	}

	s.commitUpdate(ctx, config, caller, "fee_rate")

	return config, nil
}

func (s *GovernanceService) UpdateFeeCollector(ctx context.Context, caller eventmodels.AccountID, feeCollector eventmodels.AccountID) (*eventmodels.GovernanceConfig, error) {
	config, err := s.store.UpdateFeeCollector(caller, feeCollector)
	if err != nil {
		return nil, fmt.Errorf("GovernanceService.UpdateFeeCollector: %w", err)
	}

	s.commitUpdate(ctx, config, caller, "fee_collector")

	return config, nil
}

func (s *GovernanceService) UpdateFeePolicy(ctx context.Context, caller eventmodels.AccountID, feePolicy eventmodels.FeePolicy) (*eventmodels.GovernanceConfig, error) {
	config, err := s.store.UpdateFeePolicy(caller, feePolicy)
	if err != nil {
		return nil, fmt.Errorf("GovernanceService.UpdateFeePolicy: %w", err)
	}

	s.commitUpdate(ctx, config, caller, "fee_policy")

	return config, nil
}

// TransferAuthority hands the authority role to a new account in a
// single step. The new authority is effective immediately.
func (s *GovernanceService) TransferAuthority(ctx context.Context, caller eventmodels.AccountID, newAuthority eventmodels.AccountID) (*eventmodels.GovernanceConfig, error) {
	config, err := s.store.TransferAuthority(caller, newAuthority)
	if err != nil {
		return nil, fmt.Errorf("GovernanceService.TransferAuthority: %w", err)
	}

	s.commitUpdate(ctx, config, caller, "authority")

	return config, nil
}

// RestoreGovernance applies a journaled governance event during replay;
// memory only, no durability follow-ups.
func (s *GovernanceService) RestoreGovernance(event *eventmodels.GovernanceUpdatedEvent) error {
	config := event.ToConfig()

	if err := s.store.Restore(&config); err != nil {
		return fmt.Errorf("RestoreGovernance: %w", err)
	}

	return nil
}

func (s *GovernanceService) commitUpdate(ctx context.Context, config *eventmodels.GovernanceConfig, caller eventmodels.AccountID, change string) {
	event := eventmodels.NewGovernanceUpdatedEvent(*config, caller, change)

	if s.journal != nil {
		if err := s.journal.Save(ctx, event); err != nil {
			log.Fatalf("GovernanceService: failed to journal %s update: %v", change, err)
		}
	}

	if s.dbService != nil {
		if err := s.dbService.SaveGovernanceRecord(config); err != nil {
			log.Errorf("GovernanceService: failed to save governance record: %v", err)
			eventpubsub.PublishError("GovernanceService", err)
		}
	}

	eventpubsub.PublishEvent("GovernanceService", eventmodels.GovernanceUpdatedEventName, event)
}
