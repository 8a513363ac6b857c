package services

import (
	"fmt"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
)

// Restore* methods rebuild registry state from journaled events. They
// mutate memory only: no vault calls, no record writes, no bus traffic.
// Applying the same event twice is a no-op because each handler sets
// absolute state rather than deltas.

func (s *EscrowApiService) RestoreEscrowCreated(event *eventmodels.EscrowCreatedEvent) error {
	if err := s.registry.RestoreEscrow(event.ToEscrow()); err != nil {
		return fmt.Errorf("RestoreEscrowCreated: escrow %s: %w", event.EscrowID, err)
	}

	return nil
}

func (s *EscrowApiService) RestoreCollateralDeposited(event *eventmodels.CollateralDepositedEvent) error {
	escrow, err := s.registry.GetEscrow(event.EscrowID)
	if err != nil {
		return fmt.Errorf("RestoreCollateralDeposited: escrow %s: %w", event.EscrowID, err)
	}

	escrow.CollateralAmount = event.Amount
	escrow.Status = eventmodels.EscrowStatusCollateralized

	if err := s.registry.RestoreEscrow(escrow); err != nil {
		return fmt.Errorf("RestoreCollateralDeposited: escrow %s: %w", event.EscrowID, err)
	}

	return nil
}

func (s *EscrowApiService) RestoreEscrowSettled(event *eventmodels.EscrowSettledEvent) error {
	escrow, err := s.registry.GetEscrow(event.EscrowID)
	if err != nil {
		return fmt.Errorf("RestoreEscrowSettled: escrow %s: %w", event.EscrowID, err)
	}

	if event.Outcome == eventmodels.SettlementOutcomeITM && escrow.Counterparty == "" {
		escrow.Counterparty = event.PayoffRecipient
	}

	escrow.Status = eventmodels.EscrowStatusSettled
	escrow.CollateralAmount = 0

	if err := s.registry.RestoreEscrow(escrow); err != nil {
		return fmt.Errorf("RestoreEscrowSettled: escrow %s: %w", event.EscrowID, err)
	}

	s.recordSettlement(event.ToResult())

	return nil
}

func (s *EscrowApiService) RestoreEscrowCancelled(event *eventmodels.EscrowCancelledEvent) error {
	escrow, err := s.registry.GetEscrow(event.EscrowID)
	if err != nil {
		return fmt.Errorf("RestoreEscrowCancelled: escrow %s: %w", event.EscrowID, err)
	}

	escrow.Status = eventmodels.EscrowStatusCancelled
	escrow.CollateralAmount = 0

	if err := s.registry.RestoreEscrow(escrow); err != nil {
		return fmt.Errorf("RestoreEscrowCancelled: escrow %s: %w", event.EscrowID, err)
	}

	return nil
}

// LoadFromRecordStore seeds the registry from Postgres records. It is
// the boot path when the event journal is disabled; with a journal the
// replay consumer is authoritative instead.
func (s *EscrowApiService) LoadFromRecordStore() error {
	if s.dbService == nil {
		return nil
	}

	escrows, err := s.dbService.FetchEscrowRecords()
	if err != nil {
		return fmt.Errorf("LoadFromRecordStore: %w", err)
	}

	for _, escrow := range escrows {
		if err := s.registry.RestoreEscrow(escrow); err != nil {
			return fmt.Errorf("LoadFromRecordStore: escrow %s: %w", escrow.ID, err)
		}
	}

	results, err := s.dbService.FetchSettlementRecords()
	if err != nil {
		return fmt.Errorf("LoadFromRecordStore: %w", err)
	}

	for _, result := range results {
		s.recordSettlement(result)
	}

	return nil
}
