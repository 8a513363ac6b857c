package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/options-escrow/src/escrow-api/models"
	"github.com/jiaming2012/options-escrow/src/eventmodels"
	"github.com/jiaming2012/options-escrow/src/eventpubsub"
	"github.com/jiaming2012/options-escrow/src/eventservices"
)

// CreateEscrow registers a new contract and journals the creation.
func (s *EscrowApiService) CreateEscrow(ctx context.Context, req *models.CreateEscrowRequest, now time.Time) (*eventmodels.Escrow, error) {
	escrow, err := s.registry.CreateEscrow(req, now)
	if err != nil {
		return nil, fmt.Errorf("EscrowApiService.CreateEscrow: %w", err)
	}

	event := eventmodels.NewEscrowCreatedEvent(escrow)
	s.journalEvent(ctx, event)
	s.saveEscrowRecord(escrow)

	eventpubsub.PublishEvent("EscrowApiService", eventmodels.EscrowCreatedEventName, event)

	return escrow, nil
}

// DepositCollateral locks the initializer's funds and journals the
// deposit once the vault lock has committed.
func (s *EscrowApiService) DepositCollateral(ctx context.Context, escrowID uuid.UUID, caller eventmodels.AccountID, amount int64) (*models.VaultReceipt, error) {
	receipt, err := s.registry.DepositCollateral(ctx, escrowID, caller, amount)
	if err != nil {
		return nil, fmt.Errorf("EscrowApiService.DepositCollateral: %w", err)
	}

	event := eventmodels.NewCollateralDepositedEvent(escrowID, caller, receipt.Asset, receipt.Amount)
	s.journalEvent(ctx, event)

	if escrow, fetchErr := s.registry.GetEscrow(escrowID); fetchErr == nil {
		s.saveEscrowRecord(escrow)
	}

	eventpubsub.PublishEvent("EscrowApiService", eventmodels.CollateralDepositedEventName, event)

	return receipt, nil
}

// ExerciseEarly settles an American option before expiration.
func (s *EscrowApiService) ExerciseEarly(ctx context.Context, escrowID uuid.UUID, caller eventmodels.AccountID, spotPrice int64, now time.Time) (*eventmodels.SettlementResult, error) {
	result, err := s.registry.ExerciseEarly(ctx, escrowID, caller, spotPrice, now)
	if err != nil {
		s.flagPendingDisbursement(escrowID, err)
		return nil, fmt.Errorf("EscrowApiService.ExerciseEarly: %w", err)
	}

	s.commitSettlement(ctx, result)

	return result, nil
}

// SettleEscrow settles an expired contract at the supplied spot price.
func (s *EscrowApiService) SettleEscrow(ctx context.Context, escrowID uuid.UUID, caller eventmodels.AccountID, spotPrice int64, now time.Time) (*eventmodels.SettlementResult, error) {
	result, err := s.registry.SettleEscrow(ctx, escrowID, caller, spotPrice, now)
	if err != nil {
		s.flagPendingDisbursement(escrowID, err)
		return nil, fmt.Errorf("EscrowApiService.SettleEscrow: %w", err)
	}

	s.commitSettlement(ctx, result)

	return result, nil
}

// CancelEscrow voids an unfunded contract.
func (s *EscrowApiService) CancelEscrow(ctx context.Context, escrowID uuid.UUID, caller eventmodels.AccountID) (*eventmodels.Escrow, error) {
	escrow, err := s.registry.CancelEscrow(escrowID, caller)
	if err != nil {
		return nil, fmt.Errorf("EscrowApiService.CancelEscrow: %w", err)
	}

	event := eventmodels.NewEscrowCancelledEvent(escrowID, caller)
	s.journalEvent(ctx, event)
	s.saveEscrowRecord(escrow)

	eventpubsub.PublishEvent("EscrowApiService", eventmodels.EscrowCancelledEventName, event)

	return escrow, nil
}

func (s *EscrowApiService) GetEscrow(escrowID uuid.UUID) (*eventmodels.Escrow, error) {
	escrow, err := s.registry.GetEscrow(escrowID)
	if err != nil {
		return nil, fmt.Errorf("EscrowApiService.GetEscrow: %w", err)
	}

	return escrow, nil
}

func (s *EscrowApiService) ListEscrows(filter *models.EscrowFilter) ([]*eventmodels.Escrow, error) {
	if filter != nil {
		if err := filter.Validate(); err != nil {
			return nil, fmt.Errorf("EscrowApiService.ListEscrows: %w", err)
		}
	}

	escrows := s.registry.ListEscrows()

	out := make([]*eventmodels.Escrow, 0, len(escrows))
	for _, escrow := range escrows {
		if filter.Matches(escrow) {
			out = append(out, escrow)
		}
	}

	return out, nil
}

// GetSettlementStats aggregates every settlement this process has seen.
func (s *EscrowApiService) GetSettlementStats() (*eventservices.SettlementStats, error) {
	stats, err := eventservices.ComputeSettlementStats(s.Settlements())
	if err != nil {
		return nil, fmt.Errorf("EscrowApiService.GetSettlementStats: %w", err)
	}

	return stats, nil
}

func (s *EscrowApiService) PendingDisbursements() []uuid.UUID {
	return s.registry.PendingDisbursements()
}

// ResumeDisbursement replays the remaining legs of a pinned plan and, on
// completion, journals the settlement that the original call could not.
func (s *EscrowApiService) ResumeDisbursement(ctx context.Context, escrowID uuid.UUID) (*eventmodels.SettlementResult, error) {
	result, err := s.registry.ResumeDisbursement(ctx, escrowID)
	if err != nil {
		return nil, fmt.Errorf("EscrowApiService.ResumeDisbursement: %w", err)
	}

	s.commitSettlement(ctx, result)

	return result, nil
}

// commitSettlement runs the durable follow-ups of a completed
// settlement: journal append, record mirror, bus announcement.
func (s *EscrowApiService) commitSettlement(ctx context.Context, result *eventmodels.SettlementResult) {
	event := eventmodels.NewEscrowSettledEvent(result)
	s.journalEvent(ctx, event)

	s.saveSettlementRecord(result)
	if escrow, err := s.registry.GetEscrow(result.EscrowID); err == nil {
		s.saveEscrowRecord(escrow)
	}

	s.recordSettlement(result)

	eventpubsub.PublishEvent("EscrowApiService", eventmodels.EscrowSettledEventName, event)
}

// flagPendingDisbursement announces a partial disbursement so the
// reconciliation worker picks it up without waiting for its next sweep.
func (s *EscrowApiService) flagPendingDisbursement(escrowID uuid.UUID, err error) {
	if !models.IsVaultError(err) {
		return
	}

	if !s.registry.HasPendingDisbursement(escrowID) {
		return
	}

	log.Warnf("EscrowApiService: escrow %s pinned mid-disbursement, flagging for reconciliation", escrowID)

	eventpubsub.PublishEvent("EscrowApiService", eventmodels.DisbursementPendingEventName, escrowID)
}
