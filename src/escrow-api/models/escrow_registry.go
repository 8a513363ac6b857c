package models

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
	"github.com/jiaming2012/options-escrow/src/eventpubsub"
)

type escrowEntry struct {
	mu      *eventpubsub.SafeMutex
	escrow  *eventmodels.Escrow
	pending *DisbursementPlan
}

// EscrowRegistry owns every live escrow and serializes all mutations of
// one escrow behind a per-escrow mutex, which is what makes settlement
// exactly-once: under concurrent submissions one caller commits and the
// rest observe a terminal status.
//
// Vault releases happen inside the critical section. If a leg fails
// before any funds moved the escrow rolls back untouched; if it fails
// after a partial disbursement the plan is pinned on the entry and the
// escrow rests in the exercised status until ResumeDisbursement replays
// the remaining legs.
type EscrowRegistry struct {
	mu         sync.RWMutex
	entries    map[uuid.UUID]*escrowEntry
	vault      CollateralVault
	governance *GovernanceStore
}

func NewEscrowRegistry(vault CollateralVault, governance *GovernanceStore) (*EscrowRegistry, error) {
	if vault == nil {
		return nil, fmt.Errorf("NewEscrowRegistry: vault is required: %w", eventmodels.ErrInvalidParameters)
	}

	if governance == nil {
		return nil, fmt.Errorf("NewEscrowRegistry: governance store is required: %w", eventmodels.ErrInvalidParameters)
	}

	return &EscrowRegistry{
		entries:    make(map[uuid.UUID]*escrowEntry),
		vault:      vault,
		governance: governance,
	}, nil
}

func (r *EscrowRegistry) fetchEntry(escrowID uuid.UUID) (*escrowEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, found := r.entries[escrowID]
	if !found {
		return nil, fmt.Errorf("escrow %s: %w", escrowID, eventmodels.ErrEscrowNotFound)
	}

	return entry, nil
}

// CreateEscrow registers a new contract in the created status. No funds
// move until DepositCollateral.
func (r *EscrowRegistry) CreateEscrow(req *CreateEscrowRequest, now time.Time) (*eventmodels.Escrow, error) {
	if req == nil {
		return nil, fmt.Errorf("CreateEscrow: request is required: %w", eventmodels.ErrInvalidParameters)
	}

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("CreateEscrow: %w", err)
	}

	escrow, err := eventmodels.NewEscrow(req.Initializer, req.OptionType, req.Style, req.StrikePrice, req.Notional, req.ExpirationTime, req.CollateralAsset, req.MaxCollateral, now)
	if err != nil {
		return nil, fmt.Errorf("CreateEscrow: %w", err)
	}

	escrow.Counterparty = req.Counterparty

	r.mu.Lock()
	r.entries[escrow.ID] = &escrowEntry{
		mu:     &eventpubsub.SafeMutex{},
		escrow: escrow,
	}
	r.mu.Unlock()

	log.Infof("CreateEscrow: registered %s %s escrow %s for %s, strike %d, notional %d", escrow.Style, escrow.OptionType, escrow.ID, escrow.Initializer, escrow.StrikePrice, escrow.Notional)

	return escrow.Copy(), nil
}

// DepositCollateral locks the initializer's funds and moves the escrow
// to collateralized. The deposit must cover the maximum possible payoff.
// The vault lock commits before the status flips, so a vault failure
// leaves the escrow unchanged.
func (r *EscrowRegistry) DepositCollateral(ctx context.Context, escrowID uuid.UUID, caller eventmodels.AccountID, amount int64) (*VaultReceipt, error) {
	entry, err := r.fetchEntry(escrowID)
	if err != nil {
		return nil, fmt.Errorf("DepositCollateral: %w", err)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	escrow := entry.escrow

	if escrow.Status != eventmodels.EscrowStatusCreated {
		return nil, fmt.Errorf("DepositCollateral: escrow %s is %s: %w", escrowID, escrow.Status, eventmodels.ErrInvalidState)
	}

	if caller != escrow.Initializer {
		return nil, fmt.Errorf("DepositCollateral: caller %s is not the initializer: %w", caller, eventmodels.ErrUnauthorized)
	}

	required, err := escrow.CollateralRequirement()
	if err != nil {
		return nil, fmt.Errorf("DepositCollateral: %w", err)
	}

	if amount < required {
		return nil, fmt.Errorf("DepositCollateral: deposit %d below required %d: %w", amount, required, eventmodels.ErrInsufficientCollateral)
	}

	receipt, err := r.vault.Lock(ctx, escrowID, escrow.Initializer, escrow.CollateralAsset, amount)
	if err != nil {
		log.Errorf("DepositCollateral: escrow %s: vault lock failed: %v", escrowID, err)
		return nil, fmt.Errorf("DepositCollateral: %w", err)
	}

	escrow.CollateralAmount = amount
	escrow.Status = eventmodels.EscrowStatusCollateralized

	log.Infof("DepositCollateral: escrow %s collateralized with %d %s", escrowID, amount, escrow.CollateralAsset)

	return receipt, nil
}

// ExerciseEarly settles an American option before expiration at the
// holder's request. The option must be in the money at the supplied
// spot price. When no counterparty is bound the caller claims the
// holder side.
func (r *EscrowRegistry) ExerciseEarly(ctx context.Context, escrowID uuid.UUID, caller eventmodels.AccountID, spotPrice int64, now time.Time) (*eventmodels.SettlementResult, error) {
	entry, err := r.fetchEntry(escrowID)
	if err != nil {
		return nil, fmt.Errorf("ExerciseEarly: %w", err)
	}

	if err := caller.Validate(); err != nil {
		return nil, fmt.Errorf("ExerciseEarly: %w: %v", eventmodels.ErrInvalidParameters, err)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := settleableStatus(entry); err != nil {
		return nil, fmt.Errorf("ExerciseEarly: escrow %s: %w", escrowID, err)
	}

	escrow := entry.escrow

	if escrow.Counterparty != "" && caller != escrow.Counterparty {
		return nil, fmt.Errorf("ExerciseEarly: caller %s is not the counterparty: %w", caller, eventmodels.ErrUnauthorized)
	}

	if err := ValidateEarlyExercise(escrow, spotPrice, now); err != nil {
		return nil, fmt.Errorf("ExerciseEarly: %w", err)
	}

	recipient := escrow.Counterparty
	if recipient == "" {
		recipient = caller
	}

	result, err := r.settleLocked(ctx, entry, recipient, spotPrice, now, true)
	if err != nil {
		return nil, fmt.Errorf("ExerciseEarly: %w", err)
	}

	return result, nil
}

// SettleEscrow settles at or after expiration. With a bound counterparty
// either party may trigger settlement and the payoff always goes to the
// counterparty; unbound escrows pay the caller when in the money.
func (r *EscrowRegistry) SettleEscrow(ctx context.Context, escrowID uuid.UUID, caller eventmodels.AccountID, spotPrice int64, now time.Time) (*eventmodels.SettlementResult, error) {
	entry, err := r.fetchEntry(escrowID)
	if err != nil {
		return nil, fmt.Errorf("SettleEscrow: %w", err)
	}

	if err := caller.Validate(); err != nil {
		return nil, fmt.Errorf("SettleEscrow: %w: %v", eventmodels.ErrInvalidParameters, err)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := settleableStatus(entry); err != nil {
		return nil, fmt.Errorf("SettleEscrow: escrow %s: %w", escrowID, err)
	}

	escrow := entry.escrow

	if escrow.Counterparty != "" && caller != escrow.Counterparty && caller != escrow.Initializer {
		return nil, fmt.Errorf("SettleEscrow: caller %s is not a party to escrow %s: %w", caller, escrowID, eventmodels.ErrUnauthorized)
	}

	if err := ValidateExpirySettlement(escrow, now); err != nil {
		return nil, fmt.Errorf("SettleEscrow: %w", err)
	}

	recipient := escrow.Counterparty
	if recipient == "" {
		recipient = caller
	}

	result, err := r.settleLocked(ctx, entry, recipient, spotPrice, now, false)
	if err != nil {
		return nil, fmt.Errorf("SettleEscrow: %w", err)
	}

	return result, nil
}

// CancelEscrow tears down an unfunded contract. Once collateral is
// locked there is no cancellation path, only settlement.
func (r *EscrowRegistry) CancelEscrow(escrowID uuid.UUID, caller eventmodels.AccountID) (*eventmodels.Escrow, error) {
	entry, err := r.fetchEntry(escrowID)
	if err != nil {
		return nil, fmt.Errorf("CancelEscrow: %w", err)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	escrow := entry.escrow

	if escrow.Status != eventmodels.EscrowStatusCreated {
		return nil, fmt.Errorf("CancelEscrow: escrow %s is %s: %w", escrowID, escrow.Status, eventmodels.ErrInvalidState)
	}

	if caller != escrow.Initializer {
		return nil, fmt.Errorf("CancelEscrow: caller %s is not the initializer: %w", caller, eventmodels.ErrUnauthorized)
	}

	escrow.Status = eventmodels.EscrowStatusCancelled

	log.Infof("CancelEscrow: escrow %s cancelled by %s", escrowID, caller)

	return escrow.Copy(), nil
}

// GetEscrow returns a snapshot of one escrow.
func (r *EscrowRegistry) GetEscrow(escrowID uuid.UUID) (*eventmodels.Escrow, error) {
	entry, err := r.fetchEntry(escrowID)
	if err != nil {
		return nil, fmt.Errorf("GetEscrow: %w", err)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	return entry.escrow.Copy(), nil
}

// ListEscrows returns snapshots of every escrow ordered by creation
// time, then id for a stable tiebreak.
func (r *EscrowRegistry) ListEscrows() []*eventmodels.Escrow {
	r.mu.RLock()
	entries := make([]*escrowEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	r.mu.RUnlock()

	escrows := make([]*eventmodels.Escrow, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		escrows = append(escrows, entry.escrow.Copy())
		entry.mu.Unlock()
	}

	sort.Slice(escrows, func(i, j int) bool {
		if escrows[i].CreatedAt.Equal(escrows[j].CreatedAt) {
			return escrows[i].ID.String() < escrows[j].ID.String()
		}

		return escrows[i].CreatedAt.Before(escrows[j].CreatedAt)
	})

	return escrows
}

// PendingDisbursements lists escrows stuck mid-disbursement, awaiting a
// replay of their remaining legs.
func (r *EscrowRegistry) PendingDisbursements() []uuid.UUID {
	r.mu.RLock()
	entries := make([]*escrowEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	r.mu.RUnlock()

	var pending []uuid.UUID
	for _, entry := range entries {
		entry.mu.Lock()
		if entry.pending != nil {
			pending = append(pending, entry.escrow.ID)
		}
		entry.mu.Unlock()
	}

	return pending
}

// HasPendingDisbursement reports whether the escrow holds a pinned plan
// awaiting reconciliation.
func (r *EscrowRegistry) HasPendingDisbursement(escrowID uuid.UUID) bool {
	entry, err := r.fetchEntry(escrowID)
	if err != nil {
		return false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	return entry.pending != nil
}

// ResumeDisbursement replays the remaining legs of a pinned plan. Legs
// that already executed are deduplicated by the vault via their transfer
// ids, so replaying after an ambiguous failure is safe.
func (r *EscrowRegistry) ResumeDisbursement(ctx context.Context, escrowID uuid.UUID) (*eventmodels.SettlementResult, error) {
	entry, err := r.fetchEntry(escrowID)
	if err != nil {
		return nil, fmt.Errorf("ResumeDisbursement: %w", err)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.pending == nil {
		return nil, fmt.Errorf("ResumeDisbursement: escrow %s has no pending disbursement: %w", escrowID, eventmodels.ErrInvalidState)
	}

	plan := entry.pending

	for _, leg := range plan.RemainingLegs() {
		if err := r.vault.Release(ctx, escrowID, leg.TransferID, leg.Recipient, leg.Asset, leg.Amount); err != nil {
			log.Errorf("ResumeDisbursement: escrow %s: leg %s failed again: %v", escrowID, leg.Kind, err)
			return nil, fmt.Errorf("ResumeDisbursement: %w", err)
		}

		plan.MarkDone(leg.TransferID)
	}

	entry.escrow.Status = eventmodels.EscrowStatusSettled
	entry.escrow.CollateralAmount = 0
	entry.pending = nil

	log.Infof("ResumeDisbursement: escrow %s settled after disbursement replay", escrowID)

	return plan.Result, nil
}

// RestoreEscrow upserts an escrow snapshot during event replay. The
// vault is not touched: replay rebuilds bookkeeping, not fund movements.
func (r *EscrowRegistry) RestoreEscrow(escrow *eventmodels.Escrow) error {
	if escrow == nil {
		return fmt.Errorf("RestoreEscrow: escrow is required: %w", eventmodels.ErrInvalidParameters)
	}

	if err := escrow.Validate(); err != nil {
		return fmt.Errorf("RestoreEscrow: %w", err)
	}

	cp := escrow.Copy()

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, found := r.entries[escrow.ID]; found {
		entry.mu.Lock()
		entry.escrow = cp
		entry.mu.Unlock()
		return nil
	}

	r.entries[escrow.ID] = &escrowEntry{
		mu:     &eventpubsub.SafeMutex{},
		escrow: cp,
	}

	return nil
}

func settleableStatus(entry *escrowEntry) error {
	if entry.pending != nil {
		return fmt.Errorf("disbursement in flight: %w", eventmodels.ErrInvalidState)
	}

	status := entry.escrow.Status
	if status.IsTerminal() {
		return fmt.Errorf("escrow is %s: %w", status, eventmodels.ErrAlreadySettled)
	}

	if status != eventmodels.EscrowStatusCollateralized {
		return fmt.Errorf("escrow is %s: %w", status, eventmodels.ErrInvalidState)
	}

	return nil
}

// settleLocked runs the commit protocol under the entry lock: take a
// governance snapshot, build the plan, re-check the snapshot version,
// flip to the transient exercised status, then release each leg. A
// failure on the first leg rolls everything back; a failure after funds
// moved pins the plan for reconciliation.
func (r *EscrowRegistry) settleLocked(ctx context.Context, entry *escrowEntry, recipient eventmodels.AccountID, spotPrice int64, now time.Time, earlyExercise bool) (*eventmodels.SettlementResult, error) {
	escrow := entry.escrow

	config := r.governance.Snapshot()

	result, plan, err := BuildSettlement(escrow, spotPrice, config, recipient, earlyExercise, now)
	if err != nil {
		return nil, err
	}

	if err := r.governance.CheckVersion(config.Version); err != nil {
		return nil, err
	}

	prevStatus := escrow.Status
	prevCounterparty := escrow.Counterparty

	if result.Outcome == eventmodels.SettlementOutcomeITM && escrow.Counterparty == "" {
		escrow.Counterparty = recipient
	}

	escrow.Status = eventmodels.EscrowStatusExercised

	for i := range plan.Legs {
		leg := plan.Legs[i]

		if err := r.vault.Release(ctx, escrow.ID, leg.TransferID, leg.Recipient, leg.Asset, leg.Amount); err != nil {
			if i == 0 {
				escrow.Status = prevStatus
				escrow.Counterparty = prevCounterparty
				log.Errorf("settleLocked: escrow %s: %s leg failed before any funds moved, rolled back: %v", escrow.ID, leg.Kind, err)
				return nil, err
			}

			entry.pending = plan
			log.Errorf("settleLocked: escrow %s: %s leg failed after partial disbursement, pinned for reconciliation: %v", escrow.ID, leg.Kind, err)
			return nil, err
		}

		plan.MarkDone(leg.TransferID)
	}

	escrow.Status = eventmodels.EscrowStatusSettled
	escrow.CollateralAmount = 0
	entry.pending = nil

	log.Infof("settleLocked: escrow %s settled %s at spot %d, payoff %d to %s, fee %d, residual %d", escrow.ID, result.Outcome, spotPrice, result.PayoffNet, result.PayoffRecipient, result.FeeAmount, result.ResidualNet)

	return result, nil
}
