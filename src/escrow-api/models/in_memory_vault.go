package models

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
)

// InMemoryVault is the in-process CollateralVault used by the sandbox
// and the test suite. Releases are idempotent per transfer id, which is
// what lets an interrupted disbursement be replayed safely.
type InMemoryVault struct {
	mu       sync.Mutex
	balances map[eventmodels.AccountID]map[eventmodels.AssetSymbol]int64
	locked   map[uuid.UUID]*VaultReceipt
	executed map[string]bool
}

func NewInMemoryVault() *InMemoryVault {
	return &InMemoryVault{
		balances: make(map[eventmodels.AccountID]map[eventmodels.AssetSymbol]int64),
		locked:   make(map[uuid.UUID]*VaultReceipt),
		executed: make(map[string]bool),
	}
}

// Credit funds an account outside the escrow flow. Used by the config
// bootstrap and by tests.
func (v *InMemoryVault) Credit(owner eventmodels.AccountID, asset eventmodels.AssetSymbol, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("Credit: amount must be positive, got %d: %w", amount, eventmodels.ErrInvalidParameters)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.creditLocked(owner, asset, amount)
	return nil
}

func (v *InMemoryVault) creditLocked(owner eventmodels.AccountID, asset eventmodels.AssetSymbol, amount int64) {
	if v.balances[owner] == nil {
		v.balances[owner] = make(map[eventmodels.AssetSymbol]int64)
	}

	v.balances[owner][asset] += amount
}

func (v *InMemoryVault) BalanceOf(owner eventmodels.AccountID, asset eventmodels.AssetSymbol) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.balances[owner][asset]
}

// LockedOf returns the collateral still held for an escrow, zero once
// every disbursement leg has been released.
func (v *InMemoryVault) LockedOf(escrowID uuid.UUID) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	receipt, found := v.locked[escrowID]
	if !found {
		return 0
	}

	return receipt.Amount
}

func (v *InMemoryVault) Lock(ctx context.Context, escrowID uuid.UUID, owner eventmodels.AccountID, asset eventmodels.AssetSymbol, amount int64) (*VaultReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewVaultError("lock", escrowID, err)
	}

	if amount <= 0 {
		return nil, NewVaultError("lock", escrowID, fmt.Errorf("amount must be positive, got %d: %w", amount, eventmodels.ErrInvalidParameters))
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, found := v.locked[escrowID]; found {
		return nil, NewVaultError("lock", escrowID, fmt.Errorf("collateral already locked: %w", eventmodels.ErrInvalidState))
	}

	if v.balances[owner][asset] < amount {
		return nil, NewVaultError("lock", escrowID, fmt.Errorf("account %s holds %d %s, need %d: %w", owner, v.balances[owner][asset], asset, amount, eventmodels.ErrInsufficientCollateral))
	}

	v.balances[owner][asset] -= amount

	receipt := &VaultReceipt{
		EscrowID: escrowID,
		Owner:    owner,
		Asset:    asset,
		Amount:   amount,
	}

	v.locked[escrowID] = receipt

	out := *receipt
	return &out, nil
}

func (v *InMemoryVault) Release(ctx context.Context, escrowID uuid.UUID, transferID string, recipient eventmodels.AccountID, asset eventmodels.AssetSymbol, amount int64) error {
	if err := ctx.Err(); err != nil {
		return NewVaultError("release", escrowID, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.executed[transferID] {
		return nil
	}

	receipt, found := v.locked[escrowID]
	if !found {
		return NewVaultError("release", escrowID, fmt.Errorf("no collateral locked: %w", eventmodels.ErrInvalidState))
	}

	if amount <= 0 {
		return NewVaultError("release", escrowID, fmt.Errorf("amount must be positive, got %d: %w", amount, eventmodels.ErrInvalidParameters))
	}

	if receipt.Asset != asset {
		return NewVaultError("release", escrowID, fmt.Errorf("locked asset is %s, requested %s: %w", receipt.Asset, asset, eventmodels.ErrInvalidParameters))
	}

	if receipt.Amount < amount {
		return NewVaultError("release", escrowID, fmt.Errorf("locked balance %d below requested %d: %w", receipt.Amount, amount, eventmodels.ErrInsufficientCollateral))
	}

	receipt.Amount -= amount
	if receipt.Amount == 0 {
		delete(v.locked, escrowID)
	}

	v.creditLocked(recipient, asset, amount)
	v.executed[transferID] = true

	return nil
}
