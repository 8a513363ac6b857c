package models

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
)

// MockCollateralVault wraps the in-memory vault with scripted failures
// so tests can exercise the rollback and reconciliation paths.
type MockCollateralVault struct {
	inner *InMemoryVault

	mu            sync.Mutex
	failNextLocks int
	failTransfers map[string]int
	lockCalls     int
	releaseCalls  int
}

func NewMockCollateralVault() *MockCollateralVault {
	return &MockCollateralVault{
		inner:         NewInMemoryVault(),
		failTransfers: make(map[string]int),
	}
}

func (v *MockCollateralVault) Credit(owner eventmodels.AccountID, asset eventmodels.AssetSymbol, amount int64) error {
	return v.inner.Credit(owner, asset, amount)
}

func (v *MockCollateralVault) BalanceOf(owner eventmodels.AccountID, asset eventmodels.AssetSymbol) int64 {
	return v.inner.BalanceOf(owner, asset)
}

func (v *MockCollateralVault) LockedOf(escrowID uuid.UUID) int64 {
	return v.inner.LockedOf(escrowID)
}

// FailNextLocks makes the next n Lock calls fail before touching any
// balance.
func (v *MockCollateralVault) FailNextLocks(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.failNextLocks = n
}

// FailTransfer makes Release fail the next n times it sees the given
// transfer id, without moving funds.
func (v *MockCollateralVault) FailTransfer(transferID string, n int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.failTransfers[transferID] = n
}

func (v *MockCollateralVault) LockCalls() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.lockCalls
}

func (v *MockCollateralVault) ReleaseCalls() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.releaseCalls
}

func (v *MockCollateralVault) Lock(ctx context.Context, escrowID uuid.UUID, owner eventmodels.AccountID, asset eventmodels.AssetSymbol, amount int64) (*VaultReceipt, error) {
	v.mu.Lock()
	v.lockCalls += 1
	if v.failNextLocks > 0 {
		v.failNextLocks -= 1
		v.mu.Unlock()
		return nil, NewVaultError("lock", escrowID, fmt.Errorf("injected lock failure"))
	}
	v.mu.Unlock()

	return v.inner.Lock(ctx, escrowID, owner, asset, amount)
}

func (v *MockCollateralVault) Release(ctx context.Context, escrowID uuid.UUID, transferID string, recipient eventmodels.AccountID, asset eventmodels.AssetSymbol, amount int64) error {
	v.mu.Lock()
	v.releaseCalls += 1
	if remaining, found := v.failTransfers[transferID]; found && remaining > 0 {
		v.failTransfers[transferID] = remaining - 1
		v.mu.Unlock()
		return NewVaultError("release", escrowID, fmt.Errorf("injected release failure for %s", transferID))
	}
	v.mu.Unlock()

	return v.inner.Release(ctx, escrowID, transferID, recipient, asset, amount)
}
