package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
)

// CollateralVault is the custody boundary. Implementations must make both
// operations atomic and idempotent: locking twice for the same escrow, or
// releasing twice with the same transfer id, must not move funds twice.
//
// The engine treats vault calls as the commit point of an operation and
// never retries internally; a failed call surfaces as a *VaultError and
// the caller decides whether to resubmit.
type CollateralVault interface {
	// Lock moves amount of asset from the owner's account into escrow
	// custody keyed by escrowID.
	Lock(ctx context.Context, escrowID uuid.UUID, owner eventmodels.AccountID, asset eventmodels.AssetSymbol, amount int64) (*VaultReceipt, error)

	// Release moves amount of asset out of escrow custody to the
	// recipient. transferID dedupes retries of the same logical transfer.
	Release(ctx context.Context, escrowID uuid.UUID, transferID string, recipient eventmodels.AccountID, asset eventmodels.AssetSymbol, amount int64) error
}

type VaultReceipt struct {
	EscrowID uuid.UUID               `json:"escrow_id"`
	Owner    eventmodels.AccountID   `json:"owner"`
	Asset    eventmodels.AssetSymbol `json:"asset"`
	Amount   int64                   `json:"amount"`
}

// VaultError wraps a custody failure so callers can tell a retryable
// vault problem apart from a terminal domain rejection.
type VaultError struct {
	Op       string
	EscrowID uuid.UUID
	Err      error
}

func (e *VaultError) Error() string {
	return fmt.Sprintf("vault %s failed for escrow %s: %v", e.Op, e.EscrowID, e.Err)
}

func (e *VaultError) Unwrap() error {
	return e.Err
}

func NewVaultError(op string, escrowID uuid.UUID, err error) *VaultError {
	return &VaultError{
		Op:       op,
		EscrowID: escrowID,
		Err:      err,
	}
}

func IsVaultError(err error) bool {
	var vaultErr *VaultError
	return errors.As(err, &vaultErr)
}
