package eventmodels

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewEscrow(t *testing.T) {
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	expiration := now.Add(30 * 24 * time.Hour)

	t.Run("creates a valid put", func(t *testing.T) {
		escrow, err := NewEscrow("alice", OptionTypePut, OptionStyleEuropean, 100, 10, expiration, "USDC", 0, now)
		require.NoError(t, err)
		require.Equal(t, EscrowStatusCreated, escrow.Status)
		require.Equal(t, AccountID("alice"), escrow.Initializer)
		require.Equal(t, int64(0), escrow.CollateralAmount)
		require.NotEqual(t, escrow.ID.String(), "00000000-0000-0000-0000-000000000000")

		required, err := escrow.CollateralRequirement()
		require.NoError(t, err)
		require.Equal(t, int64(1000), required)
	})

	t.Run("call requires explicit max collateral", func(t *testing.T) {
		_, err := NewEscrow("alice", OptionTypeCall, OptionStyleAmerican, 100, 10, expiration, "USDC", 0, now)
		require.ErrorIs(t, err, ErrInvalidParameters)

		escrow, err := NewEscrow("alice", OptionTypeCall, OptionStyleAmerican, 100, 10, expiration, "USDC", 1000, now)
		require.NoError(t, err)

		required, err := escrow.CollateralRequirement()
		require.NoError(t, err)
		require.Equal(t, int64(1000), required)
	})

	t.Run("rejects non-positive terms", func(t *testing.T) {
		_, err := NewEscrow("alice", OptionTypePut, OptionStyleEuropean, 0, 10, expiration, "USDC", 0, now)
		require.ErrorIs(t, err, ErrInvalidParameters)

		_, err = NewEscrow("alice", OptionTypePut, OptionStyleEuropean, 100, 0, expiration, "USDC", 0, now)
		require.ErrorIs(t, err, ErrInvalidParameters)

		_, err = NewEscrow("alice", OptionTypePut, OptionStyleEuropean, 100, -5, expiration, "USDC", 0, now)
		require.ErrorIs(t, err, ErrInvalidParameters)
	})

	t.Run("rejects expiration at or before now", func(t *testing.T) {
		_, err := NewEscrow("alice", OptionTypePut, OptionStyleEuropean, 100, 10, now, "USDC", 0, now)
		require.ErrorIs(t, err, ErrInvalidParameters)

		_, err = NewEscrow("alice", OptionTypePut, OptionStyleEuropean, 100, 10, now.Add(-time.Hour), "USDC", 0, now)
		require.ErrorIs(t, err, ErrInvalidParameters)
	})

	t.Run("rejects bad enum values", func(t *testing.T) {
		_, err := NewEscrow("alice", OptionType("straddle"), OptionStyleEuropean, 100, 10, expiration, "USDC", 0, now)
		require.ErrorIs(t, err, ErrInvalidParameters)

		_, err = NewEscrow("alice", OptionTypePut, OptionStyle("bermudan"), 100, 10, expiration, "USDC", 0, now)
		require.ErrorIs(t, err, ErrInvalidParameters)

		_, err = NewEscrow("", OptionTypePut, OptionStyleEuropean, 100, 10, expiration, "USDC", 0, now)
		require.ErrorIs(t, err, ErrInvalidParameters)

		_, err = NewEscrow("alice", OptionTypePut, OptionStyleEuropean, 100, 10, expiration, "", 0, now)
		require.ErrorIs(t, err, ErrInvalidParameters)
	})

	t.Run("put whose bound overflows is rejected at creation", func(t *testing.T) {
		_, err := NewEscrow("alice", OptionTypePut, OptionStyleEuropean, math.MaxInt64, 2, expiration, "USDC", 0, now)
		require.ErrorIs(t, err, ErrArithmeticOverflow)
	})

	t.Run("expiration boundary", func(t *testing.T) {
		escrow, err := NewEscrow("alice", OptionTypePut, OptionStyleEuropean, 100, 10, expiration, "USDC", 0, now)
		require.NoError(t, err)

		require.False(t, escrow.IsExpired(expiration.Add(-time.Second)))
		require.True(t, escrow.IsExpired(expiration))
		require.True(t, escrow.IsExpired(expiration.Add(time.Second)))
	})
}
