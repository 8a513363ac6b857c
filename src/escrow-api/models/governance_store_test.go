package models

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
)

func newTestGovernanceStore(t *testing.T) *GovernanceStore {
	t.Helper()

	store, err := NewGovernanceStore(newTestGovernance(100, eventmodels.FeePolicyPayoffOnly))
	require.NoError(t, err)

	return store
}

func TestNewGovernanceStore(t *testing.T) {
	t.Run("defaults version and policy", func(t *testing.T) {
		store, err := NewGovernanceStore(&eventmodels.GovernanceConfig{
			Authority:    "gov-authority",
			FeeRateBps:   50,
			FeeCollector: "treasury",
		})
		require.NoError(t, err)

		config := store.Snapshot()
		require.Equal(t, uint64(1), config.Version)
		require.Equal(t, eventmodels.FeePolicyPayoffOnly, config.FeePolicy)
	})

	t.Run("rejects out of bounds fee rate", func(t *testing.T) {
		_, err := NewGovernanceStore(newTestGovernance(eventmodels.MaxFeeRateBps+1, eventmodels.FeePolicyPayoffOnly))
		require.ErrorIs(t, err, eventmodels.ErrFeeRateOutOfBounds)
	})
}

func TestGovernanceStoreSnapshot(t *testing.T) {
	store := newTestGovernanceStore(t)

	snapshot := store.Snapshot()
	snapshot.FeeRateBps = 999

	require.Equal(t, int64(100), store.Snapshot().FeeRateBps)
}

func TestGovernanceStoreUpdateFeeRate(t *testing.T) {
	t.Run("authority updates and bumps version", func(t *testing.T) {
		store := newTestGovernanceStore(t)

		updated, err := store.UpdateFeeRate("gov-authority", 250)
		require.NoError(t, err)
		require.Equal(t, int64(250), updated.FeeRateBps)
		require.Equal(t, uint64(2), updated.Version)
	})

	t.Run("max rate is inclusive", func(t *testing.T) {
		store := newTestGovernanceStore(t)

		updated, err := store.UpdateFeeRate("gov-authority", eventmodels.MaxFeeRateBps)
		require.NoError(t, err)
		require.Equal(t, eventmodels.MaxFeeRateBps, updated.FeeRateBps)
	})

	t.Run("rejects rate above bound without bumping version", func(t *testing.T) {
		store := newTestGovernanceStore(t)

		_, err := store.UpdateFeeRate("gov-authority", eventmodels.MaxFeeRateBps+1)
		require.ErrorIs(t, err, eventmodels.ErrFeeRateOutOfBounds)

		config := store.Snapshot()
		require.Equal(t, int64(100), config.FeeRateBps)
		require.Equal(t, uint64(1), config.Version)
	})

	t.Run("rejects negative rate", func(t *testing.T) {
		store := newTestGovernanceStore(t)

		_, err := store.UpdateFeeRate("gov-authority", -1)
		require.ErrorIs(t, err, eventmodels.ErrFeeRateOutOfBounds)
	})

	t.Run("rejects non authority caller", func(t *testing.T) {
		store := newTestGovernanceStore(t)

		_, err := store.UpdateFeeRate("intruder", 250)
		require.ErrorIs(t, err, eventmodels.ErrUnauthorized)
		require.Equal(t, uint64(1), store.Snapshot().Version)
	})
}

func TestGovernanceStoreUpdateFeeCollector(t *testing.T) {
	store := newTestGovernanceStore(t)

	updated, err := store.UpdateFeeCollector("gov-authority", "new-treasury")
	require.NoError(t, err)
	require.Equal(t, eventmodels.AccountID("new-treasury"), updated.FeeCollector)
	require.Equal(t, uint64(2), updated.Version)

	_, err = store.UpdateFeeCollector("gov-authority", "")
	require.Error(t, err)
	require.Equal(t, uint64(2), store.Snapshot().Version)

	_, err = store.UpdateFeeCollector("intruder", "evil-treasury")
	require.ErrorIs(t, err, eventmodels.ErrUnauthorized)
}

func TestGovernanceStoreUpdateFeePolicy(t *testing.T) {
	store := newTestGovernanceStore(t)

	updated, err := store.UpdateFeePolicy("gov-authority", eventmodels.FeePolicyAllDisbursements)
	require.NoError(t, err)
	require.Equal(t, eventmodels.FeePolicyAllDisbursements, updated.FeePolicy)
	require.Equal(t, uint64(2), updated.Version)

	_, err = store.UpdateFeePolicy("gov-authority", "half_price")
	require.Error(t, err)
	require.Equal(t, uint64(2), store.Snapshot().Version)
}

func TestGovernanceStoreTransferAuthority(t *testing.T) {
	store := newTestGovernanceStore(t)

	updated, err := store.TransferAuthority("gov-authority", "next-authority")
	require.NoError(t, err)
	require.Equal(t, eventmodels.AccountID("next-authority"), updated.Authority)
	require.Equal(t, uint64(2), updated.Version)

	// the outgoing authority has no residual control
	_, err = store.UpdateFeeRate("gov-authority", 50)
	require.ErrorIs(t, err, eventmodels.ErrUnauthorized)

	_, err = store.UpdateFeeRate("next-authority", 50)
	require.NoError(t, err)
}

func TestGovernanceStoreCheckVersion(t *testing.T) {
	store := newTestGovernanceStore(t)

	snapshot := store.Snapshot()
	require.NoError(t, store.CheckVersion(snapshot.Version))

	_, err := store.UpdateFeeRate("gov-authority", 300)
	require.NoError(t, err)

	require.ErrorIs(t, store.CheckVersion(snapshot.Version), eventmodels.ErrStaleGovernanceConfig)
	require.NoError(t, store.CheckVersion(snapshot.Version+1))
}

func TestGovernanceStoreRestore(t *testing.T) {
	store := newTestGovernanceStore(t)

	restored := &eventmodels.GovernanceConfig{
		Authority:    "replayed-authority",
		FeeRateBps:   42,
		FeeCollector: "replayed-treasury",
		FeePolicy:    eventmodels.FeePolicyAllDisbursements,
		Version:      7,
	}

	require.NoError(t, store.Restore(restored))

	config := store.Snapshot()
	require.Equal(t, eventmodels.AccountID("replayed-authority"), config.Authority)
	require.Equal(t, uint64(7), config.Version)
}
