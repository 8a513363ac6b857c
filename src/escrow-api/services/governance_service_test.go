package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jiaming2012/options-escrow/src/escrow-api/models"
	"github.com/jiaming2012/options-escrow/src/eventmodels"
	"github.com/jiaming2012/options-escrow/src/eventpubsub"
)

func newGovernanceFixture(t *testing.T) (*GovernanceService, *models.MockDatabase, *models.MockEventJournal) {
	t.Helper()

	eventpubsub.Init()

	store, err := models.NewGovernanceStore(&eventmodels.GovernanceConfig{
		Authority:    "gov-authority",
		FeeRateBps:   100,
		FeeCollector: "treasury",
		FeePolicy:    eventmodels.FeePolicyPayoffOnly,
		Version:      1,
	})
	require.NoError(t, err)

	db := models.NewMockDatabase()
	journal := models.NewMockEventJournal()

	return NewGovernanceService(store, db, journal), db, journal
}

func TestGovernanceServiceUpdates(t *testing.T) {
	t.Run("fee rate update journals and persists", func(t *testing.T) {
		service, db, journal := newGovernanceFixture(t)

		config, err := service.UpdateFeeRate(context.Background(), "gov-authority", 250)
		require.NoError(t, err)
		require.Equal(t, int64(250), config.FeeRateBps)
		require.Equal(t, uint64(2), config.Version)

		events := journal.SavedEvents()
		require.Len(t, events, 1)

		updated, ok := events[0].(*eventmodels.GovernanceUpdatedEvent)
		require.True(t, ok)
		require.Equal(t, "fee_rate", updated.Change)
		require.Equal(t, eventmodels.AccountID("gov-authority"), updated.UpdatedBy)

		stored, found, err := db.FetchGovernanceRecord()
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, int64(250), stored.FeeRateBps)
	})

	t.Run("rejected update journals nothing", func(t *testing.T) {
		service, _, journal := newGovernanceFixture(t)

		_, err := service.UpdateFeeRate(context.Background(), "gov-authority", eventmodels.MaxFeeRateBps+1)
		require.ErrorIs(t, err, eventmodels.ErrFeeRateOutOfBounds)
		require.Empty(t, journal.SavedEvents())
		require.Equal(t, uint64(1), service.GetConfig().Version)
	})

	t.Run("non authority cannot mutate", func(t *testing.T) {
		service, _, journal := newGovernanceFixture(t)

		_, err := service.UpdateFeeCollector(context.Background(), "writer", "writer")
		require.ErrorIs(t, err, eventmodels.ErrUnauthorized)
		require.Empty(t, journal.SavedEvents())
	})

	t.Run("authority transfer is immediate", func(t *testing.T) {
		service, _, _ := newGovernanceFixture(t)
		ctx := context.Background()

		config, err := service.TransferAuthority(ctx, "gov-authority", "new-authority")
		require.NoError(t, err)
		require.Equal(t, eventmodels.AccountID("new-authority"), config.Authority)

		_, err = service.UpdateFeeRate(ctx, "gov-authority", 50)
		require.ErrorIs(t, err, eventmodels.ErrUnauthorized)

		updated, err := service.UpdateFeeRate(ctx, "new-authority", 50)
		require.NoError(t, err)
		require.Equal(t, int64(50), updated.FeeRateBps)
	})

	t.Run("fee policy update carries the named flag", func(t *testing.T) {
		service, _, journal := newGovernanceFixture(t)

		config, err := service.UpdateFeePolicy(context.Background(), "gov-authority", eventmodels.FeePolicyAllDisbursements)
		require.NoError(t, err)
		require.Equal(t, eventmodels.FeePolicyAllDisbursements, config.FeePolicy)

		events := journal.SavedEvents()
		require.Len(t, events, 1)
		require.Equal(t, "fee_policy", events[0].(*eventmodels.GovernanceUpdatedEvent).Change)
	})
}

func TestGovernanceServiceRestore(t *testing.T) {
	t.Run("replay applies the journaled config", func(t *testing.T) {
		source, _, journal := newGovernanceFixture(t)
		ctx := context.Background()

		_, err := source.UpdateFeeRate(ctx, "gov-authority", 300)
		require.NoError(t, err)

		_, err = source.TransferAuthority(ctx, "gov-authority", "new-authority")
		require.NoError(t, err)

		replica, _, _ := newGovernanceFixture(t)
		for _, event := range journal.SavedEvents() {
			require.NoError(t, replica.RestoreGovernance(event.(*eventmodels.GovernanceUpdatedEvent)))
		}

		config := replica.GetConfig()
		require.Equal(t, int64(300), config.FeeRateBps)
		require.Equal(t, eventmodels.AccountID("new-authority"), config.Authority)
		require.Equal(t, uint64(3), config.Version)
	})
}
