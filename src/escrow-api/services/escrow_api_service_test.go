package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jiaming2012/options-escrow/src/escrow-api/models"
	"github.com/jiaming2012/options-escrow/src/eventmodels"
	"github.com/jiaming2012/options-escrow/src/eventpubsub"
)

var (
	serviceBaseTime   = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	serviceExpiration = serviceBaseTime.Add(24 * time.Hour)
	afterExpiration   = serviceExpiration.Add(time.Hour)
)

type serviceFixture struct {
	apiService *EscrowApiService
	vault      *models.MockCollateralVault
	db         *models.MockDatabase
	journal    *models.MockEventJournal
	governance *models.GovernanceStore
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	eventpubsub.Init()

	vault := models.NewMockCollateralVault()
	require.NoError(t, vault.Credit("writer", "USDC", 10_000))

	governance, err := models.NewGovernanceStore(&eventmodels.GovernanceConfig{
		Authority:    "gov-authority",
		FeeRateBps:   100,
		FeeCollector: "treasury",
		FeePolicy:    eventmodels.FeePolicyPayoffOnly,
		Version:      1,
	})
	require.NoError(t, err)

	registry, err := models.NewEscrowRegistry(vault, governance)
	require.NoError(t, err)

	db := models.NewMockDatabase()
	journal := models.NewMockEventJournal()

	return &serviceFixture{
		apiService: NewEscrowApiService(registry, db, journal),
		vault:      vault,
		db:         db,
		journal:    journal,
		governance: governance,
	}
}

func newCallRequest(counterparty eventmodels.AccountID, style eventmodels.OptionStyle) *models.CreateEscrowRequest {
	return &models.CreateEscrowRequest{
		Initializer:     "writer",
		Counterparty:    counterparty,
		OptionType:      eventmodels.OptionTypeCall,
		Style:           style,
		StrikePrice:     100,
		Notional:        10,
		ExpirationTime:  serviceExpiration,
		CollateralAsset: "USDC",
		MaxCollateral:   1000,
	}
}

func createFundedEscrow(t *testing.T, fixture *serviceFixture, req *models.CreateEscrowRequest) *eventmodels.Escrow {
	t.Helper()

	ctx := context.Background()

	escrow, err := fixture.apiService.CreateEscrow(ctx, req, serviceBaseTime)
	require.NoError(t, err)

	_, err = fixture.apiService.DepositCollateral(ctx, escrow.ID, "writer", 1000)
	require.NoError(t, err)

	funded, err := fixture.apiService.GetEscrow(escrow.ID)
	require.NoError(t, err)

	return funded
}

func TestEscrowApiServiceCreate(t *testing.T) {
	t.Run("journals and mirrors the creation", func(t *testing.T) {
		fixture := newServiceFixture(t)

		escrow, err := fixture.apiService.CreateEscrow(context.Background(), newCallRequest("holder", eventmodels.OptionStyleEuropean), serviceBaseTime)
		require.NoError(t, err)

		require.Equal(t, []eventmodels.EventName{eventmodels.EscrowCreatedEventName}, fixture.journal.SavedEventNames())

		stored, err := fixture.db.FetchEscrowRecord(escrow.ID)
		require.NoError(t, err)
		require.Equal(t, eventmodels.EscrowStatusCreated, stored.Status)
	})

	t.Run("invalid request journals nothing", func(t *testing.T) {
		fixture := newServiceFixture(t)

		req := newCallRequest("holder", eventmodels.OptionStyleEuropean)
		req.Notional = 0

		_, err := fixture.apiService.CreateEscrow(context.Background(), req, serviceBaseTime)
		require.ErrorIs(t, err, eventmodels.ErrInvalidParameters)
		require.Empty(t, fixture.journal.SavedEvents())
	})
}

func TestEscrowApiServiceDeposit(t *testing.T) {
	t.Run("journals the deposit after the vault lock", func(t *testing.T) {
		fixture := newServiceFixture(t)
		ctx := context.Background()

		escrow, err := fixture.apiService.CreateEscrow(ctx, newCallRequest("holder", eventmodels.OptionStyleEuropean), serviceBaseTime)
		require.NoError(t, err)

		receipt, err := fixture.apiService.DepositCollateral(ctx, escrow.ID, "writer", 1000)
		require.NoError(t, err)
		require.Equal(t, int64(1000), receipt.Amount)

		names := fixture.journal.SavedEventNames()
		require.Equal(t, []eventmodels.EventName{eventmodels.EscrowCreatedEventName, eventmodels.CollateralDepositedEventName}, names)

		stored, err := fixture.db.FetchEscrowRecord(escrow.ID)
		require.NoError(t, err)
		require.Equal(t, eventmodels.EscrowStatusCollateralized, stored.Status)
		require.Equal(t, int64(1000), stored.CollateralAmount)
	})

	t.Run("vault failure journals nothing", func(t *testing.T) {
		fixture := newServiceFixture(t)
		ctx := context.Background()

		escrow, err := fixture.apiService.CreateEscrow(ctx, newCallRequest("holder", eventmodels.OptionStyleEuropean), serviceBaseTime)
		require.NoError(t, err)

		fixture.vault.FailNextLocks(1)

		_, err = fixture.apiService.DepositCollateral(ctx, escrow.ID, "writer", 1000)
		require.Error(t, err)
		require.True(t, models.IsVaultError(err))

		require.Equal(t, []eventmodels.EventName{eventmodels.EscrowCreatedEventName}, fixture.journal.SavedEventNames())
	})
}

func TestEscrowApiServiceSettle(t *testing.T) {
	t.Run("journals the settlement and mirrors both records", func(t *testing.T) {
		fixture := newServiceFixture(t)
		ctx := context.Background()

		escrow := createFundedEscrow(t, fixture, newCallRequest("holder", eventmodels.OptionStyleEuropean))

		result, err := fixture.apiService.SettleEscrow(ctx, escrow.ID, "holder", 120, afterExpiration)
		require.NoError(t, err)
		require.Equal(t, eventmodels.SettlementOutcomeITM, result.Outcome)
		require.Equal(t, int64(198), result.PayoffNet)
		require.Equal(t, int64(2), result.FeeAmount)
		require.Equal(t, int64(800), result.ResidualNet)

		names := fixture.journal.SavedEventNames()
		require.Equal(t, eventmodels.EscrowSettledEventName, names[len(names)-1])

		storedResult, err := fixture.db.FetchSettlementRecord(escrow.ID)
		require.NoError(t, err)
		require.Equal(t, result.PayoffNet, storedResult.PayoffNet)

		storedEscrow, err := fixture.db.FetchEscrowRecord(escrow.ID)
		require.NoError(t, err)
		require.Equal(t, eventmodels.EscrowStatusSettled, storedEscrow.Status)
	})

	t.Run("second settle fails and journals once", func(t *testing.T) {
		fixture := newServiceFixture(t)
		ctx := context.Background()

		escrow := createFundedEscrow(t, fixture, newCallRequest("holder", eventmodels.OptionStyleEuropean))

		_, err := fixture.apiService.SettleEscrow(ctx, escrow.ID, "holder", 120, afterExpiration)
		require.NoError(t, err)

		_, err = fixture.apiService.SettleEscrow(ctx, escrow.ID, "holder", 120, afterExpiration)
		require.ErrorIs(t, err, eventmodels.ErrAlreadySettled)

		var settledCount int
		for _, name := range fixture.journal.SavedEventNames() {
			if name == eventmodels.EscrowSettledEventName {
				settledCount += 1
			}
		}
		require.Equal(t, 1, settledCount)
	})

	t.Run("stats aggregate settled escrows", func(t *testing.T) {
		fixture := newServiceFixture(t)
		ctx := context.Background()

		itm := createFundedEscrow(t, fixture, newCallRequest("holder", eventmodels.OptionStyleEuropean))
		otm := createFundedEscrow(t, fixture, newCallRequest("holder", eventmodels.OptionStyleEuropean))

		_, err := fixture.apiService.SettleEscrow(ctx, itm.ID, "holder", 120, afterExpiration)
		require.NoError(t, err)

		_, err = fixture.apiService.SettleEscrow(ctx, otm.ID, "holder", 90, afterExpiration)
		require.NoError(t, err)

		stats, err := fixture.apiService.GetSettlementStats()
		require.NoError(t, err)
		require.Equal(t, 2, stats.TotalSettlements)
		require.Equal(t, 1, stats.ITMCount)
		require.Equal(t, 1, stats.OTMCount)
		require.Equal(t, int64(198), stats.TotalPayoffNet)
		require.Equal(t, int64(2), stats.TotalFees)
	})
}

func TestEscrowApiServicePendingDisbursement(t *testing.T) {
	t.Run("partial vault failure flags the escrow for reconciliation", func(t *testing.T) {
		fixture := newServiceFixture(t)
		ctx := context.Background()

		pendingCh := make(chan uuid.UUID, 1)
		eventpubsub.Subscribe("test", eventmodels.DisbursementPendingEventName, func(escrowID uuid.UUID) {
			pendingCh <- escrowID
		})

		escrow := createFundedEscrow(t, fixture, newCallRequest("holder", eventmodels.OptionStyleEuropean))

		fixture.vault.FailTransfer(models.NewTransferID(escrow.ID, models.LegKindFee), 1)

		_, err := fixture.apiService.SettleEscrow(ctx, escrow.ID, "holder", 120, afterExpiration)
		require.Error(t, err)
		require.True(t, models.IsVaultError(err))

		select {
		case flagged := <-pendingCh:
			require.Equal(t, escrow.ID, flagged)
		case <-time.After(2 * time.Second):
			t.Fatal("expected a pending disbursement announcement")
		}

		require.Equal(t, []uuid.UUID{escrow.ID}, fixture.apiService.PendingDisbursements())
	})

	t.Run("resume journals the settlement exactly once", func(t *testing.T) {
		fixture := newServiceFixture(t)
		ctx := context.Background()

		escrow := createFundedEscrow(t, fixture, newCallRequest("holder", eventmodels.OptionStyleEuropean))

		fixture.vault.FailTransfer(models.NewTransferID(escrow.ID, models.LegKindFee), 1)

		_, err := fixture.apiService.SettleEscrow(ctx, escrow.ID, "holder", 120, afterExpiration)
		require.Error(t, err)

		result, err := fixture.apiService.ResumeDisbursement(ctx, escrow.ID)
		require.NoError(t, err)
		require.Equal(t, int64(198), result.PayoffNet)

		var settledCount int
		for _, name := range fixture.journal.SavedEventNames() {
			if name == eventmodels.EscrowSettledEventName {
				settledCount += 1
			}
		}
		require.Equal(t, 1, settledCount)

		require.Equal(t, int64(198), fixture.vault.BalanceOf("holder", "USDC"))
		require.Equal(t, int64(2), fixture.vault.BalanceOf("treasury", "USDC"))

		storedResult, err := fixture.db.FetchSettlementRecord(escrow.ID)
		require.NoError(t, err)
		require.Equal(t, result.SettledAt, storedResult.SettledAt)
	})
}

func TestEscrowApiServiceCancel(t *testing.T) {
	t.Run("journals the cancellation", func(t *testing.T) {
		fixture := newServiceFixture(t)
		ctx := context.Background()

		escrow, err := fixture.apiService.CreateEscrow(ctx, newCallRequest("holder", eventmodels.OptionStyleEuropean), serviceBaseTime)
		require.NoError(t, err)

		cancelled, err := fixture.apiService.CancelEscrow(ctx, escrow.ID, "writer")
		require.NoError(t, err)
		require.Equal(t, eventmodels.EscrowStatusCancelled, cancelled.Status)

		names := fixture.journal.SavedEventNames()
		require.Equal(t, eventmodels.EscrowCancelledEventName, names[len(names)-1])
	})
}

func TestEscrowApiServiceList(t *testing.T) {
	t.Run("filters by status and account", func(t *testing.T) {
		fixture := newServiceFixture(t)
		ctx := context.Background()

		created, err := fixture.apiService.CreateEscrow(ctx, newCallRequest("holder", eventmodels.OptionStyleEuropean), serviceBaseTime)
		require.NoError(t, err)

		funded := createFundedEscrow(t, fixture, newCallRequest("other-holder", eventmodels.OptionStyleEuropean))

		all, err := fixture.apiService.ListEscrows(nil)
		require.NoError(t, err)
		require.Len(t, all, 2)

		collateralized, err := fixture.apiService.ListEscrows(&models.EscrowFilter{Status: eventmodels.EscrowStatusCollateralized})
		require.NoError(t, err)
		require.Len(t, collateralized, 1)
		require.Equal(t, funded.ID, collateralized[0].ID)

		byAccount, err := fixture.apiService.ListEscrows(&models.EscrowFilter{Account: "holder"})
		require.NoError(t, err)
		require.Len(t, byAccount, 1)
		require.Equal(t, created.ID, byAccount[0].ID)
	})

	t.Run("rejects an invalid status filter", func(t *testing.T) {
		fixture := newServiceFixture(t)

		_, err := fixture.apiService.ListEscrows(&models.EscrowFilter{Status: "melted"})
		require.Error(t, err)
	})
}

func TestEscrowApiServiceReplay(t *testing.T) {
	t.Run("journal round trip rebuilds the registry", func(t *testing.T) {
		source := newServiceFixture(t)
		ctx := context.Background()

		settled := createFundedEscrow(t, source, newCallRequest("holder", eventmodels.OptionStyleEuropean))
		_, err := source.apiService.SettleEscrow(ctx, settled.ID, "holder", 120, afterExpiration)
		require.NoError(t, err)

		open := createFundedEscrow(t, source, newCallRequest("", eventmodels.OptionStyleAmerican))

		cancelled, err := source.apiService.CreateEscrow(ctx, newCallRequest("holder", eventmodels.OptionStyleEuropean), serviceBaseTime)
		require.NoError(t, err)
		_, err = source.apiService.CancelEscrow(ctx, cancelled.ID, "writer")
		require.NoError(t, err)

		replica := newServiceFixture(t)
		for _, event := range source.journal.SavedEvents() {
			switch typed := event.(type) {
			case *eventmodels.EscrowCreatedEvent:
				require.NoError(t, replica.apiService.RestoreEscrowCreated(typed))
			case *eventmodels.CollateralDepositedEvent:
				require.NoError(t, replica.apiService.RestoreCollateralDeposited(typed))
			case *eventmodels.EscrowSettledEvent:
				require.NoError(t, replica.apiService.RestoreEscrowSettled(typed))
			case *eventmodels.EscrowCancelledEvent:
				require.NoError(t, replica.apiService.RestoreEscrowCancelled(typed))
			default:
				t.Fatalf("unexpected event type %T", event)
			}
		}

		for _, escrowID := range []uuid.UUID{settled.ID, open.ID, cancelled.ID} {
			want, err := source.apiService.GetEscrow(escrowID)
			require.NoError(t, err)

			got, err := replica.apiService.GetEscrow(escrowID)
			require.NoError(t, err)
			require.Equal(t, want, got)
		}

		stats, err := replica.apiService.GetSettlementStats()
		require.NoError(t, err)
		require.Equal(t, 1, stats.TotalSettlements)
	})

	t.Run("load from record store seeds escrows and settlements", func(t *testing.T) {
		source := newServiceFixture(t)
		ctx := context.Background()

		escrow := createFundedEscrow(t, source, newCallRequest("holder", eventmodels.OptionStyleEuropean))
		_, err := source.apiService.SettleEscrow(ctx, escrow.ID, "holder", 120, afterExpiration)
		require.NoError(t, err)

		replica := newServiceFixture(t)
		replica.apiService.dbService = source.db
		require.NoError(t, replica.apiService.LoadFromRecordStore())

		restored, err := replica.apiService.GetEscrow(escrow.ID)
		require.NoError(t, err)
		require.Equal(t, eventmodels.EscrowStatusSettled, restored.Status)

		stats, err := replica.apiService.GetSettlementStats()
		require.NoError(t, err)
		require.Equal(t, 1, stats.TotalSettlements)
	})
}
