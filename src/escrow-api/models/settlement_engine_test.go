package models

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
)

func newFundedEscrow(t *testing.T, optionType eventmodels.OptionType, style eventmodels.OptionStyle, strikePrice, notional, collateral int64) *eventmodels.Escrow {
	t.Helper()

	now := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	expiration := now.Add(24 * time.Hour)

	maxCollateral := int64(0)
	if optionType == eventmodels.OptionTypeCall {
		maxCollateral = collateral
	}

	escrow, err := eventmodels.NewEscrow("writer", optionType, style, strikePrice, notional, expiration, "USDC", maxCollateral, now)
	require.NoError(t, err)

	escrow.CollateralAmount = collateral
	escrow.Status = eventmodels.EscrowStatusCollateralized

	return escrow
}

func newTestGovernance(feeRateBps int64, feePolicy eventmodels.FeePolicy) *eventmodels.GovernanceConfig {
	return &eventmodels.GovernanceConfig{
		Authority:    "gov-authority",
		FeeRateBps:   feeRateBps,
		FeeCollector: "treasury",
		FeePolicy:    feePolicy,
		Version:      1,
	}
}

func TestComputeMoneyness(t *testing.T) {
	t.Run("call", func(t *testing.T) {
		moneyness, err := ComputeMoneyness(eventmodels.OptionTypeCall, 100, 120)
		require.NoError(t, err)
		require.Equal(t, eventmodels.OptionMoneynessInTheMoney, moneyness)

		moneyness, err = ComputeMoneyness(eventmodels.OptionTypeCall, 100, 80)
		require.NoError(t, err)
		require.Equal(t, eventmodels.OptionMoneynessOutOfTheMoney, moneyness)
	})

	t.Run("put", func(t *testing.T) {
		moneyness, err := ComputeMoneyness(eventmodels.OptionTypePut, 100, 80)
		require.NoError(t, err)
		require.Equal(t, eventmodels.OptionMoneynessInTheMoney, moneyness)

		moneyness, err = ComputeMoneyness(eventmodels.OptionTypePut, 100, 120)
		require.NoError(t, err)
		require.Equal(t, eventmodels.OptionMoneynessOutOfTheMoney, moneyness)
	})

	t.Run("spot equal to strike is out of the money for both types", func(t *testing.T) {
		moneyness, err := ComputeMoneyness(eventmodels.OptionTypeCall, 100, 100)
		require.NoError(t, err)
		require.Equal(t, eventmodels.OptionMoneynessOutOfTheMoney, moneyness)

		moneyness, err = ComputeMoneyness(eventmodels.OptionTypePut, 100, 100)
		require.NoError(t, err)
		require.Equal(t, eventmodels.OptionMoneynessOutOfTheMoney, moneyness)
	})

	t.Run("rejects non positive spot", func(t *testing.T) {
		_, err := ComputeMoneyness(eventmodels.OptionTypeCall, 100, 0)
		require.ErrorIs(t, err, eventmodels.ErrInvalidParameters)

		_, err = ComputeMoneyness(eventmodels.OptionTypePut, 100, -5)
		require.ErrorIs(t, err, eventmodels.ErrInvalidParameters)
	})
}

func TestComputeGrossPayoff(t *testing.T) {
	t.Run("intrinsic value below collateral", func(t *testing.T) {
		escrow := newFundedEscrow(t, eventmodels.OptionTypeCall, eventmodels.OptionStyleEuropean, 100, 10, 1000)

		payoff, err := ComputeGrossPayoff(escrow, 120)
		require.NoError(t, err)
		require.Equal(t, int64(200), payoff)
	})

	t.Run("clamps at locked collateral", func(t *testing.T) {
		escrow := newFundedEscrow(t, eventmodels.OptionTypeCall, eventmodels.OptionStyleEuropean, 100, 10, 1000)

		// raw intrinsic value 1500 exceeds the 1000 locked
		payoff, err := ComputeGrossPayoff(escrow, 250)
		require.NoError(t, err)
		require.Equal(t, int64(1000), payoff)
	})

	t.Run("product overflow clamps instead of failing", func(t *testing.T) {
		escrow := newFundedEscrow(t, eventmodels.OptionTypeCall, eventmodels.OptionStyleEuropean, 1, math.MaxInt64/2, 5000)

		payoff, err := ComputeGrossPayoff(escrow, math.MaxInt64/2)
		require.NoError(t, err)
		require.Equal(t, int64(5000), payoff)
	})
}

func TestValidateEarlyExercise(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

	t.Run("american itm before expiration passes", func(t *testing.T) {
		escrow := newFundedEscrow(t, eventmodels.OptionTypeCall, eventmodels.OptionStyleAmerican, 100, 10, 1000)
		require.NoError(t, ValidateEarlyExercise(escrow, 120, now))
	})

	t.Run("european style is rejected", func(t *testing.T) {
		escrow := newFundedEscrow(t, eventmodels.OptionTypeCall, eventmodels.OptionStyleEuropean, 100, 10, 1000)
		require.ErrorIs(t, ValidateEarlyExercise(escrow, 120, now), eventmodels.ErrNotAmerican)
	})

	t.Run("expired escrow is rejected", func(t *testing.T) {
		escrow := newFundedEscrow(t, eventmodels.OptionTypeCall, eventmodels.OptionStyleAmerican, 100, 10, 1000)
		require.ErrorIs(t, ValidateEarlyExercise(escrow, 120, escrow.ExpirationTime), eventmodels.ErrExpired)
	})

	t.Run("out of the money is rejected", func(t *testing.T) {
		escrow := newFundedEscrow(t, eventmodels.OptionTypeCall, eventmodels.OptionStyleAmerican, 100, 10, 1000)
		require.ErrorIs(t, ValidateEarlyExercise(escrow, 100, now), eventmodels.ErrNotITM)
	})
}

func TestValidateExpirySettlement(t *testing.T) {
	escrow := newFundedEscrow(t, eventmodels.OptionTypePut, eventmodels.OptionStyleEuropean, 100, 10, 1000)

	require.ErrorIs(t, ValidateExpirySettlement(escrow, escrow.ExpirationTime.Add(-time.Second)), eventmodels.ErrNotExpired)
	require.NoError(t, ValidateExpirySettlement(escrow, escrow.ExpirationTime))
	require.NoError(t, ValidateExpirySettlement(escrow, escrow.ExpirationTime.Add(time.Hour)))
}

func TestBuildSettlement(t *testing.T) {
	settledAt := time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC)

	t.Run("call itm pays clamped intrinsic value minus fee", func(t *testing.T) {
		escrow := newFundedEscrow(t, eventmodels.OptionTypeCall, eventmodels.OptionStyleEuropean, 100, 10, 1000)
		config := newTestGovernance(100, eventmodels.FeePolicyPayoffOnly)

		result, plan, err := BuildSettlement(escrow, 120, config, "holder", false, settledAt)
		require.NoError(t, err)

		require.Equal(t, eventmodels.SettlementOutcomeITM, result.Outcome)
		require.Equal(t, int64(200), result.GrossPayoff)
		require.Equal(t, int64(2), result.FeeAmount)
		require.Equal(t, int64(198), result.PayoffNet)
		require.Equal(t, int64(800), result.ResidualNet)
		require.Equal(t, eventmodels.AccountID("holder"), result.PayoffRecipient)
		require.Equal(t, eventmodels.AccountID("treasury"), result.FeeCollector)
		require.Equal(t, uint64(1), result.GovernanceVersion)
		require.False(t, result.EarlyExercise)

		require.Len(t, plan.Legs, 3)
		require.Equal(t, LegKindPayoff, plan.Legs[0].Kind)
		require.Equal(t, int64(198), plan.Legs[0].Amount)
		require.Equal(t, eventmodels.AccountID("holder"), plan.Legs[0].Recipient)
		require.Equal(t, LegKindFee, plan.Legs[1].Kind)
		require.Equal(t, int64(2), plan.Legs[1].Amount)
		require.Equal(t, eventmodels.AccountID("treasury"), plan.Legs[1].Recipient)
		require.Equal(t, LegKindResidual, plan.Legs[2].Kind)
		require.Equal(t, int64(800), plan.Legs[2].Amount)
		require.Equal(t, eventmodels.AccountID("writer"), plan.Legs[2].Recipient)

		require.Equal(t, escrow.CollateralAmount, plan.TotalDisbursed())
	})

	t.Run("put otm returns the full collateral to the writer", func(t *testing.T) {
		escrow := newFundedEscrow(t, eventmodels.OptionTypePut, eventmodels.OptionStyleEuropean, 100, 10, 1000)
		config := newTestGovernance(100, eventmodels.FeePolicyPayoffOnly)

		result, plan, err := BuildSettlement(escrow, 150, config, "holder", false, settledAt)
		require.NoError(t, err)

		require.Equal(t, eventmodels.SettlementOutcomeOTM, result.Outcome)
		require.Equal(t, int64(0), result.GrossPayoff)
		require.Equal(t, int64(0), result.FeeAmount)
		require.Equal(t, int64(0), result.PayoffNet)
		require.Equal(t, int64(1000), result.ResidualNet)

		require.Len(t, plan.Legs, 1)
		require.Equal(t, LegKindResidual, plan.Legs[0].Kind)
		require.Equal(t, int64(1000), plan.Legs[0].Amount)
		require.Equal(t, eventmodels.AccountID("writer"), plan.Legs[0].Recipient)
	})

	t.Run("clamped payoff leaves no residual", func(t *testing.T) {
		escrow := newFundedEscrow(t, eventmodels.OptionTypeCall, eventmodels.OptionStyleEuropean, 100, 10, 1000)
		config := newTestGovernance(0, eventmodels.FeePolicyPayoffOnly)

		result, plan, err := BuildSettlement(escrow, 250, config, "holder", false, settledAt)
		require.NoError(t, err)

		require.Equal(t, int64(1000), result.GrossPayoff)
		require.Equal(t, int64(1000), result.PayoffNet)
		require.Equal(t, int64(0), result.ResidualNet)

		require.Len(t, plan.Legs, 1)
		require.Equal(t, LegKindPayoff, plan.Legs[0].Kind)
	})

	t.Run("all disbursements policy charges the residual leg too", func(t *testing.T) {
		escrow := newFundedEscrow(t, eventmodels.OptionTypeCall, eventmodels.OptionStyleEuropean, 100, 10, 1000)
		config := newTestGovernance(100, eventmodels.FeePolicyAllDisbursements)

		result, plan, err := BuildSettlement(escrow, 120, config, "holder", false, settledAt)
		require.NoError(t, err)

		// 1% on the 200 payoff and 1% on the 800 residual
		require.Equal(t, int64(10), result.FeeAmount)
		require.Equal(t, int64(198), result.PayoffNet)
		require.Equal(t, int64(792), result.ResidualNet)

		require.Equal(t, escrow.CollateralAmount, plan.TotalDisbursed())
	})

	t.Run("all disbursements policy taxes an otm refund", func(t *testing.T) {
		escrow := newFundedEscrow(t, eventmodels.OptionTypePut, eventmodels.OptionStyleEuropean, 100, 10, 1000)
		config := newTestGovernance(100, eventmodels.FeePolicyAllDisbursements)

		result, plan, err := BuildSettlement(escrow, 150, config, "holder", false, settledAt)
		require.NoError(t, err)

		require.Equal(t, eventmodels.SettlementOutcomeOTM, result.Outcome)
		require.Equal(t, int64(10), result.FeeAmount)
		require.Equal(t, int64(990), result.ResidualNet)

		require.Len(t, plan.Legs, 2)
		require.Equal(t, LegKindFee, plan.Legs[0].Kind)
		require.Equal(t, LegKindResidual, plan.Legs[1].Kind)
		require.Equal(t, escrow.CollateralAmount, plan.TotalDisbursed())
	})

	t.Run("early exercise flag is recorded", func(t *testing.T) {
		escrow := newFundedEscrow(t, eventmodels.OptionTypeCall, eventmodels.OptionStyleAmerican, 100, 10, 1000)
		config := newTestGovernance(100, eventmodels.FeePolicyPayoffOnly)

		result, _, err := BuildSettlement(escrow, 120, config, "holder", true, settledAt)
		require.NoError(t, err)
		require.True(t, result.EarlyExercise)
	})

	t.Run("transfer ids are unique per leg and stable per escrow", func(t *testing.T) {
		escrow := newFundedEscrow(t, eventmodels.OptionTypeCall, eventmodels.OptionStyleEuropean, 100, 10, 1000)
		config := newTestGovernance(100, eventmodels.FeePolicyPayoffOnly)

		_, first, err := BuildSettlement(escrow, 120, config, "holder", false, settledAt)
		require.NoError(t, err)

		_, second, err := BuildSettlement(escrow, 120, config, "holder", false, settledAt)
		require.NoError(t, err)

		seen := make(map[string]bool)
		for i, leg := range first.Legs {
			require.False(t, seen[leg.TransferID])
			seen[leg.TransferID] = true

			require.Equal(t, leg.TransferID, second.Legs[i].TransferID)
		}
	})

	t.Run("conservation holds for randomized terms", func(t *testing.T) {
		rng := rand.New(rand.NewSource(42))

		for i := 0; i < 2000; i++ {
			optionType := eventmodels.OptionTypeCall
			if rng.Intn(2) == 0 {
				optionType = eventmodels.OptionTypePut
			}

			strike := rng.Int63n(1_000_000) + 1
			notional := rng.Int63n(10_000) + 1
			spot := rng.Int63n(2_000_000) + 1
			collateral := rng.Int63n(10_000_000) + 1
			feeRate := rng.Int63n(eventmodels.MaxFeeRateBps + 1)

			policy := eventmodels.FeePolicyPayoffOnly
			if rng.Intn(2) == 0 {
				policy = eventmodels.FeePolicyAllDisbursements
			}

			escrow := newFundedEscrow(t, optionType, eventmodels.OptionStyleEuropean, strike, notional, collateral)
			config := newTestGovernance(feeRate, policy)

			result, plan, err := BuildSettlement(escrow, spot, config, "holder", false, settledAt)
			require.NoError(t, err)

			require.LessOrEqual(t, result.GrossPayoff, collateral)
			require.GreaterOrEqual(t, result.PayoffNet, int64(0))
			require.GreaterOrEqual(t, result.ResidualNet, int64(0))
			require.GreaterOrEqual(t, result.FeeAmount, int64(0))

			total := result.PayoffNet + result.FeeAmount + result.ResidualNet
			require.Equal(t, collateral, total, "conservation violated: strike=%d notional=%d spot=%d collateral=%d fee=%d policy=%s", strike, notional, spot, collateral, feeRate, policy)

			require.Equal(t, collateral, plan.TotalDisbursed())
		}
	})

	t.Run("conservation holds at int64 extremes", func(t *testing.T) {
		escrow := newFundedEscrow(t, eventmodels.OptionTypeCall, eventmodels.OptionStyleEuropean, 1, math.MaxInt64/2, math.MaxInt64-1)
		config := newTestGovernance(eventmodels.MaxFeeRateBps, eventmodels.FeePolicyAllDisbursements)

		result, plan, err := BuildSettlement(escrow, math.MaxInt64/2, config, "holder", false, settledAt)
		require.NoError(t, err)

		require.Equal(t, int64(math.MaxInt64-1), result.GrossPayoff)
		total := result.PayoffNet + result.FeeAmount + result.ResidualNet
		require.Equal(t, int64(math.MaxInt64-1), total)
		require.Equal(t, int64(math.MaxInt64-1), plan.TotalDisbursed())
	})
}
