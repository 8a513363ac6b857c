package models

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
)

func TestFeeCalculator(t *testing.T) {
	t.Run("charges basis points rounded down", func(t *testing.T) {
		calc := NewFeeCalculator(newTestGovernance(100, eventmodels.FeePolicyPayoffOnly))

		fee, err := calc.FeeOn(200)
		require.NoError(t, err)
		require.Equal(t, int64(2), fee)

		fee, err = calc.FeeOn(199)
		require.NoError(t, err)
		require.Equal(t, int64(1), fee)

		fee, err = calc.FeeOn(99)
		require.NoError(t, err)
		require.Equal(t, int64(0), fee)
	})

	t.Run("zero amount is free", func(t *testing.T) {
		calc := NewFeeCalculator(newTestGovernance(eventmodels.MaxFeeRateBps, eventmodels.FeePolicyPayoffOnly))

		fee, err := calc.FeeOn(0)
		require.NoError(t, err)
		require.Equal(t, int64(0), fee)
	})

	t.Run("zero rate is free", func(t *testing.T) {
		calc := NewFeeCalculator(newTestGovernance(0, eventmodels.FeePolicyAllDisbursements))

		fee, err := calc.FeeOn(1_000_000)
		require.NoError(t, err)
		require.Equal(t, int64(0), fee)
	})

	t.Run("residual is charged only under all_disbursements", func(t *testing.T) {
		payoffOnly := NewFeeCalculator(newTestGovernance(100, eventmodels.FeePolicyPayoffOnly))
		require.False(t, payoffOnly.AppliesToResidual())

		allLegs := NewFeeCalculator(newTestGovernance(100, eventmodels.FeePolicyAllDisbursements))
		require.True(t, allLegs.AppliesToResidual())
	})
}
