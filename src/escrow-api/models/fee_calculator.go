package models

import (
	"fmt"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
)

// FeeCalculator applies a governance fee snapshot to settlement legs.
// All fees round down, so sub-unit amounts are fee free.
type FeeCalculator struct {
	config *eventmodels.GovernanceConfig
}

func NewFeeCalculator(config *eventmodels.GovernanceConfig) *FeeCalculator {
	return &FeeCalculator{config: config}
}

func (c *FeeCalculator) FeeOn(amount int64) (int64, error) {
	if amount == 0 {
		return 0, nil
	}

	fee, err := eventmodels.ApplyBps(amount, c.config.FeeRateBps)
	if err != nil {
		return 0, fmt.Errorf("FeeOn: %w", err)
	}

	return fee, nil
}

// AppliesToResidual reports whether the residual leg is also charged.
// Under the default payoff_only policy the writer's returned collateral
// is untouched.
func (c *FeeCalculator) AppliesToResidual() bool {
	return c.config.FeePolicy == eventmodels.FeePolicyAllDisbursements
}
