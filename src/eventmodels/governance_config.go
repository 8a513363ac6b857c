package eventmodels

import "fmt"

// MaxFeeRateBps caps the protocol fee at 10%.
const MaxFeeRateBps int64 = 1000

// FeePolicy selects which disbursement legs carry the protocol fee.
type FeePolicy string

const (
	// FeePolicyPayoffOnly charges the fee on the in-the-money payoff leg
	// only; out-of-the-money returns move in full.
	FeePolicyPayoffOnly FeePolicy = "payoff_only"

	// FeePolicyAllDisbursements charges the fee on every outbound leg,
	// including the collateral returned to the initializer.
	FeePolicyAllDisbursements FeePolicy = "all_disbursements"
)

func (p FeePolicy) Validate() error {
	if p != FeePolicyPayoffOnly && p != FeePolicyAllDisbursements {
		return fmt.Errorf("FeePolicy: Validate: invalid fee policy: %s", p)
	}

	return nil
}

// GovernanceConfig is the mutable protocol configuration. Version is
// bumped on every successful mutation so settlement can detect a config
// that changed between snapshot and commit.
type GovernanceConfig struct {
	Authority    AccountID `json:"authority"`
	FeeRateBps   int64     `json:"fee_rate_bps"`
	FeeCollector AccountID `json:"fee_collector"`
	FeePolicy    FeePolicy `json:"fee_policy"`
	Version      uint64    `json:"version"`
}

func (c GovernanceConfig) Validate() error {
	if err := c.Authority.Validate(); err != nil {
		return fmt.Errorf("GovernanceConfig.Validate: authority: %w", err)
	}

	if err := c.FeeCollector.Validate(); err != nil {
		return fmt.Errorf("GovernanceConfig.Validate: fee collector: %w", err)
	}

	if c.FeeRateBps < 0 || c.FeeRateBps > MaxFeeRateBps {
		return fmt.Errorf("GovernanceConfig.Validate: fee rate %d bps: %w", c.FeeRateBps, ErrFeeRateOutOfBounds)
	}

	if err := c.FeePolicy.Validate(); err != nil {
		return fmt.Errorf("GovernanceConfig.Validate: %w", err)
	}

	return nil
}
