package eventmodels

import "fmt"

// EscrowConfigYAML is the service configuration loaded at startup. The
// governance block bootstraps the config store on first run; once the
// governance stream holds events, the stream wins.
type EscrowConfigYAML struct {
	Governance struct {
		Authority    string `yaml:"authority"`
		FeeRateBps   int64  `yaml:"fee_rate_bps"`
		FeeCollector string `yaml:"fee_collector"`
		FeePolicy    string `yaml:"fee_policy"`
	} `yaml:"governance"`

	Vault struct {
		// Accounts pre-funded on the in-memory vault, keyed by account id,
		// then asset symbol. Ignored when an external vault is wired in.
		Balances map[string]map[string]int64 `yaml:"balances"`
	} `yaml:"vault"`
}

func (c *EscrowConfigYAML) GovernanceConfig() (GovernanceConfig, error) {
	policy := FeePolicy(c.Governance.FeePolicy)
	if policy == "" {
		policy = FeePolicyPayoffOnly
	}

	config := GovernanceConfig{
		Authority:    AccountID(c.Governance.Authority),
		FeeRateBps:   c.Governance.FeeRateBps,
		FeeCollector: AccountID(c.Governance.FeeCollector),
		FeePolicy:    policy,
		Version:      1,
	}

	if err := config.Validate(); err != nil {
		return GovernanceConfig{}, fmt.Errorf("EscrowConfigYAML.GovernanceConfig: %w", err)
	}

	return config, nil
}
