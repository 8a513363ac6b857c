package models

import (
	"fmt"
	"sync"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
)

// GovernanceStore holds the single mutable governance configuration.
// Every successful mutation bumps the version counter; rejected
// mutations leave the version untouched so settlements pinned to an
// older snapshot fail fast instead of paying a fee nobody agreed to.
type GovernanceStore struct {
	mu     sync.RWMutex
	config eventmodels.GovernanceConfig
}

func NewGovernanceStore(config *eventmodels.GovernanceConfig) (*GovernanceStore, error) {
	if config == nil {
		return nil, fmt.Errorf("NewGovernanceStore: config is required: %w", eventmodels.ErrInvalidParameters)
	}

	cfg := *config
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if cfg.FeePolicy == "" {
		cfg.FeePolicy = eventmodels.FeePolicyPayoffOnly
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("NewGovernanceStore: %w", err)
	}

	return &GovernanceStore{config: cfg}, nil
}

// Snapshot returns a copy of the current configuration. Settlements
// capture a snapshot up front and re-check its version at commit time.
func (s *GovernanceStore) Snapshot() *eventmodels.GovernanceConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg := s.config
	return &cfg
}

// CheckVersion fails with ErrStaleGovernanceConfig when the supplied
// version no longer matches the live configuration.
func (s *GovernanceStore) CheckVersion(version uint64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.config.Version != version {
		return fmt.Errorf("CheckVersion: snapshot version %d, current version %d: %w", version, s.config.Version, eventmodels.ErrStaleGovernanceConfig)
	}

	return nil
}

func (s *GovernanceStore) requireAuthority(caller eventmodels.AccountID) error {
	if caller != s.config.Authority {
		return fmt.Errorf("caller %s is not the governance authority: %w", caller, eventmodels.ErrUnauthorized)
	}

	return nil
}

// UpdateFeeRate sets a new fee rate in basis points. Only the authority
// may call it, and the rate is validated before the version is bumped.
func (s *GovernanceStore) UpdateFeeRate(caller eventmodels.AccountID, feeRateBps int64) (*eventmodels.GovernanceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAuthority(caller); err != nil {
		return nil, fmt.Errorf("UpdateFeeRate: %w", err)
	}

	if feeRateBps < 0 || feeRateBps > eventmodels.MaxFeeRateBps {
		return nil, fmt.Errorf("UpdateFeeRate: fee rate %d bps outside [0, %d]: %w", feeRateBps, eventmodels.MaxFeeRateBps, eventmodels.ErrFeeRateOutOfBounds)
	}

	s.config.FeeRateBps = feeRateBps
	s.config.Version += 1

	cfg := s.config
	return &cfg, nil
}

// UpdateFeeCollector redirects future fees to a new collector account.
func (s *GovernanceStore) UpdateFeeCollector(caller eventmodels.AccountID, feeCollector eventmodels.AccountID) (*eventmodels.GovernanceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAuthority(caller); err != nil {
		return nil, fmt.Errorf("UpdateFeeCollector: %w", err)
	}

	if err := feeCollector.Validate(); err != nil {
		return nil, fmt.Errorf("UpdateFeeCollector: fee collector: %w", err)
	}

	s.config.FeeCollector = feeCollector
	s.config.Version += 1

	cfg := s.config
	return &cfg, nil
}

// UpdateFeePolicy switches which settlement legs are charged.
func (s *GovernanceStore) UpdateFeePolicy(caller eventmodels.AccountID, feePolicy eventmodels.FeePolicy) (*eventmodels.GovernanceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAuthority(caller); err != nil {
		return nil, fmt.Errorf("UpdateFeePolicy: %w", err)
	}

	if err := feePolicy.Validate(); err != nil {
		return nil, fmt.Errorf("UpdateFeePolicy: %w", err)
	}

	s.config.FeePolicy = feePolicy
	s.config.Version += 1

	cfg := s.config
	return &cfg, nil
}

// TransferAuthority hands governance to a new account in a single step.
// The outgoing authority loses control as soon as the call returns.
func (s *GovernanceStore) TransferAuthority(caller eventmodels.AccountID, newAuthority eventmodels.AccountID) (*eventmodels.GovernanceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAuthority(caller); err != nil {
		return nil, fmt.Errorf("TransferAuthority: %w", err)
	}

	if err := newAuthority.Validate(); err != nil {
		return nil, fmt.Errorf("TransferAuthority: new authority: %w", err)
	}

	s.config.Authority = newAuthority
	s.config.Version += 1

	cfg := s.config
	return &cfg, nil
}

// Restore overwrites the live configuration during event replay.
func (s *GovernanceStore) Restore(config *eventmodels.GovernanceConfig) error {
	if config == nil {
		return fmt.Errorf("Restore: config is required: %w", eventmodels.ErrInvalidParameters)
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("Restore: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.config = *config
	return nil
}
