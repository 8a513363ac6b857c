package models

import (
	"fmt"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
)

// EscrowFilter narrows a registry listing. Zero-valued fields match
// everything; Account matches either side of the contract.
type EscrowFilter struct {
	Status     eventmodels.EscrowStatus `schema:"status" json:"status,omitempty"`
	OptionType eventmodels.OptionType   `schema:"option_type" json:"option_type,omitempty"`
	Account    eventmodels.AccountID    `schema:"account" json:"account,omitempty"`
	Asset      eventmodels.AssetSymbol  `schema:"asset" json:"asset,omitempty"`
}

func (f *EscrowFilter) Validate() error {
	if f.Status != "" {
		if err := f.Status.Validate(); err != nil {
			return fmt.Errorf("invalid status filter: %w: %v", eventmodels.ErrInvalidParameters, err)
		}
	}

	if f.OptionType != "" {
		if err := f.OptionType.Validate(); err != nil {
			return fmt.Errorf("invalid option type filter: %w: %v", eventmodels.ErrInvalidParameters, err)
		}
	}

	return nil
}

func (f *EscrowFilter) Matches(escrow *eventmodels.Escrow) bool {
	if f == nil {
		return true
	}

	if f.Status != "" && escrow.Status != f.Status {
		return false
	}

	if f.OptionType != "" && escrow.OptionType != f.OptionType {
		return false
	}

	if f.Account != "" && escrow.Initializer != f.Account && escrow.Counterparty != f.Account {
		return false
	}

	if f.Asset != "" && escrow.CollateralAsset != f.Asset {
		return false
	}

	return true
}
