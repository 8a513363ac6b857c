package models

import (
	"fmt"
	"time"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
)

type CreateEscrowRequest struct {
	Initializer     eventmodels.AccountID   `json:"initializer"`
	Counterparty    eventmodels.AccountID   `json:"counterparty,omitempty"`
	OptionType      eventmodels.OptionType  `json:"option_type"`
	Style           eventmodels.OptionStyle `json:"style"`
	StrikePrice     int64                   `json:"strike_price"`
	Notional        int64                   `json:"notional"`
	ExpirationTime  time.Time               `json:"expiration_time"`
	CollateralAsset eventmodels.AssetSymbol `json:"collateral_asset"`
	MaxCollateral   int64                   `json:"max_collateral,omitempty"`
}

func (req *CreateEscrowRequest) Validate() error {
	if err := req.Initializer.Validate(); err != nil {
		return fmt.Errorf("invalid initializer: %w: %v", eventmodels.ErrInvalidParameters, err)
	}

	if req.Counterparty != "" {
		if err := req.Counterparty.Validate(); err != nil {
			return fmt.Errorf("invalid counterparty: %w: %v", eventmodels.ErrInvalidParameters, err)
		}

		if req.Counterparty == req.Initializer {
			return fmt.Errorf("counterparty must differ from initializer: %w", eventmodels.ErrInvalidParameters)
		}
	}

	if err := req.OptionType.Validate(); err != nil {
		return fmt.Errorf("invalid option type: %w: %v", eventmodels.ErrInvalidParameters, err)
	}

	if err := req.Style.Validate(); err != nil {
		return fmt.Errorf("invalid style: %w: %v", eventmodels.ErrInvalidParameters, err)
	}

	if req.StrikePrice <= 0 {
		return fmt.Errorf("strike price must be positive, got %d: %w", req.StrikePrice, eventmodels.ErrInvalidParameters)
	}

	if req.Notional <= 0 {
		return fmt.Errorf("notional must be positive, got %d: %w", req.Notional, eventmodels.ErrInvalidParameters)
	}

	if err := req.CollateralAsset.Validate(); err != nil {
		return fmt.Errorf("invalid collateral asset: %w: %v", eventmodels.ErrInvalidParameters, err)
	}

	return nil
}
