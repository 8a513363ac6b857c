package eventmodels

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Escrow is the aggregate for one options contract: the initializer writes
// the contract and funds it, the counterparty (optional until settlement)
// receives the payoff when the option finishes in the money.
type Escrow struct {
	ID               uuid.UUID    `json:"id"`
	Initializer      AccountID    `json:"initializer"`
	Counterparty     AccountID    `json:"counterparty,omitempty"`
	OptionType       OptionType   `json:"option_type"`
	Style            OptionStyle  `json:"style"`
	StrikePrice      int64        `json:"strike_price"`
	Notional         int64        `json:"notional"`
	ExpirationTime   time.Time    `json:"expiration_time"`
	CollateralAsset  AssetSymbol  `json:"collateral_asset"`
	CollateralAmount int64        `json:"collateral_amount"`
	MaxCollateral    int64        `json:"max_collateral"`
	Status           EscrowStatus `json:"status"`
	CreatedAt        time.Time    `json:"created_at"`
}

// NewEscrow validates the contract terms and returns an unfunded escrow.
// A call's upside is unbounded, so callers must state maxCollateral
// explicitly; for puts the requirement is derived from strike * notional
// and maxCollateral may be zero.
func NewEscrow(initializer AccountID, optionType OptionType, style OptionStyle, strikePrice int64, notional int64, expiration time.Time, asset AssetSymbol, maxCollateral int64, now time.Time) (*Escrow, error) {
	if err := initializer.Validate(); err != nil {
		return nil, fmt.Errorf("NewEscrow: %w: %v", ErrInvalidParameters, err)
	}

	if err := optionType.Validate(); err != nil {
		return nil, fmt.Errorf("NewEscrow: %w: %v", ErrInvalidParameters, err)
	}

	if err := style.Validate(); err != nil {
		return nil, fmt.Errorf("NewEscrow: %w: %v", ErrInvalidParameters, err)
	}

	if err := asset.Validate(); err != nil {
		return nil, fmt.Errorf("NewEscrow: %w: %v", ErrInvalidParameters, err)
	}

	if strikePrice <= 0 {
		return nil, fmt.Errorf("NewEscrow: %w: strike price must be positive, got %d", ErrInvalidParameters, strikePrice)
	}

	if notional <= 0 {
		return nil, fmt.Errorf("NewEscrow: %w: notional must be positive, got %d", ErrInvalidParameters, notional)
	}

	if !expiration.After(now) {
		return nil, fmt.Errorf("NewEscrow: %w: expiration %v is not in the future", ErrInvalidParameters, expiration)
	}

	if optionType == OptionTypeCall && maxCollateral <= 0 {
		return nil, fmt.Errorf("NewEscrow: %w: call contracts require an explicit positive max collateral", ErrInvalidParameters)
	}

	if maxCollateral < 0 {
		return nil, fmt.Errorf("NewEscrow: %w: max collateral must not be negative, got %d", ErrInvalidParameters, maxCollateral)
	}

	escrow := &Escrow{
		ID:              uuid.New(),
		Initializer:     initializer,
		OptionType:      optionType,
		Style:           style,
		StrikePrice:     strikePrice,
		Notional:        notional,
		ExpirationTime:  expiration,
		CollateralAsset: asset,
		MaxCollateral:   maxCollateral,
		Status:          EscrowStatusCreated,
		CreatedAt:       now,
	}

	// reject terms whose payoff bound cannot be represented
	if _, err := escrow.CollateralRequirement(); err != nil {
		return nil, fmt.Errorf("NewEscrow: %w", err)
	}

	return escrow, nil
}

// CollateralRequirement is the minimum deposit that covers the maximum
// possible payoff: strike * notional for a put (spot floors at zero), the
// declared max collateral for a call.
func (e *Escrow) CollateralRequirement() (int64, error) {
	if e.OptionType == OptionTypePut {
		required, err := CheckedMul(e.StrikePrice, e.Notional)
		if err != nil {
			return 0, fmt.Errorf("Escrow.CollateralRequirement: strike %d * notional %d: %w", e.StrikePrice, e.Notional, err)
		}

		return required, nil
	}

	return e.MaxCollateral, nil
}

func (e *Escrow) IsExpired(now time.Time) bool {
	return !now.Before(e.ExpirationTime)
}

func (e *Escrow) Validate() error {
	if err := e.Status.Validate(); err != nil {
		return fmt.Errorf("Escrow.Validate: %w", err)
	}

	funded := e.Status == EscrowStatusCollateralized || e.Status == EscrowStatusExercised
	if funded && e.CollateralAmount <= 0 {
		return fmt.Errorf("Escrow.Validate: status %s requires locked collateral", e.Status)
	}

	if e.Status.IsTerminal() && e.Status != EscrowStatusCancelled && e.CollateralAmount != 0 {
		return fmt.Errorf("Escrow.Validate: settled escrow must hold zero collateral, got %d", e.CollateralAmount)
	}

	return nil
}

// Copy returns a snapshot safe to hand outside the registry lock.
func (e *Escrow) Copy() *Escrow {
	cp := *e
	return &cp
}
