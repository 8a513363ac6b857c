package eventmodels

import "fmt"

var (
	ErrInvalidParameters      = fmt.Errorf("invalid parameters")
	ErrUnauthorized           = fmt.Errorf("caller is not authorized for this operation")
	ErrInvalidState           = fmt.Errorf("operation is not valid for the current escrow status")
	ErrAlreadySettled         = fmt.Errorf("escrow has already been settled or cancelled")
	ErrNotExpired             = fmt.Errorf("escrow has not reached expiration")
	ErrExpired                = fmt.Errorf("escrow has already expired")
	ErrNotITM                 = fmt.Errorf("option is not in the money")
	ErrNotAmerican            = fmt.Errorf("early exercise requires an american style option")
	ErrInsufficientCollateral = fmt.Errorf("collateral amount does not cover the maximum payoff")
	ErrFeeRateOutOfBounds     = fmt.Errorf("fee rate is outside the permitted bounds")
	ErrArithmeticOverflow     = fmt.Errorf("monetary arithmetic overflow")
	ErrStaleGovernanceConfig  = fmt.Errorf("governance config changed during settlement")
	ErrEscrowNotFound         = fmt.Errorf("escrow not found")
)
