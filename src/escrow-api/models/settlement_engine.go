package models

import (
	"fmt"
	"time"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
)

// ComputeMoneyness classifies an option against a spot price. Equality
// with the strike is out of the money for both calls and puts.
func ComputeMoneyness(optionType eventmodels.OptionType, strikePrice, spotPrice int64) (eventmodels.OptionMoneyness, error) {
	if spotPrice <= 0 {
		return "", fmt.Errorf("ComputeMoneyness: spot price must be positive, got %d: %w", spotPrice, eventmodels.ErrInvalidParameters)
	}

	switch optionType {
	case eventmodels.OptionTypeCall:
		if spotPrice > strikePrice {
			return eventmodels.OptionMoneynessInTheMoney, nil
		}
	case eventmodels.OptionTypePut:
		if spotPrice < strikePrice {
			return eventmodels.OptionMoneynessInTheMoney, nil
		}
	default:
		return "", fmt.Errorf("ComputeMoneyness: unknown option type %s: %w", optionType, eventmodels.ErrInvalidParameters)
	}

	return eventmodels.OptionMoneynessOutOfTheMoney, nil
}

// ComputeGrossPayoff returns the intrinsic value of the escrowed option,
// |spot - strike| * notional, capped at the collateral actually locked.
// The cap bounds the writer's loss on calls, whose raw intrinsic value
// has no upper limit.
func ComputeGrossPayoff(escrow *eventmodels.Escrow, spotPrice int64) (int64, error) {
	intrinsic := eventmodels.AbsDiff(spotPrice, escrow.StrikePrice)

	grossPayoff, err := eventmodels.CheckedMul(intrinsic, escrow.Notional)
	if err != nil {
		// The product exceeds int64, so it certainly exceeds the
		// collateral. Clamp instead of failing the settlement.
		return escrow.CollateralAmount, nil
	}

	if grossPayoff > escrow.CollateralAmount {
		return escrow.CollateralAmount, nil
	}

	return grossPayoff, nil
}

// ValidateEarlyExercise reports whether the holder may exercise before
// expiration: the option must be American style, unexpired, and in the
// money at the supplied spot price.
func ValidateEarlyExercise(escrow *eventmodels.Escrow, spotPrice int64, now time.Time) error {
	if escrow.Style != eventmodels.OptionStyleAmerican {
		return fmt.Errorf("ValidateEarlyExercise: escrow %s is %s style: %w", escrow.ID, escrow.Style, eventmodels.ErrNotAmerican)
	}

	if escrow.IsExpired(now) {
		return fmt.Errorf("ValidateEarlyExercise: escrow %s expired at %v: %w", escrow.ID, escrow.ExpirationTime, eventmodels.ErrExpired)
	}

	moneyness, err := ComputeMoneyness(escrow.OptionType, escrow.StrikePrice, spotPrice)
	if err != nil {
		return fmt.Errorf("ValidateEarlyExercise: %w", err)
	}

	if moneyness != eventmodels.OptionMoneynessInTheMoney {
		return fmt.Errorf("ValidateEarlyExercise: escrow %s is out of the money at spot %d: %w", escrow.ID, spotPrice, eventmodels.ErrNotITM)
	}

	return nil
}

// ValidateExpirySettlement reports whether the escrow may be settled at
// expiration. Settlement is permitted at or after the expiration time.
func ValidateExpirySettlement(escrow *eventmodels.Escrow, now time.Time) error {
	if !escrow.IsExpired(now) {
		return fmt.Errorf("ValidateExpirySettlement: escrow %s does not expire until %v: %w", escrow.ID, escrow.ExpirationTime, eventmodels.ErrNotExpired)
	}

	return nil
}

// BuildSettlement computes the full settlement for an escrow against a
// spot price and governance snapshot, returning both the result and the
// ordered disbursement plan. It performs no I/O and does not mutate the
// escrow: the caller commits the plan against the vault.
//
// Conservation holds by construction: the net payoff, total fee and net
// residual always sum to the locked collateral.
func BuildSettlement(escrow *eventmodels.Escrow, spotPrice int64, config *eventmodels.GovernanceConfig, payoffRecipient eventmodels.AccountID, earlyExercise bool, now time.Time) (*eventmodels.SettlementResult, *DisbursementPlan, error) {
	moneyness, err := ComputeMoneyness(escrow.OptionType, escrow.StrikePrice, spotPrice)
	if err != nil {
		return nil, nil, fmt.Errorf("BuildSettlement: %w", err)
	}

	var grossPayoff int64
	outcome := eventmodels.SettlementOutcomeOTM
	if moneyness == eventmodels.OptionMoneynessInTheMoney {
		outcome = eventmodels.SettlementOutcomeITM

		grossPayoff, err = ComputeGrossPayoff(escrow, spotPrice)
		if err != nil {
			return nil, nil, fmt.Errorf("BuildSettlement: %w", err)
		}
	}

	residualGross := escrow.CollateralAmount - grossPayoff

	feeCalculator := NewFeeCalculator(config)

	payoffFee, err := feeCalculator.FeeOn(grossPayoff)
	if err != nil {
		return nil, nil, fmt.Errorf("BuildSettlement: payoff fee: %w", err)
	}

	var residualFee int64
	if feeCalculator.AppliesToResidual() {
		residualFee, err = feeCalculator.FeeOn(residualGross)
		if err != nil {
			return nil, nil, fmt.Errorf("BuildSettlement: residual fee: %w", err)
		}
	}

	payoffNet := grossPayoff - payoffFee
	residualNet := residualGross - residualFee

	totalFee, err := eventmodels.CheckedAdd(payoffFee, residualFee)
	if err != nil {
		return nil, nil, fmt.Errorf("BuildSettlement: total fee: %w", err)
	}

	result := &eventmodels.SettlementResult{
		EscrowID:          escrow.ID,
		Outcome:           outcome,
		SpotPrice:         spotPrice,
		GrossPayoff:       grossPayoff,
		PayoffNet:         payoffNet,
		ResidualNet:       residualNet,
		FeeAmount:         totalFee,
		PayoffRecipient:   payoffRecipient,
		FeeCollector:      config.FeeCollector,
		GovernanceVersion: config.Version,
		EarlyExercise:     earlyExercise,
		SettledAt:         now,
	}

	plan := &DisbursementPlan{
		EscrowID: escrow.ID,
		Result:   result,
	}

	plan.AddLeg(LegKindPayoff, payoffRecipient, escrow.CollateralAsset, payoffNet)
	plan.AddLeg(LegKindFee, config.FeeCollector, escrow.CollateralAsset, totalFee)
	plan.AddLeg(LegKindResidual, escrow.Initializer, escrow.CollateralAsset, residualNet)

	return result, plan, nil
}
