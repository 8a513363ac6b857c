package main

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/options-escrow/src/escrow-api/models"
	"github.com/jiaming2012/options-escrow/src/escrow-api/services"
	"github.com/jiaming2012/options-escrow/src/eventmodels"
	"github.com/jiaming2012/options-escrow/src/eventpubsub"
)

// Runs a full escrow lifecycle against the in-memory vault: fund, lock,
// settle in the money, disburse. No external services required.
func main() {
	ctx := context.Background()

	eventpubsub.Init()

	vault := models.NewInMemoryVault()
	if err := vault.Credit("writer-1", "USDC", 100_000); err != nil {
		log.Fatalf("failed to fund writer: %v", err)
	}

	governance, err := models.NewGovernanceStore(&eventmodels.GovernanceConfig{
		Authority:    "gov-1",
		FeeRateBps:   100,
		FeeCollector: "treasury",
		FeePolicy:    eventmodels.FeePolicyPayoffOnly,
		Version:      1,
	})
	if err != nil {
		log.Fatalf("failed to create governance store: %v", err)
	}

	registry, err := models.NewEscrowRegistry(vault, governance)
	if err != nil {
		log.Fatalf("failed to create registry: %v", err)
	}

	api := services.NewEscrowApiService(registry, models.NewMockDatabase(), models.NewMockEventJournal())

	escrow, err := api.CreateEscrow(ctx, &models.CreateEscrowRequest{
		Initializer:     "writer-1",
		Counterparty:    "holder-1",
		OptionType:      eventmodels.OptionTypeCall,
		Style:           eventmodels.OptionStyleAmerican,
		StrikePrice:     10_000,
		Notional:        10,
		ExpirationTime:  time.Now().UTC().Add(24 * time.Hour),
		CollateralAsset: "USDC",
		MaxCollateral:   5_000,
	}, time.Now().UTC())
	if err != nil {
		log.Fatalf("failed to create escrow: %v", err)
	}

	fmt.Printf("created escrow %s: %s %s, strike %d, notional %d\n", escrow.ID, escrow.Style, escrow.OptionType, escrow.StrikePrice, escrow.Notional)

	receipt, err := api.DepositCollateral(ctx, escrow.ID, "writer-1", 5_000)
	if err != nil {
		log.Fatalf("failed to deposit collateral: %v", err)
	}

	fmt.Printf("locked %d %s from %s\n", receipt.Amount, receipt.Asset, receipt.Owner)

	result, err := api.ExerciseEarly(ctx, escrow.ID, "holder-1", 10_250, time.Now().UTC())
	if err != nil {
		log.Fatalf("failed to exercise: %v", err)
	}

	fmt.Printf("exercised %s at spot %d: payoff %d to %s, fee %d to %s, residual %d back to %s\n",
		result.Outcome, result.SpotPrice, result.PayoffNet, result.PayoffRecipient, result.FeeAmount, result.FeeCollector, result.ResidualNet, escrow.Initializer)

	fmt.Printf("balances: holder-1=%d treasury=%d writer-1=%d\n",
		vault.BalanceOf("holder-1", "USDC"), vault.BalanceOf("treasury", "USDC"), vault.BalanceOf("writer-1", "USDC"))
}
