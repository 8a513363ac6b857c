package eventmodels

import "time"

// SettlementCSVRow is the export row for a single settlement. Monetary
// columns stay in base units.
type SettlementCSVRow struct {
	SettledAt         string `csv:"settled_at"`
	EscrowID          string `csv:"escrow_id"`
	Outcome           string `csv:"outcome"`
	SpotPrice         int64  `csv:"spot_price"`
	GrossPayoff       int64  `csv:"gross_payoff"`
	PayoffNet         int64  `csv:"payoff_net"`
	FeeAmount         int64  `csv:"fee_amount"`
	ResidualNet       int64  `csv:"residual_net"`
	PayoffRecipient   string `csv:"payoff_recipient"`
	FeeCollector      string `csv:"fee_collector"`
	GovernanceVersion uint64 `csv:"governance_version"`
	EarlyExercise     bool   `csv:"early_exercise"`
}

func NewSettlementCSVRow(result *SettlementResult) *SettlementCSVRow {
	return &SettlementCSVRow{
		SettledAt:         result.SettledAt.Format(time.RFC3339),
		EscrowID:          result.EscrowID.String(),
		Outcome:           string(result.Outcome),
		SpotPrice:         result.SpotPrice,
		GrossPayoff:       result.GrossPayoff,
		PayoffNet:         result.PayoffNet,
		FeeAmount:         result.FeeAmount,
		ResidualNet:       result.ResidualNet,
		PayoffRecipient:   string(result.PayoffRecipient),
		FeeCollector:      string(result.FeeCollector),
		GovernanceVersion: result.GovernanceVersion,
		EarlyExercise:     result.EarlyExercise,
	}
}
