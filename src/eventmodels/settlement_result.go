package eventmodels

import (
	"time"

	"github.com/google/uuid"
)

type SettlementOutcome string

const (
	SettlementOutcomeITM SettlementOutcome = "itm"
	SettlementOutcomeOTM SettlementOutcome = "otm"
)

// SettlementResult is the committed outcome of one settlement or early
// exercise. GrossPayoff is already clamped to the locked collateral;
// PayoffNet and ResidualNet are the amounts actually disbursed after the
// fee policy is applied.
type SettlementResult struct {
	EscrowID          uuid.UUID         `json:"escrow_id"`
	Outcome           SettlementOutcome `json:"outcome"`
	SpotPrice         int64             `json:"spot_price"`
	GrossPayoff       int64             `json:"gross_payoff"`
	PayoffNet         int64             `json:"payoff_net"`
	ResidualNet       int64             `json:"residual_net"`
	FeeAmount         int64             `json:"fee_amount"`
	PayoffRecipient   AccountID         `json:"payoff_recipient,omitempty"`
	FeeCollector      AccountID         `json:"fee_collector"`
	GovernanceVersion uint64            `json:"governance_version"`
	EarlyExercise     bool              `json:"early_exercise"`
	SettledAt         time.Time         `json:"settled_at"`
}
