package models

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
)

type LegKind string

const (
	LegKindPayoff   LegKind = "payoff"
	LegKindFee      LegKind = "fee"
	LegKindResidual LegKind = "residual"
)

// NewTransferID derives the idempotency key for a disbursement leg. The
// key is stable across retries so the vault can deduplicate replays.
func NewTransferID(escrowID uuid.UUID, kind LegKind) string {
	return fmt.Sprintf("%s:settlement:%s", escrowID, kind)
}

type DisbursementLeg struct {
	TransferID string                  `json:"transfer_id"`
	Kind       LegKind                 `json:"kind"`
	Recipient  eventmodels.AccountID   `json:"recipient"`
	Asset      eventmodels.AssetSymbol `json:"asset"`
	Amount     int64                   `json:"amount"`
	Done       bool                    `json:"done"`
}

// DisbursementPlan is the ordered set of vault releases produced by a
// settlement. Legs are executed in slice order: payoff, then fee, then
// residual. Zero-amount legs are never added to the plan.
type DisbursementPlan struct {
	EscrowID uuid.UUID                     `json:"escrow_id"`
	Result   *eventmodels.SettlementResult `json:"result"`
	Legs     []DisbursementLeg             `json:"legs"`
}

func (p *DisbursementPlan) AddLeg(kind LegKind, recipient eventmodels.AccountID, asset eventmodels.AssetSymbol, amount int64) {
	if amount == 0 {
		return
	}

	p.Legs = append(p.Legs, DisbursementLeg{
		TransferID: NewTransferID(p.EscrowID, kind),
		Kind:       kind,
		Recipient:  recipient,
		Asset:      asset,
		Amount:     amount,
	})
}

func (p *DisbursementPlan) MarkDone(transferID string) {
	for i := range p.Legs {
		if p.Legs[i].TransferID == transferID {
			p.Legs[i].Done = true
			return
		}
	}
}

func (p *DisbursementPlan) RemainingLegs() []DisbursementLeg {
	var remaining []DisbursementLeg
	for _, leg := range p.Legs {
		if !leg.Done {
			remaining = append(remaining, leg)
		}
	}

	return remaining
}

func (p *DisbursementPlan) IsComplete() bool {
	for _, leg := range p.Legs {
		if !leg.Done {
			return false
		}
	}

	return true
}

func (p *DisbursementPlan) TotalDisbursed() int64 {
	var total int64
	for _, leg := range p.Legs {
		total += leg.Amount
	}

	return total
}
