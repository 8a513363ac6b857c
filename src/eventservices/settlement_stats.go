package eventservices

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
)

// SettlementStats summarizes a batch of settlement results. Payoff
// distribution figures only look at ITM settlements since OTM payoffs
// are zero by construction.
type SettlementStats struct {
	TotalSettlements int     `json:"totalSettlements"`
	ITMCount         int     `json:"itmCount"`
	OTMCount         int     `json:"otmCount"`
	EarlyExercises   int     `json:"earlyExercises"`
	TotalPayoffNet   int64   `json:"totalPayoffNet"`
	TotalResidualNet int64   `json:"totalResidualNet"`
	TotalFees        int64   `json:"totalFees"`
	MeanPayoffNet    float64 `json:"meanPayoffNet"`
	MedianPayoffNet  float64 `json:"medianPayoffNet"`
	StdDevPayoffNet  float64 `json:"stdDevPayoffNet"`
}

func ComputeSettlementStats(results []*eventmodels.SettlementResult) (*SettlementStats, error) {
	out := &SettlementStats{
		TotalSettlements: len(results),
	}

	var itmPayoffs []float64

	for _, result := range results {
		if result == nil {
			return nil, fmt.Errorf("ComputeSettlementStats: nil settlement result")
		}

		switch result.Outcome {
		case eventmodels.SettlementOutcomeITM:
			out.ITMCount += 1
			itmPayoffs = append(itmPayoffs, float64(result.PayoffNet))
		case eventmodels.SettlementOutcomeOTM:
			out.OTMCount += 1
		default:
			return nil, fmt.Errorf("ComputeSettlementStats: unknown outcome %q", result.Outcome)
		}

		if result.EarlyExercise {
			out.EarlyExercises += 1
		}

		out.TotalPayoffNet += result.PayoffNet
		out.TotalResidualNet += result.ResidualNet
		out.TotalFees += result.FeeAmount
	}

	if len(itmPayoffs) > 0 {
		mean, err := stats.Mean(itmPayoffs)
		if err != nil {
			return nil, fmt.Errorf("ComputeSettlementStats: failed to calculate mean payoff: %w", err)
		}

		median, err := stats.Median(itmPayoffs)
		if err != nil {
			return nil, fmt.Errorf("ComputeSettlementStats: failed to calculate median payoff: %w", err)
		}

		sd, err := stats.StandardDeviation(itmPayoffs)
		if err != nil {
			return nil, fmt.Errorf("ComputeSettlementStats: failed to calculate payoff standard deviation: %w", err)
		}

		out.MeanPayoffNet = mean
		out.MedianPayoffNet = median
		out.StdDevPayoffNet = sd
	}

	return out, nil
}
