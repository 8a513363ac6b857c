package eventservices

import (
	"context"
	"fmt"
	"math"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	log "github.com/sirupsen/logrus"
)

// ReferencePriceFetcher pulls a settlement reference price from the
// polygon aggregates api. The engine itself never fetches prices; this
// exists for operator tooling that wants a market quote instead of a
// hand-entered spot.
type ReferencePriceFetcher struct {
	Client *polygon.Client
}

func NewReferencePriceFetcher(apiKey string) *ReferencePriceFetcher {
	return &ReferencePriceFetcher{
		Client: polygon.New(apiKey),
	}
}

// FetchSpotPrice returns the latest daily close at or before the given
// time, scaled into the fixed-point unit used by the escrow (e.g. 100
// for cents). It looks back up to a week to cover weekends and
// holidays.
func (f *ReferencePriceFetcher) FetchSpotPrice(ctx context.Context, symbol string, at time.Time, scale int64) (int64, error) {
	if scale <= 0 {
		return 0, fmt.Errorf("FetchSpotPrice: scale must be positive, got %d", scale)
	}

	log.Debugf("fetching reference price for %s at %v", symbol, at)

	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(at.AddDate(0, 0, -7)),
		To:         models.Millis(at),
	}.WithOrder(models.Asc).WithAdjusted(true)

	iter := f.Client.ListAggs(ctx, params)

	var lastClose float64
	var found bool

	for iter.Next() {
		lastClose = iter.Item().Close
		found = true
	}

	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("FetchSpotPrice: failed to list aggregates for %s: %w", symbol, err)
	}

	if !found {
		return 0, fmt.Errorf("FetchSpotPrice: no aggregates for %s in the week before %v", symbol, at)
	}

	spotPrice := int64(math.Round(lastClose * float64(scale)))
	if spotPrice <= 0 {
		return 0, fmt.Errorf("FetchSpotPrice: non positive reference price %d for %s", spotPrice, symbol)
	}

	return spotPrice, nil
}
