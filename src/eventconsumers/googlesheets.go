package eventconsumers

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
	pubsub "github.com/jiaming2012/options-escrow/src/eventpubsub"
	"github.com/jiaming2012/options-escrow/src/sheets"
)

// GoogleSheetsClient mirrors every settlement to a spreadsheet used by
// the back office. Rows are append only. Settlements are queued on the
// bus callback and drained on a timer so a slow sheets api call never
// stalls the publisher.
type GoogleSheetsClient struct {
	ctx           context.Context
	wg            *sync.WaitGroup
	srv           *sheetsapi.Service
	spreadsheetID string
	pending       *eventmodels.FIFOQueue[*eventmodels.SettlementResult]
}

func (c *GoogleSheetsClient) enqueueSettlement(ev *eventmodels.EscrowSettledEvent) {
	log.Debugf("GoogleSheetsClient.enqueueSettlement <- %v", ev.EscrowID)

	c.pending.Enqueue(ev.ToResult())
}

func (c *GoogleSheetsClient) drain() {
	for {
		result, found := c.pending.Dequeue()
		if !found {
			return
		}

		if err := sheets.AppendSettlement(c.ctx, c.srv, c.spreadsheetID, result); err != nil {
			log.Errorf("GoogleSheetsClient: failed to append settlement %s: %v", result.EscrowID, err)
		}
	}
}

func (c *GoogleSheetsClient) Start() {
	c.wg.Add(1)

	pubsub.Subscribe("GoogleSheetsClient", eventmodels.EscrowSettledEventName, c.enqueueSettlement)

	go func() {
		defer c.wg.Done()

		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-c.ctx.Done():
				c.drain()
				log.Info("stopping GoogleSheetsClient consumer")
				return
			case <-ticker.C:
				c.drain()
			}
		}
	}()
}

func NewGoogleSheetsClient(ctx context.Context, wg *sync.WaitGroup, srv *sheetsapi.Service, spreadsheetID string) *GoogleSheetsClient {
	return &GoogleSheetsClient{
		ctx:           ctx,
		wg:            wg,
		srv:           srv,
		spreadsheetID: spreadsheetID,
		pending:       eventmodels.NewFIFOQueue[*eventmodels.SettlementResult]("googleSheetsSettlements", 999),
	}
}
