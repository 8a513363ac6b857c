package eventconsumers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/options-escrow/src/escrow-api/models"
	"github.com/jiaming2012/options-escrow/src/escrow-api/services"
	"github.com/jiaming2012/options-escrow/src/eventmodels"
	"github.com/jiaming2012/options-escrow/src/eventpubsub"
)

// DisbursementMonitoringWorker retries escrows whose settlement was
// committed but whose vault transfers only partially cleared. Transfer
// ids are deterministic, so a retry never double pays: legs that already
// cleared dedupe at the vault.
type DisbursementMonitoringWorker struct {
	wg       *sync.WaitGroup
	api      *services.EscrowApiService
	interval time.Duration
	wakeCh   chan uuid.UUID
}

func NewDisbursementMonitoringWorker(wg *sync.WaitGroup, api *services.EscrowApiService) *DisbursementMonitoringWorker {
	return &DisbursementMonitoringWorker{
		wg:       wg,
		api:      api,
		interval: 5 * time.Second,
		wakeCh:   make(chan uuid.UUID, 16),
	}
}

func (w *DisbursementMonitoringWorker) disbursementPendingHandler(escrowID uuid.UUID) {
	select {
	case w.wakeCh <- escrowID:
	default:
		// A full wake channel is fine: the next tick sweeps every
		// pending escrow anyway.
	}
}

func (w *DisbursementMonitoringWorker) resumePending(ctx context.Context) {
	pending := w.api.PendingDisbursements()

	for _, escrowID := range pending {
		result, err := w.api.ResumeDisbursement(ctx, escrowID)
		if err != nil {
			if models.IsVaultError(err) {
				log.Warnf("DisbursementMonitoringWorker: vault still unavailable for escrow %s, will retry", escrowID)
			} else {
				log.Errorf("DisbursementMonitoringWorker: failed to resume disbursement for escrow %s: %v", escrowID, err)
			}
			continue
		}

		log.Infof("DisbursementMonitoringWorker: completed disbursement for escrow %s, payoff %d, fee %d", escrowID, result.PayoffNet, result.FeeAmount)
	}
}

func (w *DisbursementMonitoringWorker) Start(ctx context.Context) {
	w.wg.Add(1)

	eventpubsub.Subscribe("DisbursementMonitoringWorker", eventmodels.DisbursementPendingEventName, w.disbursementPendingHandler)

	ticker := time.NewTicker(w.interval)

	go func() {
		defer w.wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("stopping DisbursementMonitoringWorker consumer")
				return
			case escrowID := <-w.wakeCh:
				log.Infof("DisbursementMonitoringWorker: woken for escrow %s", escrowID)
				w.resumePending(ctx)
			case <-ticker.C:
				w.resumePending(ctx)
			}
		}
	}()
}
