package eventconsumers

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/options-escrow/src/escrow-api/services"
	"github.com/jiaming2012/options-escrow/src/eventmodels"
)

type GovernanceStreamClient = esdbConsumerStream[*eventmodels.GovernanceUpdatedEvent]

// GovernanceConsumer applies governance stream events to the live config
// store. Each event carries the full config, so the latest replayed event
// wins regardless of where the replay starts.
type GovernanceConsumer struct {
	client     *GovernanceStreamClient
	governance *services.GovernanceService
}

func NewGovernanceConsumer(client *GovernanceStreamClient, governance *services.GovernanceService) *GovernanceConsumer {
	return &GovernanceConsumer{
		client:     client,
		governance: governance,
	}
}

func (c *GovernanceConsumer) processEvent(event EsdbEvent[*eventmodels.GovernanceUpdatedEvent]) {
	if err := c.governance.RestoreGovernance(event.Event); err != nil {
		log.Errorf("GovernanceConsumer: failed to restore config: %v", err)
	}
}

// Replay applies the stream history and returns once caught up.
func (c *GovernanceConsumer) Replay(ctx context.Context) {
	log.Infof("Starting GovernanceConsumer in replay mode")

	done := make(chan struct{})

	go func() {
		defer close(done)
		for event := range c.client.GetEventCh() {
			c.processEvent(event)
		}
	}()

	c.client.Replay(ctx, 0)

	<-done

	log.Infof("GovernanceConsumer: replay done, config version %d", c.governance.GetConfig().Version)
}

// Start applies the stream history and then follows the live
// subscription. Meant for read replicas; the api process restores its
// own writes before they reach the stream.
func (c *GovernanceConsumer) Start(ctx context.Context) {
	log.Infof("Starting GovernanceConsumer")

	go func() {
		for event := range c.client.GetEventCh() {
			c.processEvent(event)
		}
	}()

	c.client.Start(ctx)

	log.Infof("GovernanceConsumer started!!!")
}
