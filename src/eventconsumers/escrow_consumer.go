package eventconsumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/EventStore/EventStore-Client-Go/v4/esdb"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdk_trace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/jiaming2012/options-escrow/src/escrow-api/services"
	"github.com/jiaming2012/options-escrow/src/eventmodels"
	"github.com/jiaming2012/options-escrow/src/eventservices"
	"github.com/jiaming2012/options-escrow/src/utils"
)

type neverSampleSampler struct{}

func (ns neverSampleSampler) ShouldSample(p sdk_trace.SamplingParameters) sdk_trace.SamplingResult {
	return sdk_trace.SamplingResult{Decision: sdk_trace.Drop}
}

func (ns neverSampleSampler) Description() string {
	return "NeverSample"
}

func NeverSample() sdk_trace.Sampler {
	return neverSampleSampler{}
}

// EscrowConsumer rebuilds escrow state from the escrows stream. Events
// carry absolute state, so applying them through the restore methods is
// idempotent and safe to repeat.
//
// The api process calls Replay at boot and then serves from memory: the
// registry commits before the journal append, so its state is never
// behind the stream. Start, which keeps following the live subscription,
// is for read replicas that journal nothing themselves.
type EscrowConsumer struct {
	wg           *sync.WaitGroup
	db           *esdb.Client
	url          string
	api          *services.EscrowApiService
	streamName   eventmodels.StreamName
	replayTracer trace.Tracer
}

func NewEscrowConsumer(wg *sync.WaitGroup, url string, api *services.EscrowApiService) *EscrowConsumer {
	replayProvider := sdk_trace.NewTracerProvider(
		sdk_trace.WithSampler(NeverSample()),
	)

	return &EscrowConsumer{
		wg:           wg,
		url:          url,
		api:          api,
		streamName:   eventmodels.EscrowsStream,
		replayTracer: replayProvider.Tracer("escrow_consumer"),
	}
}

func (c *EscrowConsumer) applyEvent(ctx context.Context, event *esdb.RecordedEvent) error {
	logger := log.WithContext(ctx)

	switch eventmodels.EventName(event.EventType) {
	case eventmodels.EscrowCreatedEventName:
		var ev eventmodels.EscrowCreatedEvent
		if err := json.Unmarshal(event.Data, &ev); err != nil {
			return fmt.Errorf("EscrowConsumer.applyEvent: failed to unmarshal %s: %w", event.EventType, err)
		}

		return c.api.RestoreEscrowCreated(&ev)

	case eventmodels.CollateralDepositedEventName:
		var ev eventmodels.CollateralDepositedEvent
		if err := json.Unmarshal(event.Data, &ev); err != nil {
			return fmt.Errorf("EscrowConsumer.applyEvent: failed to unmarshal %s: %w", event.EventType, err)
		}

		return c.api.RestoreCollateralDeposited(&ev)

	case eventmodels.EscrowSettledEventName:
		var ev eventmodels.EscrowSettledEvent
		if err := json.Unmarshal(event.Data, &ev); err != nil {
			return fmt.Errorf("EscrowConsumer.applyEvent: failed to unmarshal %s: %w", event.EventType, err)
		}

		return c.api.RestoreEscrowSettled(&ev)

	case eventmodels.EscrowCancelledEventName:
		var ev eventmodels.EscrowCancelledEvent
		if err := json.Unmarshal(event.Data, &ev); err != nil {
			return fmt.Errorf("EscrowConsumer.applyEvent: failed to unmarshal %s: %w", event.EventType, err)
		}

		return c.api.RestoreEscrowCancelled(&ev)

	default:
		logger.Warnf("EscrowConsumer.applyEvent: skipping unknown event type %s", event.EventType)
		return nil
	}
}

func (c *EscrowConsumer) processEvent(ctx context.Context, event *esdb.RecordedEvent, isReplay bool) error {
	var tracer trace.Tracer
	if isReplay {
		tracer = c.replayTracer
	} else {
		var meta eventmodels.EsdbMetadata
		if err := json.Unmarshal(event.UserMetadata, &meta); err != nil {
			log.Warnf("EscrowConsumer.processEvent: failed to unmarshal user metadata: %v", err)
		} else if spanCtx, err := utils.DeserializeTraceContext(meta.SpanContext); err != nil {
			log.Warnf("EscrowConsumer.processEvent: failed to deserialize trace context: %v", err)
		} else if spanCtx.IsValid() {
			ctx = trace.ContextWithSpanContext(ctx, spanCtx)
		}

		tracer = otel.Tracer("escrow_consumer")
	}

	ctx, span := tracer.Start(ctx, "EscrowConsumer.processEvent")
	defer span.End()

	if err := c.applyEvent(ctx, event); err != nil {
		return fmt.Errorf("EscrowConsumer.processEvent: event %d: %w", event.EventNumber, err)
	}

	return nil
}

func (c *EscrowConsumer) replayEvents(ctx context.Context, lastEventNumber uint64) error {
	// event numbers are zero based: lastEventNumber+1 events cover the
	// whole stream, tip included
	stream, err := c.db.ReadStream(ctx, string(c.streamName), esdb.ReadStreamOptions{}, lastEventNumber+1)
	if err != nil {
		return fmt.Errorf("EscrowConsumer: failed to read stream %s: %v", c.streamName, err)
	}

	for {
		event, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return fmt.Errorf("EscrowConsumer: failed to read event from stream: %v", err)
		}

		if event.Event.EventNumber > lastEventNumber {
			break
		}

		log.Infof("EscrowConsumer: replaying event %d / %d", event.Event.EventNumber, lastEventNumber)

		if err := c.processEvent(ctx, event.Event, true); err != nil {
			return err
		}
	}

	return nil
}

func (c *EscrowConsumer) subscribeToStream(ctx context.Context, from esdb.StreamPosition) (chan error, error) {
	subscription, err := c.db.SubscribeToStream(ctx, string(c.streamName), esdb.SubscribeToStreamOptions{
		From: from,
	})

	if err != nil {
		return nil, fmt.Errorf("EscrowConsumer: failed to subscribe to stream: %v", err)
	}

	log.Infof("EscrowConsumer: subscribed to stream %s", c.streamName)

	errCh := make(chan error)

	go func() {
		for {
			for {
				event := subscription.Recv()

				if event.SubscriptionDropped != nil {
					log.Infof("EscrowConsumer: subscription dropped: %v", event.SubscriptionDropped.Error)
					break
				}

				if event.EventAppeared == nil {
					continue
				}

				ev := event.EventAppeared.Event

				from = esdb.Revision(event.EventAppeared.OriginalEvent().EventNumber)

				if err := c.processEvent(ctx, ev, false); err != nil {
					errCh <- err
					return
				}
			}

			log.Infof("EscrowConsumer: re-subscribing @ pos %v", from)

			subscription, err = c.db.SubscribeToStream(ctx, string(c.streamName), esdb.SubscribeToStreamOptions{
				From: from,
			})

			if err != nil {
				log.Errorf("EscrowConsumer: failed to subscribe to stream: %v", err)
			}
		}
	}()

	return errCh, nil
}

func (c *EscrowConsumer) run(ctx context.Context, errCh chan error) {
	c.wg.Add(1)
	defer c.wg.Done()

	for {
		select {
		case err := <-errCh:
			log.Panicf("EscrowConsumer: error channel: %v", err)
		case <-ctx.Done():
			log.Infof("EscrowConsumer: context done")
			return
		}
	}
}

func (c *EscrowConsumer) connect() error {
	settings, err := esdb.ParseConnectionString(c.url)
	if err != nil {
		return fmt.Errorf("EscrowConsumer: failed to parse connection string: %v", err)
	}

	c.db, err = esdb.NewClient(settings)
	if err != nil {
		return fmt.Errorf("EscrowConsumer: failed to create client: %v", err)
	}

	return nil
}

// Replay applies the stream history and returns once caught up.
func (c *EscrowConsumer) Replay(ctx context.Context) {
	if err := c.connect(); err != nil {
		log.Panicf("EscrowConsumer.Replay: %v", err)
	}

	lastEventNumber, found, err := eventservices.FindStreamLastEventNumber(ctx, c.db, c.streamName)
	if err != nil {
		log.Panicf("EscrowConsumer.Replay: failed to find last event number: %v", err)
	}

	if !found {
		log.Infof("EscrowConsumer: stream %s does not exist yet, nothing to replay", c.streamName)
		return
	}

	if err := c.replayEvents(ctx, lastEventNumber); err != nil {
		log.Panicf("EscrowConsumer.Replay: failed to replay events: %v", err)
	}

	log.Infof("EscrowConsumer: replayed %d events from stream %s", lastEventNumber+1, c.streamName)
}

// Start applies the stream history and then follows the live subscription.
func (c *EscrowConsumer) Start(ctx context.Context) {
	if err := c.connect(); err != nil {
		log.Panicf("EscrowConsumer.Start: %v", err)
	}

	lastEventNumber, found, err := eventservices.FindStreamLastEventNumber(ctx, c.db, c.streamName)
	if err != nil {
		log.Panicf("EscrowConsumer.Start: failed to find last event number: %v", err)
	}

	if found {
		if err := c.replayEvents(ctx, lastEventNumber); err != nil {
			log.Panicf("EscrowConsumer.Start: failed to replay events: %v", err)
		}
	}

	// a revision subscription resumes after the given event, so the
	// replayed tip is not delivered twice
	var from esdb.StreamPosition = esdb.Start{}
	if found {
		from = esdb.Revision(lastEventNumber)
	}

	errCh, err := c.subscribeToStream(ctx, from)
	if err != nil {
		log.Panicf("EscrowConsumer.Start: failed to subscribe to stream: %v", err)
	}

	go c.run(ctx, errCh)
}
