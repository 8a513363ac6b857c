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
	"go.opentelemetry.io/otel/trace"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
	"github.com/jiaming2012/options-escrow/src/eventservices"
	"github.com/jiaming2012/options-escrow/src/utils"
)

type EsdbEvent[T eventmodels.SavedEvent] struct {
	Event       T
	IsReplay    bool
	SpanContext trace.SpanContext
}

// esdbConsumerStream reads a single-event-type stream and forwards each
// decoded event to savedEventsCh. Replay delivers the history and closes
// the channel; Start delivers the history and then follows the live
// subscription.
type esdbConsumerStream[T eventmodels.SavedEvent] struct {
	wg            *sync.WaitGroup
	db            *esdb.Client
	url           string
	savedEventsCh chan EsdbEvent[T]
	streamName    eventmodels.StreamName
}

func NewESDBConsumerStream[T eventmodels.SavedEvent](wg *sync.WaitGroup, url string, instance T) *esdbConsumerStream[T] {
	return &esdbConsumerStream[T]{
		wg:            wg,
		url:           url,
		savedEventsCh: make(chan EsdbEvent[T]),
		streamName:    instance.GetSavedEventParameters().StreamName,
	}
}

func (cli *esdbConsumerStream[T]) GetEventCh() <-chan EsdbEvent[T] {
	return cli.savedEventsCh
}

func (cli *esdbConsumerStream[T]) run(ctx context.Context, errCh chan error) {
	cli.wg.Add(1)
	defer cli.wg.Done()

	for {
		select {
		case err := <-errCh:
			log.Panicf("esdbConsumerStream: error channel: %v", err)
		case <-ctx.Done():
			log.Infof("esdbConsumerStream: context done")
			return
		}
	}
}

func (cli *esdbConsumerStream[T]) subscribeToStream(ctx context.Context, streamName eventmodels.StreamName, from esdb.StreamPosition) (chan error, error) {
	subscription, err := cli.db.SubscribeToStream(ctx, string(streamName), esdb.SubscribeToStreamOptions{
		From: from,
	})

	if err != nil {
		return nil, fmt.Errorf("esdbConsumerStream: failed to subscribe to stream: %v", err)
	}

	log.Infof("esdbConsumerStream: subscribed to stream %s", streamName)

	errCh := make(chan error)

	go func() {
		for {
			for {
				event := subscription.Recv()

				if event.SubscriptionDropped != nil {
					log.Infof("esdbConsumerStream: subscription dropped: %v", event.SubscriptionDropped.Error)
					break
				}

				if event.EventAppeared == nil {
					continue
				}

				if event.CheckPointReached != nil {
					log.Infof("esdbConsumerStream: checkpoint reached: %v\n", event.CheckPointReached)
				}

				ev := event.EventAppeared.Event

				from = esdb.Revision(event.EventAppeared.OriginalEvent().EventNumber)

				if err := cli.processEvent(ctx, ev, false); err != nil {
					errCh <- fmt.Errorf("esdbConsumerStream: failed to process event: %v", err)
					return
				}
			}

			log.Infof("re-subscribing subscription @ pos %v", from)

			subscription, err = cli.db.SubscribeToStream(ctx, string(streamName), esdb.SubscribeToStreamOptions{
				From: from,
			})

			if err != nil {
				log.Errorf("esdbConsumerStream: failed to subscribe to stream: %v", err)
			}
		}
	}()

	return errCh, nil
}

func (cli *esdbConsumerStream[T]) processEvent(ctx context.Context, event *esdb.RecordedEvent, isReplay bool) error {
	var savedEvent T
	var spanCtx trace.SpanContext

	if !isReplay {
		var meta eventmodels.EsdbMetadata
		if err := json.Unmarshal(event.UserMetadata, &meta); err != nil {
			log.Warnf("esdbConsumerStream: processEvent: failed to unmarshal user metadata: %v", err)
		} else {
			spanCtx, err = utils.DeserializeTraceContext(meta.SpanContext)
			if err != nil {
				log.Warnf("esdbConsumerStream: processEvent: failed to deserialize trace context: %v", err)
			}
		}
	}

	if err := json.Unmarshal(event.Data, &savedEvent); err != nil {
		return fmt.Errorf("esdbConsumerStream.processEvent: failed to unmarshal event data: %v", err)
	}

	log.Debugf("esdbConsumerStream: processEvent: publishing event %d to savedEventsCh", event.EventNumber)

	select {
	case <-ctx.Done():
		return fmt.Errorf("esdbConsumerStream: processEvent: context done")
	case cli.savedEventsCh <- EsdbEvent[T]{Event: savedEvent, IsReplay: isReplay, SpanContext: spanCtx}:
	}

	return nil
}

func (cli *esdbConsumerStream[T]) replayEvents(ctx context.Context, name eventmodels.StreamName, startEventNumber, lastEventNumber uint64) error {
	if startEventNumber > lastEventNumber {
		return nil
	}

	// reads are inclusive of the From revision
	count := lastEventNumber - startEventNumber + 1

	stream, err := cli.db.ReadStream(ctx, string(name), esdb.ReadStreamOptions{From: esdb.Revision(startEventNumber)}, count)
	if err != nil {
		return fmt.Errorf("esdbConsumerStream: failed to read stream %s: %v", name, err)
	}

	for {
		event, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return fmt.Errorf("esdbConsumerStream: failed to read event from stream: %v", err)
		}

		if event.Event.EventNumber > lastEventNumber {
			break
		}

		log.Infof("esdbConsumerStream: replaying event %d / %d", event.Event.EventNumber, lastEventNumber)

		if err := cli.processEvent(ctx, event.Event, true); err != nil {
			return fmt.Errorf("esdbConsumerStream: failed to process event: %v", err)
		}
	}

	return nil
}

func (cli *esdbConsumerStream[T]) connect() error {
	settings, err := esdb.ParseConnectionString(cli.url)
	if err != nil {
		return fmt.Errorf("esdbConsumerStream: failed to parse connection string: %v", err)
	}

	cli.db, err = esdb.NewClient(settings)
	if err != nil {
		return fmt.Errorf("esdbConsumerStream: failed to create client: %v", err)
	}

	return nil
}

// Replay delivers the stream history to the event channel and closes it.
func (cli *esdbConsumerStream[T]) Replay(ctx context.Context, startAtEventNumber uint64) {
	if err := cli.connect(); err != nil {
		log.Panicf("esdbConsumerStream.Replay: %v", err)
	}

	lastEventNumber, found, err := eventservices.FindStreamLastEventNumber(ctx, cli.db, cli.streamName)
	if err != nil {
		log.Panicf("esdbConsumerStream.Replay: failed to find last event number: %v", err)
	}

	if found {
		if err := cli.replayEvents(ctx, cli.streamName, startAtEventNumber, lastEventNumber); err != nil {
			log.Panicf("esdbConsumerStream.Replay: failed to replay events: %v", err)
		}
	}

	close(cli.savedEventsCh)
}

// Start delivers the stream history and then follows the live subscription.
func (cli *esdbConsumerStream[T]) Start(ctx context.Context) {
	if err := cli.connect(); err != nil {
		log.Panicf("esdbConsumerStream.Start: %v", err)
	}

	lastEventNumber, found, err := eventservices.FindStreamLastEventNumber(ctx, cli.db, cli.streamName)
	if err != nil {
		log.Panicf("esdbConsumerStream.Start: failed to find last event number: %v", err)
	}

	if found {
		if err := cli.replayEvents(ctx, cli.streamName, 0, lastEventNumber); err != nil {
			log.Panicf("esdbConsumerStream.Start: failed to replay events: %v", err)
		}
	}

	// a revision subscription resumes after the given event, so the
	// replayed tip is not delivered twice
	var from esdb.StreamPosition = esdb.Start{}
	if found {
		from = esdb.Revision(lastEventNumber)
	}

	errCh, err := cli.subscribeToStream(ctx, cli.streamName, from)
	if err != nil {
		log.Panicf("esdbConsumerStream.Start: failed to subscribe to stream: %v", err)
	}

	log.Info("esdbConsumerStream.Start: running consumer...")

	go cli.run(ctx, errCh)
}
