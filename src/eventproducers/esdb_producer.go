package eventproducers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/EventStore/EventStore-Client-Go/v4/esdb"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
	"github.com/jiaming2012/options-escrow/src/utils"
)

// EsdbProducer appends escrow and governance events to EventStoreDB.
// Events are the authoritative journal: the registry is rebuilt from
// them on startup.
type EsdbProducer struct {
	wg  *sync.WaitGroup
	db  *esdb.Client
	url string
}

func NewESDBProducer(wg *sync.WaitGroup, url string) *EsdbProducer {
	return &EsdbProducer{
		wg:  wg,
		url: url,
	}
}

func (cli *EsdbProducer) insertEvent(ctx context.Context, eventName eventmodels.EventName, streamName string, meta []byte, data []byte) error {
	eventData := esdb.EventData{
		ContentType: esdb.ContentTypeJson,
		EventType:   string(eventName),
		Data:        data,
	}

	if meta != nil {
		eventData.Metadata = meta
	}

	if cli.db == nil {
		return errors.New("db is nil")
	}

	_, err := cli.db.AppendToStream(ctx, streamName, esdb.AppendToStreamOptions{}, eventData)
	if err != nil {
		return fmt.Errorf("failed to append event to stream: %w", err)
	}

	return nil
}

func (cli *EsdbProducer) insert(ctx context.Context, event eventmodels.SavedEvent) error {
	var metaBytes []byte

	span := trace.SpanFromContext(ctx)

	if span.SpanContext().IsValid() {
		serializedSpanCtx, err := utils.SerializeTraceContext(span.SpanContext())
		if err != nil {
			return fmt.Errorf("failed to serialize trace context: %w", err)
		}

		meta := eventmodels.EsdbMetadata{
			SpanContext: serializedSpanCtx,
		}

		bytes, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}

		metaBytes = bytes
	}

	// set the event streamID
	eventID := eventmodels.EventStreamID(uuid.New())
	metaData := event.GetMetaData()
	metaData.SetEventStreamID(eventID)

	// set the schema version
	schemaVersion := event.GetSavedEventParameters().SchemaVersion
	metaData.SetSchemaVersion(schemaVersion)

	bytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	params := event.GetSavedEventParameters()

	eventName := params.EventName
	streamName := params.StreamName

	log.Debugf("%s saving to stream %s ...", eventName, streamName)

	if err := cli.insertEvent(ctx, eventName, string(streamName), metaBytes, bytes); err != nil {
		return fmt.Errorf("EsdbProducer: failed to insert event: %w", err)
	}

	return nil
}

// Save appends one event to its stream, stamping a fresh event stream
// id and the event's schema version into the metadata.
func (cli *EsdbProducer) Save(ctx context.Context, event eventmodels.SavedEvent) error {
	log.WithField("event", event.GetSavedEventParameters().EventName).Debug("EsdbProducer.Save")

	if err := cli.insert(ctx, event); err != nil {
		return fmt.Errorf("EsdbProducer: failed to save event: %w", err)
	}

	return nil
}

func (cli *EsdbProducer) GetClient() *esdb.Client {
	return cli.db
}

// Start connects the client and holds it open until ctx is cancelled.
func (cli *EsdbProducer) Start(ctx context.Context) {
	settings, err := esdb.ParseConnectionString(cli.url)
	if err != nil {
		panic(fmt.Errorf("failed to parse connection string: %w", err))
	}

	cli.db, err = esdb.NewClient(settings)
	if err != nil {
		panic(fmt.Errorf("failed to create client: %w", err))
	}

	cli.wg.Add(1)

	go func() {
		defer cli.wg.Done()
		defer cli.db.Close()

		for range ctx.Done() {
			fmt.Printf("\nstopping EventStoreDB producer\n")
			return
		}
	}()
}
