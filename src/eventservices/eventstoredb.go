package eventservices

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/EventStore/EventStore-Client-Go/v4/esdb"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
)

// isStreamNotFound reports whether err means the stream does not exist.
// The v4 client has no sentinel for this; it surfaces the condition as an
// esdb.Error carrying ErrorCodeResourceNotFound.
func isStreamNotFound(err error) bool {
	var esdbErr *esdb.Error
	return errors.As(err, &esdbErr) && esdbErr.IsErrorCode(esdb.ErrorCodeResourceNotFound)
}

// FindStreamLastEventNumber returns the latest event number of a
// stream. Event numbers start at zero, so the found flag is what
// distinguishes a missing stream from one holding a single event.
func FindStreamLastEventNumber(ctx context.Context, db *esdb.Client, streamName eventmodels.StreamName) (uint64, bool, error) {
	stream, err := db.ReadStream(ctx, string(streamName), esdb.ReadStreamOptions{
		Direction: esdb.Backwards,
		From:      esdb.End{},
	}, 1)

	if err != nil {
		if isStreamNotFound(err) {
			return 0, false, nil
		}

		return 0, false, fmt.Errorf("failed to read stream %s: %w", streamName, err)
	}

	defer stream.Close()

	event, err := stream.Recv()
	if err != nil {
		if isStreamNotFound(err) {
			return 0, false, nil
		}

		return 0, false, fmt.Errorf("failed to read event from stream %s: %w", streamName, err)
	}

	return event.Event.EventNumber, true, nil
}

// FetchAllEvents reads a stream front to back in pages and returns the
// raw recorded events. Callers dispatch on EventType themselves.
func FetchAllEvents(ctx context.Context, esdbClient *esdb.Client, streamName eventmodels.StreamName) ([]*esdb.RecordedEvent, error) {
	var results []*esdb.RecordedEvent

	readOptions := esdb.ReadStreamOptions{
		Direction: esdb.Forwards,
		From:      esdb.Start{},
	}

	const pageSize = 4096

	for {
		stream, err := esdbClient.ReadStream(ctx, string(streamName), readOptions, pageSize)
		if err != nil {
			if isStreamNotFound(err) {
				return results, nil
			}

			return nil, fmt.Errorf("failed to read stream %s: %w", streamName, err)
		}

		var batch int

		for {
			event, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}

				if isStreamNotFound(err) {
					stream.Close()
					return results, nil
				}

				stream.Close()
				return nil, fmt.Errorf("failed to read event from stream %s: %w", streamName, err)
			}

			results = append(results, event.Event)
			batch += 1
		}

		stream.Close()

		if batch < pageSize {
			break
		}

		readOptions.From = esdb.Revision(results[len(results)-1].EventNumber + 1)
	}

	return results, nil
}
