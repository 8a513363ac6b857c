package models

import (
	"context"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
)

// IEventJournal appends domain events to the durable journal. The
// EventStoreDB producer is the production implementation.
type IEventJournal interface {
	Save(ctx context.Context, event eventmodels.SavedEvent) error
}
