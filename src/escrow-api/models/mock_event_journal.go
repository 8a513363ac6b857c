package models

import (
	"context"
	"sync"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
)

// MockEventJournal records saved events in memory so tests can assert on
// the journal without an EventStoreDB connection.
type MockEventJournal struct {
	mu    sync.Mutex
	saved []eventmodels.SavedEvent
}

func NewMockEventJournal() *MockEventJournal {
	return &MockEventJournal{}
}

func (j *MockEventJournal) Save(ctx context.Context, event eventmodels.SavedEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.saved = append(j.saved, event)
	return nil
}

// SavedEvents returns a copy of every event recorded so far.
func (j *MockEventJournal) SavedEvents() []eventmodels.SavedEvent {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]eventmodels.SavedEvent, len(j.saved))
	copy(out, j.saved)
	return out
}

// SavedEventNames returns the event names in the order they were saved.
func (j *MockEventJournal) SavedEventNames() []eventmodels.EventName {
	j.mu.Lock()
	defer j.mu.Unlock()

	names := make([]eventmodels.EventName, 0, len(j.saved))
	for _, event := range j.saved {
		names = append(names, event.GetSavedEventParameters().EventName)
	}

	return names
}

var _ IEventJournal = (*MockEventJournal)(nil)
