package calendar

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slotbot/slotbot/internal/model"
)

// MemoryProvider keeps events in memory. It backs dry-run mode, where the
// scheduling flow runs end to end without touching a real calendar, and the
// test suites.
type MemoryProvider struct {
	sourceID string

	mu     sync.Mutex
	events map[string]EventRequest
}

func NewMemoryProvider(sourceID string) *MemoryProvider {
	return &MemoryProvider{
		sourceID: sourceID,
		events:   make(map[string]EventRequest),
	}
}

func (m *MemoryProvider) SourceID() string {
	return m.sourceID
}

func (m *MemoryProvider) FreeBusy(ctx context.Context, start, end time.Time) ([]model.BusyInterval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var busy []model.BusyInterval
	for _, evt := range m.events {
		if evt.Start.Before(end) && evt.End.After(start) {
			busy = append(busy, model.BusyInterval{Start: evt.Start, End: evt.End, SourceID: m.sourceID})
		}
	}
	return busy, nil
}

func (m *MemoryProvider) CreateEvent(ctx context.Context, req EventRequest) (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := ulid.Make().String()
	m.events[id] = req
	return Event{EventID: id}, nil
}

func (m *MemoryProvider) DeleteEvent(ctx context.Context, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.events, eventID)
	return nil
}

// EventCount reports how many events the provider currently holds.
func (m *MemoryProvider) EventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}
