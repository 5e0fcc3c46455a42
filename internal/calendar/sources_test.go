package calendar

import (
	"context"
	stdErrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotbot/slotbot/internal/errors"
	"github.com/slotbot/slotbot/internal/model"
	"github.com/slotbot/slotbot/internal/retry"
)

type failingProvider struct {
	sourceID string
	calls    int
}

func (f *failingProvider) SourceID() string { return f.sourceID }

func (f *failingProvider) FreeBusy(ctx context.Context, start, end time.Time) ([]model.BusyInterval, error) {
	f.calls++
	return nil, stdErrors.New("service unavailable: connection refused")
}

func (f *failingProvider) CreateEvent(ctx context.Context, req EventRequest) (Event, error) {
	f.calls++
	return Event{}, stdErrors.New("service unavailable: connection refused")
}

func (f *failingProvider) DeleteEvent(ctx context.Context, eventID string) error {
	f.calls++
	return stdErrors.New("service unavailable: connection refused")
}

func testPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, CallTimeout: time.Second}
}

func window() (time.Time, time.Time) {
	start := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 14)
}

func TestFreeBusyToleratesFailingWatch(t *testing.T) {
	book := NewMemoryProvider("primary")
	_, err := book.CreateEvent(context.Background(), EventRequest{
		Summary: "existing",
		Start:   time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC),
		End:     time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	watch := &failingProvider{sourceID: "team"}
	sources := NewSources(book, []Provider{watch}, testPolicy())

	start, end := window()
	busy, err := sources.FreeBusy(context.Background(), start, end)
	require.NoError(t, err)

	assert.Len(t, busy["primary"], 1)
	_, present := busy["team"]
	assert.False(t, present, "failed watch source must be absent, not empty")
	assert.Equal(t, 2, watch.calls, "watch source retried before being skipped")
}

func TestFreeBusyFailsWhenBookSourceUnreachable(t *testing.T) {
	book := &failingProvider{sourceID: "primary"}
	sources := NewSources(book, nil, testPolicy())

	start, end := window()
	_, err := sources.FreeBusy(context.Background(), start, end)
	assert.True(t, errors.IsCategory(err, errors.ErrExternalService))
}

func TestFreeBusyEmptySourceIsAvailable(t *testing.T) {
	book := NewMemoryProvider("primary")
	sources := NewSources(book, []Provider{NewMemoryProvider("team")}, testPolicy())

	start, end := window()
	busy, err := sources.FreeBusy(context.Background(), start, end)
	require.NoError(t, err)

	// Both sources answered; both are empty and fully available.
	_, ok := busy["primary"]
	assert.True(t, ok)
	_, ok = busy["team"]
	assert.True(t, ok)
}

func TestCreateBlockersBestEffort(t *testing.T) {
	book := NewMemoryProvider("primary")
	good := NewMemoryProvider("team")
	bad := &failingProvider{sourceID: "personal"}
	sources := NewSources(book, []Provider{good, bad}, testPolicy())

	blockers := sources.CreateBlockers(context.Background(), EventRequest{
		Summary: "Meeting with Olena",
		Start:   time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC),
		End:     time.Date(2026, 9, 7, 9, 30, 0, 0, time.UTC),
	})

	require.Len(t, blockers, 1)
	assert.NotEmpty(t, blockers["team"])
	assert.Equal(t, 1, good.EventCount())
}

func TestDeleteEventsBookFailurePropagates(t *testing.T) {
	book := &failingProvider{sourceID: "primary"}
	watch := NewMemoryProvider("team")
	sources := NewSources(book, []Provider{watch}, testPolicy())

	err := sources.DeleteEvents(context.Background(), map[string]string{
		"primary": "evt-1",
		"team":    "evt-2",
	})
	assert.Error(t, err)
}
