package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotbot/slotbot/internal/availability"
	"github.com/slotbot/slotbot/internal/calendar"
	"github.com/slotbot/slotbot/internal/errors"
	"github.com/slotbot/slotbot/internal/model"
	"github.com/slotbot/slotbot/internal/retry"
	"github.com/slotbot/slotbot/internal/store"
)

// Monday 2026-09-07 in Kyiv, with a 10:00-18:00 recurring rule, matches the
// availability engine tests so slot boundaries are predictable.
var kyiv, _ = time.LoadLocation("Europe/Kyiv")

func testNow() time.Time {
	return time.Date(2026, 9, 6, 12, 0, 0, 0, kyiv)
}

func testRule() model.AvailabilityRule {
	return model.AvailabilityRule{
		Weekday:  "monday",
		Start:    "10:00",
		End:      "18:00",
		Timezone: "Europe/Kyiv",
	}
}

func testOptions() availability.Options {
	return availability.Options{
		Duration:     30 * time.Minute,
		Buffer:       15 * time.Minute,
		MinNotice:    4 * time.Hour,
		MaxDaysAhead: 14,
	}
}

func newTestCoordinator(t *testing.T) (*Coordinator, *calendar.MemoryProvider, []*calendar.MemoryProvider) {
	t.Helper()

	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	_, err = st.AddRule(testRule())
	require.NoError(t, err)

	book := calendar.NewMemoryProvider("book")
	watch := []*calendar.MemoryProvider{
		calendar.NewMemoryProvider("watch-a"),
		calendar.NewMemoryProvider("watch-b"),
	}
	providers := make([]calendar.Provider, 0, len(watch))
	for _, w := range watch {
		providers = append(providers, w)
	}

	policy := retry.Policy{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		CallTimeout: time.Second,
	}
	sources := calendar.NewSources(book, providers, policy)

	c := NewCoordinator(st, sources, testOptions())
	c.now = testNow
	return c, book, watch
}

func slotAt(hour, minute int) model.Slot {
	start := time.Date(2026, 9, 7, hour, minute, 0, 0, kyiv)
	return model.Slot{Start: start, End: start.Add(30 * time.Minute), Timezone: "Europe/Kyiv"}
}

func TestCreateConfirmsBooking(t *testing.T) {
	c, book, watch := newTestCoordinator(t)
	ctx := context.Background()

	b, err := c.Create(ctx, slotAt(10, 0), model.GuestInfo{
		Name:  "Dana",
		Email: "dana@example.com",
		Topic: "intro call",
	})
	require.NoError(t, err)

	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.NotEmpty(t, b.ID)
	assert.NotEmpty(t, b.EventIDs["book"])
	assert.NotEmpty(t, b.EventIDs["watch-a"])
	assert.NotEmpty(t, b.EventIDs["watch-b"])

	assert.Equal(t, 1, book.EventCount())
	for _, w := range watch {
		assert.Equal(t, 1, w.EventCount())
	}
}

func TestCreateRejectsBookedSlot(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	_, err := c.Create(ctx, slotAt(11, 0), model.GuestInfo{Name: "Dana"})
	require.NoError(t, err)

	_, err = c.Create(ctx, slotAt(11, 0), model.GuestInfo{Name: "Max"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConflict)
}

func TestCreateRejectsSlotOutsideRules(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	_, err := c.Create(context.Background(), slotAt(8, 0), model.GuestInfo{Name: "Dana"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConflict)
}

func TestCreateValidatesInput(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	_, err := c.Create(ctx, slotAt(10, 0), model.GuestInfo{})
	assert.ErrorIs(t, err, errors.ErrValidation)

	bad := slotAt(10, 0)
	bad.End = bad.Start
	_, err = c.Create(ctx, bad, model.GuestInfo{Name: "Dana"})
	assert.ErrorIs(t, err, errors.ErrValidation)
}

// Two goroutines race for the same slot. Exactly one must win; the loser gets
// a conflict and leaves no calendar event behind.
func TestConcurrentCreateSingleWinner(t *testing.T) {
	c, book, _ := newTestCoordinator(t)
	ctx := context.Background()
	slot := slotAt(14, 0)

	const racers = 8
	results := make([]error, racers)

	var start, done sync.WaitGroup
	start.Add(1)
	done.Add(racers)
	for i := 0; i < racers; i++ {
		go func(i int) {
			defer done.Done()
			start.Wait()
			_, results[i] = c.Create(ctx, slot, model.GuestInfo{Name: "Racer"})
		}(i)
	}
	start.Done()
	done.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, errors.ErrConflict)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, book.EventCount())
}

func TestCreateRollsBackOnBookFailure(t *testing.T) {
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	_, err = st.AddRule(testRule())
	require.NoError(t, err)

	book := &createFailingProvider{MemoryProvider: calendar.NewMemoryProvider("book"), fail: true}
	policy := retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, CallTimeout: time.Second}
	sources := calendar.NewSources(book, nil, policy)

	c := NewCoordinator(st, sources, testOptions())
	c.now = testNow

	slot := slotAt(15, 0)
	_, err = c.Create(context.Background(), slot, model.GuestInfo{Name: "Dana"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrBookingFailed)

	// The pending record was rolled back, so the slot is offered again.
	slots, err := c.Slots(context.Background())
	require.NoError(t, err)
	found := false
	for _, s := range slots {
		if s.Start.Equal(slot.Start) {
			found = true
		}
	}
	assert.True(t, found)

	// And a retry of the same slot succeeds once the source recovers.
	book.fail = false
	b, err := c.Create(context.Background(), slot, model.GuestInfo{Name: "Dana"})
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.Status)
}

func TestSlotsExcludeActiveBookings(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	slot := slotAt(10, 0)
	_, err := c.Create(ctx, slot, model.GuestInfo{Name: "Dana"})
	require.NoError(t, err)

	slots, err := c.Slots(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	for _, s := range slots {
		assert.False(t, s.Overlaps(slot.Start, slot.End),
			"booked slot must not be offered again: %s", s.Key())
	}
}

func TestCancel(t *testing.T) {
	c, book, watch := newTestCoordinator(t)
	ctx := context.Background()

	b, err := c.Create(ctx, slotAt(16, 0), model.GuestInfo{Name: "Dana"})
	require.NoError(t, err)

	require.NoError(t, c.Cancel(ctx, b.ID))
	assert.Equal(t, 0, book.EventCount())
	for _, w := range watch {
		assert.Equal(t, 0, w.EventCount())
	}

	// Idempotent: cancelling again is a no-op.
	require.NoError(t, c.Cancel(ctx, b.ID))

	// The slot becomes available again.
	slots, err := c.Slots(ctx)
	require.NoError(t, err)
	found := false
	for _, s := range slots {
		if s.Start.Equal(slotAt(16, 0).Start) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCancelUnknownBooking(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	err := c.Cancel(context.Background(), "01NOSUCHBOOKING")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

// createFailingProvider fails CreateEvent until fail is cleared.
type createFailingProvider struct {
	*calendar.MemoryProvider
	fail bool
}

func (p *createFailingProvider) CreateEvent(ctx context.Context, req calendar.EventRequest) (calendar.Event, error) {
	if p.fail {
		return calendar.Event{}, errors.ExternalService("calendar write failed: service unavailable")
	}
	return p.MemoryProvider.CreateEvent(ctx, req)
}
