package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotbot/slotbot/internal/adapter"
	"github.com/slotbot/slotbot/internal/model"
	"github.com/slotbot/slotbot/internal/store"
)

func seedBooking(t *testing.T, st *store.Store, id string, start time.Time, status model.BookingStatus) {
	t.Helper()
	require.NoError(t, st.SaveBooking(model.Booking{
		ID: id,
		Guest: model.GuestInfo{
			Name: "Dana", Email: "dana@example.com",
			Channel: "tg", SenderID: "guest-1",
		},
		Slot:      model.Slot{Start: start, End: start.Add(30 * time.Minute)},
		Status:    status,
		CreatedAt: time.Now(),
	}))
}

func TestSweepSendsOnceWithinWindow(t *testing.T) {
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	now := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	seedBooking(t, st, "b-soon", now.Add(45*time.Minute), model.BookingConfirmed)
	seedBooking(t, st, "b-later", now.Add(3*time.Hour), model.BookingConfirmed)
	seedBooking(t, st, "b-cancelled", now.Add(30*time.Minute), model.BookingCancelled)

	tg := adapter.NewNullAdapter("tg")
	l := New(st, map[string]adapter.Adapter{"tg": tg}, time.Hour)
	l.now = func() time.Time { return now }

	l.Sweep(context.Background())

	sent := tg.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "guest-1: Reminder")
	assert.Contains(t, sent[0], "~45 minutes")

	// Second sweep sends nothing; the reminder is marked.
	l.Sweep(context.Background())
	assert.Len(t, tg.Sent(), 1)
}

func TestSweepSkipsUnknownChannel(t *testing.T) {
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	now := time.Now().UTC()
	seedBooking(t, st, "b-1", now.Add(30*time.Minute), model.BookingConfirmed)

	l := New(st, map[string]adapter.Adapter{}, time.Hour)
	l.now = func() time.Time { return now }

	l.Sweep(context.Background())

	// Marked despite no adapter so the sweep does not repeat it.
	assert.Empty(t, st.BookingsNeedingReminder(now, now.Add(time.Hour)))
}
