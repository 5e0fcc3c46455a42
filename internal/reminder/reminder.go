// Package reminder sends a single reminder per booking shortly before the
// meeting starts.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/slotbot/slotbot/internal/adapter"
	"github.com/slotbot/slotbot/internal/store"
)

// batchLimit bounds one sweep so a backlog never floods a channel.
const batchLimit = 50

type Loop struct {
	store    *store.Store
	adapters map[string]adapter.Adapter
	lead     time.Duration
	cron     *cron.Cron

	now func() time.Time
}

// New builds the reminder loop. lead is how far before the meeting the
// reminder goes out.
func New(st *store.Store, adapters map[string]adapter.Adapter, lead time.Duration) *Loop {
	return &Loop{
		store:    st,
		adapters: adapters,
		lead:     lead,
		now:      time.Now,
	}
}

// Start sweeps every minute until ctx is cancelled.
func (l *Loop) Start(ctx context.Context) error {
	l.cron = cron.New()
	_, err := l.cron.AddFunc("* * * * *", func() {
		l.Sweep(ctx)
	})
	if err != nil {
		return err
	}
	l.cron.Start()
	slog.Info("Reminder loop started", "lead", l.lead)

	go func() {
		<-ctx.Done()
		l.Stop()
	}()
	return nil
}

func (l *Loop) Stop() {
	if l.cron != nil {
		l.cron.Stop()
		slog.Info("Reminder loop stopped")
	}
}

// Sweep sends reminders for bookings starting within the lead window that
// have not been reminded yet. Marking happens only after a successful send,
// so a failed delivery is retried on the next sweep.
func (l *Loop) Sweep(ctx context.Context) {
	now := l.now()
	due := l.store.BookingsNeedingReminder(now, now.Add(l.lead))
	if len(due) > batchLimit {
		due = due[:batchLimit]
	}

	for _, b := range due {
		a, ok := l.adapters[b.Guest.Channel]
		if !ok || b.Guest.SenderID == "" {
			// No way to reach this guest; mark so the sweep does not spin
			// on it forever.
			slog.Warn("No adapter for reminder", "booking", b.ID, "channel", b.Guest.Channel)
			if err := l.store.MarkReminderSent(b.ID); err != nil {
				slog.Error("Failed to mark reminder", "booking", b.ID, "error", err)
			}
			continue
		}

		minutesLeft := int(b.Slot.Start.Sub(now).Minutes())
		if minutesLeft < 1 {
			minutesLeft = 1
		}
		text := fmt.Sprintf("Reminder: your meeting is in ~%d minutes.\n  Time: %s", minutesLeft, b.Slot.FormatIn(b.Guest.Timezone))
		if b.MeetLink != "" {
			text += "\n  Join: " + b.MeetLink
		}

		if err := a.Send(ctx, b.Guest.SenderID, text); err != nil {
			slog.Error("Failed to send reminder", "booking", b.ID, "error", err)
			continue
		}
		if err := l.store.MarkReminderSent(b.ID); err != nil {
			slog.Error("Failed to mark reminder", "booking", b.ID, "error", err)
			continue
		}
		slog.Info("Sent reminder", "booking", b.ID, "minutes_left", minutesLeft)
	}
}
