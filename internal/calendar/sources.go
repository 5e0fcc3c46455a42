package calendar

import (
	"context"
	"log/slog"
	"time"

	"github.com/slotbot/slotbot/internal/errors"
	"github.com/slotbot/slotbot/internal/model"
	"github.com/slotbot/slotbot/internal/retry"
)

// Sources groups the configured providers by role and routes every call
// through the retry policy. Exactly one book provider exists per deployment.
type Sources struct {
	book   Provider
	watch  []Provider
	policy retry.Policy
}

func NewSources(book Provider, watch []Provider, policy retry.Policy) *Sources {
	return &Sources{book: book, watch: watch, policy: policy}
}

func (s *Sources) BookSourceID() string {
	return s.book.SourceID()
}

// FreeBusy fetches busy intervals from every source, keyed by source id.
// The book source must answer: hiding its events would invite double
// bookings, so its failure propagates as ErrExternalService. Watch sources
// failing after retries are logged and reported as absent; an unreachable
// watch calendar must not stop scheduling.
func (s *Sources) FreeBusy(ctx context.Context, start, end time.Time) (map[string][]model.BusyInterval, error) {
	out := make(map[string][]model.BusyInterval, len(s.watch)+1)

	var bookBusy []model.BusyInterval
	err := s.policy.Do(ctx, "freebusy:"+s.book.SourceID(), func(ctx context.Context) error {
		var err error
		bookBusy, err = s.book.FreeBusy(ctx, start, end)
		return err
	})
	if err != nil {
		return nil, err
	}
	out[s.book.SourceID()] = bookBusy

	for _, w := range s.watch {
		var busy []model.BusyInterval
		err := s.policy.Do(ctx, "freebusy:"+w.SourceID(), func(ctx context.Context) error {
			var err error
			busy, err = w.FreeBusy(ctx, start, end)
			return err
		})
		if err != nil {
			slog.Warn("Watch calendar unreachable, computing without it",
				"source", w.SourceID(), "error", err)
			continue
		}
		out[w.SourceID()] = busy
	}

	return out, nil
}

// CreateBookEvent creates the real event in the book source.
func (s *Sources) CreateBookEvent(ctx context.Context, req EventRequest) (Event, error) {
	var evt Event
	err := s.policy.Do(ctx, "create:"+s.book.SourceID(), func(ctx context.Context) error {
		var err error
		evt, err = s.book.CreateEvent(ctx, req)
		return err
	})
	return evt, err
}

// CreateBlockers mirrors the booking into every watch source so they stay
// visually consistent. Failures are logged, never fatal. Returns event ids by
// source id for the blockers that were created.
func (s *Sources) CreateBlockers(ctx context.Context, req EventRequest) map[string]string {
	blockers := make(map[string]string)
	req.Summary = "[Blocked] " + req.Summary
	req.AttendeeEmails = nil
	req.WithMeetLink = false

	for _, w := range s.watch {
		var evt Event
		err := s.policy.Do(ctx, "blocker:"+w.SourceID(), func(ctx context.Context) error {
			var err error
			evt, err = w.CreateEvent(ctx, req)
			return err
		})
		if err != nil {
			slog.Warn("Failed to create blocker event", "source", w.SourceID(), "error", err)
			continue
		}
		blockers[w.SourceID()] = evt.EventID
	}
	return blockers
}

// DeleteEvents removes the events recorded for a booking: the book source's
// event must go, blocker deletions are best-effort.
func (s *Sources) DeleteEvents(ctx context.Context, eventIDs map[string]string) error {
	byID := map[string]Provider{s.book.SourceID(): s.book}
	for _, w := range s.watch {
		byID[w.SourceID()] = w
	}

	var bookErr error
	for sourceID, eventID := range eventIDs {
		p, ok := byID[sourceID]
		if !ok {
			slog.Warn("Booking references an unconfigured source", "source", sourceID)
			continue
		}
		eventID := eventID
		err := s.policy.Do(ctx, "delete:"+sourceID, func(ctx context.Context) error {
			return p.DeleteEvent(ctx, eventID)
		})
		if err == nil {
			continue
		}
		if sourceID == s.book.SourceID() {
			bookErr = errors.Wrap(err, "delete book event")
		} else {
			slog.Warn("Failed to delete blocker event", "source", sourceID, "error", err)
		}
	}
	return bookErr
}
