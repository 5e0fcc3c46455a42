// Package booking is the transaction coordinator for slot reservations. The
// in-memory reservation table is the single serialization point: exactly one
// caller may hold the claim on a slot's exact boundaries at a time, so two
// concurrent bookings for the same slot can never both reach the calendar.
package booking

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slotbot/slotbot/internal/availability"
	"github.com/slotbot/slotbot/internal/calendar"
	"github.com/slotbot/slotbot/internal/errors"
	"github.com/slotbot/slotbot/internal/model"
	"github.com/slotbot/slotbot/internal/store"
)

// reservationSource is the pseudo source id under which pending and confirmed
// bookings are folded into busy data.
const reservationSource = "bookings"

type Coordinator struct {
	store   *store.Store
	sources *calendar.Sources
	opts    availability.Options

	// now is replaceable for tests.
	now func() time.Time

	mu       sync.Mutex
	reserved map[string]string // slot key -> booking id, in-flight only
}

func NewCoordinator(st *store.Store, sources *calendar.Sources, opts availability.Options) *Coordinator {
	return &Coordinator{
		store:    st,
		sources:  sources,
		opts:     opts,
		now:      time.Now,
		reserved: make(map[string]string),
	}
}

// SetNow overrides the coordinator's clock. Tests only.
func (c *Coordinator) SetNow(now func() time.Time) {
	c.now = now
}

// Slots computes the currently offerable slots from the stored rules and
// fresh busy data across every source. Pending and confirmed bookings count
// as busy even before the calendar reflects them.
func (c *Coordinator) Slots(ctx context.Context) ([]model.Slot, error) {
	now := c.now()
	horizon := now.AddDate(0, 0, c.opts.MaxDaysAhead)

	busy, err := c.sources.FreeBusy(ctx, now, horizon)
	if err != nil {
		return nil, err
	}
	c.foldReservations(busy, now, horizon)

	return availability.Compute(c.store.ListRules(), busy, c.opts, now), nil
}

// Create books the slot for the guest. Two phases: re-validate the slot
// against current busy data, then claim the reservation before any calendar
// write. Losing either phase is ErrConflict; a book-source write that fails
// after retries rolls everything back and is ErrBookingFailed.
func (c *Coordinator) Create(ctx context.Context, slot model.Slot, guest model.GuestInfo) (model.Booking, error) {
	if !slot.End.After(slot.Start) {
		return model.Booking{}, errors.Validation("slot end must follow start")
	}
	if guest.Name == "" {
		return model.Booking{}, errors.Validation("guest name is required")
	}

	now := c.now()

	// Phase 1: the offer may be stale, so check the slot against busy data
	// fetched right now, restricted to the slot's own window.
	busy, err := c.sources.FreeBusy(ctx, slot.Start.Add(-c.opts.Buffer), slot.End.Add(c.opts.Buffer))
	if err != nil {
		return model.Booking{}, err
	}
	c.foldReservations(busy, slot.Start.Add(-c.opts.Buffer), slot.End.Add(c.opts.Buffer))

	if !availability.Contains(c.store.ListRules(), busy, c.opts, now, slot) {
		return model.Booking{}, errors.Conflict("slot " + slot.Key() + " is no longer available")
	}

	// Phase 2: claim the reservation. This is the only gate two concurrent
	// callers can both reach; exactly one wins.
	pending, err := c.reserve(slot, guest, now)
	if err != nil {
		return model.Booking{}, err
	}

	evt, err := c.sources.CreateBookEvent(ctx, c.eventRequest(pending))
	if err != nil {
		c.release(slot)
		if derr := c.store.DeleteBooking(pending.ID); derr != nil {
			slog.Error("Failed to roll back pending booking", "booking", pending.ID, "error", derr)
		}
		return model.Booking{}, fmt.Errorf("book-source event: %w: %w", errors.ErrBookingFailed, err)
	}

	pending.EventIDs = map[string]string{c.sources.BookSourceID(): evt.EventID}
	pending.MeetLink = evt.MeetLink

	// Watch sources get blocker events; their failure never fails the booking.
	for sourceID, eventID := range c.sources.CreateBlockers(ctx, c.eventRequest(pending)) {
		pending.EventIDs[sourceID] = eventID
	}

	pending.Status = model.BookingConfirmed
	if err := c.store.SaveBooking(pending); err != nil {
		c.release(slot)
		return model.Booking{}, errors.Wrap(err, "persist confirmed booking")
	}
	c.release(slot)

	slog.Info("Booking confirmed",
		"booking", pending.ID, "slot", slot.Key(), "guest", guest.Name)
	return pending, nil
}

// Cancel deletes the booking's calendar events and marks it cancelled.
// Cancelling an already-cancelled booking is a no-op; an unknown id is
// ErrNotFound.
func (c *Coordinator) Cancel(ctx context.Context, id string) error {
	b, err := c.store.GetBooking(id)
	if err != nil {
		return err
	}
	if b.Status == model.BookingCancelled {
		return nil
	}

	if err := c.sources.DeleteEvents(ctx, b.EventIDs); err != nil {
		return err
	}

	b.Status = model.BookingCancelled
	if err := c.store.SaveBooking(b); err != nil {
		return errors.Wrap(err, "persist cancellation")
	}

	slog.Info("Booking cancelled", "booking", id)
	return nil
}

// List returns recent bookings, newest slot first.
func (c *Coordinator) List(limit int) []model.Booking {
	return c.store.ListBookings(limit)
}

// reserve claims the slot key and persists the pending record while holding
// the reservation lock, so a concurrent caller either sees the claim or the
// pending booking.
func (c *Coordinator) reserve(slot model.Slot, guest model.GuestInfo, now time.Time) (model.Booking, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := slot.Key()
	if holder, taken := c.reserved[key]; taken {
		return model.Booking{}, errors.Conflict("slot " + key + " is reserved by booking " + holder)
	}
	if overlapping := c.store.ActiveBookingsOverlapping(slot.Start, slot.End); len(overlapping) > 0 {
		return model.Booking{}, errors.Conflict("slot " + key + " overlaps booking " + overlapping[0].ID)
	}

	pending := model.Booking{
		ID:        ulid.Make().String(),
		Guest:     guest,
		Slot:      slot,
		Status:    model.BookingPending,
		CreatedAt: now.UTC(),
	}
	if err := c.store.SaveBooking(pending); err != nil {
		return model.Booking{}, errors.Wrap(err, "persist pending booking")
	}
	c.reserved[key] = pending.ID
	return pending, nil
}

func (c *Coordinator) release(slot model.Slot) {
	c.mu.Lock()
	delete(c.reserved, slot.Key())
	c.mu.Unlock()
}

// foldReservations adds stored pending/confirmed bookings to the busy map so
// availability never offers a slot the store already accounts for.
func (c *Coordinator) foldReservations(busy map[string][]model.BusyInterval, start, end time.Time) {
	for _, b := range c.store.ActiveBookingsOverlapping(start, end) {
		busy[reservationSource] = append(busy[reservationSource], model.BusyInterval{
			Start:    b.Slot.Start,
			End:      b.Slot.End,
			SourceID: reservationSource,
		})
	}
}

func (c *Coordinator) eventRequest(b model.Booking) calendar.EventRequest {
	summary := "Meeting with " + b.Guest.Name
	if b.Guest.Topic != "" {
		summary += ": " + b.Guest.Topic
	}
	description := "Scheduled via slotbot."
	if b.Guest.Channel != "" {
		description += "\nChannel: " + b.Guest.Channel
	}
	if b.Guest.Email != "" {
		description += fmt.Sprintf("\nGuest: %s <%s>", b.Guest.Name, b.Guest.Email)
	}

	var attendees []string
	if b.Guest.Email != "" {
		attendees = append(attendees, b.Guest.Email)
	}
	attendees = append(attendees, b.Guest.AttendeeEmails...)

	return calendar.EventRequest{
		Summary:        summary,
		Description:    description,
		Start:          b.Slot.Start,
		End:            b.Slot.End,
		AttendeeEmails: attendees,
		WithMeetLink:   true,
	}
}
