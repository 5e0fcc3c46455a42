package model

import (
	"fmt"
	"time"
)

// SourceRole distinguishes the single calendar that receives real bookings
// from read-only calendars that only contribute busy time.
type SourceRole string

const (
	RoleBook  SourceRole = "book"
	RoleWatch SourceRole = "watch"
)

// CalendarSource is configured at startup and immutable during a run.
// Credential refresh happens inside the provider, not here.
type CalendarSource struct {
	ID            string     `json:"id"`
	Role          SourceRole `json:"role"`
	CredentialRef string     `json:"credential_ref"`
}

// AvailabilityRule declares bookable (or, when Blocked, explicitly
// unavailable) time. Exactly one of Weekday / Date is set: Weekday for
// recurring weekly rules, Date ("2006-01-02") for one-off days. Start and End
// are wall-clock "15:04" in Timezone. Rules are additive; overlapping rules on
// the same scope merge into a union of intervals.
type AvailabilityRule struct {
	ID        string    `json:"id"`
	Weekday   string    `json:"weekday,omitempty"` // "monday" .. "sunday"
	Date      string    `json:"date,omitempty"`
	Start     string    `json:"start"`
	End       string    `json:"end"`
	Timezone  string    `json:"timezone"`
	Blocked   bool      `json:"blocked,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Scope returns the recurring day name or the specific date, whichever is set.
func (r AvailabilityRule) Scope() string {
	if r.Date != "" {
		return r.Date
	}
	return r.Weekday
}

// BusyInterval is an occupied range fetched fresh from one calendar source.
// Never persisted.
type BusyInterval struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	SourceID string    `json:"source_id"`
}

// Slot is a fixed-duration, buffer-clear, notice-compliant candidate window.
// Start and End are absolute instants; Timezone is only a display hint.
type Slot struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Timezone string    `json:"timezone,omitempty"`
}

// Key identifies a slot by its exact boundaries. The booking reservation is
// keyed on this, so two slots with the same instant bounds are the same slot.
func (s Slot) Key() string {
	return s.Start.UTC().Format(time.RFC3339) + "/" + s.End.UTC().Format(time.RFC3339)
}

func (s Slot) Overlaps(start, end time.Time) bool {
	return s.Start.Before(end) && s.End.After(start)
}

// Format renders the slot in its display timezone, falling back to UTC.
func (s Slot) Format() string {
	return s.FormatIn(s.Timezone)
}

func (s Slot) FormatIn(tz string) string {
	loc := time.UTC
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	start := s.Start.In(loc)
	end := s.End.In(loc)
	return fmt.Sprintf("%s %s-%s", start.Format("Monday, January 2"), start.Format("15:04"), end.Format("15:04"))
}

// BookingStatus lifecycle: pending while the calendar event is being created,
// confirmed once the book source holds it, cancelled only via explicit
// cancellation. A pending booking blocks availability exactly like a
// confirmed one.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// GuestInfo is what the conversation collects before a booking may be made.
type GuestInfo struct {
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Topic          string   `json:"topic,omitempty"`
	Timezone       string   `json:"timezone,omitempty"`
	Channel        string   `json:"channel,omitempty"`
	SenderID       string   `json:"sender_id,omitempty"`
	AttendeeEmails []string `json:"attendee_emails,omitempty"`
}

// Booking is the persisted record of a claimed slot. EventIDs maps source id
// to the external event created there: the book source's real event plus any
// best-effort blockers in watch sources.
type Booking struct {
	ID           string            `json:"id"`
	Guest        GuestInfo         `json:"guest"`
	Slot         Slot              `json:"slot"`
	EventIDs     map[string]string `json:"event_ids,omitempty"`
	MeetLink     string            `json:"meet_link,omitempty"`
	Status       BookingStatus     `json:"status"`
	ReminderSent bool              `json:"reminder_sent,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Service is a bookable consultation type from configuration.
type Service struct {
	Name            string  `json:"name"`
	Slug            string  `json:"slug"`
	DurationMinutes int     `json:"duration_minutes"`
	Price           float64 `json:"price"`
	Currency        string  `json:"currency"`
	Description     string  `json:"description,omitempty"`
}

// FormattedPrice renders the price for chat output.
func (s Service) FormattedPrice() string {
	if s.Price == 0 {
		return "Free"
	}
	return fmt.Sprintf("%s %.2f", s.Currency, s.Price)
}

// IncomingMessage is the channel-agnostic inbound message delivered by a
// transport adapter.
type IncomingMessage struct {
	Channel    string            `json:"channel"`
	SenderID   string            `json:"sender_id"`
	SenderName string            `json:"sender_name"`
	Text       string            `json:"text"`
	Timestamp  time.Time         `json:"timestamp"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// OutgoingMessage is what the engine hands back to the transport.
type OutgoingMessage struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
