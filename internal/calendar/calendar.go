// Package calendar abstracts the external calendar collaborators. One
// configured source carries the book role and receives real events; any
// number of watch sources contribute busy time and receive best-effort
// blocker events.
package calendar

import (
	"context"
	"time"

	"github.com/slotbot/slotbot/internal/model"
)

// EventRequest describes an event to create in one source.
type EventRequest struct {
	Summary        string
	Description    string
	Start          time.Time
	End            time.Time
	AttendeeEmails []string
	WithMeetLink   bool
}

// Event is what a provider hands back after creating an event.
type Event struct {
	EventID  string
	MeetLink string
}

// Provider is one calendar backend bound to one configured source. An empty
// FreeBusy result means a fully available calendar, never an error; transport
// failures must surface as errors.
type Provider interface {
	SourceID() string
	FreeBusy(ctx context.Context, start, end time.Time) ([]model.BusyInterval, error)
	CreateEvent(ctx context.Context, req EventRequest) (Event, error)
	DeleteEvent(ctx context.Context, eventID string) error
}
