package calendar

import (
	"context"
	"fmt"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/slotbot/slotbot/internal/model"
)

// GoogleProvider serves one Google calendar through the Calendar API. The
// credential file referenced by the source's credential_ref must grant access
// to the calendar; token refresh is handled inside the client.
type GoogleProvider struct {
	sourceID   string
	calendarID string
	svc        *gcal.Service
}

func NewGoogleProvider(ctx context.Context, sourceID, calendarID, credentialsPath string) (*GoogleProvider, error) {
	svc, err := gcal.NewService(ctx,
		option.WithCredentialsFile(credentialsPath),
		option.WithScopes(gcal.CalendarScope),
	)
	if err != nil {
		return nil, fmt.Errorf("init google calendar client for %s: %w", sourceID, err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleProvider{sourceID: sourceID, calendarID: calendarID, svc: svc}, nil
}

func (g *GoogleProvider) SourceID() string {
	return g.sourceID
}

func (g *GoogleProvider) FreeBusy(ctx context.Context, start, end time.Time) ([]model.BusyInterval, error) {
	resp, err := g.svc.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin: start.Format(time.RFC3339),
		TimeMax: end.Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: g.calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("freebusy query %s: %w", g.sourceID, err)
	}

	cal, ok := resp.Calendars[g.calendarID]
	if !ok {
		// No entry for the calendar means no busy time, not an error.
		return nil, nil
	}

	var intervals []model.BusyInterval
	for _, period := range cal.Busy {
		s, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			continue
		}
		e, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			continue
		}
		intervals = append(intervals, model.BusyInterval{Start: s, End: e, SourceID: g.sourceID})
	}
	return intervals, nil
}

func (g *GoogleProvider) CreateEvent(ctx context.Context, req EventRequest) (Event, error) {
	event := &gcal.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Start:       &gcal.EventDateTime{DateTime: req.Start.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: req.End.Format(time.RFC3339)},
	}
	for _, email := range req.AttendeeEmails {
		event.Attendees = append(event.Attendees, &gcal.EventAttendee{Email: email})
	}

	call := g.svc.Events.Insert(g.calendarID, event).Context(ctx)
	if req.WithMeetLink {
		event.ConferenceData = &gcal.ConferenceData{
			CreateRequest: &gcal.CreateConferenceRequest{
				RequestId: fmt.Sprintf("slotbot-%d", req.Start.Unix()),
				ConferenceSolutionKey: &gcal.ConferenceSolutionKey{
					Type: "hangoutsMeet",
				},
			},
		}
		call = call.ConferenceDataVersion(1)
	}

	created, err := call.Do()
	if err != nil {
		return Event{}, fmt.Errorf("create event in %s: %w", g.sourceID, err)
	}

	return Event{EventID: created.Id, MeetLink: meetLink(created)}, nil
}

func (g *GoogleProvider) DeleteEvent(ctx context.Context, eventID string) error {
	if err := g.svc.Events.Delete(g.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete event %s in %s: %w", eventID, g.sourceID, err)
	}
	return nil
}

func meetLink(event *gcal.Event) string {
	if event.HangoutLink != "" {
		return event.HangoutLink
	}
	if event.ConferenceData == nil {
		return ""
	}
	for _, ep := range event.ConferenceData.EntryPoints {
		if ep.EntryPointType == "video" {
			return ep.Uri
		}
	}
	return ""
}
