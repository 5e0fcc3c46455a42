package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	stderrors "errors"

	"github.com/slotbot/slotbot/internal/errors"
	"github.com/slotbot/slotbot/internal/model"
	"github.com/slotbot/slotbot/internal/session"
)

// executeTool dispatches one tool call and returns the result text handed
// back to the model. Errors never escape; they become corrective result text
// so the model can recover in the same turn.
func (e *Engine) executeTool(ctx context.Context, s *session.Session, name, input string, turn *turnState) string {
	if s.Role == session.RoleOwner {
		turn.ownerToolRan = true
		return e.executeOwnerTool(ctx, s, name, input)
	}
	return e.executeGuestTool(ctx, s, name, input, turn)
}

func (e *Engine) executeGuestTool(ctx context.Context, s *session.Session, name, input string, turn *turnState) string {
	switch name {
	case "get_available_slots":
		var args struct {
			Date string `json:"date"`
		}
		_ = json.Unmarshal([]byte(input), &args)
		return e.offerSlots(ctx, s, args.Date)

	case "collect_guest_info":
		var args struct {
			Name  string `json:"name"`
			Email string `json:"email"`
			Topic string `json:"topic"`
			City  string `json:"city"`
		}
		_ = json.Unmarshal([]byte(input), &args)
		return e.collectGuestInfo(s, args.Name, args.Email, args.Topic, args.City)

	case "book_consultation":
		var args struct {
			SlotNumber     int      `json:"slot_number"`
			AttendeeEmails []string `json:"attendee_emails"`
		}
		_ = json.Unmarshal([]byte(input), &args)
		return e.bookConsultation(ctx, s, args.SlotNumber, args.AttendeeEmails, turn)

	case "cancel_booking":
		var args struct {
			BookingID string `json:"booking_id"`
		}
		_ = json.Unmarshal([]byte(input), &args)
		return e.cancelBooking(ctx, args.BookingID)

	case "get_services":
		return e.servicesText()

	case "get_pricing":
		return e.pricingText()
	}
	return "Unknown tool: " + name
}

func (e *Engine) executeOwnerTool(ctx context.Context, s *session.Session, name, input string) string {
	switch name {
	case "add_rule", "block_range":
		var args struct {
			Day   string `json:"day"`
			Date  string `json:"date"`
			Start string `json:"start"`
			End   string `json:"end"`
		}
		_ = json.Unmarshal([]byte(input), &args)
		return e.addRule(args.Day, args.Date, args.Start, args.End, name == "block_range")

	case "clear_rules":
		var args struct {
			Day  string `json:"day"`
			Date string `json:"date"`
		}
		_ = json.Unmarshal([]byte(input), &args)
		scope := args.Day
		if scope == "" {
			scope = args.Date
		}
		count, err := e.store.ClearRules(scope)
		if err != nil {
			return "Failed to clear rules: " + err.Error()
		}
		if scope == "" {
			return fmt.Sprintf("Cleared all %d rules.", count)
		}
		return fmt.Sprintf("Cleared %d rules for %s.", count, scope)

	case "show_rules":
		return e.rulesSummary()

	case "list_bookings":
		var args struct {
			Limit int `json:"limit"`
		}
		_ = json.Unmarshal([]byte(input), &args)
		if args.Limit <= 0 {
			args.Limit = 10
		}
		return e.bookingsText(args.Limit)

	case "cancel_booking":
		var args struct {
			BookingID string `json:"booking_id"`
		}
		_ = json.Unmarshal([]byte(input), &args)
		return e.cancelBooking(ctx, args.BookingID)
	}
	return "Unknown tool: " + name
}

func (e *Engine) offerSlots(ctx context.Context, s *session.Session, date string) string {
	slots, err := e.coord.Slots(ctx)
	if err != nil {
		slog.Error("Slot computation failed", "error", err)
		return "Error: could not reach the calendar right now."
	}

	if date != "" {
		loc, lerr := time.LoadLocation(e.opts.OwnerTimezone)
		if lerr != nil {
			loc = time.UTC
		}
		day, derr := time.ParseInLocation("2006-01-02", date, loc)
		if derr != nil {
			return "Error: date must be YYYY-MM-DD."
		}
		var filtered []model.Slot
		for _, slot := range slots {
			if !slot.Start.Before(day) && slot.Start.Before(day.AddDate(0, 0, 1)) {
				filtered = append(filtered, slot)
			}
		}
		slots = filtered
	}

	s.Offer(slots)
	if len(slots) == 0 {
		return "No available slots for that period."
	}
	return "Available slots:\n" + formatSlots(slots, s.Collected.Timezone)
}

func (e *Engine) collectGuestInfo(s *session.Session, name, email, topic, city string) string {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return "Error: name is required."
	}
	if !validEmail(email) {
		return fmt.Sprintf("Error: valid email is required. Got: %q", email)
	}

	s.Collected.Name = name
	s.Collected.Email = email
	s.Collected.Topic = strings.TrimSpace(topic)
	s.Collected.SenderID = s.SenderID
	s.Collected.Channel = s.Channel
	s.State = session.StateCollectingGuestInfo

	result := fmt.Sprintf("Saved: %s, %s", name, email)
	if s.Collected.Topic != "" {
		result += ", topic: " + s.Collected.Topic
	}
	if city != "" {
		if tz := resolveTimezone(city); tz != "" {
			s.Collected.Timezone = tz
			result += ", timezone: " + tz
		} else {
			result += fmt.Sprintf(" (could not resolve timezone for %q, slots shown in owner timezone)", city)
		}
	}
	return result
}

func (e *Engine) bookConsultation(ctx context.Context, s *session.Session, slotNumber int, attendees []string, turn *turnState) string {
	if s.Collected.Name == "" || s.Collected.Email == "" {
		return "Error: must call collect_guest_info first (need name and email)."
	}
	if len(attendees) > maxAttendeeEmails {
		return fmt.Sprintf("Error: max %d additional attendees allowed.", maxAttendeeEmails)
	}
	for _, email := range attendees {
		if !validEmail(email) {
			return fmt.Sprintf("Error: invalid attendee email: %q", email)
		}
	}

	slot, ok := s.OfferedSlot(slotNumber)
	if !ok {
		return fmt.Sprintf("Error: invalid slot number %d. Valid range: 1-%d.", slotNumber, len(s.OfferedSlots))
	}

	s.State = session.StateAwaitingConfirmation
	guest := s.Collected
	guest.AttendeeEmails = attendees

	b, err := e.coord.Create(ctx, slot, guest)
	switch {
	case err == nil:
		s.State = session.StateCompleted
		s.OfferedSlots = nil
		turn.booking = &b
		e.notifyOwner(ctx, fmt.Sprintf("New booking: %s with %s <%s>. Id %s.",
			b.Slot.FormatIn(e.opts.OwnerTimezone), guest.Name, guest.Email, b.ID))
		return "Booking confirmed: " + e.confirmationText(b)

	case stderrors.Is(err, errors.ErrConflict):
		// Someone else took it between offer and confirm. Refresh the
		// offer so the model can present current slots.
		s.State = session.StateOfferingSlots
		refreshed := e.offerSlots(ctx, s, "")
		return "Sorry, this slot was just booked by someone else. Please pick a different slot.\n" + refreshed

	case stderrors.Is(err, errors.ErrValidation):
		return "Error: " + userMessage(err)

	default:
		slog.Error("Booking failed", "slot", slot.Key(), "error", err)
		s.State = session.StateOfferingSlots
		return "Failed to create booking. Calendar may be unavailable. Please try picking a slot again."
	}
}

func (e *Engine) cancelBooking(ctx context.Context, id string) string {
	if strings.TrimSpace(id) == "" {
		return "Error: booking_id is required."
	}
	err := e.coord.Cancel(ctx, id)
	switch {
	case err == nil:
		e.notifyOwner(ctx, "Booking cancelled: "+id)
		return "Booking " + id + " cancelled."
	case stderrors.Is(err, errors.ErrNotFound):
		return "No booking found with id " + id + "."
	default:
		slog.Error("Cancellation failed", "booking", id, "error", err)
		return "Error: could not cancel the booking right now."
	}
}

func (e *Engine) bookingsText(limit int) string {
	bookings := e.coord.List(limit)
	if len(bookings) == 0 {
		return "No bookings yet."
	}
	var b strings.Builder
	for _, bk := range bookings {
		fmt.Fprintf(&b, "  [%s] %s with %s <%s> (%s)\n",
			bk.ID, bk.Slot.FormatIn(e.opts.OwnerTimezone), bk.Guest.Name, bk.Guest.Email, bk.Status)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (e *Engine) servicesText() string {
	if len(e.opts.Services) == 0 {
		return fmt.Sprintf("One service on offer: a meeting with %s.", e.opts.OwnerName)
	}
	var b strings.Builder
	for _, svc := range e.opts.Services {
		fmt.Fprintf(&b, "  - %s (%d min, %s): %s\n", svc.Name, svc.DurationMinutes, svc.FormattedPrice(), svc.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (e *Engine) pricingText() string {
	if len(e.opts.Services) == 0 {
		return "No priced services configured; meetings are free."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Pricing for %s (timezone %s):\n", e.opts.OwnerName, e.opts.OwnerTimezone)
	for _, svc := range e.opts.Services {
		fmt.Fprintf(&b, "  - %s: %s for %d minutes\n", svc.Name, svc.FormattedPrice(), svc.DurationMinutes)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (e *Engine) addRule(day, date, start, end string, blocked bool) string {
	if start == "" || end == "" {
		return "Error: start and end times are required (HH:MM)."
	}
	if day == "" && date == "" {
		return "Error: either a weekday or a date is required."
	}
	if _, err := time.Parse("15:04", start); err != nil {
		return fmt.Sprintf("Error: invalid start time %q, want HH:MM.", start)
	}
	if _, err := time.Parse("15:04", end); err != nil {
		return fmt.Sprintf("Error: invalid end time %q, want HH:MM.", end)
	}
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return fmt.Sprintf("Error: invalid date %q, want YYYY-MM-DD.", date)
		}
	}

	rule, err := e.store.AddRule(model.AvailabilityRule{
		Weekday:  strings.ToLower(strings.TrimSpace(day)),
		Date:     date,
		Start:    start,
		End:      end,
		Timezone: e.opts.OwnerTimezone,
		Blocked:  blocked,
	})
	if err != nil {
		return "Failed to save rule: " + err.Error()
	}

	verb := "Added availability"
	if blocked {
		verb = "Blocked"
	}
	return fmt.Sprintf("%s rule [%s]: %s %s-%s", verb, rule.ID, rule.Scope(), rule.Start, rule.End)
}
