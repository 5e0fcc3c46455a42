package engine

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"github.com/slotbot/slotbot/internal/model"
	"github.com/slotbot/slotbot/internal/session"
)

// quickCommand handles slash commands without touching the language model.
// Returns handled=false for anything that is not a command.
func (e *Engine) quickCommand(ctx context.Context, s *session.Session, text string) (model.OutgoingMessage, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return model.OutgoingMessage{}, false
	}

	fields, err := shlex.Split(trimmed)
	if err != nil || len(fields) == 0 {
		fields = strings.Fields(trimmed)
	}
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "/start":
		s.Reset()
		if s.Role == session.RoleOwner {
			return model.OutgoingMessage{Text: "Hi! Tell me your availability and I'll keep the schedule. /help for commands."}, true
		}
		return model.OutgoingMessage{Text: "Hi! I can help you book a meeting with " + e.opts.OwnerName + ". When works for you?"}, true

	case "/cancel":
		s.Reset()
		return model.OutgoingMessage{Text: "Scheduling cancelled. Send a message anytime to start over."}, true

	case "/help":
		return model.OutgoingMessage{Text: e.helpText(s.Role)}, true

	case "/slots":
		reply := e.offerSlots(ctx, s, firstArg(args))
		return model.OutgoingMessage{Text: reply}, true
	}

	if s.Role != session.RoleOwner {
		return model.OutgoingMessage{Text: "Unknown command. /help lists what I understand."}, true
	}

	switch cmd {
	case "/schedule", "/rules", "/show":
		return model.OutgoingMessage{Text: e.rulesSummary()}, true

	case "/clear":
		count, err := e.store.ClearRules(firstArg(args))
		if err != nil {
			return model.OutgoingMessage{Text: "Failed to clear rules: " + err.Error()}, true
		}
		return model.OutgoingMessage{Text: clearedText(count, firstArg(args))}, true

	case "/bookings":
		return model.OutgoingMessage{Text: e.bookingsText(10)}, true

	case "/cancelbooking":
		if len(args) == 0 {
			return model.OutgoingMessage{Text: "Usage: /cancelbooking <booking-id>"}, true
		}
		return model.OutgoingMessage{Text: e.cancelBooking(ctx, args[0])}, true
	}

	return model.OutgoingMessage{Text: "Unknown command. /help lists what I understand."}, true
}

func (e *Engine) helpText(role session.Role) string {
	if role == session.RoleOwner {
		return strings.Join([]string{
			"Owner commands:",
			"  /schedule        show availability rules",
			"  /clear [scope]   clear rules for a day/date, or all",
			"  /slots [date]    preview bookable slots",
			"  /bookings        list recent bookings",
			"  /cancelbooking <id>",
			"  /cancel          reset this conversation",
			"Or just tell me in plain words, e.g. \"open Mondays 10 to 18\".",
		}, "\n")
	}
	return strings.Join([]string{
		"I help you book a meeting with " + e.opts.OwnerName + ".",
		"  /slots [date]  show open times",
		"  /cancel        start over",
		"Just tell me when you'd like to meet.",
	}, "\n")
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func clearedText(count int, scope string) string {
	if scope == "" {
		return "Cleared " + strconv.Itoa(count) + " availability rules."
	}
	return "Cleared " + strconv.Itoa(count) + " rules for " + scope + "."
}
