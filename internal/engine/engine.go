// Package engine routes inbound messages through rate limiting, validation,
// quick-commands and the language-model tool loop, and folds results back
// into the sender's session.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/slotbot/slotbot/internal/booking"
	"github.com/slotbot/slotbot/internal/model"
	"github.com/slotbot/slotbot/internal/nlu"
	"github.com/slotbot/slotbot/internal/nlu/contract"
	"github.com/slotbot/slotbot/internal/ratelimit"
	"github.com/slotbot/slotbot/internal/session"
	"github.com/slotbot/slotbot/internal/store"
)

// maxToolRounds bounds the model's tool loop within one turn.
const maxToolRounds = 5

const (
	replyThrottled   = "You're sending messages too fast. Please wait a minute."
	replyUnavailable = "Sorry, I'm having trouble right now. Please try again in a moment."
	replyGeneric     = "Something went wrong. Please try again."
)

// Notifier pushes out-of-band notices to the owner. Optional.
type Notifier interface {
	NotifyOwner(ctx context.Context, text string)
}

type Options struct {
	OwnerName     string
	OwnerTimezone string
	Model         string
	Services      []model.Service
}

type Engine struct {
	registry *session.Registry
	limiter  *ratelimit.Limiter
	coord    *booking.Coordinator
	store    *store.Store
	provider nlu.Provider
	notifier Notifier
	opts     Options

	now func() time.Time
}

func New(registry *session.Registry, limiter *ratelimit.Limiter, coord *booking.Coordinator, st *store.Store, provider nlu.Provider, notifier Notifier, opts Options) *Engine {
	return &Engine{
		registry: registry,
		limiter:  limiter,
		coord:    coord,
		store:    st,
		provider: provider,
		notifier: notifier,
		opts:     opts,
		now:      time.Now,
	}
}

// Handle processes one inbound message and always produces a reply. Internal
// failures are logged and surfaced as apologetic text; the session is never
// left mid-transition.
func (e *Engine) Handle(ctx context.Context, msg model.IncomingMessage) model.OutgoingMessage {
	if err := e.limiter.Allow(msg.SenderID); err != nil {
		return model.OutgoingMessage{Text: replyThrottled}
	}

	if err := validateText(msg.Text); err != nil {
		slog.Warn("Rejected message", "sender", msg.SenderID, "error", err)
		return model.OutgoingMessage{Text: userMessage(err)}
	}

	s, release := e.registry.Acquire(msg.SenderID, msg.Channel, e.now())
	defer release()

	if reply, handled := e.quickCommand(ctx, s, msg.Text); handled {
		return reply
	}

	s.AppendUser(msg.Text)
	reply := e.converse(ctx, s)
	return reply
}

// converse runs the model tool loop for the session until it produces plain
// text or the round budget runs out.
func (e *Engine) converse(ctx context.Context, s *session.Session) model.OutgoingMessage {
	turn := &turnState{}

	for round := 0; round < maxToolRounds; round++ {
		req := contract.CompletionRequest{
			Model:    e.opts.Model,
			System:   e.systemPrompt(ctx, s),
			Messages: s.History,
		}
		if s.Role == session.RoleOwner {
			req.Tools = ownerTools
		} else {
			req.Tools = guestTools
		}

		resp, err := e.provider.Generate(ctx, req)
		if err != nil {
			slog.Error("Language model call failed", "sender", s.SenderID, "error", err)
			return model.OutgoingMessage{Text: replyUnavailable}
		}

		if len(resp.ToolCalls) == 0 {
			s.AppendAssistant(resp.Content, nil)
			if s.Role == session.RoleOwner {
				// A text-only owner turn means the model still needs
				// command details; a finished command settles back to idle.
				if turn.ownerToolRan {
					s.State = session.StateOwnerIdle
				} else {
					s.State = session.StateOwnerAwaitingCommand
				}
			}
			return e.finish(resp.Content, turn)
		}

		s.AppendAssistant(resp.Content, resp.ToolCalls)
		for _, tc := range resp.ToolCalls {
			result := e.executeTool(ctx, s, tc.Name, tc.Input, turn)
			slog.Info("Tool executed", "sender", s.SenderID, "tool", tc.Name, "result", truncate(result, 80))
			s.AppendToolResult(tc.ID, result)
		}
	}

	// Round budget exhausted; fall back to a direct confirmation if a
	// booking happened, otherwise a generic reply.
	if turn.booking != nil {
		return e.finish(e.confirmationText(*turn.booking), turn)
	}
	return model.OutgoingMessage{Text: replyGeneric}
}

func (e *Engine) finish(text string, turn *turnState) model.OutgoingMessage {
	if strings.TrimSpace(text) == "" {
		text = replyGeneric
	}
	out := model.OutgoingMessage{Text: text}
	if turn.booking != nil {
		out.Metadata = map[string]string{"booking_id": turn.booking.ID}
		if turn.booking.MeetLink != "" {
			out.Metadata["meet_link"] = turn.booking.MeetLink
		}
	}
	return out
}

func (e *Engine) systemPrompt(ctx context.Context, s *session.Session) string {
	if s.Role == session.RoleOwner {
		return ownerPrompt(e.opts.OwnerName, e.rulesSummary())
	}

	slots, err := e.coord.Slots(ctx)
	if err != nil {
		slog.Error("Slot computation failed for prompt", "sender", s.SenderID, "error", err)
		slots = nil
	} else {
		// Refresh the numbered offer the model sees without disturbing the
		// dialog state.
		s.OfferedSlots = slots
	}
	return guestPrompt(e.opts.OwnerName, e.opts.OwnerTimezone, slots, s, e.opts.Services)
}

// rulesSummary renders the rule set for prompts and owner commands.
func (e *Engine) rulesSummary() string {
	rules := e.store.ListRules()
	if len(rules) == 0 {
		return "No availability rules configured."
	}
	var b strings.Builder
	for _, r := range rules {
		kind := "available"
		if r.Blocked {
			kind = "BLOCKED"
		}
		fmt.Fprintf(&b, "  [%s] %s %s-%s (%s, %s)\n", r.ID, r.Scope(), r.Start, r.End, r.Timezone, kind)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (e *Engine) confirmationText(b model.Booking) string {
	tz := b.Guest.Timezone
	if tz == "" {
		tz = e.opts.OwnerTimezone
	}
	text := fmt.Sprintf("Booked! %s with %s. Booking id: %s.", b.Slot.FormatIn(tz), e.opts.OwnerName, b.ID)
	if b.MeetLink != "" {
		text += "\nMeet link: " + b.MeetLink
	}
	return text
}

func (e *Engine) notifyOwner(ctx context.Context, text string) {
	if e.notifier != nil {
		e.notifier.NotifyOwner(ctx, text)
	}
}

// userMessage strips the trailing category sentinel from a classified error
// so the corrective text reads naturally.
func userMessage(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		msg = msg[:i]
	}
	if msg == "" {
		return replyGeneric
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// turnState carries side effects of tool execution across loop rounds.
type turnState struct {
	booking      *model.Booking
	ownerToolRan bool
}
