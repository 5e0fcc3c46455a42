// Package session holds per-sender conversation state. A session is tied to
// one (sender, channel) pair for its whole life; the registry serializes
// turns per pair so two messages from the same sender never interleave.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/slotbot/slotbot/internal/model"
	"github.com/slotbot/slotbot/internal/nlu/contract"
)

type Role string

const (
	RoleGuest Role = "guest"
	RoleOwner Role = "owner"
)

type State string

const (
	StateIdle                 State = "idle"
	StateCollectingGuestInfo  State = "collecting_guest_info"
	StateOfferingSlots        State = "offering_slots"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateCompleted            State = "completed"

	StateOwnerIdle            State = "owner_idle"
	StateOwnerAwaitingCommand State = "owner_awaiting_command"
)

// historyLimit caps the dialog snapshot handed to the language model.
const historyLimit = 40

type Session struct {
	SenderID string
	Channel  string
	Role     Role
	State    State

	Collected    model.GuestInfo
	OfferedSlots []model.Slot
	History      []contract.Message

	LastActivity time.Time
}

func key(senderID, channel string) string {
	return senderID + "@" + channel
}

// Reset drops everything collected this conversation but keeps the identity.
// Confirmed bookings live in the store and are untouched.
func (s *Session) Reset() {
	if s.Role == RoleOwner {
		s.State = StateOwnerIdle
	} else {
		s.State = StateIdle
	}
	s.Collected = model.GuestInfo{}
	s.OfferedSlots = nil
	s.History = nil
}

func (s *Session) Touch(now time.Time) {
	s.LastActivity = now
}

// AppendUser, AppendAssistant and AppendToolResult maintain the dialog
// history in contract form, trimmed from the front past historyLimit.
func (s *Session) AppendUser(text string) {
	s.append(contract.Message{Role: "user", Content: text})
}

func (s *Session) AppendAssistant(text string, calls []*contract.ToolCall) {
	s.append(contract.Message{Role: "assistant", Content: text, ToolCalls: calls})
}

func (s *Session) AppendToolResult(callID, result string) {
	s.append(contract.Message{Role: "tool", ToolCallID: callID, Content: result})
}

func (s *Session) append(m contract.Message) {
	s.History = append(s.History, m)
	if len(s.History) > historyLimit {
		s.History = s.History[len(s.History)-historyLimit:]
	}
}

// Offer records the slots presented to the guest so a later "the third one
// works" can be resolved by index.
func (s *Session) Offer(slots []model.Slot) {
	s.OfferedSlots = slots
	s.State = StateOfferingSlots
}

// OfferedSlot resolves a 1-based pick from the last offer.
func (s *Session) OfferedSlot(n int) (model.Slot, bool) {
	if n < 1 || n > len(s.OfferedSlots) {
		return model.Slot{}, false
	}
	return s.OfferedSlots[n-1], true
}

// Registry owns every live session and the per-key turn locks. Modeled as
// injected process state, not a package global.
type Registry struct {
	idleTimeout time.Duration
	owners      map[string]struct{}

	mu       sync.Mutex
	sessions map[string]*Session
	locks    map[string]*sync.Mutex
}

func NewRegistry(idleTimeout time.Duration, ownerIDs []string) *Registry {
	owners := make(map[string]struct{}, len(ownerIDs))
	for _, id := range ownerIDs {
		id = strings.TrimSpace(id)
		if id != "" {
			owners[id] = struct{}{}
		}
	}
	return &Registry{
		idleTimeout: idleTimeout,
		owners:      owners,
		sessions:    make(map[string]*Session),
		locks:       make(map[string]*sync.Mutex),
	}
}

func (r *Registry) IsOwner(senderID string) bool {
	_, ok := r.owners[senderID]
	return ok
}

// Acquire blocks until the (sender, channel) turn lock is held and returns
// the session plus a release func. A session past the idle timeout is reset
// in place before being handed back; the next message just starts over.
func (r *Registry) Acquire(senderID, channel string, now time.Time) (*Session, func()) {
	k := key(senderID, channel)

	r.mu.Lock()
	lock, ok := r.locks[k]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[k] = lock
	}
	r.mu.Unlock()

	lock.Lock()

	r.mu.Lock()
	s, ok := r.sessions[k]
	if !ok {
		s = &Session{SenderID: senderID, Channel: channel}
		if r.IsOwner(senderID) {
			s.Role = RoleOwner
			s.State = StateOwnerIdle
		} else {
			s.Role = RoleGuest
			s.State = StateIdle
		}
		r.sessions[k] = s
	}
	r.mu.Unlock()

	if r.idleTimeout > 0 && !s.LastActivity.IsZero() && now.Sub(s.LastActivity) > r.idleTimeout {
		s.Reset()
	}
	s.Touch(now)

	return s, lock.Unlock
}

// Prune evicts sessions idle past the timeout. The turn lock stays behind so
// an in-flight turn for an evicted key is unaffected.
func (r *Registry) Prune(now time.Time) int {
	if r.idleTimeout <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for k, s := range r.sessions {
		if now.Sub(s.LastActivity) > r.idleTimeout {
			delete(r.sessions, k)
			evicted++
		}
	}
	return evicted
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
