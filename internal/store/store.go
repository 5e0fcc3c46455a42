// Package store is the durable home of availability rules and bookings.
// Records live as JSON documents under a base path; every mutation rewrites
// the affected file atomically. A flock on the dataset enforces the
// single-scheduling-authority assumption: a second process refuses to start
// rather than race the first.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"
	"github.com/oklog/ulid/v2"

	"github.com/slotbot/slotbot/internal/errors"
	"github.com/slotbot/slotbot/internal/model"
)

const (
	rulesFile    = "rules.json"
	bookingsFile = "bookings.json"
	lockFile     = "slotbot.lock"
)

type Store struct {
	basePath string
	lock     *flock.Flock

	mu       sync.RWMutex
	rules    map[string]model.AvailabilityRule
	bookings map[string]model.Booking
}

// Open creates the base path if needed, takes the dataset lock and loads the
// records. Returns an error when another process already holds the lock.
func Open(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir %s: %w", basePath, err)
	}

	lock := flock.New(filepath.Join(basePath, lockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire store lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("store at %s is locked by another process", basePath)
	}

	s := &Store{
		basePath: basePath,
		lock:     lock,
		rules:    make(map[string]model.AvailabilityRule),
		bookings: make(map[string]model.Booking),
	}

	if err := loadJSON(s.path(rulesFile), &s.rules); err != nil {
		lock.Unlock()
		return nil, err
	}
	if err := loadJSON(s.path(bookingsFile), &s.bookings); err != nil {
		lock.Unlock()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}

func (s *Store) path(name string) string {
	return filepath.Join(s.basePath, name)
}

func loadJSON(path string, dst any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, src any) error {
	data, err := json.MarshalIndent(src, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// --- Availability rules ---

// AddRule assigns an id and persists the rule.
func (s *Store) AddRule(rule model.AvailabilityRule) (model.AvailabilityRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule.ID = ulid.Make().String()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	s.rules[rule.ID] = rule
	if err := writeJSON(s.path(rulesFile), s.rules); err != nil {
		delete(s.rules, rule.ID)
		return model.AvailabilityRule{}, err
	}
	return rule, nil
}

func (s *Store) ListRules() []model.AvailabilityRule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.AvailabilityRule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Scope() != out[j].Scope() {
			return out[i].Scope() < out[j].Scope()
		}
		return out[i].Start < out[j].Start
	})
	return out
}

func (s *Store) RemoveRule(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[id]; !ok {
		return errors.NotFound("rule " + id)
	}
	removed := s.rules[id]
	delete(s.rules, id)
	if err := writeJSON(s.path(rulesFile), s.rules); err != nil {
		s.rules[id] = removed
		return err
	}
	return nil
}

// ClearRules removes every rule matching scope (a weekday name or a date);
// an empty scope clears everything. Returns the number removed.
func (s *Store) ClearRules(scope string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make(map[string]model.AvailabilityRule)
	for id, r := range s.rules {
		if scope == "" || r.Scope() == scope {
			removed[id] = r
			delete(s.rules, id)
		}
	}
	if len(removed) == 0 {
		return 0, nil
	}
	if err := writeJSON(s.path(rulesFile), s.rules); err != nil {
		for id, r := range removed {
			s.rules[id] = r
		}
		return 0, err
	}
	return len(removed), nil
}

// --- Bookings ---

func (s *Store) SaveBooking(b model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.bookings[b.ID]
	s.bookings[b.ID] = b
	if err := writeJSON(s.path(bookingsFile), s.bookings); err != nil {
		if existed {
			s.bookings[b.ID] = prev
		} else {
			delete(s.bookings, b.ID)
		}
		return err
	}
	return nil
}

// DeleteBooking removes the record entirely. Used to roll back a pending
// booking whose calendar event never materialized.
func (s *Store) DeleteBooking(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return errors.NotFound("booking " + id)
	}
	delete(s.bookings, id)
	if err := writeJSON(s.path(bookingsFile), s.bookings); err != nil {
		s.bookings[id] = b
		return err
	}
	return nil
}

func (s *Store) GetBooking(id string) (model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, errors.NotFound("booking " + id)
	}
	return b, nil
}

// ListBookings returns bookings sorted by slot start descending. A limit of
// zero means all.
func (s *Store) ListBookings(limit int) []model.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot.Start.After(out[j].Slot.Start) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ActiveBookingsOverlapping returns pending and confirmed bookings whose slot
// overlaps [start, end). Pending bookings block availability until resolved.
func (s *Store) ActiveBookingsOverlapping(start, end time.Time) []model.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Booking
	for _, b := range s.bookings {
		if b.Status == model.BookingCancelled {
			continue
		}
		if b.Slot.Overlaps(start, end) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot.Start.Before(out[j].Slot.Start) })
	return out
}

// BookingsNeedingReminder returns confirmed bookings starting inside
// (after, before] whose reminder has not been sent yet.
func (s *Store) BookingsNeedingReminder(after, before time.Time) []model.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Booking
	for _, b := range s.bookings {
		if b.Status != model.BookingConfirmed || b.ReminderSent {
			continue
		}
		if b.Slot.Start.After(after) && !b.Slot.Start.After(before) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot.Start.Before(out[j].Slot.Start) })
	return out
}

// MarkReminderSent flips the send-once flag. Unknown ids are ErrNotFound.
func (s *Store) MarkReminderSent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.bookings[id]
	if !ok {
		return errors.NotFound("booking " + id)
	}
	b := prev
	b.ReminderSent = true
	s.bookings[id] = b
	if err := writeJSON(s.path(bookingsFile), s.bookings); err != nil {
		s.bookings[id] = prev
		return err
	}
	return nil
}
