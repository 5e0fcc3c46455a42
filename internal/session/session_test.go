package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotbot/slotbot/internal/model"
)

func TestAcquireCreatesSessionPerRole(t *testing.T) {
	r := NewRegistry(time.Hour, []string{"owner-1"})
	now := time.Now()

	s, release := r.Acquire("guest-1", "telegram", now)
	assert.Equal(t, RoleGuest, s.Role)
	assert.Equal(t, StateIdle, s.State)
	release()

	s, release = r.Acquire("owner-1", "telegram", now)
	assert.Equal(t, RoleOwner, s.Role)
	assert.Equal(t, StateOwnerIdle, s.State)
	release()

	assert.Equal(t, 2, r.Len())
}

func TestSameSenderDifferentChannels(t *testing.T) {
	r := NewRegistry(time.Hour, nil)
	now := time.Now()

	a, release := r.Acquire("sender", "telegram", now)
	release()
	b, release := r.Acquire("sender", "slack", now)
	release()

	require.NotSame(t, a, b)
	assert.Equal(t, 2, r.Len())
}

func TestIdleTimeoutResetsState(t *testing.T) {
	r := NewRegistry(30*time.Minute, nil)
	start := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)

	s, release := r.Acquire("guest", "cli", start)
	s.State = StateAwaitingConfirmation
	s.Collected = model.GuestInfo{Name: "Dana"}
	s.Offer([]model.Slot{{Start: start, End: start.Add(30 * time.Minute)}})
	s.AppendUser("book me in")
	release()

	// Within the window nothing is touched.
	s, release = r.Acquire("guest", "cli", start.Add(10*time.Minute))
	assert.Equal(t, StateOfferingSlots, s.State)
	release()

	// Past the window the session silently starts over.
	s, release = r.Acquire("guest", "cli", start.Add(2*time.Hour))
	assert.Equal(t, StateIdle, s.State)
	assert.Empty(t, s.Collected.Name)
	assert.Empty(t, s.OfferedSlots)
	assert.Empty(t, s.History)
	release()
}

func TestTurnsSerializePerKey(t *testing.T) {
	r := NewRegistry(time.Hour, nil)
	now := time.Now()

	var active, maxActive int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, release := r.Acquire("guest", "cli", now)
			defer release()

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			s.AppendUser("hello")
			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive)

	s, release := r.Acquire("guest", "cli", now)
	assert.Len(t, s.History, 16)
	release()
}

func TestHistoryTrimmed(t *testing.T) {
	s := &Session{}
	for i := 0; i < historyLimit+10; i++ {
		s.AppendUser("msg")
	}
	assert.Len(t, s.History, historyLimit)
}

func TestOfferedSlotBounds(t *testing.T) {
	s := &Session{}
	start := time.Now()
	s.Offer([]model.Slot{
		{Start: start, End: start.Add(30 * time.Minute)},
		{Start: start.Add(time.Hour), End: start.Add(90 * time.Minute)},
	})

	_, ok := s.OfferedSlot(0)
	assert.False(t, ok)
	_, ok = s.OfferedSlot(3)
	assert.False(t, ok)

	slot, ok := s.OfferedSlot(2)
	require.True(t, ok)
	assert.True(t, slot.Start.Equal(start.Add(time.Hour)))
}

func TestPrune(t *testing.T) {
	r := NewRegistry(30*time.Minute, nil)
	start := time.Now()

	_, release := r.Acquire("a", "cli", start)
	release()
	_, release = r.Acquire("b", "cli", start.Add(45*time.Minute))
	release()

	evicted := r.Prune(start.Add(time.Hour))
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, r.Len())
}
