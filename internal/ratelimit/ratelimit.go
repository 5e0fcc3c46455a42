// Package ratelimit is per-sender admission control: a token bucket for each
// sender id, checked before a message reaches the engine. An empty bucket
// rejects the message outright; nothing is queued.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/slotbot/slotbot/internal/errors"
)

type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*entry
	limit   rate.Limit
	burst   int
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New builds a limiter refilling messagesPerMinute tokens per minute with the
// given burst capacity.
func New(messagesPerMinute int, burst int) *Limiter {
	if messagesPerMinute <= 0 {
		messagesPerMinute = 8
	}
	if burst <= 0 {
		burst = messagesPerMinute
	}
	return &Limiter{
		buckets: make(map[string]*entry),
		limit:   rate.Every(time.Minute / time.Duration(messagesPerMinute)),
		burst:   burst,
	}
}

// Allow consumes one token for the sender, returning ErrRateLimited when the
// bucket is empty.
func (l *Limiter) Allow(senderID string) error {
	l.mu.Lock()
	e, ok := l.buckets[senderID]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[senderID] = e
	}
	e.lastSeen = time.Now()
	l.mu.Unlock()

	if !e.limiter.Allow() {
		return errors.ErrRateLimited
	}
	return nil
}

// Prune drops buckets idle longer than maxIdle so the map does not grow with
// every sender ever seen. Returns the number evicted.
func (l *Limiter) Prune(maxIdle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	n := 0
	for id, e := range l.buckets {
		if e.lastSeen.Before(cutoff) {
			delete(l.buckets, id)
			n++
		}
	}
	return n
}
