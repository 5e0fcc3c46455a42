package adapter

import (
	"context"
	"sync"
)

// NullAdapter swallows everything. It stands in for a disabled channel and
// records sends for tests.
type NullAdapter struct {
	name string

	mu   sync.Mutex
	sent []string
}

func NewNullAdapter(name string) *NullAdapter {
	if name == "" {
		name = "null"
	}
	return &NullAdapter{name: name}
}

func (a *NullAdapter) Name() string {
	return a.name
}

func (a *NullAdapter) Start(ctx context.Context) error {
	return nil
}

func (a *NullAdapter) Stop(ctx context.Context) error {
	return nil
}

func (a *NullAdapter) Send(ctx context.Context, senderID, text string) error {
	a.mu.Lock()
	a.sent = append(a.sent, senderID+": "+text)
	a.mu.Unlock()
	return nil
}

func (a *NullAdapter) Sent() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.sent...)
}

func (a *NullAdapter) Health(ctx context.Context) error {
	return nil
}
