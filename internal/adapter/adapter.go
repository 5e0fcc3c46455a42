// Package adapter carries messages between external platforms and the
// conversation engine. Each transport implements the same small surface so
// the engine never depends on a concrete platform.
package adapter

import (
	"context"

	"github.com/slotbot/slotbot/internal/model"
)

// Handler processes one inbound message and returns the reply to deliver.
// The engine's Handle method satisfies this.
type Handler func(ctx context.Context, msg model.IncomingMessage) model.OutgoingMessage

// Adapter is one messaging surface.
type Adapter interface {
	// Name returns the channel name ("telegram", "slack", "cli").
	Name() string

	// Start begins listening for messages. Must respect context
	// cancellation.
	Start(ctx context.Context) error

	// Stop gracefully shuts the adapter down.
	Stop(ctx context.Context) error

	// Send delivers text to a sender out of band, used for owner
	// notifications and reminders.
	Send(ctx context.Context, senderID, text string) error

	// Health checks connectivity.
	Health(ctx context.Context) error
}
