// Package notify pushes out-of-band notices to the owner over a configured
// adapter. Failures are logged, never propagated; a missed notice must not
// affect the booking that triggered it.
package notify

import (
	"context"
	"log/slog"

	"github.com/slotbot/slotbot/internal/adapter"
)

type Notifier struct {
	channel  adapter.Adapter
	ownerIDs []string
}

func New(channel adapter.Adapter, ownerIDs []string) *Notifier {
	return &Notifier{channel: channel, ownerIDs: ownerIDs}
}

func (n *Notifier) NotifyOwner(ctx context.Context, text string) {
	if n == nil || n.channel == nil {
		return
	}
	for _, id := range n.ownerIDs {
		if err := n.channel.Send(ctx, id, text); err != nil {
			slog.Error("Failed to notify owner", "owner", id, "channel", n.channel.Name(), "error", err)
		}
	}
}
