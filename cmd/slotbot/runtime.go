package main

import (
	"context"
	"fmt"

	"github.com/slotbot/slotbot/internal/adapter"
	"github.com/slotbot/slotbot/internal/booking"
	"github.com/slotbot/slotbot/internal/calendar"
	"github.com/slotbot/slotbot/internal/config"
	"github.com/slotbot/slotbot/internal/engine"
	"github.com/slotbot/slotbot/internal/model"
	"github.com/slotbot/slotbot/internal/nlu"
	"github.com/slotbot/slotbot/internal/notify"
	"github.com/slotbot/slotbot/internal/ratelimit"
	"github.com/slotbot/slotbot/internal/session"
	"github.com/slotbot/slotbot/internal/store"
)

// runtimeComponents holds everything below the transport layer. Commands
// attach their own adapters on top.
type runtimeComponents struct {
	store    *store.Store
	sources  *calendar.Sources
	coord    *booking.Coordinator
	registry *session.Registry
	limiter  *ratelimit.Limiter
	provider nlu.Provider
	engine   *engine.Engine
}

func buildRuntime(ctx context.Context, cfg *config.Config) (*runtimeComponents, error) {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	sources, err := buildSources(ctx, cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	provider, err := nlu.New(cfg.NLU.Provider, cfg.NLU.APIKey, cfg.NLU.BaseURL, cfg.NLU.Model)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &runtimeComponents{
		store:    st,
		sources:  sources,
		coord:    booking.NewCoordinator(st, sources, cfg.AvailabilityOptions()),
		registry: session.NewRegistry(cfg.IdleTimeout(), cfg.Owner.IDs),
		limiter:  ratelimit.New(cfg.RateLimit.MessagesPerMinute, cfg.RateLimit.Burst),
		provider: provider,
	}, nil
}

// attachEngine wires the engine once the notification surface is known.
func (r *runtimeComponents) attachEngine(cfg *config.Config, notifier *notify.Notifier) {
	r.engine = engine.New(r.registry, r.limiter, r.coord, r.store, r.provider, notifier, engine.Options{
		OwnerName:     cfg.Owner.Name,
		OwnerTimezone: cfg.Availability.Timezone,
		Model:         cfg.NLU.Model,
		Services:      cfg.ServiceList(),
	})
}

func (r *runtimeComponents) handle(ctx context.Context, msg model.IncomingMessage) model.OutgoingMessage {
	return r.engine.Handle(ctx, msg)
}

func (r *runtimeComponents) Close() error {
	return r.store.Close()
}

func buildSources(ctx context.Context, cfg *config.Config) (*calendar.Sources, error) {
	policy := cfg.RetryPolicy()

	if cfg.Calendar.DryRun || len(cfg.Calendar.Sources) == 0 {
		return calendar.NewSources(calendar.NewMemoryProvider("primary"), nil, policy), nil
	}

	bookCfg, ok := cfg.BookSource()
	if !ok {
		return nil, fmt.Errorf("calendar: exactly one source with role %q is required", "book")
	}

	book, err := calendar.NewGoogleProvider(ctx, bookCfg.ID, bookCfg.CalendarID, bookCfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("calendar source %s: %w", bookCfg.ID, err)
	}

	var watch []calendar.Provider
	for _, w := range cfg.WatchSources() {
		p, err := calendar.NewGoogleProvider(ctx, w.ID, w.CalendarID, w.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("calendar source %s: %w", w.ID, err)
		}
		watch = append(watch, p)
	}

	return calendar.NewSources(book, watch, policy), nil
}

// newNotifier picks the transport used for owner notifications. Prefers
// telegram since the owner usually runs the bot from there.
func newNotifier(adapters map[string]adapter.Adapter, ownerIDs []string) *notify.Notifier {
	if a, ok := adapters["telegram"]; ok {
		return notify.New(a, ownerIDs)
	}
	if a, ok := adapters["slack"]; ok {
		return notify.New(a, ownerIDs)
	}
	for _, a := range adapters {
		return notify.New(a, ownerIDs)
	}
	return notify.New(nil, nil)
}
