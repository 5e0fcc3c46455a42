package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slotbot/slotbot/internal/adapter"
	"github.com/slotbot/slotbot/internal/reminder"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bot on the configured chat channels",
	Long:  `Connects every enabled adapter (Telegram, Slack), answers guests and the owner, and runs the reminder loop until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sig := NewSignalHandler(cmd.Context())
		defer sig.Stop()
		sig.Start()
		ctx := sig.ctx

		r, err := buildRuntime(ctx, cfg)
		if err != nil {
			return err
		}
		defer r.Close()

		adapters := map[string]adapter.Adapter{}
		if cfg.Adapters.Telegram.Enabled {
			adapters["telegram"] = adapter.NewTelegramAdapter(cfg.Adapters.Telegram.BotToken, r.handle, cfg.Adapters.Telegram.UpdateTimeout)
		}
		if cfg.Adapters.Slack.Enabled {
			adapters["slack"] = adapter.NewSlackAdapter(cfg.Adapters.Slack.Port, cfg.Adapters.Slack.SigningSecret, cfg.Adapters.Slack.BotToken, r.handle)
		}
		if len(adapters) == 0 {
			return fmt.Errorf("no adapters enabled; enable telegram or slack in config, or use 'slotbot chat'")
		}

		r.attachEngine(cfg, newNotifier(adapters, cfg.Owner.IDs))

		for name, a := range adapters {
			if err := a.Start(ctx); err != nil {
				return fmt.Errorf("start %s adapter: %w", name, err)
			}
			slog.Info("Adapter started", "adapter", name)
		}

		var loop *reminder.Loop
		if cfg.Reminder.Enabled {
			loop = reminder.New(r.store, adapters, cfg.ReminderLead())
			if err := loop.Start(ctx); err != nil {
				return fmt.Errorf("start reminder loop: %w", err)
			}
		}

		slog.Info("Slotbot running", "owner", cfg.Owner.Name, "timezone", cfg.Availability.Timezone)
		<-ctx.Done()

		stopCtx := context.Background()
		for name, a := range adapters {
			if err := a.Stop(stopCtx); err != nil {
				slog.Warn("Adapter stop failed", "adapter", name, "error", err)
			}
		}
		if loop != nil {
			loop.Stop()
		}
		sig.Wait()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
