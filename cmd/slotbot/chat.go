package main

import (
	"github.com/slotbot/slotbot/internal/adapter"
	"github.com/slotbot/slotbot/internal/notify"
	"github.com/slotbot/slotbot/internal/session"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the bot on the terminal",
	Long:  `Opens a local conversation. Use --as-owner to speak with the owner role and manage the schedule.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		asOwner, _ := cmd.Flags().GetBool("as-owner")

		sig := NewSignalHandler(cmd.Context())
		defer sig.Stop()
		sig.Start()
		ctx := sig.ctx

		r, err := buildRuntime(ctx, cfg)
		if err != nil {
			return err
		}
		defer r.Close()

		senderID := "local"
		if asOwner {
			senderID = "owner-local"
			if len(cfg.Owner.IDs) > 0 {
				senderID = cfg.Owner.IDs[0]
			}
			// A local owner session must be recognized even when no owner
			// IDs are configured yet.
			r.registry = session.NewRegistry(cfg.IdleTimeout(), append(cfg.Owner.IDs, senderID))
		}

		cli := adapter.NewCLIAdapter(r.handle, senderID)
		r.attachEngine(cfg, notify.New(cli, []string{senderID}))

		if err := cli.Start(ctx); err != nil {
			return err
		}

		select {
		case <-cli.Done():
		case <-ctx.Done():
		}
		return cli.Stop(ctx)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().Bool("as-owner", false, "chat with the owner role")
}
