package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and calendar access",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		fmt.Printf("Owner:     %s (%d chat IDs)\n", cfg.Owner.Name, len(cfg.Owner.IDs))
		fmt.Printf("Timezone:  %s\n", cfg.Availability.Timezone)
		fmt.Printf("Provider:  %s\n", cfg.NLU.Provider)

		if cfg.NLU.APIKey == "" && cfg.NLU.Provider != "ollama" {
			fmt.Println("WARN: no API key configured for the language model provider")
		}

		r, err := buildRuntime(ctx, cfg)
		if err != nil {
			return err
		}
		defer r.Close()

		if cfg.Calendar.DryRun || len(cfg.Calendar.Sources) == 0 {
			fmt.Println("Calendar:  dry run (in-memory)")
		} else {
			fmt.Printf("Calendar:  book source %q, %d watch sources\n", r.sources.BookSourceID(), len(cfg.WatchSources()))
		}

		// A FreeBusy probe exercises credentials on every configured source.
		slots, err := r.coord.Slots(ctx)
		if err != nil {
			return fmt.Errorf("calendar probe failed: %w", err)
		}
		fmt.Printf("Slots:     %d currently offerable\n", len(slots))

		rules := r.store.ListRules()
		fmt.Printf("Rules:     %d\n", len(rules))
		if len(rules) == 0 {
			fmt.Println("WARN: no availability rules; no slots can be offered until the owner adds one")
		}

		fmt.Println("OK")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
