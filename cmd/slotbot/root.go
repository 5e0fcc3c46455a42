package main

import (
	"fmt"
	"os"

	"github.com/slotbot/slotbot/internal/config"
	"github.com/slotbot/slotbot/internal/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "slotbot",
	Short: "Slotbot scheduling assistant",
	Long:  `Slotbot is a conversational scheduling assistant that books meetings against real calendars over chat channels.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cmd)
		if err != nil {
			return err
		}

		logger.Setup(cfg.Server.LogLevel, cfg.Server.LogFormat)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.slotbot/config.yaml)")
	rootCmd.PersistentFlags().String("server.log_level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("availability.timezone", config.DefaultAvailabilityTimezone, "owner timezone (IANA name)")
	rootCmd.PersistentFlags().String("nlu.provider", config.DefaultNLUProvider, "language model provider (anthropic, openai, ollama, gemini)")
	rootCmd.PersistentFlags().Bool("calendar.dry_run", false, "use an in-memory calendar instead of real sources")
}
