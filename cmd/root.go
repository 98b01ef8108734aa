package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cpfl/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "cpfl",
	Short: "CPFL Energia invoice collector",
	Long: `cpfl collects electricity invoices from CPFL Energia.

Two ingestion paths are supported: the provider's web API (run, dry-run)
producing a consolidated CSV, and local PDF bills (process) feeding a
deduplicated master table with an Excel mirror and per-invoice JSON files.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		if level != "" {
			return logger.SetLevel(level)
		}
		return nil
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
}
