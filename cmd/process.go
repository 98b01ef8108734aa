package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"cpfl/internal/config"
	"cpfl/internal/logger"
	"cpfl/internal/pipeline"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process PDF bills from the client inboxes",
	Long: `Parse every PDF bill found in the configured client inbox directories,
validate the extracted fields, and upsert the results into the master
table. Accepted bills are archived and mirrored as JSON; the table is
deduplicated by the invoice hash (installation, month, value).`,
	Example: `  # Process data/incoming/<client-slug>/*.pdf
  cpfl process

  # Use an alternate config store
  cpfl process --config /srv/cpfl/config.json`,
	Args: cobra.NoArgs,
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().String("config", "", "Config store path (default: CPFL_CONFIG or config/config.json)")
}

func runProcess(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("process")

	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if configPath == "" {
		configPath = cfg.ConfigPath
	}

	store, err := config.NewStore(configPath)
	if err != nil {
		return fmt.Errorf("loading config store %s: %w", configPath, err)
	}

	processor, err := pipeline.NewProcessor(cfg, store.Clients())
	if err != nil {
		return err
	}

	result, err := processor.Run()
	if err != nil {
		return err
	}

	log.Info().
		Int("new", result.New).
		Int("updated", result.Updated).
		Int("ignored", result.Ignored).
		Msg("processing finished")
	fmt.Println(result.String())
	return nil
}
