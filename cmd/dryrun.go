package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cpfl/internal/config"
	"cpfl/internal/logger"
	"cpfl/internal/payload"
)

var dryRunCmd = &cobra.Command{
	Use:   "dry-run",
	Short: "Parse sample API payloads without touching the network",
	Long: `Run the payload extraction against locally stored sample responses and
write the consolidated CSV, exactly as the run command would. Useful to
verify extraction changes against captured payloads.`,
	Example: `  # Parse the bundled mocks into out/faturas.csv
  cpfl dry-run

  # Use captured payloads from a previous run
  cpfl dry-run --samples data/output/json/matriz --output /tmp/check`,
	Args: cobra.NoArgs,
	RunE: runDryRun,
}

func init() {
	rootCmd.AddCommand(dryRunCmd)

	dryRunCmd.Flags().String("samples", "data/mocks", "Directory holding sample payload JSONs")
	dryRunCmd.Flags().StringP("output", "o", "out", "Output directory for the simulation")
}

func runDryRun(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("dry-run")

	samplesDir, _ := cmd.Flags().GetString("samples")
	outputDir, _ := cmd.Flags().GetString("output")

	paid, err := readJSON(filepath.Join(samplesDir, "raw_contas_quitadas_UC.json"))
	if err != nil {
		return fmt.Errorf("samples not found in %s: %w", samplesDir, err)
	}
	status, err := readJSON(filepath.Join(samplesDir, "raw_validar_situacao_UC.json"))
	if err != nil {
		return fmt.Errorf("samples not found in %s: %w", samplesDir, err)
	}

	slug := config.Slugify("UC-MOCK")
	records := append(payload.ParsePaidHistory(paid, slug), payload.ParseStatusHistory(status, slug)...)

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	csvPath := filepath.Join(outputDir, "faturas.csv")
	if err := payload.ExportCSV(records, csvPath); err != nil {
		return err
	}
	log.Info().Str("output", outputDir).Int("records", len(records)).Msg("dry-run finished")
	return nil
}

func readJSON(path string) (any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}
