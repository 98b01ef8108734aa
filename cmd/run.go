package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"cpfl/internal/config"
	"cpfl/internal/cpfl"
	"cpfl/internal/logger"
	"cpfl/internal/payload"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Collect invoices from the CPFL web API",
	Long: `Collect the paid and open invoice history for every consumer unit in the
configuration store.

Each unit is authenticated with its stored tokens; failed tokens are
renewed via the refresh grant, and as a last resort the bookmarklet flow
is started so tokens can be pushed from a logged-in browser tab. Raw API
payloads are archived per unit, and all extracted records are written to
a consolidated faturas.csv.`,
	Example: `  # Collect using config/config.json
  cpfl run

  # Restrict to a period and force PDF downloads
  cpfl run --period-start 2024-01 --period-end 2024-06 --download-pdfs`,
	Args: cobra.NoArgs,
	RunE: runCollector,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("config", "", "Config store path (default: CPFL_CONFIG or config/config.json)")
	runCmd.Flags().Bool("download-pdfs", false, "Force downloading linked invoice PDFs")
	runCmd.Flags().String("period-start", "", "Keep only months >= this (YYYY-MM)")
	runCmd.Flags().String("period-end", "", "Keep only months <= this (YYYY-MM)")
	runCmd.Flags().Int("bookmarklet-timeout", 180, "Seconds to wait for bookmarklet tokens")
}

func runCollector(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("run")

	configPath, _ := cmd.Flags().GetString("config")
	downloadPDFs, _ := cmd.Flags().GetBool("download-pdfs")
	periodStart, _ := cmd.Flags().GetString("period-start")
	periodEnd, _ := cmd.Flags().GetString("period-end")
	bookmarkletTimeout, _ := cmd.Flags().GetInt("bookmarklet-timeout")

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

	settings := store.Settings()
	if cmd.Flags().Changed("download-pdfs") {
		settings.DownloadPDFs = downloadPDFs
	}
	if periodStart != "" {
		settings.PeriodStart = periodStart
	}
	if periodEnd != "" {
		settings.PeriodEnd = periodEnd
	}

	ctx := cmd.Context()
	var allRecords []payload.Record
	for _, uc := range store.UCs() {
		log.Info().Str("uc", uc.UID).Str("descricao", uc.Descricao).Msg("processing consumer unit")
		records, err := collectUC(ctx, log, store, settings, uc, time.Duration(bookmarkletTimeout)*time.Second)
		if err != nil {
			if errors.Is(err, cpfl.ErrUnauthorized) || errors.Is(err, cpfl.ErrNoTokens) || errors.Is(err, cpfl.ErrMissingKey) {
				log.Error().Err(err).Str("uc", uc.UID).Msg("authorization failed, check tokens or run the bookmarklet")
				continue
			}
			log.Error().Err(err).Str("uc", uc.UID).Msg("consumer unit failed")
			continue
		}
		allRecords = append(allRecords, records...)
	}

	if len(allRecords) == 0 {
		log.Warn().Msg("no invoices collected, check handshake responses and unit payloads")
		os.Exit(1)
	}

	csvPath := filepath.Join(settings.OutputDir, "faturas.csv")
	if err := os.MkdirAll(settings.OutputDir, 0o755); err != nil {
		return err
	}
	if err := payload.ExportCSV(allRecords, csvPath); err != nil {
		return err
	}
	log.Info().Str("path", csvPath).Msg("consolidated CSV available")
	return nil
}

func collectUC(ctx context.Context, log zerolog.Logger, store *config.Store, settings *config.GlobalSettings, uc *config.UCConfig, bookmarkletTimeout time.Duration) ([]payload.Record, error) {
	client := cpfl.NewClient(settings, uc)

	ok, bundle := client.EnsureAuthenticated(ctx)
	if !ok {
		log.Warn().Str("uc", uc.UID).Msg("stored and refreshed tokens failed, starting bookmarklet flow")
		captured, err := client.CaptureTokensViaBookmarklet(bookmarkletTimeout)
		if err != nil {
			return nil, err
		}
		if captured == nil {
			return nil, cpfl.ErrNoTokens
		}
		client.UpdateTokens(captured)
		bundle = captured
	}
	if bundle != nil {
		expiresAt := ""
		if !bundle.ExpiresAt.IsZero() {
			expiresAt = bundle.ExpiresAt.Format(time.RFC3339)
		}
		if err := store.UpdateTokens(uc.UID, bundle.AccessToken, bundle.RefreshToken, expiresAt, uc.Key); err != nil {
			return nil, err
		}
	}

	handshake, err := client.Handshake(ctx)
	if err != nil {
		return nil, err
	}
	paid, err := client.FetchPaidHistory(ctx)
	if err != nil {
		return nil, err
	}
	status, err := client.FetchStatusHistory(ctx)
	if err != nil {
		return nil, err
	}

	if err := archivePayloads(settings.OutputDir, uc.Slug(), handshake, paid, status); err != nil {
		return nil, err
	}

	records := append(payload.ParsePaidHistory(paid, uc.Slug()), payload.ParseStatusHistory(status, uc.Slug())...)
	if settings.PeriodStart != "" || settings.PeriodEnd != "" {
		records = filterPeriod(records, settings.PeriodStart, settings.PeriodEnd)
	}

	if settings.DownloadPDFs {
		downloadLinkedPDFs(ctx, log, client, settings, uc, records)
	}
	return records, nil
}

// archivePayloads keeps the raw API responses next to the parsed output so
// extraction changes can be replayed against past captures.
func archivePayloads(outputDir, slug string, handshake, paid, status any) error {
	dir := filepath.Join(outputDir, "json", slug)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	stamp := time.Now().UTC().Format("20060102T150405")
	for name, doc := range map[string]any{
		"validar_integracao": handshake,
		"contas_quitadas":    paid,
		"validar_situacao":   status,
	} {
		if err := writeJSON(filepath.Join(dir, stamp+"_"+name+".json"), doc); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(path string, doc any) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

// filterPeriod keeps records whose reference month falls inside the
// inclusive YYYY-MM bounds; records without a month always pass.
func filterPeriod(records []payload.Record, start, end string) []payload.Record {
	kept := records[:0]
	for _, record := range records {
		month := record.MesReferencia
		if start != "" && month != "" && month < start {
			continue
		}
		if end != "" && month != "" && month > end {
			continue
		}
		kept = append(kept, record)
	}
	return kept
}

func downloadLinkedPDFs(ctx context.Context, log zerolog.Logger, client *cpfl.Client, settings *config.GlobalSettings, uc *config.UCConfig, records []payload.Record) {
	dir := filepath.Join(settings.OutputDir, "downloads", uc.Slug())
	for index, record := range records {
		if len(record.PDFHints) == 0 {
			continue
		}
		name := record.MesReferencia
		if name == "" {
			name = record.ContaID
		}
		if name == "" {
			name = fmt.Sprintf("%d", index+1)
		}
		for _, hint := range record.PDFHints {
			target := filepath.Join(dir, name+".pdf")
			if err := client.DownloadPDF(ctx, hint, target); err != nil {
				log.Debug().Err(err).Str("url", hint).Msg("could not download linked pdf")
			}
		}
	}
}
