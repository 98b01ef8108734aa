// Package pipeline drives the PDF ingestion path: bills dropped into each
// client's inbox are parsed, validated, archived and upserted into the
// master table, with a JSON mirror per accepted invoice.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"cpfl/internal/config"
	"cpfl/internal/logger"
	"cpfl/internal/pdfbill"
	"cpfl/internal/storage"
)

// Result aggregates the counters of one processing run.
type Result struct {
	New     int
	Updated int
	Ignored int
}

func (r Result) String() string {
	return fmt.Sprintf("Faturas novas: %d | Atualizadas: %d | Ignoradas: %d", r.New, r.Updated, r.Ignored)
}

// Processor runs the PDF path for a set of configured clients against a
// single master table. One writer per table; runs are not concurrent.
type Processor struct {
	cfg     *config.Config
	clients []config.ClientConfig
	table   *storage.MasterTable
	json    *storage.JSONWriter
	log     zerolog.Logger
}

func NewProcessor(cfg *config.Config, clients []config.ClientConfig) (*Processor, error) {
	table, err := storage.NewMasterTable(cfg.MasterTablePath())
	if err != nil {
		return nil, err
	}
	writer, err := storage.NewJSONWriter(cfg.JSONOutputDir())
	if err != nil {
		return nil, err
	}
	return &Processor{
		cfg:     cfg,
		clients: clients,
		table:   table,
		json:    writer,
		log:     logger.WithComponent("pipeline"),
	}, nil
}

// Run processes every client's inbox and persists the updated master
// table. Bills that fail validation are counted as ignored.
func (p *Processor) Run() (Result, error) {
	result := Result{}
	var rows []map[string]string

	for _, client := range p.clients {
		dir := p.resolveClientDir(client)
		if _, err := os.Stat(dir); err != nil {
			p.log.Warn().Str("dir", dir).Str("cliente", client.Cliente).Msg("inbox missing, skipping client")
			continue
		}

		files, err := filepath.Glob(filepath.Join(dir, "*.pdf"))
		if err != nil {
			return result, fmt.Errorf("listing %s: %w", dir, err)
		}
		sort.Strings(files)

		for _, file := range files {
			row, err := p.processPDF(client, file)
			if err != nil {
				return result, err
			}
			if row == nil {
				result.Ignored++
				continue
			}
			rows = append(rows, row)
		}
	}

	summary := p.table.Upsert(rows)
	result.New += summary.New
	result.Updated += summary.Updated
	result.Ignored += summary.Ignored

	if err := p.table.Save(); err != nil {
		return result, err
	}
	if err := p.table.SaveExcel(p.cfg.MasterExcelPath()); err != nil {
		return result, err
	}
	return result, nil
}

func (p *Processor) resolveClientDir(client config.ClientConfig) string {
	if client.PastaEntrada != "" {
		return client.PastaEntrada
	}
	return filepath.Join(p.cfg.InboxDir, client.Slug())
}

// processPDF returns the master row for a bill, or nil when the bill fails
// validation.
func (p *Processor) processPDF(client config.ClientConfig, path string) (map[string]string, error) {
	p.log.Info().Str("path", path).Str("cliente", client.Cliente).Msg("processing bill")

	parsed, err := pdfbill.ParseFile(path)
	if err != nil {
		return nil, err
	}

	invoice := Merge(map[string]string{}, parsed.Fields)
	if invoice["numero_instalacao"] == "" {
		invoice["numero_instalacao"] = client.NumeroInstalacao
	}
	if invoice["numero_cliente"] == "" {
		invoice["numero_cliente"] = client.NumeroCliente
	}

	if !Validate(invoice) {
		p.log.Error().Str("path", path).Msg("bill failed validation")
		return nil, nil
	}

	destination, err := p.archiveFile(path)
	if err != nil {
		return nil, err
	}

	row := storage.BuildRow(client.Cliente, invoice, destination)
	if _, err := p.json.Write(row); err != nil {
		return nil, err
	}
	return row, nil
}

// archiveFile moves a processed bill into the archive directory, suffixing
// the name with _dupN when the same file name was archived before.
func (p *Processor) archiveFile(path string) (string, error) {
	if err := os.MkdirAll(p.cfg.ArchiveDir, 0o755); err != nil {
		return "", fmt.Errorf("creating archive dir: %w", err)
	}

	name := filepath.Base(path)
	destination := filepath.Join(p.cfg.ArchiveDir, name)
	if _, err := os.Stat(destination); err == nil {
		ext := filepath.Ext(name)
		stem := strings.TrimSuffix(name, ext)
		for counter := 1; ; counter++ {
			candidate := filepath.Join(p.cfg.ArchiveDir, fmt.Sprintf("%s_dup%d%s", stem, counter, ext))
			if _, err := os.Stat(candidate); err != nil {
				destination = candidate
				break
			}
		}
	}

	if err := os.Rename(path, destination); err != nil {
		return "", fmt.Errorf("archiving %s: %w", path, err)
	}
	p.log.Info().Str("from", path).Str("to", destination).Msg("bill archived")
	return destination, nil
}
