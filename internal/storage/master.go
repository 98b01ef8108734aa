// Package storage persists processed invoices: a CSV master table with
// hash-based upserts, an Excel mirror of the same table, and per-invoice
// JSON documents.
package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"cpfl/internal/logger"
)

// MasterColumns is the fixed column set of the master table. Rows always
// carry every column; absent values are empty strings.
var MasterColumns = []string{
	"cliente",
	"numero_instalacao",
	"numero_cliente",
	"mes_referencia",
	"vencimento",
	"valor_total",
	"consumo_kwh",
	"quantidade_faturada",
	"tarifa_com_tributos",
	"valor_total_operacao",
	"bandeira_tarifaria",
	"tusd",
	"te",
	"icms",
	"pis_cofins",
	"endereco_uc",
	"link_pdf",
	"hash_fatura",
	"status_pagamento",
	"arquivo_origem",
}

// UpsertSummary counts the outcome of an upsert batch.
type UpsertSummary struct {
	New     int
	Updated int
	Ignored int
}

func (s UpsertSummary) String() string {
	return fmt.Sprintf("Faturas novas: %d | Atualizadas: %d | Ignoradas: %d", s.New, s.Updated, s.Ignored)
}

// MasterTable is the in-memory working copy of the master CSV. Load it,
// upsert the rows of a processing run, then Save.
type MasterTable struct {
	path string
	rows []map[string]string
	// index maps hash_fatura to the row position for rows added or
	// updated during this run.
	index map[string]int
	// snapshot holds the hashes present when the table was loaded.
	snapshot map[string]struct{}
}

// NewMasterTable loads the master table from path, starting empty when the
// file does not exist yet.
func NewMasterTable(path string) (*MasterTable, error) {
	table := &MasterTable{
		path:     path,
		index:    map[string]int{},
		snapshot: map[string]struct{}{},
	}

	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return table, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening master table: %w", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading master table: %w", err)
	}
	if len(records) == 0 {
		return table, nil
	}

	header := records[0]
	for _, record := range records[1:] {
		row := map[string]string{}
		for i, column := range header {
			if i < len(record) {
				row[column] = record[i]
			}
		}
		if hash := row["hash_fatura"]; hash != "" {
			table.index[hash] = len(table.rows)
			table.snapshot[hash] = struct{}{}
		}
		table.rows = append(table.rows, row)
	}
	return table, nil
}

// Len reports the number of rows currently held.
func (t *MasterTable) Len() int { return len(t.rows) }

// Upsert merges a batch of rows into the table keyed by hash_fatura. A row
// whose hash is already indexed replaces the indexed row; a hash never seen
// is appended; a hash that was only in the loaded snapshot is counted as
// ignored. Rows without a hash are skipped.
func (t *MasterTable) Upsert(rows []map[string]string) UpsertSummary {
	log := logger.WithComponent("storage")
	summary := UpsertSummary{}
	for _, row := range rows {
		hash := row["hash_fatura"]
		if hash == "" {
			continue
		}
		if position, ok := t.index[hash]; ok {
			t.rows[position] = row
			summary.Updated++
			continue
		}
		if _, ok := t.snapshot[hash]; ok {
			// Unreachable while loading also fills the index; kept so the
			// counters stay meaningful if loading ever changes.
			summary.Ignored++
			continue
		}
		t.index[hash] = len(t.rows)
		t.rows = append(t.rows, row)
		summary.New++
	}
	log.Info().Int("new", summary.New).Int("updated", summary.Updated).Int("ignored", summary.Ignored).Msg("upsert finished")
	return summary
}

// Save writes the table back to its CSV path, sorted by client,
// installation and reference month.
func (t *MasterTable) Save() error {
	t.sortRows()

	file, err := os.Create(t.path)
	if err != nil {
		return fmt.Errorf("creating master table: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(MasterColumns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, row := range t.rows {
		record := make([]string, len(MasterColumns))
		for i, column := range MasterColumns {
			record[i] = row[column]
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flushing master table: %w", err)
	}
	return nil
}

func (t *MasterTable) sortRows() {
	sort.SliceStable(t.rows, func(i, j int) bool {
		a, b := t.rows[i], t.rows[j]
		if a["cliente"] != b["cliente"] {
			return a["cliente"] < b["cliente"]
		}
		if a["numero_instalacao"] != b["numero_instalacao"] {
			return a["numero_instalacao"] < b["numero_instalacao"]
		}
		return a["mes_referencia"] < b["mes_referencia"]
	})
	// Rebuild the index, sorting moved the rows.
	for position, row := range t.rows {
		if hash := row["hash_fatura"]; hash != "" {
			t.index[hash] = position
		}
	}
}

// Rows returns the current rows in table order.
func (t *MasterTable) Rows() []map[string]string {
	return t.rows
}

// BuildRow shapes a validated invoice into a master table row, computing
// its deduplication hash and recording the archived source file.
func BuildRow(cliente string, invoice map[string]string, sourceFile string) map[string]string {
	row := map[string]string{}
	for _, column := range MasterColumns {
		row[column] = invoice[column]
	}
	value := invoice["valor_total"]
	if value == "" {
		value = "0"
	}
	row["cliente"] = cliente
	row["hash_fatura"] = InvoiceHash(invoice["numero_instalacao"], invoice["mes_referencia"], value)
	row["arquivo_origem"] = sourceFile
	return row
}
