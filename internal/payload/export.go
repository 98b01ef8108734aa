package payload

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"cpfl/internal/logger"
)

// ExportCSV writes the consolidated record set to path as UTF-8 CSV with a
// BOM so spreadsheet tools pick the encoding up. Records are sorted by
// unit, due date and type before writing. An empty record set produces an
// empty file.
func ExportCSV(records []Record, path string) error {
	log := logger.WithComponent("payload")
	if len(records) == 0 {
		log.Warn().Str("path", path).Msg("no records to export, writing empty file")
		return os.WriteFile(path, nil, 0o644)
	}

	sorted := append([]Record{}, records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].UC != sorted[j].UC {
			return sorted[i].UC < sorted[j].UC
		}
		if sorted[i].Vencimento != sorted[j].Vencimento {
			return sorted[i].Vencimento < sorted[j].Vencimento
		}
		return sorted[i].Tipo < sorted[j].Tipo
	})

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString("\ufeff"); err != nil {
		return fmt.Errorf("writing BOM: %w", err)
	}

	columns := Columns(sorted)
	writer := csv.NewWriter(file)
	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i := range sorted {
		row := sorted[i].Row()
		line := make([]string, len(columns))
		for c, column := range columns {
			line[c] = row[column]
		}
		if err := writer.Write(line); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flushing export: %w", err)
	}

	log.Info().Str("path", path).Int("records", len(sorted)).Msg("consolidated CSV written")
	return nil
}
