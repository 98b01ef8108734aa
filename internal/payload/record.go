// Package payload extracts canonical invoice records from the provider's
// history payloads. The payloads have no stable schema: invoice data may
// sit at any depth inside nested objects and lists, under key names that
// drift between releases. Extraction is therefore heuristic: lists of
// objects whose keys fuzzy-match known invoice fields are treated as
// invoice blocks, everything else is traversed and otherwise ignored.
package payload

import (
	"sort"
	"strings"
)

// Record is one normalized invoice candidate discovered in a payload.
// Fields use the canonical textual forms produced by the normalize
// package; an empty string means the field was absent or unparseable.
type Record struct {
	UC             string
	Tipo           string
	MesReferencia  string
	Vencimento     string
	Valor          string
	ConsumoKWH     string
	ContaID        string
	Status         string
	InstalacaoReal string
	Documento      string
	Extras         map[string]string
	PDFHints       []string
}

// Row renders the record as export columns. Extras are prefixed with
// "extra_" and hints joined with "|", matching the consolidated CSV layout.
func (r *Record) Row() map[string]string {
	row := map[string]string{
		"_uc":             r.UC,
		"_tipo":           r.Tipo,
		"mes_referencia":  r.MesReferencia,
		"vencimento":      r.Vencimento,
		"valor":           r.Valor,
		"consumo_kwh":     r.ConsumoKWH,
		"conta_id":        r.ContaID,
		"status":          r.Status,
		"instalacao_real": r.InstalacaoReal,
		"documento":       r.Documento,
	}
	for key, value := range r.Extras {
		row["extra_"+key] = value
	}
	if len(r.PDFHints) > 0 {
		row["pdf_hint"] = strings.Join(r.PDFHints, "|")
	}
	return row
}

// baseColumns is the fixed leading column order of the consolidated CSV.
var baseColumns = []string{
	"_uc",
	"_tipo",
	"mes_referencia",
	"vencimento",
	"valor",
	"consumo_kwh",
	"conta_id",
	"status",
	"instalacao_real",
	"documento",
}

// Columns returns the deterministic column order for a record set: the
// canonical columns, then every extra_* column sorted, then pdf_hint when
// any record carries hints.
func Columns(records []Record) []string {
	extras := map[string]struct{}{}
	hints := false
	for i := range records {
		for key := range records[i].Extras {
			extras["extra_"+key] = struct{}{}
		}
		if len(records[i].PDFHints) > 0 {
			hints = true
		}
	}
	columns := append([]string{}, baseColumns...)
	extraKeys := make([]string, 0, len(extras))
	for key := range extras {
		extraKeys = append(extraKeys, key)
	}
	sort.Strings(extraKeys)
	columns = append(columns, extraKeys...)
	if hints {
		columns = append(columns, "pdf_hint")
	}
	return columns
}
