// Package pdfbill extracts invoice fields from the text layer of
// electricity bill PDFs. Bills are machine-generated so the labels are
// stable enough for pattern matching; extraction works off ordered regular
// expression lists per field and keeps the provider's regional formats
// ("MM/YYYY" months, "DD/MM/YYYY" dates, comma decimals) after cleanup.
package pdfbill

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"cpfl/internal/logger"
	"cpfl/internal/normalize"
)

// ParsedInvoice holds the raw text layer and the cleaned field values.
// A missing field is simply absent from Fields.
type ParsedInvoice struct {
	Text   string
	Fields map[string]string
}

var collapseSpace = regexp.MustCompile(`\s+`)

// moneyFields are rendered at two decimal places after parsing.
var moneyFields = []string{"valor_total", "tusd", "te", "icms", "pis_cofins", "valor_total_operacao"}

// Parse matches every known field against the bill text and normalizes the
// results.
func Parse(text string) ParsedInvoice {
	raw := map[string]string{}
	for _, field := range fieldPatterns {
		for _, pattern := range field.patterns {
			value, ok := lastMatch(pattern, text)
			if !ok {
				continue
			}
			raw[field.name] = strings.TrimSpace(value)
			break
		}
	}

	if raw["endereco_uc"] == "" {
		if m := enderecoBlock.FindStringSubmatch(text); m != nil {
			raw["endereco_uc"] = collapseSpace.ReplaceAllString(strings.TrimSpace(m[1]), " ")
		}
	}

	fields := map[string]string{}
	set := func(key, value string) {
		if value != "" {
			fields[key] = value
		}
	}

	set("numero_instalacao", normalize.EnsureNumeric(raw["numero_instalacao"]))
	set("numero_cliente", normalize.EnsureNumeric(raw["numero_cliente"]))
	set("mes_referencia", firstNonEmpty(normalize.ParseMonth(raw["mes_referencia"]), raw["mes_referencia"]))
	set("vencimento", firstNonEmpty(normalize.ParseDate(raw["vencimento"]), raw["vencimento"]))

	for _, key := range moneyFields {
		if d, ok := normalize.ParseDecimal(raw[key], 2); ok {
			set(key, normalize.DecimalString(d, 2))
		}
	}
	if d, ok := normalize.ParseDecimal(raw["tarifa_com_tributos"], 5); ok {
		set("tarifa_com_tributos", normalize.DecimalString(d, 5))
	}

	set("consumo_kwh", strings.ReplaceAll(raw["consumo_kwh"], ",", "."))
	if d, ok := normalize.ParseDecimal(raw["quantidade_faturada"], -1); ok {
		set("quantidade_faturada", normalize.DecimalString(d, -1))
	}

	set("bandeira_tarifaria", raw["bandeira_tarifaria"])
	set("endereco_uc", raw["endereco_uc"])
	set("link_pdf", raw["link_pdf"])
	set("status_pagamento", raw["status_pagamento"])

	return ParsedInvoice{Text: text, Fields: fields}
}

// lastMatch returns the last occurrence of the pattern's first capture
// group, or of the whole match when the pattern has no group.
func lastMatch(pattern *regexp.Regexp, text string) (string, bool) {
	matches := pattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return "", false
	}
	match := matches[len(matches)-1]
	if pattern.NumSubexp() == 0 {
		return match[0], true
	}
	return match[1], true
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

// ExtractText reads the text layer of a PDF file. The pdf library can
// panic on malformed documents, so extraction recovers and reports the
// panic as an error.
func ExtractText(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extracting text from %s: %v", path, r)
		}
	}()

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading pdf: %w", err)
	}
	reader, err := pdf.NewReader(strings.NewReader(string(raw)), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	var segments []string
	for page := 1; page <= reader.NumPage(); page++ {
		p := reader.Page(page)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extracting page %d: %w", page, err)
		}
		segments = append(segments, content)
	}
	return strings.Join(segments, "\n"), nil
}

// ParseFile extracts and parses a bill PDF in one step.
func ParseFile(path string) (ParsedInvoice, error) {
	log := logger.WithComponent("pdfbill")
	log.Info().Str("path", path).Msg("reading bill")

	text, err := ExtractText(path)
	if err != nil {
		return ParsedInvoice{}, err
	}
	parsed := Parse(text)
	log.Debug().Str("path", path).Int("fields", len(parsed.Fields)).Msg("bill parsed")
	return parsed, nil
}
