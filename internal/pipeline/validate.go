package pipeline

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"cpfl/internal/logger"
	"cpfl/internal/normalize"
)

// moneyFields are the monetary columns requantized to two places by the
// validator.
var moneyFields = []string{"valor_total", "tusd", "te", "icms", "pis_cofins", "valor_total_operacao"}

var dueDatePattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2,4})$`)

// Merge overlays update onto base: a non-empty update value wins, an empty
// one leaves the base value alone. base is not modified.
func Merge(base, update map[string]string) map[string]string {
	merged := map[string]string{}
	for key, value := range base {
		merged[key] = value
	}
	for key, value := range update {
		if value != "" {
			merged[key] = value
		}
	}
	return merged
}

// Validate is the single gate before a record enters the master table. It
// checks sanity constraints in order, short-circuiting on the first
// failure, and rewrites fields to their canonical forms in place. A false
// return means the record must be dropped.
func Validate(invoice map[string]string) bool {
	log := logger.WithComponent("pipeline")

	if value, ok := invoice["valor_total"]; ok && value != "" {
		d, parsed := parseAmount(value, 2)
		if !parsed || !d.IsPositive() {
			log.Debug().Str("valor_total", value).Msg("rejected: total value not positive")
			return false
		}
	}

	if value, ok := invoice["consumo_kwh"]; ok && value != "" {
		d, parsed := parseAmount(value, -1)
		if !parsed || d.IsNegative() {
			log.Debug().Str("consumo_kwh", value).Msg("rejected: negative consumption")
			return false
		}
	}

	if invoice["mes_referencia"] == "" {
		log.Debug().Msg("rejected: missing reference month")
		return false
	}

	if due := invoice["vencimento"]; due != "" {
		canonical, ok := canonicalDueDate(due)
		if !ok {
			log.Debug().Str("vencimento", due).Msg("rejected: invalid due date")
			return false
		}
		invoice["vencimento"] = canonical
	}

	month := normalize.ParseMonth(invoice["mes_referencia"])
	if month == "" {
		log.Debug().Str("mes_referencia", invoice["mes_referencia"]).Msg("rejected: unparseable reference month")
		return false
	}
	invoice["mes_referencia"] = month

	// Requantization failures blank the field instead of rejecting.
	for _, key := range moneyFields {
		if invoice[key] == "" {
			continue
		}
		if d, ok := parseAmount(invoice[key], 2); ok {
			invoice[key] = normalize.DecimalString(d, 2)
		} else {
			delete(invoice, key)
		}
	}
	if invoice["tarifa_com_tributos"] != "" {
		if d, ok := parseAmount(invoice["tarifa_com_tributos"], 5); ok {
			invoice["tarifa_com_tributos"] = normalize.DecimalString(d, 5)
		} else {
			delete(invoice, "tarifa_com_tributos")
		}
	}

	if invoice["consumo_kwh"] != "" {
		if d, ok := parseAmount(invoice["consumo_kwh"], -1); ok {
			invoice["consumo_kwh"] = normalize.DecimalString(d, -1)
		}
	}

	if quantity := invoice["quantidade_faturada"]; quantity != "" {
		d, ok := parseAmount(quantity, -1)
		if ok && d.IsNegative() {
			log.Debug().Str("quantidade_faturada", quantity).Msg("rejected: negative billed quantity")
			return false
		}
		if ok {
			invoice["quantidade_faturada"] = normalize.DecimalString(d, -1)
		}
	}

	return true
}

// parseAmount accepts both the canonical dot-decimal form produced by the
// extractors and raw regional comma-decimal input from caller defaults.
// Canonical form is tried first; the regional parser would read its "." as
// a thousands separator.
func parseAmount(text string, places int32) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return normalize.ParseDecimal(text, places)
	}
	if places >= 0 {
		d = d.Round(places)
	}
	return d, true
}

func canonicalDueDate(due string) (string, bool) {
	m := dueDatePattern.FindStringSubmatch(due)
	if m == nil {
		return "", false
	}
	canonical := normalize.ParseDate(due)
	if canonical == "" {
		return "", false
	}
	return canonical, true
}
