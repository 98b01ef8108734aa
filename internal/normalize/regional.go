package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// The PDF path keeps the provider's own regional formats: reference months
// as "MM/YYYY", dates as "DD/MM/YYYY", comma decimals. Two-digit years are
// expanded to 20YY, bill text never refers to the previous century.

var (
	regionalMonth = regexp.MustCompile(`(\d{1,2})[/.-](\d{2,4})`)
	regionalDate  = regexp.MustCompile(`(\d{1,2})[/.-](\d{1,2})[/.-](\d{2,4})`)
	digitsOnly    = regexp.MustCompile(`\D`)
)

// ParseMonth normalizes a bill reference month to "MM/YYYY".
func ParseMonth(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	m := regionalMonth.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	month := atoi(m[1])
	if month < 1 || month > 12 {
		return ""
	}
	year := atoi(m[2])
	if len(m[2]) <= 2 {
		year += 2000
	}
	return fmt.Sprintf("%02d/%04d", month, year)
}

// ParseDate normalizes a bill date to canonical "DD/MM/YYYY", rejecting
// values that are not valid calendar dates.
func ParseDate(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	m := regionalDate.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	day, month, year := atoi(m[1]), atoi(m[2]), atoi(m[3])
	if len(m[3]) <= 2 {
		year += 2000
	}
	if _, ok := calendarDate(year, month, day); !ok {
		return ""
	}
	return fmt.Sprintf("%02d/%02d/%04d", day, month, year)
}

// ParseDecimal parses a comma-decimal monetary or quantity string and
// rounds half-up at the given number of places. places < 0 keeps the
// value unrounded (used for billed quantities).
func ParseDecimal(text string, places int32) (decimal.Decimal, bool) {
	d, ok := toDecimal(text)
	if !ok {
		return decimal.Decimal{}, false
	}
	if places >= 0 {
		d = d.Round(places)
	}
	return d, true
}

// DecimalString renders a parsed decimal at fixed precision, or trimmed
// when places < 0.
func DecimalString(d decimal.Decimal, places int32) string {
	if places >= 0 {
		return d.StringFixed(places)
	}
	return TrimZeros(d)
}

// EnsureNumeric strips grouping punctuation from identifier-like values
// ("4.001.234" -> "4001234"), returning "" when no digits remain.
func EnsureNumeric(text string) string {
	return digitsOnly.ReplaceAllString(strings.TrimSpace(text), "")
}
