// Package normalize converts the inconsistently formatted values found in
// provider payloads and extracted bill text into canonical textual
// representations: reference months as "YYYY-MM", dates as ISO "YYYY-MM-DD",
// monetary values as fixed two-decimal strings and consumption quantities
// as trimmed decimals.
//
// All functions are pure and tolerant: an unparseable input yields the
// empty string, never an error. Upstream payload shapes are not under this
// system's control, so a parse miss is an expected, non-fatal event.
package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

// Key normalizes a payload key name for fuzzy matching: lowercased with
// every non-alphanumeric rune removed ("Data_Vencimento" -> "datavencimento").
func Key(value string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(value), "")
}

// Stringify renders a decoded JSON scalar as a trimmed string. Integral
// floats are collapsed ("2.024e+03" never leaks out). Nil, containers and
// blank strings yield "".
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return strings.TrimSpace(val.String())
	case map[string]any, []any:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", val))
	}
}

var (
	monthYearFirst = regexp.MustCompile(`(\d{4})[-/](\d{1,2})`)
	monthYearLast  = regexp.MustCompile(`(\d{1,2})[/.-](\d{4})`)
	monthPacked    = regexp.MustCompile(`(\d{2})(\d{4})`)
)

// Month normalizes a reference-month value to "YYYY-MM". The structured
// patterns are tried in order (year-first, month-first, packed MMYYYY) and
// only then a fuzzy parse; the packed form is last because a bare six-digit
// string is ambiguous with a month-first reading.
func Month(v any) string {
	text := Stringify(v)
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = strings.ReplaceAll(text, "Mes ", "")

	if m := monthYearFirst.FindStringSubmatch(text); m != nil {
		return formatMonth(m[1], m[2])
	}
	if m := monthYearLast.FindStringSubmatch(text); m != nil {
		return formatMonth(m[2], m[1])
	}
	if m := monthPacked.FindStringSubmatch(text); m != nil {
		return formatMonth(m[2], m[1])
	}
	if year, month, ok := fuzzyYearMonth(text); ok {
		return fmt.Sprintf("%04d-%02d", year, month)
	}
	return ""
}

func formatMonth(yearText, monthText string) string {
	year, _ := strconv.Atoi(yearText)
	month, _ := strconv.Atoi(monthText)
	return fmt.Sprintf("%04d-%02d", year, month)
}

// fuzzyYearMonth recovers a year and month from loosely formatted text.
// Missing components default to the year-2000 epoch, mirroring a fuzzy
// date parse that only ever reads back year and month.
func fuzzyYearMonth(text string) (int, int, bool) {
	numbers := regexp.MustCompile(`\d+`).FindAllString(text, -1)
	if len(numbers) == 0 {
		return 0, 0, false
	}
	year, month := 2000, 1
	yearSeen, monthSeen := false, false
	for _, tok := range numbers {
		n, err := strconv.Atoi(tok)
		if err != nil {
			continue
		}
		switch {
		case !yearSeen && len(tok) == 4:
			year = n
			yearSeen = true
		case !monthSeen && n >= 1 && n <= 12:
			month = n
			monthSeen = true
		}
	}
	if !yearSeen && !monthSeen {
		return 0, 0, false
	}
	return year, month, true
}

var (
	isoDatePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	dayFirstDate  = regexp.MustCompile(`(\d{1,2})[/.-](\d{1,2})[/.-](\d{2,4})`)
)

// Date normalizes a date value to ISO "YYYY-MM-DD". Values already leading
// with an ISO date are parsed year-first; everything else is read day-first,
// the regional convention of the provider.
func Date(v any) string {
	text := Stringify(v)
	if text == "" {
		return ""
	}
	if isoDatePrefix.MatchString(text) {
		if valid, ok := calendarDate(atoi(text[0:4]), atoi(text[5:7]), atoi(text[8:10])); ok {
			return valid
		}
		return ""
	}
	if m := dayFirstDate.FindStringSubmatch(text); m != nil {
		year := expandYear(m[3])
		if valid, ok := calendarDate(year, atoi(m[2]), atoi(m[1])); ok {
			return valid
		}
	}
	return ""
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// expandYear widens two-digit years: 00-68 land in the 2000s, 69-99 in
// the 1900s.
func expandYear(text string) int {
	year := atoi(text)
	if len(text) > 2 {
		return year
	}
	if year <= 68 {
		return 2000 + year
	}
	return 1900 + year
}

func calendarDate(year, month, day int) (string, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1 {
		return "", false
	}
	date := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return "", false
	}
	return date, true
}

// Decimal normalizes a monetary value to a fixed two-decimal string.
// Numeric inputs are converted directly; strings are cleaned of the "R$"
// prefix and spaces, "." is dropped as the thousands separator and ","
// becomes the decimal point.
func Decimal(v any) string {
	d, ok := toDecimal(v)
	if !ok {
		return ""
	}
	return d.StringFixed(2)
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case nil:
		return decimal.Decimal{}, false
	case float64:
		return decimal.NewFromFloat(val), true
	case int:
		return decimal.NewFromInt(int64(val)), true
	case int64:
		return decimal.NewFromInt(val), true
	case json.Number:
		d, err := decimal.NewFromString(string(val))
		return d, err == nil
	default:
		text := Stringify(v)
		if text == "" {
			return decimal.Decimal{}, false
		}
		text = strings.NewReplacer("R$", "", " ", "", "\u00a0", "", ".", "").Replace(text)
		text = strings.ReplaceAll(text, ",", ".")
		d, err := decimal.NewFromString(text)
		return d, err == nil
	}
}

// Consumption normalizes a kWh-style quantity: a bare integer when the
// value is integral, otherwise a trimmed decimal. Never exponent notation.
func Consumption(v any) string {
	text := Stringify(v)
	if text == "" {
		return ""
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(text, ",", "."))
	if err != nil {
		return ""
	}
	if d.IsInteger() {
		return d.Truncate(0).String()
	}
	return TrimZeros(d)
}

// TrimZeros renders a decimal with trailing fractional zeros removed.
func TrimZeros(d decimal.Decimal) string {
	s := d.String()
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
