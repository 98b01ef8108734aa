package normalize

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "datavencimento", Key("Data_Vencimento"))
	assert.Equal(t, "mesreferencia", Key("MesReferencia"))
	assert.Equal(t, "valor", Key(" valor "))
	assert.Equal(t, "", Key("---"))
}

func TestMonth(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"01/2024", "2024-01"},
		{"022024", "2024-02"},
		{"2024-05", "2024-05"},
		{"2024/5", "2024-05"},
		{"12.2023", "2023-12"},
		{"Mes 03/2024", "2024-03"},
		{"2024", "2024-01"},
		{"", ""},
		{nil, ""},
		{"sem numeros", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Month(tc.in), "Month(%v)", tc.in)
	}
}

func TestMonthIdempotent(t *testing.T) {
	for _, in := range []string{"01/2024", "2023-11", "022024", "7/2025"} {
		out := Month(in)
		require.NotEmpty(t, out)
		assert.Equal(t, out, Month(out))
	}
}

func TestDate(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"05/02/2024", "2024-02-05"},
		{"2024-02-05", "2024-02-05"},
		{"2024-02-05T10:30:00Z", "2024-02-05"},
		{"5/2/24", "2024-02-05"},
		{"01-04-1999", "1999-04-01"},
		{"31/02/2024", ""}, // not a calendar date
		{"", ""},
		{"hoje", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Date(tc.in), "Date(%v)", tc.in)
	}
}

func TestDecimal(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"R$ 1.234,56", "1234.56"},
		{"123,45", "123.45"},
		{"123.45", "12345.00"}, // "." is always the thousands separator
		{98.7, "98.70"},
		{42, "42.00"},
		{"abc", ""},
		{nil, ""},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Decimal(tc.in), "Decimal(%v)", tc.in)
	}
}

// Re-parsing an accepted output as a decimal and formatting at two places
// yields the same string.
func TestDecimalIdempotentOutput(t *testing.T) {
	for _, in := range []string{"R$ 1.234,56", "0,01", "99"} {
		out := Decimal(in)
		require.NotEmpty(t, out)
		d, err := decimal.NewFromString(out)
		require.NoError(t, err)
		assert.Equal(t, out, d.StringFixed(2))
	}
}

func TestConsumption(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"150", "150"},
		{"150,0", "150"},
		{"142,5", "142.5"},
		{"0,500", "0.5"},
		{150.0, "150"},
		{nil, ""},
		{"kwh", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Consumption(tc.in), "Consumption(%v)", tc.in)
	}
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "202401123", Stringify(float64(202401123)))
	assert.Equal(t, "98.7", Stringify(98.7))
	assert.Equal(t, "texto", Stringify("  texto "))
	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "", Stringify(map[string]any{"a": 1}))
	assert.Equal(t, "", Stringify([]any{"x"}))
}
