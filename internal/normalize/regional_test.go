package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMonth(t *testing.T) {
	assert.Equal(t, "01/2024", ParseMonth("01/2024"))
	assert.Equal(t, "01/2024", ParseMonth("1/24"))
	assert.Equal(t, "12/2023", ParseMonth("12-2023"))
	assert.Equal(t, "", ParseMonth("13/2024"))
	assert.Equal(t, "", ParseMonth(""))
	assert.Equal(t, "", ParseMonth("proxima conta"))
}

func TestParseDate(t *testing.T) {
	assert.Equal(t, "05/02/2024", ParseDate("05/02/2024"))
	assert.Equal(t, "05/02/2024", ParseDate("5/2/24"))
	assert.Equal(t, "10/04/2024", ParseDate("vencimento: 10/04/2024"))
	assert.Equal(t, "", ParseDate("31/02/2024"))
	assert.Equal(t, "", ParseDate("amanha"))
}

func TestParseDecimal(t *testing.T) {
	d, ok := ParseDecimal("R$ 1.234,567", 2)
	require.True(t, ok)
	assert.Equal(t, "1234.57", DecimalString(d, 2)) // half-up

	d, ok = ParseDecimal("0,654321", 5)
	require.True(t, ok)
	assert.Equal(t, "0.65432", DecimalString(d, 5))

	d, ok = ParseDecimal("10,500", -1)
	require.True(t, ok)
	assert.Equal(t, "10.5", DecimalString(d, -1))

	_, ok = ParseDecimal("n/d", 2)
	assert.False(t, ok)
}

func TestEnsureNumeric(t *testing.T) {
	assert.Equal(t, "4001234", EnsureNumeric("4.001.234"))
	assert.Equal(t, "778899", EnsureNumeric(" 778899 "))
	assert.Equal(t, "", EnsureNumeric("sem digitos"))
}
