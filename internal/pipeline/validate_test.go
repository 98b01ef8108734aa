package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsNonPositiveValue(t *testing.T) {
	invoice := map[string]string{"valor_total": "-5.00", "mes_referencia": "01/2024"}
	assert.False(t, Validate(invoice))

	invoice = map[string]string{"valor_total": "0.00", "mes_referencia": "01/2024"}
	assert.False(t, Validate(invoice))
}

func TestValidateRejectsNegativeConsumption(t *testing.T) {
	invoice := map[string]string{"consumo_kwh": "-1", "mes_referencia": "01/2024"}
	assert.False(t, Validate(invoice))
}

func TestValidateRejectsMissingMonth(t *testing.T) {
	invoice := map[string]string{"valor_total": "10.00"}
	assert.False(t, Validate(invoice))
}

func TestValidateAcceptsMinimalRecord(t *testing.T) {
	invoice := map[string]string{"mes_referencia": "01/2024", "consumo_kwh": "0"}
	require.True(t, Validate(invoice))
	assert.Equal(t, "01/2024", invoice["mes_referencia"])
	assert.Equal(t, "0", invoice["consumo_kwh"])
}

func TestValidateCanonicalizesDueDate(t *testing.T) {
	invoice := map[string]string{"mes_referencia": "01/2024", "vencimento": "5/2/24"}
	require.True(t, Validate(invoice))
	assert.Equal(t, "05/02/2024", invoice["vencimento"])

	invoice = map[string]string{"mes_referencia": "01/2024", "vencimento": "31/02/2024"}
	assert.False(t, Validate(invoice))
}

func TestValidateRenormalizesMonth(t *testing.T) {
	invoice := map[string]string{"mes_referencia": "1-24"}
	require.True(t, Validate(invoice))
	assert.Equal(t, "01/2024", invoice["mes_referencia"])

	invoice = map[string]string{"mes_referencia": "proxima"}
	assert.False(t, Validate(invoice))
}

// Money fields that fail to parse are dropped, not fatal.
func TestValidateRequantizesMoneyFields(t *testing.T) {
	invoice := map[string]string{
		"mes_referencia":      "01/2024",
		"valor_total":         "123.45",
		"tusd":                "45,1",
		"icms":                "n/d",
		"tarifa_com_tributos": "0,654321",
	}
	require.True(t, Validate(invoice))
	assert.Equal(t, "123.45", invoice["valor_total"])
	assert.Equal(t, "45.10", invoice["tusd"])
	assert.Equal(t, "0.65432", invoice["tarifa_com_tributos"])
	_, ok := invoice["icms"]
	assert.False(t, ok)
}

func TestValidateRejectsNegativeBilledQuantity(t *testing.T) {
	invoice := map[string]string{"mes_referencia": "01/2024", "quantidade_faturada": "-2"}
	assert.False(t, Validate(invoice))

	invoice = map[string]string{"mes_referencia": "01/2024", "quantidade_faturada": "150,500"}
	require.True(t, Validate(invoice))
	assert.Equal(t, "150.5", invoice["quantidade_faturada"])
}

func TestMerge(t *testing.T) {
	base := map[string]string{"numero_instalacao": "4001234", "valor_total": "10.00"}
	update := map[string]string{"valor_total": "20.00", "vencimento": ""}

	merged := Merge(base, update)
	assert.Equal(t, "20.00", merged["valor_total"])
	assert.Equal(t, "4001234", merged["numero_instalacao"])
	_, ok := merged["vencimento"]
	assert.False(t, ok)
	assert.Equal(t, "10.00", base["valor_total"])
}
