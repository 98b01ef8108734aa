package payload

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T, name string) any {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	var doc any
	require.NoError(t, json.Unmarshal(raw, &doc))
	return doc
}

func TestParsePaidHistory(t *testing.T) {
	doc := loadFixture(t, "raw_contas_quitadas_UC.json")
	records := ParsePaidHistory(doc, "matriz")
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "matriz", first.UC)
	assert.Equal(t, "quitada", first.Tipo)
	assert.Equal(t, "2024-01", first.MesReferencia)
	assert.Equal(t, "2024-02-05", first.Vencimento)
	assert.Equal(t, "123.45", first.Valor)
	assert.Equal(t, "150", first.ConsumoKWH)
	assert.Equal(t, "202401123", first.ContaID)
	assert.Equal(t, "Quitada", first.Status)
	assert.Equal(t, "4001234", first.InstalacaoReal)
	assert.Equal(t, "778899", first.Extras["numerocliente"])
	require.Len(t, first.PDFHints, 1)
	assert.Contains(t, first.PDFHints[0], "historico-contas")

	second := records[1]
	assert.Equal(t, "2023-12", second.MesReferencia)
	assert.Equal(t, "2024-01-05", second.Vencimento)
	assert.Equal(t, "98.70", second.Valor)
	assert.Equal(t, "142.5", second.ConsumoKWH)
	assert.Equal(t, "202312123", second.ContaID)
	assert.Empty(t, second.PDFHints)
}

func TestParseStatusHistory(t *testing.T) {
	doc := loadFixture(t, "raw_validar_situacao_UC.json")
	records := ParseStatusHistory(doc, "filial")
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, "aberta", record.Tipo)
	assert.Equal(t, "2024-03", record.MesReferencia)
	assert.Equal(t, "2024-04-10", record.Vencimento)
	assert.Equal(t, "210.00", record.Valor)
	assert.Equal(t, "202403777", record.ContaID)
	assert.Equal(t, "Em Aberto", record.Status)
	assert.Equal(t, "4001234", record.InstalacaoReal)
	assert.Equal(t, "556677", record.Extras["parceironegocio"])
}

// Objects sitting inside an admitted block that carry none of the gate
// fields are discarded, the rest survive.
func TestAdmissionGate(t *testing.T) {
	doc := map[string]any{
		"Dados": []any{
			map[string]any{"MesReferencia": "01/2024", "ValorFatura": "10,00"},
			map[string]any{"Observacao": "linha informativa"},
			map[string]any{"mesReferencia": "02/2024", "ValorFatura": "20,00"},
		},
	}
	records := parseHistory(doc, "uc", "quitada")
	require.Len(t, records, 2)
	assert.Equal(t, "2024-01", records[0].MesReferencia)
	assert.Equal(t, "2024-02", records[1].MesReferencia)
}

// A block already yielded is not descended into, so an invoice list nested
// inside another invoice list is extracted exactly once.
func TestNestedBlockNotDoubleCounted(t *testing.T) {
	doc := map[string]any{
		"Faturas": []any{
			map[string]any{
				"MesReferencia": "01/2024",
				"Detalhes": []any{
					map[string]any{"MesReferencia": "01/2024", "Valor": "1,00"},
				},
			},
		},
	}
	records := parseHistory(doc, "uc", "quitada")
	assert.Len(t, records, 1)
}

func TestFindValueScalarPreference(t *testing.T) {
	item := map[string]any{
		"Valor": map[string]any{"Formatado": "R$ 12,34"},
	}
	records := parseHistory(map[string]any{"Faturas": []any{item}}, "uc", "quitada")
	require.Len(t, records, 1)
	assert.Equal(t, "12.34", records[0].Valor)
}

func TestLooksLikeInvoiceNested(t *testing.T) {
	assert.True(t, looksLikeInvoice(map[string]any{
		"Resumo": map[string]any{"DataVencimento": "05/02/2024"},
	}))
	assert.False(t, looksLikeInvoice(map[string]any{"Mensagem": "ok"}))
}

func TestCollectPDFHints(t *testing.T) {
	item := map[string]any{
		"Link":   "https://example.com/fatura.pdf",
		"Outro":  "https://example.com/fatura.pdf",
		"Codigo": "ABC123",
		"Anexos": []any{"https://example.com/segunda-via.PDF"},
	}
	hints := collectPDFHints(item)
	require.Len(t, hints, 2)
	assert.Equal(t, "https://example.com/fatura.pdf", hints[0])
	assert.Equal(t, "https://example.com/segunda-via.PDF", hints[1])
}
