package payload

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportCSV(t *testing.T) {
	records := []Record{
		{UC: "filial", Tipo: "aberta", MesReferencia: "2024-03", Vencimento: "2024-04-10", Valor: "210.00"},
		{UC: "matriz", Tipo: "quitada", MesReferencia: "2024-01", Vencimento: "2024-02-05", Valor: "123.45",
			Extras:   map[string]string{"numerocliente": "778899"},
			PDFHints: []string{"https://example.com/a.pdf", "https://example.com/b.pdf"}},
		{UC: "matriz", Tipo: "quitada", MesReferencia: "2023-12", Vencimento: "2024-01-05", Valor: "98.70"},
	}

	path := filepath.Join(t.TempDir(), "faturas.csv")
	require.NoError(t, ExportCSV(records, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(raw, []byte("\xef\xbb\xbf")))

	rows, err := csv.NewReader(bytes.NewReader(raw[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	header := rows[0]
	assert.Equal(t, "_uc", header[0])
	assert.Equal(t, "extra_numerocliente", header[len(header)-2])
	assert.Equal(t, "pdf_hint", header[len(header)-1])

	// Sorted by unit, then due date.
	assert.Equal(t, "filial", rows[1][0])
	assert.Equal(t, "matriz", rows[2][0])
	assert.Equal(t, "2024-01-05", rows[2][3])
	assert.Equal(t, "2024-02-05", rows[3][3])
	assert.Equal(t, "https://example.com/a.pdf|https://example.com/b.pdf", rows[3][len(header)-1])
}

func TestExportCSVEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faturas.csv")
	require.NoError(t, ExportCSV(nil, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}
