package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storeFixture = `{
  "global": {
    "output_dir": "out",
    "download_pdfs": true
  },
  "unidades_consumidoras": [
    {
      "id": "uc-matriz",
      "descricao": "Matriz Campinas",
      "refresh_token": "ref-1",
      "payload": {"Instalacao": "4001234"}
    }
  ],
  "clientes": [
    {"cliente": "Acme Energia", "numero_instalacao": "4001234"}
  ]
}`

func writeStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(storeFixture), 0o600))
	return path
}

func TestNewStoreAppliesDefaults(t *testing.T) {
	store, err := NewStore(writeStore(t))
	require.NoError(t, err)

	settings := store.Settings()
	assert.Equal(t, "https://servicosonline.cpfl.com.br/agencia-webapi/api", settings.BaseURL)
	assert.Equal(t, "agencia-virtual-cpfl-web", settings.ClientID)
	assert.Equal(t, 3, settings.MaxRetries)
	assert.Equal(t, 0.5, settings.BackoffFactor)
	assert.Equal(t, 30, settings.RequestTimeout)
	assert.Equal(t, 8765, settings.BookmarkletPort)
	assert.True(t, settings.DownloadPDFs)

	require.Len(t, store.UCs(), 1)
	assert.Equal(t, "matriz-campinas", store.UCs()[0].Slug())
	require.Len(t, store.Clients(), 1)
	assert.Equal(t, "acme-energia", store.Clients()[0].Slug())
}

func TestUpdateTokensPersists(t *testing.T) {
	path := writeStore(t)
	store, err := NewStore(path)
	require.NoError(t, err)

	require.NoError(t, store.UpdateTokens("uc-matriz", "new-access", "", "2026-09-01T00:00:00Z", "key-1"))

	reloaded, err := NewStore(path)
	require.NoError(t, err)
	uc := reloaded.UCs()[0]
	assert.Equal(t, "new-access", uc.AccessToken)
	// Empty refresh token does not clobber the stored one.
	assert.Equal(t, "ref-1", uc.RefreshToken)
	assert.Equal(t, "2026-09-01T00:00:00Z", uc.ExpiresAt)
	assert.Equal(t, "key-1", uc.Key)
}

func TestUpdateTokensUnknownUC(t *testing.T) {
	store, err := NewStore(writeStore(t))
	require.NoError(t, err)
	assert.Error(t, store.UpdateTokens("missing", "a", "b", "", ""))
}

func TestSaveKeepsStructure(t *testing.T) {
	path := writeStore(t)
	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "global")
	assert.Contains(t, doc, "unidades_consumidoras")
	assert.Contains(t, doc, "clientes")
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "matriz-campinas", Slugify("Matriz Campinas"))
	assert.Equal(t, "uc_01", Slugify("UC_01"))
	assert.Equal(t, "acme", Slugify("  Acme!!  "))
	assert.Equal(t, "uc", Slugify("???"))
}
