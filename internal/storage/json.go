package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// JSONWriter drops one JSON document per processed invoice, named after the
// invoice hash.
type JSONWriter struct {
	dir string
}

// NewJSONWriter creates the output directory when needed.
func NewJSONWriter(dir string) (*JSONWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating json output dir: %w", err)
	}
	return &JSONWriter{dir: dir}, nil
}

// Write persists the invoice row and returns the file path.
func (w *JSONWriter) Write(invoice map[string]string) (string, error) {
	name := "invoice.json"
	if hash := invoice["hash_fatura"]; hash != "" {
		name = hash + ".json"
	}
	path := filepath.Join(w.dir, name)

	raw, err := json.MarshalIndent(invoice, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding invoice: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("writing invoice json: %w", err)
	}
	return path, nil
}
