package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// GlobalSettings are the run-wide options kept in the JSON config store.
type GlobalSettings struct {
	BaseURL         string  `json:"base_url"`
	ClientID        string  `json:"client_id"`
	OutputDir       string  `json:"output_dir"`
	DownloadPDFs    bool    `json:"download_pdfs"`
	PeriodStart     string  `json:"period_start,omitempty"`
	PeriodEnd       string  `json:"period_end,omitempty"`
	MaxRetries      int     `json:"max_retries"`
	BackoffFactor   float64 `json:"backoff_factor"`
	RequestTimeout  int     `json:"request_timeout"`
	BookmarkletPort int     `json:"bookmarklet_port"`
}

// UCConfig describes one consumer unit collected over the provider API.
type UCConfig struct {
	UID          string            `json:"id"`
	Descricao    string            `json:"descricao"`
	Key          string            `json:"key,omitempty"`
	AccessToken  string            `json:"access_token,omitempty"`
	RefreshToken string            `json:"refresh_token,omitempty"`
	ExpiresAt    string            `json:"expires_at,omitempty"`
	Payload      map[string]any    `json:"payload,omitempty"`
	ExtraHeaders map[string]string `json:"extra_headers,omitempty"`
}

// Slug returns the filesystem/column-safe identifier for the UC.
func (u *UCConfig) Slug() string {
	if u.Descricao != "" {
		return Slugify(u.Descricao)
	}
	return Slugify(u.UID)
}

// ClientConfig describes one client whose invoices arrive as PDF files.
type ClientConfig struct {
	Cliente          string `json:"cliente"`
	NumeroInstalacao string `json:"numero_instalacao"`
	NumeroCliente    string `json:"numero_cliente,omitempty"`
	PastaEntrada     string `json:"pasta_entrada,omitempty"`
}

// Slug returns the filesystem-safe identifier for the client.
func (c ClientConfig) Slug() string {
	return Slugify(c.Cliente)
}

type storeDoc struct {
	Global   GlobalSettings `json:"global"`
	UCs      []*UCConfig    `json:"unidades_consumidoras"`
	Clientes []ClientConfig `json:"clientes"`
}

// Store loads and persists the JSON configuration file. Token refreshes
// are written back through UpdateTokens so a later run can reuse them.
type Store struct {
	path string
	doc  storeDoc
}

// NewStore reads the config store from path.
func NewStore(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path}
	if err := json.Unmarshal(raw, &s.doc); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	applyDefaults(&s.doc.Global)
	return s, nil
}

func applyDefaults(g *GlobalSettings) {
	if g.BaseURL == "" {
		g.BaseURL = "https://servicosonline.cpfl.com.br/agencia-webapi/api"
	}
	if g.ClientID == "" {
		g.ClientID = "agencia-virtual-cpfl-web"
	}
	if g.OutputDir == "" {
		g.OutputDir = "out"
	}
	if g.MaxRetries == 0 {
		g.MaxRetries = 3
	}
	if g.BackoffFactor == 0 {
		g.BackoffFactor = 0.5
	}
	if g.RequestTimeout == 0 {
		g.RequestTimeout = 30
	}
	if g.BookmarkletPort == 0 {
		g.BookmarkletPort = 8765
	}
}

// Settings returns the mutable global settings section.
func (s *Store) Settings() *GlobalSettings {
	return &s.doc.Global
}

// UCs returns the configured consumer units.
func (s *Store) UCs() []*UCConfig {
	return s.doc.UCs
}

// Clients returns the configured PDF-path clients.
func (s *Store) Clients() []ClientConfig {
	return s.doc.Clientes
}

// UpdateTokens stores refreshed credentials for a UC and saves the file.
func (s *Store) UpdateTokens(uid, accessToken, refreshToken, expiresAt, key string) error {
	for _, uc := range s.doc.UCs {
		if uc.UID != uid {
			continue
		}
		if accessToken != "" {
			uc.AccessToken = accessToken
		}
		if refreshToken != "" {
			uc.RefreshToken = refreshToken
		}
		if expiresAt != "" {
			uc.ExpiresAt = expiresAt
		}
		if key != "" {
			uc.Key = key
		}
		return s.Save()
	}
	return fmt.Errorf("config: unknown UC %q", uid)
}

// Save writes the store back to its original path.
func (s *Store) Save() error {
	raw, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, raw, 0o600)
}
