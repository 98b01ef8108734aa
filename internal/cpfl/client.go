// Package cpfl talks to the provider's online services API. Authentication
// rides on OAuth tokens captured from the web portal: the client validates
// the stored access token, renews it through the refresh endpoint when
// possible, and falls back to a bookmarklet capture when both fail.
package cpfl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"cpfl/internal/bookmarklet"
	"cpfl/internal/config"
	"cpfl/internal/logger"
)

// defaultHeaders mimic the web portal; the API rejects requests without
// them.
var defaultHeaders = map[string]string{
	"Accept":       "application/json, text/plain, */*",
	"Content-Type": "application/json;charset=UTF-8",
	"Origin":       "https://servicosonline.cpfl.com.br",
	"Referer":      "https://servicosonline.cpfl.com.br/agencia-webapp/",
	"User-Agent": "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/121.0 Safari/537.36",
}

// retryStatuses are answered with a backoff and another attempt.
var retryStatuses = map[int]struct{}{
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

// TokenBundle groups the credentials of one consumer unit.
type TokenBundle struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Client is the API client for a single consumer unit.
type Client struct {
	settings *config.GlobalSettings
	uc       *config.UCConfig
	http     *http.Client
	log      zerolog.Logger
}

// NewClient builds a client for the consumer unit using the store's global
// settings.
func NewClient(settings *config.GlobalSettings, uc *config.UCConfig) *Client {
	return &Client{
		settings: settings,
		uc:       uc,
		http: &http.Client{
			Timeout: time.Duration(settings.RequestTimeout) * time.Second,
		},
		log: logger.WithComponent("cpfl").With().Str("uc", uc.UID).Logger(),
	}
}

func (c *Client) buildURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(c.settings.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// doRequest runs one API call with retry on transient statuses. The caller
// owns the response body.
func (c *Client) doRequest(ctx context.Context, op, method, path string, params url.Values, payload any) (*http.Response, error) {
	target := c.buildURL(path)
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, newAPIError(op, 0, fmt.Errorf("encoding payload: %w", err))
		}
		body = encoded
	}

	var lastErr error
	for attempt := 0; attempt <= c.settings.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(c.settings.BackoffFactor*math.Pow(2, float64(attempt-1))*1000) * time.Millisecond
			c.log.Debug().Int("attempt", attempt).Dur("backoff", backoff).Str("op", op).Msg("retrying request")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, newAPIError(op, 0, ctx.Err())
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, newAPIError(op, 0, err)
		}
		c.applyHeaders(req)

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if _, retry := retryStatuses[resp.StatusCode]; retry {
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			resp.Body.Close()
			return nil, newAPIError(op, resp.StatusCode, ErrUnauthorized)
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, newAPIError(op, resp.StatusCode, fmt.Errorf("unexpected status"))
		}
		return resp, nil
	}
	return nil, newAPIError(op, 0, fmt.Errorf("all attempts failed: %w", lastErr))
}

func (c *Client) applyHeaders(req *http.Request) {
	for key, value := range defaultHeaders {
		req.Header.Set(key, value)
	}
	for key, value := range c.uc.ExtraHeaders {
		req.Header.Set(key, value)
	}
	if c.uc.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.uc.AccessToken)
	}
}

func (c *Client) decodeJSON(resp *http.Response) (any, error) {
	defer resp.Body.Close()
	var doc any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// CheckRoles probes /user/roles to find out whether the current access
// token is still accepted.
func (c *Client) CheckRoles(ctx context.Context) bool {
	c.log.Info().Msg("validating current token against /user/roles")
	params := url.Values{"clientId": []string{c.settings.ClientID}}
	resp, err := c.doRequest(ctx, "CheckRoles", http.MethodGet, "/user/roles", params, nil)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// RefreshAccessToken renews the access token through the OAuth refresh
// grant. A nil bundle without error means refresh is not possible for this
// unit.
func (c *Client) RefreshAccessToken(ctx context.Context) (*TokenBundle, error) {
	if c.uc.RefreshToken == "" {
		c.log.Warn().Msg("no refresh token on file")
		return nil, nil
	}

	form := url.Values{
		"grant_type":    []string{"refresh_token"},
		"refresh_token": []string{c.uc.RefreshToken},
		"client_id":     []string{c.settings.ClientID},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL("/token"), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, newAPIError("RefreshAccessToken", 0, err)
	}
	for key, value := range defaultHeaders {
		req.Header.Set(key, value)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Del("Authorization")

	c.log.Info().Msg("renewing access token via refresh token")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, newAPIError("RefreshAccessToken", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		c.log.Warn().Int("status", resp.StatusCode).Msg("refresh token rejected")
		return nil, nil
	}

	var data struct {
		AccessToken  string      `json:"access_token"`
		RefreshToken string      `json:"refresh_token"`
		ExpiresIn    json.Number `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, newAPIError("RefreshAccessToken", 0, err)
	}
	if data.AccessToken == "" {
		c.log.Error().Msg("refresh response carries no access_token")
		return nil, nil
	}

	bundle := &TokenBundle{
		AccessToken:  data.AccessToken,
		RefreshToken: data.RefreshToken,
	}
	if bundle.RefreshToken == "" {
		bundle.RefreshToken = c.uc.RefreshToken
	}
	if seconds, err := data.ExpiresIn.Int64(); err == nil && seconds > 0 {
		bundle.ExpiresAt = time.Now().UTC().Add(time.Duration(seconds) * time.Second)
	}
	c.log.Info().Msg("refresh accepted, new access token obtained")
	return bundle, nil
}

// UpdateTokens installs a bundle on the consumer unit so subsequent
// requests carry it.
func (c *Client) UpdateTokens(bundle *TokenBundle) {
	c.uc.AccessToken = bundle.AccessToken
	if bundle.RefreshToken != "" {
		c.uc.RefreshToken = bundle.RefreshToken
	}
	if !bundle.ExpiresAt.IsZero() {
		c.uc.ExpiresAt = bundle.ExpiresAt.Format(time.RFC3339)
	}
	c.log.Info().
		Str("access", maskSecret(bundle.AccessToken)).
		Str("refresh", maskSecret(bundle.RefreshToken)).
		Msg("session tokens updated")
}

// EnsureAuthenticated returns true when the unit holds a working token,
// refreshing it when needed. The returned bundle is non-nil when tokens
// changed and should be persisted.
func (c *Client) EnsureAuthenticated(ctx context.Context) (bool, *TokenBundle) {
	if c.uc.AccessToken != "" && c.CheckRoles(ctx) {
		return true, nil
	}
	c.log.Info().Msg("stored token rejected")

	bundle, err := c.RefreshAccessToken(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("token refresh failed")
		return false, nil
	}
	if bundle != nil {
		c.UpdateTokens(bundle)
		if c.CheckRoles(ctx) {
			return true, bundle
		}
	}
	return false, nil
}

// Handshake validates the integration key before history queries.
func (c *Client) Handshake(ctx context.Context) (any, error) {
	if c.uc.Key == "" {
		return nil, newAPIError("Handshake", 0, ErrMissingKey)
	}
	params := url.Values{
		"key": []string{c.uc.Key},
		"url": []string{"/historico-contas"},
	}
	c.log.Info().Msg("running handshake /user/validar-integracao")
	resp, err := c.doRequest(ctx, "Handshake", http.MethodGet, "/user/validar-integracao", params, nil)
	if err != nil {
		return nil, err
	}
	return c.decodeJSON(resp)
}

// FetchPaidHistory queries the paid invoice history for the unit.
func (c *Client) FetchPaidHistory(ctx context.Context) (any, error) {
	c.log.Info().Msg("querying /historico-contas/contas-quitadas")
	params := url.Values{"clientId": []string{c.settings.ClientID}}
	resp, err := c.doRequest(ctx, "FetchPaidHistory", http.MethodPost, "/historico-contas/contas-quitadas", params, c.uc.Payload)
	if err != nil {
		return nil, err
	}
	return c.decodeJSON(resp)
}

// FetchStatusHistory queries the open/status invoice history for the unit.
func (c *Client) FetchStatusHistory(ctx context.Context) (any, error) {
	c.log.Info().Msg("querying /historico-contas/validar-situacao")
	params := url.Values{"clientId": []string{c.settings.ClientID}}
	resp, err := c.doRequest(ctx, "FetchStatusHistory", http.MethodPost, "/historico-contas/validar-situacao", params, c.uc.Payload)
	if err != nil {
		return nil, err
	}
	return c.decodeJSON(resp)
}

// DownloadPDF fetches an invoice document into targetPath.
func (c *Client) DownloadPDF(ctx context.Context, source, targetPath string) error {
	c.log.Info().Str("url", source).Msg("downloading invoice pdf")
	resp, err := c.doRequest(ctx, "DownloadPDF", http.MethodGet, source, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return newAPIError("DownloadPDF", 0, err)
	}
	file, err := os.Create(targetPath)
	if err != nil {
		return newAPIError("DownloadPDF", 0, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		return newAPIError("DownloadPDF", 0, err)
	}
	c.log.Debug().Str("path", targetPath).Msg("pdf saved")
	return nil
}

// CaptureTokensViaBookmarklet starts the local listener and blocks until
// the user pushes credentials from the browser or the timeout elapses.
// A captured integration key is stored on the unit.
func (c *Client) CaptureTokensViaBookmarklet(timeout time.Duration) (*TokenBundle, error) {
	server := bookmarklet.NewServer(c.settings.BookmarkletPort)
	if err := server.Start(); err != nil {
		return nil, err
	}
	defer server.Stop()

	c.log.Warn().Msg("run the bookmarklet in a logged-in browser tab to send tokens")
	c.log.Warn().Str("bookmarklet", server.Snippet()).Msg("install this as a bookmark")
	c.log.Warn().Msg("open the 'Débitos e 2ª via / Histórico' page and click the bookmark")

	result := server.WaitForTokens(timeout)
	if result == nil {
		c.log.Error().Msg("no tokens received from bookmarklet before timeout")
		return nil, nil
	}
	if result.AccessToken == "" {
		c.log.Error().Msg("bookmarklet did not return an access token")
		return nil, nil
	}
	if result.Key != "" {
		c.uc.Key = result.Key
	}

	bundle := &TokenBundle{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}
	if result.ExpiresAt != "" {
		if seconds, err := strconv.ParseInt(result.ExpiresAt, 10, 64); err == nil {
			if seconds > 1_000_000 {
				bundle.ExpiresAt = time.Unix(seconds, 0).UTC()
			} else {
				bundle.ExpiresAt = time.Now().UTC().Add(time.Duration(seconds) * time.Second)
			}
		}
	}
	c.log.Info().
		Str("access", maskSecret(bundle.AccessToken)).
		Str("refresh", maskSecret(bundle.RefreshToken)).
		Msg("tokens received via bookmarklet")
	return bundle, nil
}

// maskSecret keeps log lines free of full credentials.
func maskSecret(value string) string {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return "<vazio>"
	}
	if len(clean) <= 6 {
		return "***"
	}
	if len(clean) <= 12 {
		return clean[:3] + "..." + clean[len(clean)-3:]
	}
	return clean[:6] + "..." + clean[len(clean)-6:]
}
