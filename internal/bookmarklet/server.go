// Package bookmarklet runs a short-lived local HTTP listener that receives
// credentials pushed from the provider's web portal. The user runs a
// javascript bookmarklet in a logged-in browser tab; it POSTs the tokens
// from localStorage to this listener, which hands them to the waiting
// collector run.
package bookmarklet

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cpfl/internal/logger"
)

// Result is one credential payload pushed by the bookmarklet.
type Result struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    string
	Key          string
}

// Server listens on localhost for bookmarklet pushes.
type Server struct {
	host string
	port int

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	results  chan Result
	log      zerolog.Logger
}

// NewServer binds to 127.0.0.1 on the given port; port 0 picks a free one.
func NewServer(port int) *Server {
	return &Server{
		host:    "127.0.0.1",
		port:    port,
		results: make(chan Result, 4),
		log:     logger.WithComponent("bookmarklet"),
	}
}

// Start begins serving in the background. Calling Start on a running
// server is a no-op.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return nil
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.host, s.port))
	if err != nil {
		return fmt.Errorf("starting bookmarklet listener: %w", err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/push", s.handlePush)
	s.server = &http.Server{Handler: mux}

	s.log.Info().Str("addr", listener.Addr().String()).Msg("waiting for bookmarklet tokens")
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("bookmarklet listener stopped")
		}
	}()
	return nil
}

// Stop shuts the listener down. Safe to call when not running.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.log.Debug().Err(err).Msg("bookmarklet shutdown")
	}
	s.server = nil
	s.listener = nil
}

// Addr reports the bound address, empty when not running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		Token        string `json:"token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresAt    string `json:"expires_at"`
		Exp          string `json:"exp"`
		Key          string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.log.Error().Err(err).Msg("invalid bookmarklet payload")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	result := Result{
		AccessToken:  firstNonEmpty(payload.AccessToken, payload.Token),
		RefreshToken: payload.RefreshToken,
		ExpiresAt:    firstNonEmpty(payload.ExpiresAt, payload.Exp),
		Key:          payload.Key,
	}
	s.log.Info().Msg("tokens received via bookmarklet")

	select {
	case s.results <- result:
	default:
		s.log.Warn().Msg("result buffer full, dropping bookmarklet push")
	}
	w.WriteHeader(http.StatusNoContent)
}

// WaitForTokens blocks until a push arrives or the timeout elapses,
// returning nil on timeout.
func (s *Server) WaitForTokens(timeout time.Duration) *Result {
	select {
	case result := <-s.results:
		return &result
	case <-time.After(timeout):
		return nil
	}
}

// Snippet is the javascript bookmarklet the user installs in the browser.
func (s *Server) Snippet() string {
	addr := s.Addr()
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", s.host, s.port)
	}
	return "javascript:(function(){try{const key=(location.hash.split('key=')[1]||'').split('&')[0];" +
		"const payload={key:key||null,access_token:localStorage.getItem('access_token')," +
		"refresh_token:localStorage.getItem('refresh_token')," +
		"expires_at:localStorage.getItem('expires_in')||localStorage.getItem('token_expiration')||null};" +
		fmt.Sprintf("fetch('http://%s/push',{method:'POST',headers:{'Content-Type':'application/json'},", addr) +
		"body:JSON.stringify(payload)}).then(()=>alert('Tokens enviados para o coletor CPFL.'))" +
		".catch(err=>alert('Falha ao enviar tokens: '+err));}catch(err){alert('Erro: '+err);}})();"
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
