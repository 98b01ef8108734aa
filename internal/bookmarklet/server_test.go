package bookmarklet

import (
	"bytes"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T) *Server {
	t.Helper()
	server := NewServer(0)
	require.NoError(t, server.Start())
	t.Cleanup(server.Stop)
	return server
}

func TestPushDeliversTokens(t *testing.T) {
	server := startTestServer(t)

	body := []byte(`{"access_token":"acc","refresh_token":"ref","expires_at":"3600","key":"abc"}`)
	resp, err := http.Post(fmt.Sprintf("http://%s/push", server.Addr()), "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	result := server.WaitForTokens(2 * time.Second)
	require.NotNil(t, result)
	assert.Equal(t, "acc", result.AccessToken)
	assert.Equal(t, "ref", result.RefreshToken)
	assert.Equal(t, "3600", result.ExpiresAt)
	assert.Equal(t, "abc", result.Key)
}

func TestPushAcceptsLegacyFieldNames(t *testing.T) {
	server := startTestServer(t)

	body := []byte(`{"token":"acc2","exp":"60"}`)
	resp, err := http.Post(fmt.Sprintf("http://%s/push", server.Addr()), "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	result := server.WaitForTokens(2 * time.Second)
	require.NotNil(t, result)
	assert.Equal(t, "acc2", result.AccessToken)
	assert.Equal(t, "60", result.ExpiresAt)
}

func TestPushRejectsInvalidJSON(t *testing.T) {
	server := startTestServer(t)

	resp, err := http.Post(fmt.Sprintf("http://%s/push", server.Addr()), "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnknownPathIs404(t *testing.T) {
	server := startTestServer(t)

	resp, err := http.Post(fmt.Sprintf("http://%s/other", server.Addr()), "application/json", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWaitForTokensTimesOut(t *testing.T) {
	server := startTestServer(t)
	assert.Nil(t, server.WaitForTokens(50*time.Millisecond))
}

func TestSnippetTargetsListener(t *testing.T) {
	server := startTestServer(t)
	snippet := server.Snippet()
	assert.Contains(t, snippet, server.Addr())
	assert.Contains(t, snippet, "/push")
}

func TestStartTwiceAndStopIdempotent(t *testing.T) {
	server := startTestServer(t)
	require.NoError(t, server.Start())
	server.Stop()
	server.Stop()
}
