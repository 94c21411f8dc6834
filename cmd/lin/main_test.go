package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// backend points the CLI at handler with a throwaway credentials file.
func backend(t *testing.T, handler http.Handler) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	t.Setenv("LIN_API_URL", srv.URL)
	t.Setenv("LIN_CREDENTIAL_STORE", "file")
	t.Setenv("LIN_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "credentials.json"))
	t.Setenv("LIN_CREDENTIALS_PASSPHRASE", "")
	t.Setenv("LIN_PASSWORD", "")
	t.Setenv("BROKER", "none")
	t.Setenv("LIN_CACHE_SIZE", "0")
	t.Setenv("LOG_LEVEL", "error")
}

func TestUsage(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, 0, run(nil, strings.NewReader(""), &out))
	assert.Contains(t, out.String(), "Usage: lin <command>")
	assert.Contains(t, out.String(), "dashboard")

	assert.Equal(t, 2, run([]string{"frobnicate"}, strings.NewReader(""), &out))
}

func TestHealth(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"message": "LIN is running", "version": "1.4.0", "auth_status": "enabled"})
	})
	backend(t, mux)

	var out bytes.Buffer
	require.Equal(t, 0, run([]string{"health"}, strings.NewReader(""), &out))
	assert.Contains(t, out.String(), "1.4.0")
	assert.Contains(t, out.String(), "LIN is running")
}

func TestLoginThenListTasks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		assert.Equal(t, "ada", r.PostForm.Get("username"))
		assert.Equal(t, "hunter2", r.PostForm.Get("password"))
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"token_type":    "bearer",
			"expires_in":    3600,
		})
	})
	mux.HandleFunc("GET /tasks/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		assert.Equal(t, "high", r.URL.Query().Get("priority"))
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": []map[string]any{{
				"id":         "6f1c1f0e-8a57-4c1e-9a55-0f0f7b8c9d01",
				"title":      "Renew passport",
				"priority":   "high",
				"status":     "pending",
				"tags":       []string{"admin"},
				"created_at": time.Now().Format(time.RFC3339),
				"updated_at": time.Now().Format(time.RFC3339),
			}},
			"meta": map[string]any{"page": 1, "limit": 20, "total": 1, "pages": 1},
		})
	})
	backend(t, mux)

	var out bytes.Buffer
	require.Equal(t, 0, run([]string{"login", "-u", "ada"}, strings.NewReader("hunter2\n"), &out))
	assert.Contains(t, out.String(), "Logged in as ada")

	out.Reset()
	require.Equal(t, 0, run([]string{"tasks", "list", "-priority", "high"}, strings.NewReader(""), &out))
	assert.Contains(t, out.String(), "Renew passport")
	assert.Contains(t, out.String(), "1 item(s)")

	out.Reset()
	require.Equal(t, 0, run([]string{"logout"}, strings.NewReader(""), &out))
	assert.Equal(t, 1, run([]string{"tasks"}, strings.NewReader(""), &out))
}

func TestNotLoggedIn(t *testing.T) {
	backend(t, http.NotFoundHandler())

	var out bytes.Buffer
	assert.Equal(t, 1, run([]string{"expenses", "list"}, strings.NewReader(""), &out))
	assert.Equal(t, 1, run([]string{"whoami"}, strings.NewReader(""), &out))
}

func TestUsageErrors(t *testing.T) {
	backend(t, http.NotFoundHandler())

	var out bytes.Buffer
	assert.Equal(t, 2, run([]string{"tasks", "done"}, strings.NewReader(""), &out))
	assert.Equal(t, 2, run([]string{"tasks", "done", "not-a-uuid"}, strings.NewReader(""), &out))
	assert.Equal(t, 2, run([]string{"expenses", "add"}, strings.NewReader(""), &out))
	assert.Equal(t, 2, run([]string{"pending", "teleport"}, strings.NewReader(""), &out))
	assert.Equal(t, 2, run([]string{"login"}, strings.NewReader(""), &out))
}

func TestParseWhen(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	ts, err := parseWhen("tomorrow", now)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-15", ts.DateString())

	ts, err = parseWhen("2026-05-01", now)
	require.NoError(t, err)
	assert.Equal(t, "2026-05-01", ts.DateString())

	_, err = parseWhen("someday", now)
	assert.Error(t, err)

	got, err := optionalWhen("", now)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b c", truncate("a\n b \t c", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"home", "urgent"}, []string(splitTags(" home, ,urgent ")))
	assert.Empty(t, splitTags(""))
}
