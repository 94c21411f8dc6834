package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"lin/internal/credentials"
	"lin/internal/eventbus"
)

func mintToken(t *testing.T, userID string, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  userID,
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ok(data any) map[string]any {
	return map[string]any{"success": true, "data": data, "message": "ok"}
}

// recorder collects bus events for assertions.
type recorder struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func record(bus *eventbus.Bus) *recorder {
	r := &recorder{}
	bus.SubscribeAll(func(ev eventbus.Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, ev)
	})
	return r
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Name
	}
	return out
}

type testEnv struct {
	client *Client
	store  *credentials.MemoryStore
	server *httptest.Server
	events *recorder
}

func newTestEnv(t *testing.T, handler http.Handler, opts ...Option) *testEnv {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := credentials.NewMemoryStore()
	bus := eventbus.New()
	events := record(bus)

	opts = append([]Option{WithBus(bus), WithHTTPClient(srv.Client())}, opts...)
	c, err := New(srv.URL, store, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	return &testEnv{client: c, store: store, server: srv, events: events}
}

func (e *testEnv) login(t *testing.T, access, refresh string) {
	t.Helper()
	creds := credentials.FromTokenResponse(credentials.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
	}, time.Now())
	require.NoError(t, e.store.Set(context.Background(), creds))
}
