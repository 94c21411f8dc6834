package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"lin/internal/credentials"
	"lin/internal/storage"
	"lin/internal/worker"
)

type fakeSyncer struct {
	res   worker.PendingResult
	err   error
	calls int
}

func (f *fakeSyncer) ProcessPending(ctx context.Context) (worker.PendingResult, error) {
	f.calls++
	return f.res, f.err
}

type fakeLedger struct {
	stats   storage.ExportStats
	pingErr error
}

func (f fakeLedger) ExportStats(ctx context.Context) (storage.ExportStats, error) {
	return f.stats, nil
}

func (f fakeLedger) Ping(ctx context.Context) error { return f.pingErr }

func loggedIn(t *testing.T) credentials.Store {
	t.Helper()
	store := credentials.NewMemoryStore()
	err := store.Set(context.Background(), credentials.Credentials{Token: oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour),
	}})
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	return store
}

func serve(srv *Server, method, path, remote string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	srv := NewServer(":0", &fakeSyncer{}, fakeLedger{}, credentials.NewMemoryStore(), nil)

	rr := serve(srv, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Errorf("healthz body = %s", rr.Body.String())
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
}

func TestReady(t *testing.T) {
	expired := credentials.NewMemoryStore()
	expired.Set(context.Background(), credentials.Credentials{Token: oauth2.Token{
		AccessToken: "access",
		Expiry:      time.Now().Add(-time.Minute),
	}})

	tests := []struct {
		name       string
		ledger     fakeLedger
		creds      credentials.Store
		wantStatus int
		wantCheck  string
	}{
		{"ready", fakeLedger{}, loggedIn(t), http.StatusOK, `"credentials":"ok"`},
		{"no login", fakeLedger{}, credentials.NewMemoryStore(), http.StatusServiceUnavailable, `"credentials":"missing: run lin login"`},
		{"expired login", fakeLedger{}, expired, http.StatusServiceUnavailable, `"credentials":"expired: run lin login"`},
		{"database down", fakeLedger{pingErr: errors.New("disk I/O error")}, loggedIn(t), http.StatusServiceUnavailable, `"database":"failed: disk I/O error"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(":0", &fakeSyncer{}, tt.ledger, tt.creds, nil)
			rr := serve(srv, http.MethodGet, "/readyz", "")
			if rr.Code != tt.wantStatus {
				t.Fatalf("readyz status=%d, want %d", rr.Code, tt.wantStatus)
			}
			if !strings.Contains(rr.Body.String(), tt.wantCheck) {
				t.Errorf("readyz body %s missing %s", rr.Body.String(), tt.wantCheck)
			}
		})
	}
}

func TestStats(t *testing.T) {
	ledger := fakeLedger{stats: storage.ExportStats{Exported: 4, Failed: 1}}
	srv := NewServer(":0", &fakeSyncer{}, ledger, loggedIn(t), nil)

	rr := serve(srv, http.MethodGet, "/stats", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("stats status=%d", rr.Code)
	}
	var got storage.ExportStats
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if got.Exported != 4 || got.Failed != 1 {
		t.Errorf("stats = %+v", got)
	}
}

func TestSync(t *testing.T) {
	syncer := &fakeSyncer{res: worker.PendingResult{Checked: 5, Exported: 2}}
	srv := NewServer(":0", syncer, fakeLedger{}, loggedIn(t), nil)

	rr := serve(srv, http.MethodPost, "/sync", "127.0.0.1:50000")
	if rr.Code != http.StatusOK {
		t.Fatalf("sync status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"exported":2`) {
		t.Errorf("sync body = %s", rr.Body.String())
	}

	// Wrong method
	rr = serve(srv, http.MethodGet, "/sync", "127.0.0.1:50000")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /sync status=%d, want 405", rr.Code)
	}

	// Untrusted caller
	rr = serve(srv, http.MethodPost, "/sync", "203.0.113.9:40000")
	if rr.Code != http.StatusForbidden {
		t.Errorf("untrusted sync status=%d, want 403", rr.Code)
	}
	if syncer.calls != 1 {
		t.Errorf("ProcessPending calls = %d, want 1", syncer.calls)
	}
}

func TestSyncFailureKeepsCounts(t *testing.T) {
	syncer := &fakeSyncer{res: worker.PendingResult{Checked: 3, Exported: 1, Failed: 2}, err: errors.New("append failed")}
	srv := NewServer(":0", syncer, fakeLedger{}, loggedIn(t), nil)

	rr := serve(srv, http.MethodPost, "/sync", "[::1]:50000")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("sync status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `"failed":2`) || !strings.Contains(body, "append failed") {
		t.Errorf("sync body = %s", body)
	}
}

func TestMetricsAndNotFound(t *testing.T) {
	srv := NewServer(":0", &fakeSyncer{}, fakeLedger{}, loggedIn(t), nil)

	if rr := serve(srv, http.MethodGet, "/metrics", ""); rr.Code != http.StatusOK {
		t.Errorf("metrics status=%d", rr.Code)
	}
	if rr := serve(srv, http.MethodGet, "/nope", ""); rr.Code != http.StatusNotFound {
		t.Errorf("unknown path status=%d", rr.Code)
	}
}

func TestSyncRateLimited(t *testing.T) {
	syncer := &fakeSyncer{}
	srv := NewServer(":0", syncer, fakeLedger{}, loggedIn(t), nil)
	defer srv.limiter.Stop()

	for i := 0; i < syncRequestsPerMinute; i++ {
		if rr := serve(srv, http.MethodPost, "/sync", "10.0.0.7:1234"); rr.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i+1, rr.Code)
		}
	}
	rr := serve(srv, http.MethodPost, "/sync", "10.0.0.7:1235")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rr.Header().Get("Retry-After"))
	}

	// Other clients have their own window.
	if rr := serve(srv, http.MethodPost, "/sync", "10.0.0.8:1234"); rr.Code != http.StatusOK {
		t.Errorf("second client status=%d", rr.Code)
	}
	if syncer.calls != syncRequestsPerMinute+1 {
		t.Errorf("ProcessPending calls = %d", syncer.calls)
	}
}

func TestLimiterWindowResets(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newLimiter(2, time.Minute)
	defer l.Stop()
	l.now = func() time.Time { return now }

	if !l.allow("a") || !l.allow("a") {
		t.Fatal("first two requests should pass")
	}
	if l.allow("a") {
		t.Fatal("third request in the window should be rejected")
	}
	now = now.Add(time.Minute)
	if !l.allow("a") {
		t.Error("request in a new window should pass")
	}
}
