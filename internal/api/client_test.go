package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lin/internal/cache"
	"lin/internal/core"
	"lin/internal/credentials"
	"lin/internal/eventbus"
)

func TestNewRejectsBadArguments(t *testing.T) {
	_, err := New("not a url", credentials.NewMemoryStore())
	assert.Error(t, err)

	_, err = New("http://localhost:8000", nil)
	assert.Error(t, err)
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		writeJSON(w, http.StatusOK, ok([]any{}))
	}), WithUserAgent("lin-test"))
	env.login(t, "access-1", "refresh-1")

	_, err := env.client.ListTasks(context.Background(), TaskFilter{})
	require.NoError(t, err)

	assert.Equal(t, "Bearer access-1", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "lin-test", got.Get("User-Agent"))
	assert.NotEmpty(t, got.Get("X-Request-ID"))
}

func TestNotAuthenticated(t *testing.T) {
	var hits atomic.Int32
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))

	_, err := env.client.TodayTasks(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Zero(t, hits.Load())
}

func TestHealthIsAnonymous(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{
			"message":     "LIN API is running",
			"version":     "1.2.0",
			"auth_status": "enabled",
		})
	}))

	h, err := env.client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", h.Version)
	assert.Equal(t, "enabled", h.AuthStatus)
	assert.Equal(t, "LIN API is running", h.Message)
}

// authServer accepts only the current access token on /tasks/ and rotates
// it on every refresh.
type authServer struct {
	mu        sync.Mutex
	valid     string
	refreshes atomic.Int32
	// refreshStatus overrides the refresh response when non-zero.
	refreshStatus int
	delay         time.Duration
	alwaysDeny    bool
}

func (s *authServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/auth/refresh":
		s.refreshes.Add(1)
		time.Sleep(s.delay)
		if s.refreshStatus != 0 {
			writeJSON(w, s.refreshStatus, map[string]any{"detail": "Invalid refresh token"})
			return
		}
		if r.Header.Get("Refresh-Token") == "" {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": "missing header"})
			return
		}
		s.mu.Lock()
		s.valid = "access-2"
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "access-2",
			"refresh_token": "refresh-2",
			"token_type":    "bearer",
		})
	default:
		s.mu.Lock()
		valid := s.valid
		s.mu.Unlock()
		if s.alwaysDeny || r.Header.Get("Authorization") != "Bearer "+valid {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Could not validate credentials"})
			return
		}
		writeJSON(w, http.StatusOK, ok([]map[string]any{{"title": "write report"}}))
	}
}

func TestRefreshOnUnauthorized(t *testing.T) {
	srv := &authServer{valid: "access-2"}
	env := newTestEnv(t, srv)
	env.login(t, "access-1", "refresh-1")

	page, err := env.client.ListTasks(context.Background(), TaskFilter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "write report", page.Items[0].Title)
	assert.EqualValues(t, 1, srv.refreshes.Load())

	creds, err := env.store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-2", creds.AccessToken)
	assert.Equal(t, "refresh-2", creds.RefreshToken)
	assert.Contains(t, env.events.names(), eventbus.AuthRefreshed)
}

func TestConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	srv := &authServer{valid: "access-2", delay: 50 * time.Millisecond}
	env := newTestEnv(t, srv)
	env.login(t, "access-1", "refresh-1")

	const callers = 10
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.client.ListTasks(context.Background(), TaskFilter{})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, srv.refreshes.Load())
}

func TestRefreshRejectedExpiresSession(t *testing.T) {
	srv := &authServer{valid: "access-2", refreshStatus: http.StatusUnauthorized}
	env := newTestEnv(t, srv)
	env.login(t, "access-1", "refresh-1")

	_, err := env.client.ListTasks(context.Background(), TaskFilter{})
	assert.ErrorIs(t, err, ErrSessionExpired)

	_, err = env.store.Get(context.Background())
	assert.ErrorIs(t, err, credentials.ErrNoCredentials)
	assert.Contains(t, env.events.names(), eventbus.AuthExpired)
}

func TestSecondUnauthorizedExpiresSession(t *testing.T) {
	srv := &authServer{alwaysDeny: true}
	env := newTestEnv(t, srv)
	env.login(t, "access-1", "refresh-1")

	_, err := env.client.ListTasks(context.Background(), TaskFilter{})
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.EqualValues(t, 1, srv.refreshes.Load())

	_, err = env.store.Get(context.Background())
	assert.ErrorIs(t, err, credentials.ErrNoCredentials)
}

func TestNoRefreshTokenExpiresSession(t *testing.T) {
	srv := &authServer{valid: "access-2"}
	env := newTestEnv(t, srv)
	env.login(t, "access-1", "")

	_, err := env.client.ListTasks(context.Background(), TaskFilter{})
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Zero(t, srv.refreshes.Load())
}

func TestProactiveRefresh(t *testing.T) {
	srv := &authServer{valid: "access-2"}
	env := newTestEnv(t, srv)

	expired := mintToken(t, "42", time.Now().Add(-time.Minute))
	env.login(t, expired, "refresh-1")

	var denied atomic.Int32
	env.client.http.Transport = roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.Header.Get("Authorization") == "Bearer "+expired {
			denied.Add(1)
		}
		return http.DefaultTransport.RoundTrip(r)
	})

	_, err := env.client.TodayTasks(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, srv.refreshes.Load())
	assert.Zero(t, denied.Load(), "expired token should never be sent")
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestNetworkErrorKeepsSession(t *testing.T) {
	env := newTestEnv(t, http.NotFoundHandler())
	env.login(t, "access-1", "refresh-1")
	env.server.Close()

	_, err := env.client.ListTasks(context.Background(), TaskFilter{})
	var netErr *NetworkError
	assert.True(t, errors.As(err, &netErr))

	_, err = env.client.Refresh(context.Background())
	assert.True(t, errors.As(err, &netErr))

	creds, err := env.store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", creds.AccessToken)
}

func TestAPIErrorStatus(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Task not found"})
	}))
	env.login(t, "access-1", "refresh-1")

	_, err := env.client.GetTask(context.Background(), uuid.New())
	assert.True(t, IsNotFound(err))
	assert.EqualError(t, err, "Task not found (HTTP 404)")
}

func TestResponseCache(t *testing.T) {
	var gets atomic.Int32
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			gets.Add(1)
			writeJSON(w, http.StatusOK, ok([]any{}))
			return
		}
		writeJSON(w, http.StatusCreated, ok(map[string]any{"title": "new"}))
	}), WithCache(cache.NewLRUCache[[]byte](16, time.Minute)))
	env.login(t, "access-1", "refresh-1")
	ctx := context.Background()

	_, err := env.client.ListTasks(ctx, TaskFilter{})
	require.NoError(t, err)
	_, err = env.client.ListTasks(ctx, TaskFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, gets.Load())

	// Unrelated mutations leave the task cache alone.
	env.client.Bus().Publish(eventbus.JournalCreated, nil)
	_, err = env.client.ListTasks(ctx, TaskFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, gets.Load())

	_, err = env.client.CreateTask(ctx, core.TaskInput{Title: "new"})
	require.NoError(t, err)
	_, err = env.client.ListTasks(ctx, TaskFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, gets.Load())

	require.NoError(t, env.client.Logout(ctx))
	env.login(t, "access-1", "refresh-1")
	_, err = env.client.ListTasks(ctx, TaskFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, gets.Load())
}

func TestResponseCacheSkipsReadsRacingInvalidation(t *testing.T) {
	var gets atomic.Int32
	var items atomic.Int32
	items.Store(1)
	entered := make(chan struct{})
	release := make(chan struct{})
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gets.Add(1) == 1 {
			close(entered)
			<-release
		}
		list := make([]map[string]any, items.Load())
		for i := range list {
			list[i] = map[string]any{"title": "task"}
		}
		writeJSON(w, http.StatusOK, ok(list))
	}), WithCache(cache.NewLRUCache[[]byte](16, time.Minute)))
	env.login(t, "access-1", "refresh-1")
	ctx := context.Background()

	type result struct {
		page Page[core.Task]
		err  error
	}
	first := make(chan result, 1)
	go func() {
		page, err := env.client.ListTasks(ctx, TaskFilter{})
		first <- result{page, err}
	}()

	<-entered
	// A task is created elsewhere while the first read is on the wire.
	items.Store(2)
	env.client.Bus().Publish(eventbus.TaskCreated, nil)
	close(release)

	res := <-first
	require.NoError(t, res.err)
	assert.Len(t, res.page.Items, 1)

	page, err := env.client.ListTasks(ctx, TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.EqualValues(t, 2, gets.Load())

	// With no invalidation in between the fresh read is cached.
	_, err = env.client.ListTasks(ctx, TaskFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, gets.Load())
}
