// Package api is the typed client for the LIN REST backend. It injects the
// bearer token, refreshes it once on 401 (sharing one refresh between
// concurrent callers), normalizes both response envelopes and announces
// every successful mutation on the event bus.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"lin/internal/cache"
	"lin/internal/credentials"
	"lin/internal/eventbus"
	"lin/internal/log"
)

const maxResponseBytes = 32 << 20

// Client talks to one LIN backend on behalf of the user whose tokens are in
// its credential store. It is safe for concurrent use.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	store     credentials.Store
	bus       *eventbus.Bus
	cache     cache.Cache[[]byte]
	// cacheGen advances on every invalidation; responses fetched across one
	// are not cached.
	cacheGen  atomic.Uint64
	logger    *log.Logger
	auth      *log.Logger
	userAgent string
	now       func() time.Time

	refreshGroup singleflight.Group
	unsubscribe  []eventbus.Unsubscribe
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client with its 30 second timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger for request and refresh logs.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithBus shares a bus with the rest of the process. Without it the client
// creates its own.
func WithBus(bus *eventbus.Bus) Option {
	return func(c *Client) { c.bus = bus }
}

// WithCache enables GET response caching. Entries are invalidated by bus events.
func WithCache(rc cache.Cache[[]byte]) Option {
	return func(c *Client) { c.cache = rc }
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New returns a client for the backend at baseURL, reading and storing
// tokens in store. baseURL must be absolute.
func New(baseURL string, store credentials.Store, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}
	if store == nil {
		return nil, errors.New("credential store is required")
	}

	c := &Client{
		baseURL:   u,
		http:      &http.Client{Timeout: 30 * time.Second},
		store:     store,
		userAgent: "lin-go",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.Discard()
	}
	c.logger = c.logger.WithComponent(log.ComponentAPI)
	c.auth = c.logger.WithComponent(log.ComponentAuth)
	if c.bus == nil {
		c.bus = eventbus.New()
	}
	if c.cache != nil {
		c.unsubscribe = append(c.unsubscribe, c.bus.SubscribeAll(c.invalidate))
	}
	return c, nil
}

// Bus returns the bus mutations are announced on.
func (c *Client) Bus() *eventbus.Bus {
	return c.bus
}

// Store returns the credential store the client reads tokens from.
func (c *Client) Store() credentials.Store {
	return c.store
}

// Close detaches the client from the bus.
func (c *Client) Close() {
	for _, unsubscribe := range c.unsubscribe {
		unsubscribe()
	}
	c.unsubscribe = nil
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	header      http.Header
	// anonymous requests never carry or refresh credentials.
	anonymous bool
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func jsonRequest(method, path string, payload any) (request, error) {
	r := request{method: method, path: path}
	if payload == nil {
		return r, nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return r, fmt.Errorf("encode request body: %w", err)
	}
	r.body = body
	r.contentType = "application/json"
	return r, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func cacheKey(r request) string {
	if len(r.query) == 0 {
		return r.path
	}
	return r.path + "?" + r.query.Encode()
}

// do runs r through the auth pipeline, checks the status, decodes the
// envelope and unmarshals its data into out (when out is non-nil).
func (c *Client) do(ctx context.Context, r request, out any) (*Envelope, error) {
	cacheable := c.cache != nil && r.method == http.MethodGet && !r.anonymous
	var gen uint64
	if cacheable {
		gen = c.cacheGen.Load()
		if body, ok := c.cache.Get(cacheKey(r)); ok {
			recordCache(true)
			return decodeInto(body, out)
		}
		recordCache(false)
	}

	resp, err := c.send(ctx, r)
	if err != nil {
		return nil, err
	}
	if resp.status < 200 || resp.status >= 300 {
		return nil, newAPIError(resp.status, resp.body)
	}

	env, err := decodeInto(resp.body, out)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			apiErr.StatusCode = resp.status
			return nil, apiErr
		}
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	if cacheable && c.cacheGen.Load() == gen {
		c.cache.Set(cacheKey(r), resp.body)
	}
	return env, nil
}

func decodeInto(body []byte, out any) (*Envelope, error) {
	env, err := decodeEnvelope(body)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "request failed"
		}
		return nil, &APIError{StatusCode: http.StatusOK, Message: msg}
	}
	if out != nil {
		if err := env.DecodeData(out); err != nil {
			return nil, fmt.Errorf("decode response data: %w", err)
		}
	}
	return env, nil
}

// doRaw is do for non-JSON bodies (exports). It never touches the cache.
func (c *Client) doRaw(ctx context.Context, r request) ([]byte, http.Header, error) {
	resp, err := c.send(ctx, r)
	if err != nil {
		return nil, nil, err
	}
	if resp.status < 200 || resp.status >= 300 {
		return nil, nil, newAPIError(resp.status, resp.body)
	}
	return resp.body, resp.header, nil
}

// send attaches credentials, refreshes them when they are known to be
// expired, and retries exactly once after a 401.
func (c *Client) send(ctx context.Context, r request) (*response, error) {
	if r.anonymous {
		return c.roundTrip(ctx, r, nil)
	}

	creds, err := c.store.Get(ctx)
	if errors.Is(err, credentials.ErrNoCredentials) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	if now := c.now(); creds.AccessExpired(now) && creds.CanRefresh(now) {
		c.logger.Debug("Access token expired, refreshing before request", log.FieldPath, r.path)
		if creds, err = c.refresh(ctx, creds.AccessToken); err != nil {
			return nil, err
		}
	}

	resp, err := c.roundTrip(ctx, r, &creds)
	if err != nil || resp.status != http.StatusUnauthorized {
		return resp, err
	}

	c.logger.Debug("Request rejected with 401, refreshing token", log.FieldPath, r.path)
	creds, err = c.refresh(ctx, creds.AccessToken)
	if err != nil {
		return nil, err
	}

	resp, err = c.roundTrip(ctx, r, &creds)
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusUnauthorized {
		return nil, c.expire(ctx, "request still unauthorized after refresh")
	}
	return resp, nil
}

func (c *Client) roundTrip(ctx context.Context, r request, creds *credentials.Credentials) (*response, error) {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, c.endpoint(r.path, r.query), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if creds != nil {
		creds.OAuth2().SetAuthHeader(req)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		recordRequest(r.method, "error", elapsed)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Warn("Request failed", log.NewFields().
			WithHTTPRequest(r.method, r.path).
			WithRequestID(req.Header.Get("X-Request-ID")).
			WithError(err).ToSlice()...)
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		recordRequest(r.method, "error", elapsed)
		return nil, &NetworkError{Err: fmt.Errorf("read response: %w", err)}
	}

	recordRequest(r.method, strconv.Itoa(resp.StatusCode), elapsed)
	c.logger.Debug("Request completed", log.NewFields().
		WithHTTPRequest(r.method, r.path).
		WithHTTPResponse(resp.StatusCode, elapsed.Milliseconds()).
		WithRequestID(req.Header.Get("X-Request-ID")).ToSlice()...)

	return &response{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

func (c *Client) publish(name string, payload any) {
	c.bus.Publish(name, payload)
}

// Health reports the backend status. It needs no credentials.
type Health struct {
	Message    string `json:"message"`
	Version    string `json:"version"`
	AuthStatus string `json:"auth_status"`
}

// Health reports backend status. It needs no credentials.
func (c *Client) Health(ctx context.Context) (Health, error) {
	env, err := c.do(ctx, request{method: http.MethodGet, path: "/health", anonymous: true}, nil)
	if err != nil {
		return Health{}, err
	}
	h := Health{Message: env.Message}
	if _, err := env.DecodeExtra("version", &h.Version); err != nil {
		return Health{}, fmt.Errorf("decode health version: %w", err)
	}
	if _, err := env.DecodeExtra("auth_status", &h.AuthStatus); err != nil {
		return Health{}, fmt.Errorf("decode health auth status: %w", err)
	}
	return h, nil
}
