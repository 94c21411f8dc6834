package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"lin/internal/core"
	"lin/internal/credentials"
	"lin/internal/eventbus"
	"lin/internal/log"
)

// Login exchanges a username and password for a token pair (OAuth2
// password grant against /auth/login), stores it and publishes auth:login.
func (c *Client) Login(ctx context.Context, username, password string) (credentials.Credentials, error) {
	if username == "" || password == "" {
		return credentials.Credentials{}, ErrInvalidCredentials
	}

	conf := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.endpoint("/auth/login", nil),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)

	start := time.Now()
	tok, err := conf.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			status := retrieveErr.Response.StatusCode
			recordRequest(http.MethodPost, fmt.Sprint(status), time.Since(start))
			if status == http.StatusUnauthorized || status == http.StatusForbidden {
				return credentials.Credentials{}, fmt.Errorf("%w: %s", ErrInvalidCredentials, extractMessage(status, retrieveErr.Body))
			}
			return credentials.Credentials{}, newAPIError(status, retrieveErr.Body)
		}
		recordRequest(http.MethodPost, "error", time.Since(start))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return credentials.Credentials{}, ctxErr
		}
		return credentials.Credentials{}, &NetworkError{Err: err}
	}
	recordRequest(http.MethodPost, "200", time.Since(start))

	creds := credentials.FromOAuth2Token(tok, c.now())
	if err := c.store.Set(ctx, creds); err != nil {
		return credentials.Credentials{}, fmt.Errorf("store credentials: %w", err)
	}

	c.auth.Info("Logged in", "username", username)
	c.publish(eventbus.AuthLogin, Session{Username: username, ExpiresAt: creds.Expiry})
	return creds, nil
}

// Signup registers a new account. It does not log in.
func (c *Client) Signup(ctx context.Context, form core.Signup) (core.Account, error) {
	if err := form.Validate(); err != nil {
		return core.Account{}, err
	}
	r, err := jsonRequest(http.MethodPost, "/auth/signup", form)
	if err != nil {
		return core.Account{}, err
	}
	r.anonymous = true

	var account core.Account
	if _, err := c.do(ctx, r, &account); err != nil {
		return core.Account{}, err
	}
	return account, nil
}

// Logout forgets the stored credentials. The backend keeps no session
// state, so nothing is sent to it.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	c.auth.Info("Logged out")
	c.publish(eventbus.AuthLogout, nil)
	return nil
}

// Session describes the stored login.
type Session struct {
	UserID    string
	Username  string
	ExpiresAt time.Time
	// RefreshExpiresAt is zero when the backend did not say.
	RefreshExpiresAt time.Time
}

// Session reads the stored credentials without contacting the server.
func (c *Client) Session(ctx context.Context) (Session, error) {
	creds, err := c.store.Get(ctx)
	if errors.Is(err, credentials.ErrNoCredentials) {
		return Session{}, ErrNotAuthenticated
	}
	if err != nil {
		return Session{}, fmt.Errorf("load credentials: %w", err)
	}
	s := Session{ExpiresAt: creds.Expiry, RefreshExpiresAt: creds.RefreshExpiry}
	if claims, err := credentials.ParseClaims(creds.AccessToken); err == nil {
		s.UserID = claims.UserID
	}
	return s, nil
}

// Refresh forces a token refresh.
func (c *Client) Refresh(ctx context.Context) (credentials.Credentials, error) {
	creds, err := c.store.Get(ctx)
	if errors.Is(err, credentials.ErrNoCredentials) {
		return credentials.Credentials{}, ErrNotAuthenticated
	}
	if err != nil {
		return credentials.Credentials{}, fmt.Errorf("load credentials: %w", err)
	}
	return c.refresh(ctx, creds.AccessToken)
}

// refresh replaces the access token stale. Concurrent callers share one
// in-flight refresh; a caller whose token was already replaced gets the
// new credentials without another round trip.
func (c *Client) refresh(ctx context.Context, stale string) (credentials.Credentials, error) {
	ch := c.refreshGroup.DoChan("refresh", func() (any, error) {
		return c.doRefresh(context.WithoutCancel(ctx), stale)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return credentials.Credentials{}, res.Err
		}
		return res.Val.(credentials.Credentials), nil
	case <-ctx.Done():
		return credentials.Credentials{}, ctx.Err()
	}
}

func (c *Client) doRefresh(ctx context.Context, stale string) (credentials.Credentials, error) {
	now := c.now()
	current, err := c.store.Get(ctx)
	if errors.Is(err, credentials.ErrNoCredentials) {
		// Another refresh already failed and logged the session out.
		return credentials.Credentials{}, ErrSessionExpired
	}
	if err != nil {
		return credentials.Credentials{}, fmt.Errorf("load credentials: %w", err)
	}
	if current.AccessToken != stale && !current.AccessExpired(now) {
		recordRefresh("reused")
		return current, nil
	}
	if !current.CanRefresh(now) {
		return credentials.Credentials{}, c.expire(ctx, "refresh token missing or expired")
	}

	resp, err := c.roundTrip(ctx, request{
		method:    http.MethodPost,
		path:      "/auth/refresh",
		header:    http.Header{"Refresh-Token": []string{current.RefreshToken}},
		anonymous: true,
	}, nil)
	if err != nil {
		// Keep the session: the server was not reached, so the tokens may still be good.
		recordRefresh("network_error")
		return credentials.Credentials{}, err
	}
	if resp.status < 200 || resp.status >= 300 {
		return credentials.Credentials{}, c.expire(ctx, extractMessage(resp.status, resp.body))
	}

	var tokens credentials.TokenResponse
	env, err := decodeEnvelope(resp.body)
	if err == nil {
		// The token payload may be bare or wrapped in data.
		raw := resp.body
		if !isNull(env.Data) {
			raw = env.Data
		}
		err = json.Unmarshal(raw, &tokens)
	}
	if err != nil || tokens.AccessToken == "" {
		return credentials.Credentials{}, c.expire(ctx, "refresh response carried no access token")
	}

	fresh := credentials.FromTokenResponse(tokens, now)
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = current.RefreshToken
		fresh.RefreshExpiry = current.RefreshExpiry
	}
	if err := c.store.Set(ctx, fresh); err != nil {
		return credentials.Credentials{}, fmt.Errorf("store refreshed credentials: %w", err)
	}

	recordRefresh("success")
	c.auth.Info("Access token refreshed", log.FieldOperation, log.OpRefresh)
	c.publish(eventbus.AuthRefreshed, nil)
	return fresh, nil
}

// expire clears the stored credentials and announces it. It always returns
// ErrSessionExpired.
func (c *Client) expire(ctx context.Context, reason string) error {
	recordRefresh("failure")
	if err := c.store.Clear(ctx); err != nil {
		c.auth.Error("Failed to clear credentials", log.FieldError, err)
	}
	c.auth.Warn("Session expired", "reason", reason)
	c.publish(eventbus.AuthExpired, nil)
	return ErrSessionExpired
}
