// Package credentials holds the token pair issued by the LIN backend and the
// stores that keep it between runs.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

var (
	ErrNoCredentials = errors.New("no stored credentials")
	ErrDecrypt       = errors.New("unable to decrypt credentials")
)

// Store keeps one set of credentials. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context) (Credentials, error)
	Set(ctx context.Context, creds Credentials) error
	Clear(ctx context.Context) error
}

// Credentials is an OAuth2 token plus the refresh token's own expiry, which
// the backend reports separately.
type Credentials struct {
	oauth2.Token
	RefreshExpiry time.Time `json:"refresh_expiry,omitempty"`
}

// TokenResponse is the backend's login and refresh payload.
type TokenResponse struct {
	AccessToken           string `json:"access_token"`
	RefreshToken          string `json:"refresh_token"`
	TokenType             string `json:"token_type"`
	ExpiresIn             int64  `json:"expires_in"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in"`
}

// FromTokenResponse builds credentials from a token payload received at now.
func FromTokenResponse(resp TokenResponse, now time.Time) Credentials {
	tokenType := resp.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	creds := Credentials{Token: oauth2.Token{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    tokenType,
	}}
	creds.Expiry = accessExpiry(resp.AccessToken, resp.ExpiresIn, now)
	if resp.RefreshTokenExpiresIn > 0 {
		creds.RefreshExpiry = now.Add(time.Duration(resp.RefreshTokenExpiresIn) * time.Second)
	}
	return creds
}

// FromOAuth2Token converts the result of an oauth2 password grant.
func FromOAuth2Token(tok *oauth2.Token, now time.Time) Credentials {
	creds := Credentials{Token: *tok}
	if creds.TokenType == "" {
		creds.TokenType = "Bearer"
	}
	if claims, err := ParseClaims(tok.AccessToken); err == nil && !claims.ExpiresAt.IsZero() {
		creds.Expiry = claims.ExpiresAt
	}
	if secs := extraSeconds(tok.Extra("refresh_token_expires_in")); secs > 0 {
		creds.RefreshExpiry = now.Add(time.Duration(secs) * time.Second)
	}
	return creds
}

// accessExpiry prefers the token's own exp claim over expires_in.
func accessExpiry(accessToken string, expiresIn int64, now time.Time) time.Time {
	if claims, err := ParseClaims(accessToken); err == nil && !claims.ExpiresAt.IsZero() {
		return claims.ExpiresAt
	}
	if expiresIn > 0 {
		return now.Add(time.Duration(expiresIn) * time.Second)
	}
	return time.Time{}
}

func extraSeconds(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	}
	return 0
}

// AccessExpired reports whether the access token is known to be expired at now.
// A token without an expiry is never considered expired.
func (c Credentials) AccessExpired(now time.Time) bool {
	return !c.Expiry.IsZero() && !now.Before(c.Expiry)
}

// CanRefresh reports whether a refresh attempt can succeed at now.
func (c Credentials) CanRefresh(now time.Time) bool {
	if c.RefreshToken == "" {
		return false
	}
	return c.RefreshExpiry.IsZero() || now.Before(c.RefreshExpiry)
}

// OAuth2 returns a copy of the embedded token.
func (c Credentials) OAuth2() *oauth2.Token {
	tok := c.Token
	return &tok
}
