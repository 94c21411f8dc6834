package credentials

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields the backend puts in its access tokens.
type Claims struct {
	UserID    string
	ExpiresAt time.Time
}

// ParseClaims decodes an access token without verifying its signature. The
// result is only used for display and expiry scheduling.
func ParseClaims(accessToken string) (Claims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return Claims{}, fmt.Errorf("parse access token: %w", err)
	}

	var out Claims
	switch id := claims["id"].(type) {
	case string:
		out.UserID = id
	case float64:
		out.UserID = fmt.Sprintf("%.0f", id)
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
