package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func signedToken(t *testing.T, userID string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": userID, "exp": exp.Unix()})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func sampleCredentials() Credentials {
	return Credentials{
		Token: oauth2.Token{
			AccessToken:  "access",
			RefreshToken: "refresh",
			TokenType:    "Bearer",
			Expiry:       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		RefreshExpiry: time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestParseClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	claims, err := ParseClaims(signedToken(t, "2b1f8c1e-0000-4000-8000-000000000001", exp))
	require.NoError(t, err)
	assert.Equal(t, "2b1f8c1e-0000-4000-8000-000000000001", claims.UserID)
	assert.True(t, claims.ExpiresAt.Equal(exp))

	_, err = ParseClaims("not-a-jwt")
	assert.Error(t, err)
}

func TestFromTokenResponsePrefersExpClaim(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	exp := now.Add(15 * time.Minute)
	creds := FromTokenResponse(TokenResponse{
		AccessToken:           signedToken(t, "u1", exp),
		RefreshToken:          "r1",
		ExpiresIn:             3600,
		RefreshTokenExpiresIn: 86400,
	}, now)

	assert.Equal(t, "Bearer", creds.TokenType)
	assert.True(t, creds.Expiry.Equal(exp), "expiry should come from the exp claim")
	assert.True(t, creds.RefreshExpiry.Equal(now.Add(24*time.Hour)))
}

func TestFromTokenResponseFallsBackToExpiresIn(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	creds := FromTokenResponse(TokenResponse{AccessToken: "opaque", ExpiresIn: 60, TokenType: "bearer"}, now)

	assert.Equal(t, "bearer", creds.TokenType)
	assert.True(t, creds.Expiry.Equal(now.Add(time.Minute)))
	assert.True(t, creds.RefreshExpiry.IsZero())
}

func TestFromOAuth2TokenReadsRefreshExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tok := (&oauth2.Token{AccessToken: "opaque", RefreshToken: "r"}).
		WithExtra(map[string]any{"refresh_token_expires_in": float64(120)})

	creds := FromOAuth2Token(tok, now)
	assert.Equal(t, "Bearer", creds.TokenType)
	assert.True(t, creds.RefreshExpiry.Equal(now.Add(2*time.Minute)))
}

func TestExpiryHelpers(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	creds := Credentials{Token: oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: now}}

	assert.True(t, creds.AccessExpired(now))
	assert.False(t, creds.AccessExpired(now.Add(-time.Second)))
	assert.False(t, Credentials{}.AccessExpired(now), "no expiry means unknown, not expired")

	assert.True(t, creds.CanRefresh(now))
	creds.RefreshExpiry = now
	assert.False(t, creds.CanRefresh(now))
	assert.False(t, Credentials{}.CanRefresh(now))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx)
	assert.ErrorIs(t, err, ErrNoCredentials)

	require.NoError(t, store.Set(ctx, sampleCredentials()))
	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access", got.AccessToken)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Get(ctx)
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	store := NewFileStore(path)

	_, err := store.Get(ctx)
	assert.ErrorIs(t, err, ErrNoCredentials)

	want := sampleCredentials()
	require.NoError(t, store.Set(ctx, want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := NewFileStore(path).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.Equal(t, want.RefreshToken, got.RefreshToken)
	assert.True(t, want.Expiry.Equal(got.Expiry))
	assert.True(t, want.RefreshExpiry.Equal(got.RefreshExpiry))

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx), "clearing twice is fine")
	_, err = store.Get(ctx)
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "credentials.json"))

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Set(ctx, sampleCredentials()))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "credentials.json", entries[0].Name())
}

func TestSealedFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.json")
	store := NewSealedFileStore(path, "correct horse")

	require.NoError(t, store.Set(ctx, sampleCredentials()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "access")
	var sealed sealedFile
	require.NoError(t, json.Unmarshal(raw, &sealed))
	assert.Equal(t, sealedFormat, sealed.Version)

	got, err := NewSealedFileStore(path, "correct horse").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access", got.AccessToken)

	_, err = NewSealedFileStore(path, "wrong").Get(ctx)
	assert.True(t, errors.Is(err, ErrDecrypt))

	_, err = NewFileStore(path).Get(ctx)
	assert.True(t, errors.Is(err, ErrDecrypt))
}

func TestFileStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "credentials.json"))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Set(ctx, sampleCredentials()))
		}()
		go func() {
			defer wg.Done()
			_, err := store.Get(ctx)
			if err != nil {
				assert.ErrorIs(t, err, ErrNoCredentials)
			}
		}()
	}
	wg.Wait()
}
