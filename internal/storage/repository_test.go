package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"lin/internal/credentials"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "lin.db"), nil)
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lin.db")
	for i := 0; i < 2; i++ {
		if err := RunMigrations(path); err != nil {
			t.Fatalf("RunMigrations() run %d error = %v", i+1, err)
		}
	}
}

func TestCredentialStore(t *testing.T) {
	ctx := context.Background()
	store := newTestRepository(t).CredentialStore()

	if _, err := store.Get(ctx); !errors.Is(err, credentials.ErrNoCredentials) {
		t.Fatalf("Get() on empty store error = %v, want ErrNoCredentials", err)
	}

	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	creds := credentials.Credentials{
		Token: oauth2.Token{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			TokenType:    "Bearer",
			Expiry:       expiry,
		},
		RefreshExpiry: expiry.Add(24 * time.Hour),
	}
	if err := store.Set(ctx, creds); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	creds.AccessToken = "access-2"
	if err := store.Set(ctx, creds); err != nil {
		t.Fatalf("second Set() error = %v", err)
	}

	got, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.AccessToken != "access-2" || got.RefreshToken != "refresh-1" {
		t.Errorf("Get() tokens = %q/%q, want access-2/refresh-1", got.AccessToken, got.RefreshToken)
	}
	if !got.Expiry.Equal(expiry) || !got.RefreshExpiry.Equal(creds.RefreshExpiry) {
		t.Errorf("Get() expiries = %v/%v, want %v/%v", got.Expiry, got.RefreshExpiry, expiry, creds.RefreshExpiry)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := store.Get(ctx); !errors.Is(err, credentials.ErrNoCredentials) {
		t.Errorf("Get() after Clear error = %v, want ErrNoCredentials", err)
	}
}

func TestExportLedger(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	id := uuid.New()
	v1 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	v2 := v1.Add(time.Minute)

	exported, err := repo.IsExported(ctx, id, v1)
	if err != nil || exported {
		t.Fatalf("IsExported() on unknown id = %v, %v; want false, nil", exported, err)
	}

	if err := repo.MarkExportError(ctx, id, errors.New("quota exceeded")); err != nil {
		t.Fatalf("MarkExportError() error = %v", err)
	}
	if exported, _ := repo.IsExported(ctx, id, v1); exported {
		t.Error("IsExported() after error = true, want false")
	}

	if err := repo.MarkExported(ctx, id, v1, "'2025 Expenses'!A2:I2"); err != nil {
		t.Fatalf("MarkExported() error = %v", err)
	}

	tests := []struct {
		name      string
		updatedAt time.Time
		want      bool
	}{
		{"same version", v1, true},
		{"older version", v1.Add(-time.Hour), true},
		{"newer version", v2, false},
		{"unknown version", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.IsExported(ctx, id, tt.updatedAt)
			if err != nil {
				t.Fatalf("IsExported() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsExported() = %v, want %v", got, tt.want)
			}
		})
	}

	rec, err := repo.GetExport(ctx, id)
	if err != nil {
		t.Fatalf("GetExport() error = %v", err)
	}
	if rec.Status != StatusExported || rec.Error != "" || rec.Attempts != 2 {
		t.Errorf("GetExport() = %+v, want exported with 2 attempts and no error", rec)
	}
	if !rec.UpdatedAt.Equal(v1) {
		t.Errorf("GetExport().UpdatedAt = %v, want %v", rec.UpdatedAt, v1)
	}

	if err := repo.MarkDeleted(ctx, id); err != nil {
		t.Fatalf("MarkDeleted() error = %v", err)
	}
	if exported, _ := repo.IsExported(ctx, id, v2); !exported {
		t.Error("IsExported() after delete = false, want true")
	}
	if err := repo.MarkExportError(ctx, id, errors.New("late failure")); err != nil {
		t.Fatalf("MarkExportError() error = %v", err)
	}
	if rec, _ := repo.GetExport(ctx, id); rec.Status != StatusDeleted {
		t.Errorf("status after late error = %q, want %q", rec.Status, StatusDeleted)
	}
}

func TestExportStats(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	stats, err := repo.ExportStats(ctx)
	if err != nil {
		t.Fatalf("ExportStats() error = %v", err)
	}
	if stats != (ExportStats{}) {
		t.Errorf("ExportStats() on empty ledger = %+v", stats)
	}

	now := time.Now()
	for i := 0; i < 3; i++ {
		if err := repo.MarkExported(ctx, uuid.New(), now, "ref"); err != nil {
			t.Fatalf("MarkExported() error = %v", err)
		}
	}
	if err := repo.MarkExportError(ctx, uuid.New(), errors.New("boom")); err != nil {
		t.Fatalf("MarkExportError() error = %v", err)
	}
	if err := repo.MarkDeleted(ctx, uuid.New()); err != nil {
		t.Fatalf("MarkDeleted() error = %v", err)
	}

	stats, err = repo.ExportStats(ctx)
	if err != nil {
		t.Fatalf("ExportStats() error = %v", err)
	}
	if stats.Exported != 3 || stats.Failed != 1 || stats.Deleted != 1 {
		t.Errorf("ExportStats() = %+v, want 3 exported, 1 failed, 1 deleted", stats)
	}
	if stats.LastExportAt.IsZero() {
		t.Error("ExportStats().LastExportAt is zero")
	}
}
