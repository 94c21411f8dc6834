package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"lin/internal/credentials"
	"lin/internal/log"

	_ "modernc.org/sqlite"
)

// Export ledger statuses.
const (
	StatusExported = "exported"
	StatusError    = "error"
	StatusDeleted  = "deleted"
)

// Fixed width so stored values sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, logger: logger.WithComponent(log.ComponentStorage)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CredentialStore returns a credentials.Store backed by the single-row
// credentials table, so the CLI and the worker can share one login.
func (r *SQLiteRepository) CredentialStore() credentials.Store {
	return &credentialStore{db: r.db}
}

type credentialStore struct {
	db *sql.DB
}

func (s *credentialStore) Get(ctx context.Context) (credentials.Credentials, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM credentials WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return credentials.Credentials{}, credentials.ErrNoCredentials
	}
	if err != nil {
		return credentials.Credentials{}, fmt.Errorf("read credentials: %w", err)
	}

	var creds credentials.Credentials
	if err := json.Unmarshal([]byte(payload), &creds); err != nil {
		return credentials.Credentials{}, fmt.Errorf("decode credentials: %w", err)
	}
	if creds.AccessToken == "" {
		return credentials.Credentials{}, credentials.ErrNoCredentials
	}
	return creds, nil
}

func (s *credentialStore) Set(ctx context.Context, creds credentials.Credentials) error {
	payload, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO credentials (id, payload, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		string(payload), time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}
	return nil
}

func (s *credentialStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials`); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

// IsExported reports whether the expense has already been exported at a
// version at least as new as updatedAt. Deleted expenses count as done.
func (r *SQLiteRepository) IsExported(ctx context.Context, id uuid.UUID, updatedAt time.Time) (bool, error) {
	var (
		status string
		stored sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT status, updated_at FROM exported_expenses WHERE expense_id = ?`, id.String()).
		Scan(&status, &stored)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get export status: %w", err)
	}

	switch status {
	case StatusDeleted:
		return true, nil
	case StatusExported:
		if !stored.Valid || updatedAt.IsZero() {
			return true, nil
		}
		last, err := time.Parse(timeLayout, stored.String)
		if err != nil {
			return false, fmt.Errorf("parse exported version: %w", err)
		}
		return !updatedAt.UTC().After(last), nil
	}
	return false, nil
}

func (r *SQLiteRepository) MarkExported(ctx context.Context, id uuid.UUID, updatedAt time.Time, ref string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO exported_expenses (expense_id, updated_at, sheet_ref, status, error, attempts, exported_at)
		VALUES (?, ?, ?, ?, '', 1, ?)
		ON CONFLICT(expense_id) DO UPDATE SET
			updated_at = excluded.updated_at,
			sheet_ref = excluded.sheet_ref,
			status = excluded.status,
			error = '',
			attempts = exported_expenses.attempts + 1,
			exported_at = excluded.exported_at`,
		id.String(), nullTime(updatedAt), ref, StatusExported, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("mark expense exported: %w", err)
	}

	r.logger.InfoContext(ctx, "Expense marked as exported", log.FieldExpenseID, id.String(), log.FieldSheetsRef, ref)
	return nil
}

// MarkExportError records a failed attempt. An already exported version is
// kept as the last good one.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, id uuid.UUID, exportErr error) error {
	msg := ""
	if exportErr != nil {
		msg = exportErr.Error()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO exported_expenses (expense_id, status, error, attempts, exported_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(expense_id) DO UPDATE SET
			status = CASE WHEN exported_expenses.status = 'deleted' THEN 'deleted' ELSE excluded.status END,
			error = excluded.error,
			attempts = exported_expenses.attempts + 1`,
		id.String(), StatusError, msg, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("mark expense export error: %w", err)
	}

	r.logger.WarnContext(ctx, "Expense marked with export error", log.FieldExpenseID, id.String(), log.FieldError, msg)
	return nil
}

// MarkDeleted flags the expense as deleted upstream. Sheet rows stay.
func (r *SQLiteRepository) MarkDeleted(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO exported_expenses (expense_id, status, exported_at)
		VALUES (?, ?, ?)
		ON CONFLICT(expense_id) DO UPDATE SET status = excluded.status`,
		id.String(), StatusDeleted, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("mark expense deleted: %w", err)
	}
	return nil
}

// ExportRecord is one ledger row.
type ExportRecord struct {
	ExpenseID  uuid.UUID
	UpdatedAt  time.Time
	SheetRef   string
	Status     string
	Error      string
	Attempts   int
	ExportedAt time.Time
}

func (r *SQLiteRepository) GetExport(ctx context.Context, id uuid.UUID) (ExportRecord, error) {
	var (
		rec        ExportRecord
		rawID      string
		updatedAt  sql.NullString
		exportedAt string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT expense_id, updated_at, sheet_ref, status, error, attempts, exported_at
		FROM exported_expenses WHERE expense_id = ?`, id.String()).
		Scan(&rawID, &updatedAt, &rec.SheetRef, &rec.Status, &rec.Error, &rec.Attempts, &exportedAt)
	if err != nil {
		return ExportRecord{}, fmt.Errorf("get export record: %w", err)
	}
	if rec.ExpenseID, err = uuid.Parse(rawID); err != nil {
		return ExportRecord{}, fmt.Errorf("parse expense id: %w", err)
	}
	if updatedAt.Valid {
		rec.UpdatedAt, _ = time.Parse(timeLayout, updatedAt.String)
	}
	rec.ExportedAt, _ = time.Parse(timeLayout, exportedAt)
	return rec, nil
}

// ExportStats summarises the ledger.
type ExportStats struct {
	Exported     int       `json:"exported"`
	Failed       int       `json:"failed"`
	Deleted      int       `json:"deleted"`
	LastExportAt time.Time `json:"last_export_at,omitzero"`
}

func (r *SQLiteRepository) ExportStats(ctx context.Context) (ExportStats, error) {
	var stats ExportStats

	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM exported_expenses GROUP BY status`)
	if err != nil {
		return stats, fmt.Errorf("count exports: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return stats, fmt.Errorf("scan export count: %w", err)
		}
		switch status {
		case StatusExported:
			stats.Exported = count
		case StatusError:
			stats.Failed = count
		case StatusDeleted:
			stats.Deleted = count
		}
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("iterate export counts: %w", err)
	}

	var last sql.NullString
	err = r.db.QueryRowContext(ctx,
		`SELECT MAX(exported_at) FROM exported_expenses WHERE status = ?`, StatusExported).Scan(&last)
	if err != nil {
		return stats, fmt.Errorf("get last export: %w", err)
	}
	if last.Valid {
		stats.LastExportAt, _ = time.Parse(timeLayout, last.String)
	}
	return stats, nil
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeLayout), Valid: true}
}
