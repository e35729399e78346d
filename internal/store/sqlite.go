package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"steward/internal/apperrors"
	"steward/internal/container"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Timestamps are persisted as RFC3339Nano text. Nanosecond precision keeps
// updated_at strictly monotonic across updates that land within the same
// second.
const timeLayout = time.RFC3339Nano

// SQLite is the durable container.Store backed by a single SQLite file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens the database at path, verifies the connection, and applies
// pending schema migrations.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single writer connection sidesteps SQLITE_BUSY between the
	// reconciler and the API under concurrent writes.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// migrate applies the embedded schema migrations.
func (s *SQLite) migrate() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// ListAll returns every record ordered by creation time.
func (s *SQLite) ListAll(ctx context.Context) ([]container.Record, error) {
	query := `
		SELECT id, name, image, status, runtime_id, created_at, updated_at
		FROM containers
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Store("store.listAll", err)
	}
	defer rows.Close()

	records := []container.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, apperrors.Store("store.listAll", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Store("store.listAll", err)
	}

	return records, nil
}

// GetByID returns the record with the given id.
func (s *SQLite) GetByID(ctx context.Context, id string) (*container.Record, error) {
	query := `
		SELECT id, name, image, status, runtime_id, created_at, updated_at
		FROM containers
		WHERE id = ?
	`

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("container", id)
	}
	if err != nil {
		return nil, apperrors.Store("store.getById", err)
	}

	return rec, nil
}

// Insert persists a new record.
func (s *SQLite) Insert(ctx context.Context, rec *container.Record) error {
	query := `
		INSERT INTO containers (id, name, image, status, runtime_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.Name,
		rec.Image,
		rec.Status.String(),
		nullableString(rec.RuntimeID),
		rec.CreatedAt.UTC().Format(timeLayout),
		rec.UpdatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return apperrors.Store("store.insert", err)
	}

	return nil
}

// UpdateStatus sets the record's status, refreshes updated_at, and persists
// the runtime handle when one is supplied. An empty runtimeID keeps the
// stored handle, since a handle is never cleared once set.
func (s *SQLite) UpdateStatus(ctx context.Context, id string, status container.Status, runtimeID string) (*container.Record, error) {
	query := `
		UPDATE containers
		SET status = ?,
		    runtime_id = COALESCE(NULLIF(?, ''), runtime_id),
		    updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		status.String(),
		runtimeID,
		time.Now().UTC().Format(timeLayout),
		id,
	)
	if err != nil {
		return nil, apperrors.Store("store.updateStatus", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, apperrors.Store("store.updateStatus", err)
	}
	if rows == 0 {
		return nil, apperrors.NotFound("container", id)
	}

	return s.GetByID(ctx, id)
}

// DeleteByID removes the record.
func (s *SQLite) DeleteByID(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM containers WHERE id = ?`, id)
	if err != nil {
		return apperrors.Store("store.deleteById", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Store("store.deleteById", err)
	}
	if rows == 0 {
		return apperrors.NotFound("container", id)
	}

	return nil
}

// Ping checks the database connection.
func (s *SQLite) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return apperrors.Store("store.ping", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one row into a Record. The status column is passed through
// as stored, even when it falls outside the known enumeration; the engine is
// responsible for reporting unrecognized values.
func scanRecord(row scanner) (*container.Record, error) {
	var (
		rec       container.Record
		status    string
		runtimeID sql.NullString
		createdAt string
		updatedAt string
	)

	if err := row.Scan(&rec.ID, &rec.Name, &rec.Image, &status, &runtimeID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	rec.Status = container.Status(status)
	if runtimeID.Valid {
		rec.RuntimeID = runtimeID.String
	}

	var err error
	if rec.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return &rec, nil
}

// nullableString maps the empty string to NULL.
func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
