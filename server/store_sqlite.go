package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const catalogSQLiteSchema = `
CREATE TABLE IF NOT EXISTS catalog_versions (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	version TEXT NOT NULL UNIQUE,
	source BLOB NOT NULL,
	fetched_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_catalog_versions_fetched
ON catalog_versions(fetched_at);`

// SQLiteStoreConfig configures the SQLite catalog store.
type SQLiteStoreConfig struct {
	DSN string
}

// SQLiteStore persists catalog records in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite-backed catalog store.
func NewSQLiteStore(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("catalog store sqlite dsn is required")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("catalog sqlite store open: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("catalog sqlite store set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("catalog sqlite store enable foreign keys: %w", err)
	}

	if _, err := db.Exec(catalogSQLiteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("catalog sqlite store create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]CatalogRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT version, source, fetched_at
FROM catalog_versions
ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("catalog sqlite store list: %w", err)
	}
	defer rows.Close()

	var records []CatalogRecord
	for rows.Next() {
		rec, err := scanCatalogRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog sqlite store list rows: %w", err)
	}
	return records, nil
}

func (s *SQLiteStore) Get(ctx context.Context, version string) (CatalogRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT version, source, fetched_at
FROM catalog_versions
WHERE version = ?`, version)

	rec, err := scanCatalogRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CatalogRecord{}, false, nil
		}
		return CatalogRecord{}, false, err
	}
	return rec, true, nil
}

func (s *SQLiteStore) Latest(ctx context.Context) (CatalogRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT version, source, fetched_at
FROM catalog_versions
ORDER BY seq DESC
LIMIT 1`)

	rec, err := scanCatalogRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CatalogRecord{}, false, nil
		}
		return CatalogRecord{}, false, err
	}
	return rec, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, rec CatalogRecord) error {
	if rec.FetchedAt.IsZero() {
		rec.FetchedAt = time.Now().UTC()
	}
	source := []byte(rec.Source)
	if len(source) == 0 {
		source = []byte(`{}`)
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO catalog_versions (version, source, fetched_at)
VALUES (?, ?, ?)`,
		rec.Version,
		source,
		rec.FetchedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: catalog_versions.version") {
			return ErrCatalogVersionExists
		}
		return fmt.Errorf("catalog sqlite store put: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, version string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM catalog_versions WHERE version = ?`, version)
	if err != nil {
		return fmt.Errorf("catalog sqlite store delete: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("catalog sqlite store delete affected rows: %w", err)
	}
	if affected == 0 {
		return ErrCatalogVersionNotFound
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type catalogScanner interface {
	Scan(dest ...any) error
}

func scanCatalogRecord(scanner catalogScanner) (CatalogRecord, error) {
	var (
		version   string
		sourceRaw []byte
		fetchedAt string
	)
	if err := scanner.Scan(&version, &sourceRaw, &fetchedAt); err != nil {
		return CatalogRecord{}, err
	}

	fetched, err := time.Parse(time.RFC3339Nano, fetchedAt)
	if err != nil {
		return CatalogRecord{}, fmt.Errorf("catalog sqlite store parse fetched_at: %w", err)
	}

	return CatalogRecord{
		Version:   version,
		Source:    json.RawMessage(append([]byte(nil), sourceRaw...)),
		FetchedAt: fetched,
	}, nil
}

var _ CatalogStore = (*SQLiteStore)(nil)
