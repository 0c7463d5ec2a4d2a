package thresholds

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Registers the pure-Go "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/oshokin/siren-guard/internal/domain/siren"
)

// SQLiteRepository stores each bound as a key/value row.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens (and creates if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open thresholds database: %w", err)
	}

	// A single connection keeps writers serialised inside the process.
	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS thresholds (
			name       TEXT PRIMARY KEY,
			value      DOUBLE NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create thresholds table: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Close releases the database handle.
func (r *SQLiteRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}

	return r.db.Close()
}

// Load reads all four bounds.
func (r *SQLiteRepository) Load(ctx context.Context) (siren.ThresholdSet, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, value FROM thresholds`)
	if err != nil {
		return siren.ThresholdSet{}, fmt.Errorf("query thresholds: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var (
		set   siren.ThresholdSet
		found = make(map[siren.ThresholdName]bool, len(siren.ThresholdNames))
	)

	for rows.Next() {
		var (
			name  string
			value float64
		)

		if err = rows.Scan(&name, &value); err != nil {
			return siren.ThresholdSet{}, fmt.Errorf("scan threshold: %w", err)
		}

		key, err := siren.ParseThresholdName(name)
		if err != nil {
			// Rows from a newer schema are ignored.
			continue
		}

		set, _ = set.With(key, value) //nolint:errcheck // Key is validated above.
		found[key] = true
	}

	if err = rows.Err(); err != nil {
		return siren.ThresholdSet{}, fmt.Errorf("iterate thresholds: %w", err)
	}

	switch len(found) {
	case 0:
		return siren.ThresholdSet{}, ErrNotFound
	case len(siren.ThresholdNames):
		return set, nil
	default:
		return siren.ThresholdSet{}, ErrIncomplete
	}
}

// Save upserts all four bounds in one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, set siren.ThresholdSet) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin thresholds transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO thresholds (name, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("prepare threshold upsert: %w", err)
	}

	defer func() {
		_ = stmt.Close()
	}()

	now := time.Now().UTC()
	for name, value := range set.Map() {
		if _, err = stmt.ExecContext(ctx, string(name), value, now); err != nil {
			return fmt.Errorf("upsert threshold %s: %w", name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit thresholds: %w", err)
	}

	return nil
}
