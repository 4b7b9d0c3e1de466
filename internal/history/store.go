// Package history persists a record of every successful dataset upload in a
// local SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Upload is one recorded dataset ingestion.
type Upload struct {
	ID              string    `json:"dataset_id"`
	Filename        string    `json:"filename"`
	Rows            int       `json:"n_rows"`
	Cols            int       `json:"n_cols"`
	NumericCols     int       `json:"numeric_cols"`
	CategoricalCols int       `json:"categorical_cols"`
	DateCols        int       `json:"date_cols"`
	BooleanCols     int       `json:"boolean_cols"`
	HasTimeSeries   bool      `json:"has_time_series"`
	HasGeographic   bool      `json:"has_geographic"`
	UploadedAt      time.Time `json:"uploaded_at"`
}

// Store wraps the SQLite connection. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// modernc's driver serializes writes per connection; one is enough here.
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS uploads (
	id               TEXT PRIMARY KEY,
	filename         TEXT NOT NULL,
	n_rows           INTEGER NOT NULL,
	n_cols           INTEGER NOT NULL,
	numeric_cols     INTEGER NOT NULL,
	categorical_cols INTEGER NOT NULL,
	date_cols        INTEGER NOT NULL,
	boolean_cols     INTEGER NOT NULL,
	has_time_series  INTEGER NOT NULL,
	has_geographic   INTEGER NOT NULL,
	uploaded_at      TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_uploads_uploaded_at ON uploads(uploaded_at DESC);
`)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Record inserts one upload row.
func (s *Store) Record(ctx context.Context, u Upload) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO uploads (id, filename, n_rows, n_cols, numeric_cols, categorical_cols,
	date_cols, boolean_cols, has_time_series, has_geographic, uploaded_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Filename, u.Rows, u.Cols, u.NumericCols, u.CategoricalCols,
		u.DateCols, u.BooleanCols, boolToInt(u.HasTimeSeries), boolToInt(u.HasGeographic),
		u.UploadedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record upload: %w", err)
	}
	return nil
}

// Recent returns up to limit uploads, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Upload, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, filename, n_rows, n_cols, numeric_cols, categorical_cols,
	date_cols, boolean_cols, has_time_series, has_geographic, uploaded_at
FROM uploads ORDER BY uploaded_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query uploads: %w", err)
	}
	defer rows.Close()

	var out []Upload
	for rows.Next() {
		var u Upload
		var ts string
		var hasTS, hasGeo int
		if err := rows.Scan(&u.ID, &u.Filename, &u.Rows, &u.Cols, &u.NumericCols,
			&u.CategoricalCols, &u.DateCols, &u.BooleanCols, &hasTS, &hasGeo, &ts); err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		u.HasTimeSeries = hasTS != 0
		u.HasGeographic = hasGeo != 0
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			u.UploadedAt = t
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate uploads: %w", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
