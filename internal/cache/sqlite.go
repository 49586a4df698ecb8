package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/sells-group/rapport-api/internal/model"
)

// SQLiteStore keeps cache entries in a local SQLite file so they survive
// process restarts on a single host.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the database at path and ensures the
// cache table exists.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "cache: open sqlite")
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS rapport_cache (
			zip       text primary key,
			payload   text not null,
			cached_at integer not null
		)`)
	if err != nil {
		return nil, eris.Wrap(err, "cache: create sqlite table")
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, zip string) (*model.RapportResponse, time.Time, bool, error) {
	var raw string
	var unix int64

	row := s.db.QueryRowContext(ctx, "SELECT payload, cached_at FROM rapport_cache WHERE zip = ?", zip)
	if err := row.Scan(&raw, &unix); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, false, nil
		}
		return nil, time.Time{}, false, eris.Wrap(err, "cache: read sqlite entry")
	}

	var payload model.RapportResponse
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, time.Time{}, false, eris.Wrap(err, "cache: decode sqlite entry")
	}
	return &payload, time.Unix(unix, 0), true, nil
}

// Set implements Store.
func (s *SQLiteStore) Set(ctx context.Context, zip string, payload *model.RapportResponse, at time.Time) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "cache: encode sqlite entry")
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO rapport_cache (zip, payload, cached_at) VALUES (?, ?, ?)",
		zip, string(raw), at.Unix(),
	)
	if err != nil {
		return eris.Wrap(err, "cache: write sqlite entry")
	}
	return nil
}
