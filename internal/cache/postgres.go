package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"github.com/sells-group/rapport-api/internal/model"
)

// PostgresDB is the pool surface the store needs; satisfied by
// *pgxpool.Pool and by pgxmock in tests.
type PostgresDB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps cache entries in a shared rapport_cache table so
// multiple instances can serve each other's hits.
type PostgresStore struct {
	db PostgresDB
}

// NewPostgresStore creates a store over an existing pool.
func NewPostgresStore(db PostgresDB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Init creates the cache table if it does not exist.
func (s *PostgresStore) Init(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS rapport_cache (
			zip       text primary key,
			payload   jsonb not null,
			cached_at timestamptz not null
		)`)
	if err != nil {
		return eris.Wrap(err, "cache: create table")
	}
	return nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, zip string) (*model.RapportResponse, time.Time, bool, error) {
	var raw []byte
	var storedAt time.Time

	row := s.db.QueryRow(ctx, "SELECT payload, cached_at FROM rapport_cache WHERE zip = $1", zip)
	if err := row.Scan(&raw, &storedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, time.Time{}, false, nil
		}
		return nil, time.Time{}, false, eris.Wrap(err, "cache: read entry")
	}

	var payload model.RapportResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, time.Time{}, false, eris.Wrap(err, "cache: decode entry")
	}
	return &payload, storedAt, true, nil
}

// Set implements Store.
func (s *PostgresStore) Set(ctx context.Context, zip string, payload *model.RapportResponse, at time.Time) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "cache: encode entry")
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO rapport_cache (zip, payload, cached_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (zip) DO UPDATE SET
			payload = EXCLUDED.payload,
			cached_at = EXCLUDED.cached_at`,
		zip, raw, at,
	)
	if err != nil {
		return eris.Wrap(err, "cache: write entry")
	}
	return nil
}
