package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb/geojson"

	"github.com/NERVsystems/parkmcp/pkg/parking"
)

const (
	pgCreateCandidates = `
		CREATE TABLE IF NOT EXISTS parking_candidates (
			source_url   TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			address      TEXT NOT NULL,
			hourly_rate  NUMERIC(10, 2) CHECK (hourly_rate IS NULL OR hourly_rate >= 0),
			hours        TEXT,
			neighborhood TEXT NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`

	pgCreateFeatures = `
		CREATE TABLE IF NOT EXISTS parking_features (
			id           BIGINT PRIMARY KEY,
			latitude     DOUBLE PRECISION NOT NULL,
			longitude    DOUBLE PRECISION NOT NULL,
			name         TEXT,
			amenity      TEXT,
			source       TEXT NOT NULL,
			retrieved_at TIMESTAMPTZ NOT NULL,
			confidence   DOUBLE PRECISION NOT NULL CHECK (confidence BETWEEN 0 AND 1),
			other_tags   JSONB NOT NULL DEFAULT '{}'::jsonb
		)`

	pgUpsertCandidate = `
		INSERT INTO parking_candidates (source_url, name, address, hourly_rate, hours, neighborhood)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (source_url) DO UPDATE
		SET name = EXCLUDED.name,
			address = EXCLUDED.address,
			hourly_rate = EXCLUDED.hourly_rate,
			hours = EXCLUDED.hours,
			neighborhood = EXCLUDED.neighborhood,
			updated_at = now()`

	pgUpsertFeature = `
		INSERT INTO parking_features (id, latitude, longitude, name, amenity, source, retrieved_at, confidence, other_tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)
		ON CONFLICT (id) DO UPDATE
		SET latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			name = EXCLUDED.name,
			amenity = EXCLUDED.amenity,
			source = EXCLUDED.source,
			retrieved_at = EXCLUDED.retrieved_at,
			confidence = EXCLUDED.confidence,
			other_tags = EXCLUDED.other_tags`

	pgSelectFeatures = `
		SELECT id, latitude, longitude, COALESCE(name, ''), COALESCE(amenity, ''),
			source, retrieved_at, confidence, other_tags
		FROM parking_features
		ORDER BY id`
)

// pgxPool is the subset of *pgxpool.Pool the store uses.
type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore is the PostgreSQL persistence gateway.
type PostgresStore struct {
	pool   pgxPool
	logger *slog.Logger
}

// NewPostgres creates the connection pool and verifies connectivity.
func NewPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established", "backend", "postgres", "max_conns", poolConfig.MaxConns)
	return newPostgresWithPool(pool, logger), nil
}

func newPostgresWithPool(pool pgxPool, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		logger: logger.With("component", "store", "backend", "postgres"),
	}
}

// EnsureSchema creates both tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{pgCreateCandidates, pgCreateFeatures} {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return &PersistenceError{Op: "ensure schema", Cause: err}
		}
	}
	return nil
}

// inTx runs fn inside one transaction. The transaction is rolled back unless
// fn succeeds and the commit is attempted; a failed commit closes the
// connection, so the pooled connection is released on every path.
func (s *PostgresStore) inTx(ctx context.Context, op string, fn func(tx pgx.Tx) error) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &PersistenceError{Op: op + ": begin", Cause: err}
	}

	finished := false
	defer func() {
		if finished {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.logger.Error("rollback failed", "op", op, "error", rbErr)
		}
	}()

	if err := fn(tx); err != nil {
		return &PersistenceError{Op: op, Cause: err}
	}

	finished = true
	if err := tx.Commit(ctx); err != nil {
		return &PersistenceError{Op: op + ": commit", Cause: err}
	}
	return nil
}

// UpsertParkingCandidates writes all candidates in one transaction.
func (s *PostgresStore) UpsertParkingCandidates(ctx context.Context, records []parking.Candidate) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	written := 0
	err := s.inTx(ctx, "upsert candidates", func(tx pgx.Tx) error {
		for _, c := range records {
			if _, err := tx.Exec(ctx, pgUpsertCandidate,
				c.SourceURL, c.Name, c.Address, c.HourlyRate, c.Hours, c.Neighborhood,
			); err != nil {
				return fmt.Errorf("candidate %s: %w", c.SourceURL, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("upserted parking candidates", "count", written)
	return written, nil
}

// UpsertEnrichedFeatures writes all features in one transaction.
func (s *PostgresStore) UpsertEnrichedFeatures(ctx context.Context, records []parking.Feature) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	written := 0
	err := s.inTx(ctx, "upsert features", func(tx pgx.Tx) error {
		for _, f := range records {
			tags, err := encodeTags(f.OtherTags)
			if err != nil {
				return fmt.Errorf("feature %d: encode tags: %w", f.ID, err)
			}
			if _, err := tx.Exec(ctx, pgUpsertFeature,
				f.ID, f.Latitude, f.Longitude, f.Name, f.Amenity,
				f.Source, f.RetrievedAt, f.Confidence, string(tags),
			); err != nil {
				return fmt.Errorf("feature %d: %w", f.ID, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("upserted parking features", "count", written)
	return written, nil
}

// ReadAllEnrichedFeatures returns every stored feature ordered by id.
func (s *PostgresStore) ReadAllEnrichedFeatures(ctx context.Context) (*geojson.FeatureCollection, error) {
	rows, err := s.pool.Query(ctx, pgSelectFeatures)
	if err != nil {
		return nil, &PersistenceError{Op: "read features", Cause: err}
	}
	defer rows.Close()

	var out []featureRow
	for rows.Next() {
		var r featureRow
		if err := rows.Scan(
			&r.ID, &r.Latitude, &r.Longitude, &r.Name, &r.Amenity,
			&r.Source, &r.RetrievedAt, &r.Confidence, &r.OtherTags,
		); err != nil {
			return nil, &PersistenceError{Op: "read features", Cause: err}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "read features", Cause: err}
	}

	return collection(out)
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases every pooled connection.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
