package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
	_ "modernc.org/sqlite"

	"github.com/NERVsystems/parkmcp/pkg/parking"
)

const (
	liteCreateCandidates = `
		CREATE TABLE IF NOT EXISTS parking_candidates (
			source_url   TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			address      TEXT NOT NULL,
			hourly_rate  REAL CHECK (hourly_rate IS NULL OR hourly_rate >= 0),
			hours        TEXT,
			neighborhood TEXT NOT NULL,
			updated_at   TEXT NOT NULL
		)`

	liteCreateFeatures = `
		CREATE TABLE IF NOT EXISTS parking_features (
			id           INTEGER PRIMARY KEY,
			latitude     REAL NOT NULL,
			longitude    REAL NOT NULL,
			name         TEXT,
			amenity      TEXT,
			source       TEXT NOT NULL,
			retrieved_at TEXT NOT NULL,
			confidence   REAL NOT NULL CHECK (confidence BETWEEN 0 AND 1),
			other_tags   TEXT NOT NULL DEFAULT '{}'
		)`

	liteUpsertCandidate = `
		INSERT INTO parking_candidates (source_url, name, address, hourly_rate, hours, neighborhood, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_url) DO UPDATE
		SET name = excluded.name,
			address = excluded.address,
			hourly_rate = excluded.hourly_rate,
			hours = excluded.hours,
			neighborhood = excluded.neighborhood,
			updated_at = excluded.updated_at`

	liteUpsertFeature = `
		INSERT INTO parking_features (id, latitude, longitude, name, amenity, source, retrieved_at, confidence, other_tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET latitude = excluded.latitude,
			longitude = excluded.longitude,
			name = excluded.name,
			amenity = excluded.amenity,
			source = excluded.source,
			retrieved_at = excluded.retrieved_at,
			confidence = excluded.confidence,
			other_tags = excluded.other_tags`

	liteSelectFeatures = `
		SELECT id, latitude, longitude, COALESCE(name, ''), COALESCE(amenity, ''),
			source, retrieved_at, confidence, other_tags
		FROM parking_features
		ORDER BY id`
)

// SQLiteStore is the embedded single-file persistence gateway, used for
// local development and tests.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLite opens (creating if needed) the database at path.
func NewSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection serializes writers and keeps :memory: databases
	// shared across calls.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("configure database: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established", "backend", "sqlite", "path", path)
	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store", "backend", "sqlite"),
	}, nil
}

// EnsureSchema creates both tables if they do not exist.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{liteCreateCandidates, liteCreateFeatures} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return &PersistenceError{Op: "ensure schema", Cause: err}
		}
	}
	return nil
}

func (s *SQLiteStore) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &PersistenceError{Op: op + ": begin", Cause: err}
	}

	finished := false
	defer func() {
		if finished {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("rollback failed", "op", op, "error", rbErr)
		}
	}()

	if err := fn(tx); err != nil {
		return &PersistenceError{Op: op, Cause: err}
	}

	finished = true
	if err := tx.Commit(); err != nil {
		return &PersistenceError{Op: op + ": commit", Cause: err}
	}
	return nil
}

// UpsertParkingCandidates writes all candidates in one transaction.
func (s *SQLiteStore) UpsertParkingCandidates(ctx context.Context, records []parking.Candidate) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	written := 0
	err := s.inTx(ctx, "upsert candidates", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, liteUpsertCandidate)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, c := range records {
			if _, err := stmt.ExecContext(ctx,
				c.SourceURL, c.Name, c.Address, c.HourlyRate, c.Hours, c.Neighborhood, now,
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
func (s *SQLiteStore) UpsertEnrichedFeatures(ctx context.Context, records []parking.Feature) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	written := 0
	err := s.inTx(ctx, "upsert features", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, liteUpsertFeature)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, f := range records {
			tags, err := encodeTags(f.OtherTags)
			if err != nil {
				return fmt.Errorf("feature %d: encode tags: %w", f.ID, err)
			}
			if _, err := stmt.ExecContext(ctx,
				f.ID, f.Latitude, f.Longitude, f.Name, f.Amenity, f.Source,
				f.RetrievedAt.UTC().Format(time.RFC3339Nano), f.Confidence, string(tags),
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
func (s *SQLiteStore) ReadAllEnrichedFeatures(ctx context.Context) (*geojson.FeatureCollection, error) {
	rows, err := s.db.QueryContext(ctx, liteSelectFeatures)
	if err != nil {
		return nil, &PersistenceError{Op: "read features", Cause: err}
	}
	defer rows.Close()

	var out []featureRow
	for rows.Next() {
		var (
			r         featureRow
			retrieved string
			tags      string
		)
		if err := rows.Scan(
			&r.ID, &r.Latitude, &r.Longitude, &r.Name, &r.Amenity,
			&r.Source, &retrieved, &r.Confidence, &tags,
		); err != nil {
			return nil, &PersistenceError{Op: "read features", Cause: err}
		}
		r.RetrievedAt, err = time.Parse(time.RFC3339Nano, retrieved)
		if err != nil {
			return nil, &PersistenceError{Op: "read features", Cause: fmt.Errorf("feature %d: retrieved_at: %w", r.ID, err)}
		}
		r.OtherTags = []byte(tags)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "read features", Cause: err}
	}

	return collection(out)
}

// Ping checks database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
