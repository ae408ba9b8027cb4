// Package store persists parking records and serves them back as GeoJSON.
//
// Each write call runs in its own transaction: either every record of the
// call is stored or none is. Concurrent callers are isolated by the
// connection pool and the database's conflict resolution, not by locks.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/NERVsystems/parkmcp/pkg/parking"
)

// Store is the persistence gateway used by the tools.
type Store interface {
	// EnsureSchema creates the tables when missing. Safe to call repeatedly.
	EnsureSchema(ctx context.Context) error

	// UpsertParkingCandidates inserts or overwrites candidates keyed on
	// source URL and returns the number written.
	UpsertParkingCandidates(ctx context.Context, records []parking.Candidate) (int, error)

	// UpsertEnrichedFeatures inserts or overwrites features keyed on id and
	// returns the number written. Stored tags are replaced, not merged.
	UpsertEnrichedFeatures(ctx context.Context, records []parking.Feature) (int, error)

	// ReadAllEnrichedFeatures returns every stored feature as a point.
	ReadAllEnrichedFeatures(ctx context.Context) (*geojson.FeatureCollection, error)

	Ping(ctx context.Context) error
	Close() error
}

// PersistenceError wraps a failed database operation. Any write that
// returns it has been rolled back.
type PersistenceError struct {
	Op    string
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Cause)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// Open connects to the database named by dsn. postgres:// and
// postgresql:// URLs (or key=value DSNs with host=) select PostgreSQL;
// sqlite:// URLs and file: URIs select the embedded SQLite backend.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"),
		strings.Contains(dsn, "host="):
		return NewPostgres(ctx, dsn, logger)
	case strings.HasPrefix(dsn, "sqlite://"):
		return NewSQLite(ctx, strings.TrimPrefix(dsn, "sqlite://"), logger)
	case strings.HasPrefix(dsn, "file:"):
		return NewSQLite(ctx, dsn, logger)
	case dsn == "":
		return nil, fmt.Errorf("database connection string is empty")
	}
	return nil, fmt.Errorf("unsupported database connection string scheme")
}
