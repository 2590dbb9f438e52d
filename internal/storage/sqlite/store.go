// Package sqlite implements the catalog stores on a SQLite database file.
//
// A Store owns one *sql.DB pool for its whole life. Every method runs a single
// parameterized statement built with squirrel; the connection is taken from
// the pool for that statement and returned on every path.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/bookshelf/internal/catalog"
	"github.com/teemow/bookshelf/internal/instrumentation"
)

var (
	_ catalog.BookStore = (*Store)(nil)
	_ catalog.UserStore = (*Store)(nil)
)

const (
	// DefaultPath is the database file used when none is configured.
	DefaultPath = "database.db"

	// DefaultMaxOpenConns bounds the pool. SQLite serializes writers, so a
	// small pool is enough.
	DefaultMaxOpenConns = 4

	busyTimeoutMillis = 5000
	connMaxIdleTime   = 5 * time.Minute
)

// Config configures Open.
type Config struct {
	// Path is the database file. Parent directories are created.
	Path string

	// MaxOpenConns caps the connection pool (default: DefaultMaxOpenConns).
	MaxOpenConns int

	// Metrics records one storage_operations_total sample per statement.
	// Optional.
	Metrics *instrumentation.Metrics
}

// Store is the SQLite implementation of catalog.BookStore and catalog.UserStore.
type Store struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	metrics *instrumentation.Metrics
}

// Open opens the database, applies pending migrations and verifies the
// connection.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// SQLite decodes %XX escapes in URI filenames, so ? and # stay part of the path.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=1&_journal_mode=WAL",
		(&url.URL{Path: path}).EscapedPath(), busyTimeoutMillis)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = DefaultMaxOpenConns
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	return &Store{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
		metrics: cfg.Metrics,
	}, nil
}

// Ping checks that the database still answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// observe starts a span for one statement and returns the function that ends
// it, recording the outcome in *errp.
func (s *Store) observe(ctx context.Context, table, operation string, attrs ...attribute.KeyValue) (context.Context, func(errp *error)) {
	start := time.Now()
	ctx, span := instrumentation.StartStorageSpan(ctx, table, operation, attrs...)
	return ctx, func(errp *error) {
		status := instrumentation.StatusSuccess
		if *errp != nil {
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, *errp)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		span.End()
		if s.metrics != nil {
			s.metrics.RecordStorageOperation(ctx, table, operation, status, time.Since(start))
		}
	}
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}
