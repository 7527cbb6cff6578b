// Package offline is the persistent key-value cache backing the read API
// when the upstream master list is unreachable. Entries live in collections
// and carry their capture time, so readers can bound staleness without the
// store ever deleting data on their behalf.
package offline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	_ "modernc.org/sqlite"

	"github.com/rwrpulse/rwrpulse/internal/platform/logging"
	"github.com/rwrpulse/rwrpulse/internal/platform/resilience"
)

const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	collection  TEXT    NOT NULL,
	key         TEXT    NOT NULL,
	payload     TEXT    NOT NULL,
	captured_at INTEGER NOT NULL,
	PRIMARY KEY (collection, key)
);`

// Store is a collection-scoped KV cache over a single sqlite file.
//
// The connection opens lazily on first use. Initialization is collapsed so
// concurrent first readers share one open attempt; a failed attempt leaves
// the store uninitialized and the next call retries. Read failures of any
// kind degrade to a miss, never an error, because the cache is a fallback
// and must not take the caller down with it.
type Store struct {
	path   string
	logger *logging.Logger

	flight resilience.SingleFlight

	mu sync.RWMutex
	db *sqlx.DB

	now func() time.Time
}

func NewStore(path string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		path:   path,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Store) handle(ctx context.Context) (*sqlx.DB, error) {
	s.mu.RLock()
	db := s.db
	s.mu.RUnlock()
	if db != nil {
		return db, nil
	}

	res, err, _ := s.flight.Do("open", func() (any, error) {
		s.mu.RLock()
		existing := s.db
		s.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		opened, openErr := s.open(ctx)
		if openErr != nil {
			return nil, openErr
		}

		s.mu.Lock()
		s.db = opened
		s.mu.Unlock()
		return opened, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*sqlx.DB), nil
}

func (s *Store) open(ctx context.Context) (*sqlx.DB, error) {
	// sqlite creates the file but not its directory.
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create offline cache directory %s: %w", dir, err)
		}
	}

	dsn := s.path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := otelsqlx.Open("sqlite", dsn,
		otelsql.WithAttributes(semconv.DBSystemNameSQLite),
		otelsql.WithDBName("rwrpulse_cache"),
	)
	if err != nil {
		return nil, fmt.Errorf("open offline cache %s: %w", s.path, err)
	}

	// WAL handles concurrent readers; writes still serialize on one conn.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create offline cache schema: %w", err)
	}

	s.logger.InfoContext(ctx, "offline cache opened", "path", s.path)
	return db, nil
}

// Set stores value under collection/key, stamping the current capture time.
// An existing entry is replaced wholesale.
func (s *Store) Set(ctx context.Context, collection, key string, value any) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}

	payload, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry %s/%s: %w", collection, key, err)
	}

	const query = `
		INSERT INTO cache_entries (collection, key, payload, captured_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (collection, key) DO UPDATE SET
			payload = excluded.payload,
			captured_at = excluded.captured_at`

	if _, err := db.ExecContext(ctx, query, collection, key, string(payload), s.now().UnixMilli()); err != nil {
		return fmt.Errorf("write cache entry %s/%s: %w", collection, key, err)
	}
	return nil
}

// Get loads collection/key into out regardless of entry age. It reports
// whether out was populated; every failure mode is a miss.
func (s *Store) Get(ctx context.Context, collection, key string, out any) bool {
	return s.getWithAge(ctx, collection, key, 0, out)
}

// GetWithAge loads collection/key into out only when the entry was captured
// within maxAge. An expired entry is a miss but stays on disk; a later read
// with a looser bound may still want it.
func (s *Store) GetWithAge(ctx context.Context, collection, key string, maxAge time.Duration, out any) bool {
	if maxAge <= 0 {
		return false
	}
	return s.getWithAge(ctx, collection, key, maxAge, out)
}

func (s *Store) getWithAge(ctx context.Context, collection, key string, maxAge time.Duration, out any) bool {
	db, err := s.handle(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "offline cache unavailable, treating read as miss", "collection", collection, "key", key, "error", err)
		return false
	}

	var entry struct {
		Payload    string `db:"payload"`
		CapturedAt int64  `db:"captured_at"`
	}
	const query = `SELECT payload, captured_at FROM cache_entries WHERE collection = ? AND key = ?`
	if err := db.GetContext(ctx, &entry, query, collection, key); err != nil {
		return false
	}

	if maxAge > 0 {
		age := s.now().Sub(time.UnixMilli(entry.CapturedAt))
		if age > maxAge {
			return false
		}
	}

	if err := sonic.Unmarshal([]byte(entry.Payload), out); err != nil {
		s.logger.WarnContext(ctx, "offline cache entry is corrupt, treating read as miss", "collection", collection, "key", key, "error", err)
		return false
	}
	return true
}

// GetAll returns every payload in a collection keyed by entry key. Failures
// degrade to an empty map.
func (s *Store) GetAll(ctx context.Context, collection string) map[string][]byte {
	out := map[string][]byte{}

	db, err := s.handle(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "offline cache unavailable, treating scan as empty", "collection", collection, "error", err)
		return out
	}

	var rows []struct {
		Key     string `db:"key"`
		Payload string `db:"payload"`
	}
	const query = `SELECT key, payload FROM cache_entries WHERE collection = ? ORDER BY key`
	if err := db.SelectContext(ctx, &rows, query, collection); err != nil {
		s.logger.WarnContext(ctx, "offline cache scan failed, treating as empty", "collection", collection, "error", err)
		return out
	}

	for _, row := range rows {
		out[row.Key] = []byte(row.Payload)
	}
	return out
}

// Delete removes one entry. Deleting an absent entry is not an error.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM cache_entries WHERE collection = ? AND key = ?`, collection, key); err != nil {
		return fmt.Errorf("delete cache entry %s/%s: %w", collection, key, err)
	}
	return nil
}

// Clear drops every entry in one collection.
func (s *Store) Clear(ctx context.Context, collection string) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM cache_entries WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("clear cache collection %s: %w", collection, err)
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
