package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"dbc/pkg/common"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName   = "sqlite"
	memoryPrefix = "memory:"
)

// Store is a handle on one SQLite database. Every container built on the same
// Store shares its connection pool, and containers on stores with the same
// Identity share size-cache entries.
type Store struct {
	db       *sql.DB
	dsn      string
	identity string
	log      *slog.Logger
}

type options struct {
	busyTimeoutMs int
	logger        *slog.Logger
}

type Option func(*options)

// WithBusyTimeout sets how long a connection waits on a locked database.
func WithBusyTimeout(ms int) Option {
	return func(o *options) { o.busyTimeoutMs = ms }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Open connects to the database named by dsn. dsn is a file path, a
// "file:" URI or ":memory:". WAL journaling and the busy timeout are applied
// to every pooled connection.
func Open(dsn string, opts ...Option) (*Store, error) {
	o := options{busyTimeoutMs: 5000, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, common.Connectivity("open", "empty dsn", nil)
	}

	identity, conn := resolve(dsn)
	conn = withPragmas(conn, o.busyTimeoutMs)

	db, err := sql.Open(driverName, conn)
	if err != nil {
		return nil, common.Connectivity("open", fmt.Sprintf("cannot open %s", dsn), err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, common.Connectivity("open", fmt.Sprintf("cannot reach %s", dsn), err)
	}

	o.logger.Debug("store opened", "component", "storage", "identity", identity)
	return &Store{db: db, dsn: dsn, identity: identity, log: o.logger}, nil
}

// resolve returns the store identity and the connection string to hand to
// the driver. Private in-memory databases get a unique shared-cache name so
// that every pooled connection sees the same data.
func resolve(dsn string) (identity, conn string) {
	path := dsn
	if strings.HasPrefix(path, "file:") {
		path = strings.TrimPrefix(path, "file:")
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	if path == "" || path == ":memory:" || strings.Contains(dsn, "mode=memory") {
		id := uuid.NewString()
		if path == ":memory:" || path == "" {
			return memoryPrefix + id, fmt.Sprintf("file:dbc-%s?mode=memory&cache=shared", id)
		}
		return memoryPrefix + path, dsn
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return abs, dsn
}

func withPragmas(conn string, busyTimeoutMs int) string {
	sep := "?"
	if strings.Contains(conn, "?") {
		sep = "&"
	}
	return conn + sep + fmt.Sprintf(
		"_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		busyTimeoutMs,
	)
}

// DB exposes the pooled connection. Callers must not close it.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Identity names the physical database. Two stores opened on the same file
// report the same identity.
func (s *Store) Identity() string {
	return s.identity
}

// InMemory reports whether the database lives in shared-cache memory. Such
// a database locks whole tables, so a reader holding a transaction blocks
// every writer in the pool.
func (s *Store) InMemory() bool {
	return strings.HasPrefix(s.identity, memoryPrefix)
}

func (s *Store) DSN() string {
	return s.dsn
}

func (s *Store) Logger() *slog.Logger {
	return s.log
}

func (s *Store) Close() error {
	return s.db.Close()
}

// TableExists reports whether a table with the given name is present.
// SQLite table names are case-insensitive.
func (s *Store) TableExists(name string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ? COLLATE NOCASE", name,
	).Scan(&n)
	if err != nil {
		return false, common.Connectivity("table exists", name, err)
	}
	return n > 0, nil
}

// Truncate removes every row of table.
func (s *Store) Truncate(table string) error {
	if err := ValidTableName(table); err != nil {
		return err
	}
	if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
		return common.Connectivity("truncate", table, err)
	}
	return nil
}
