package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/namelens/domainwatch/internal/config"
)

const (
	driverLibsql = "libsql"
	driverFile   = "file"

	memoryDSN         = ":memory:"
	busyTimeoutMillis = 5000
)

// Store is a libsql connection holding the snapshots table.
type Store struct {
	DB     *sql.DB
	driver string
}

// Open connects to the database named by cfg: a remote libsql URL, or a
// local file or in-memory database.
func Open(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	if driver := strings.TrimSpace(cfg.Driver); driver != "" && driver != driverLibsql {
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	dsn, err := resolveDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverLibsql, dsn)
	if err != nil {
		return nil, fmt.Errorf("open libsql store: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping libsql store: %w", err)
	}
	if isLocalDSN(dsn) {
		if err := tuneLocal(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &Store{DB: db, driver: driverLibsql}, nil
}

func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

func (s *Store) Driver() string {
	if s == nil {
		return ""
	}
	return s.driver
}

// tuneLocal limits an embedded database to one connection with WAL
// journaling, since the monitor loop and the status server share it.
// An in-memory database exists per connection, so it needs the same pool.
func tuneLocal(ctx context.Context, db *sql.DB) error {
	db.SetMaxOpenConns(1)

	// Both PRAGMAs return a row, and libsql rejects Exec for them.
	var mode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode=WAL").Scan(&mode); err != nil {
		return fmt.Errorf("set journal mode: %w", err)
	}
	var timeout int
	pragma := fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeoutMillis)
	if err := db.QueryRowContext(ctx, pragma).Scan(&timeout); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	return nil
}

func isLocalDSN(dsn string) bool {
	return dsn == memoryDSN || strings.HasPrefix(dsn, "file:")
}

// resolveDSN turns the store config into a libsql DSN. A URL wins over a
// path and receives the auth token; a bare path becomes a file: DSN and
// has its directory created.
func resolveDSN(cfg config.StoreConfig) (string, error) {
	if raw := strings.TrimSpace(cfg.URL); raw != "" {
		return withAuthToken(raw, strings.TrimSpace(cfg.AuthToken))
	}

	path := strings.TrimSpace(cfg.Path)
	switch {
	case path == "":
		return "", errors.New("store path or url is required")
	case path == memoryDSN, strings.HasPrefix(path, "libsql:"):
		return path, nil
	case strings.HasPrefix(path, "file:"):
		parsed, err := url.Parse(path)
		if err != nil {
			return "", fmt.Errorf("invalid store path: %w", err)
		}
		local := parsed.Path
		if local == "" {
			local = parsed.Opaque
		}
		return path, mkdirFor(strings.TrimPrefix(local, "//"))
	default:
		return "file:" + filepath.Clean(path), mkdirFor(path)
	}
}

func withAuthToken(raw, token string) (string, error) {
	if token == "" {
		return raw, nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid store url: %w", err)
	}
	query := parsed.Query()
	if query.Get("authToken") != "" {
		return raw, nil
	}
	query.Set("authToken", token)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// mkdirFor creates the parent directory of a database file.
func mkdirFor(path string) error {
	dir := filepath.Dir(filepath.Clean(path))
	if path == "" || dir == "." || dir == string(filepath.Separator) {
		return nil
	}
	// #nosec G301 -- shared data directory
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	return nil
}
