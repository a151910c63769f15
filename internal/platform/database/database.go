package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/phrazzld/tasksync/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"       // registers the "pgx" driver
	_ "github.com/ncruces/go-sqlite3/driver" // registers the "sqlite3" driver
	_ "github.com/ncruces/go-sqlite3/embed"  // embeds the SQLite build
)

// Supported values of config.DatabaseConfig.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// sqliteBusyTimeout bounds how long a writer waits on a locked database.
const sqliteBusyTimeout = 5 * time.Second

// defaultSQLiteConns keeps a few readers available while writes serialize on
// the immediate transaction lock.
const defaultSQLiteConns = 4

// Open establishes a connection for cfg and configures its pool.
// For SQLite the parent directory of the database file is created if needed.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With(slog.String("component", "database"), slog.String("driver", cfg.Driver))

	driverName, dsn, err := dataSource(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	switch cfg.Driver {
	case DriverSQLite:
		conns := cfg.MaxOpenConns
		if conns == 0 {
			conns = defaultSQLiteConns
		}
		db.SetMaxOpenConns(conns)
		db.SetMaxIdleConns(conns)
	default:
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		} else {
			db.SetMaxOpenConns(10)
		}
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("database connection established", slog.String("url", MaskURL(cfg.URL)))
	return db, nil
}

// dataSource resolves the database/sql driver name and DSN for cfg.
func dataSource(cfg config.DatabaseConfig) (string, string, error) {
	switch cfg.Driver {
	case DriverSQLite:
		dsn, err := sqliteDSN(cfg.URL)
		return "sqlite3", dsn, err
	case DriverPostgres:
		return "pgx", cfg.URL, nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// sqliteDSN turns a file path (or file: URI) into a URI carrying the pragmas
// every connection needs. Plain paths are taken literally; a file: URI is
// unescaped and its query replaced.
func sqliteDSN(raw string) (string, error) {
	path := raw
	if rest, ok := strings.CutPrefix(raw, "file:"); ok {
		rest, _, _ = strings.Cut(rest, "?")
		unescaped, err := url.PathUnescape(rest)
		if err != nil {
			return "", fmt.Errorf("invalid sqlite URI: %w", err)
		}
		path = unescaped
	}
	if path == "" {
		return "", fmt.Errorf("sqlite database path is empty")
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	params := url.Values{}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", sqliteBusyTimeout.Milliseconds()))
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "journal_mode(wal)")
	params.Add("_pragma", "synchronous(normal)")
	params.Set("_txlock", "immediate")

	u := url.URL{Scheme: "file", Opaque: escapePath(path), RawQuery: params.Encode()}
	return u.String(), nil
}

// escapePath percent-encodes each segment so that '?', '#' and '%' in file
// names survive URI parsing.
func escapePath(path string) string {
	segments := strings.Split(filepath.ToSlash(path), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

// MaskURL masks the password in a database URL for safe logging.
// Plain file paths are returned unchanged.
func MaskURL(dbURL string) string {
	parsedURL, err := url.Parse(dbURL)
	if err != nil {
		return "invalid-url"
	}

	if parsedURL.User != nil {
		if _, hasPassword := parsedURL.User.Password(); hasPassword {
			parsedURL.User = url.UserPassword(parsedURL.User.Username(), "****")
		}
		return parsedURL.String()
	}

	return dbURL
}
