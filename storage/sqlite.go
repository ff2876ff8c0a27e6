package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "github.com/CrazyForks/tiny-svg/log"

	_ "modernc.org/sqlite"
)

// SQLiteFileName is the database created under the storage root.
const SQLiteFileName = "plugin-data.sqlite"

const opTimeout = 5 * time.Second

// SQLite keeps blobs in a single-table SQLite document, one row per
// (workspace, key).
type SQLite struct {
	db        *sql.DB
	workspace string
	log       *slog.Logger
}

// OpenSQLite opens (or creates) the database under root. A root ending in
// ".sqlite" or ".db" is used as the database path itself; ":memory:" opens a
// private in-memory database.
func OpenSQLite(root, workspace string) (*SQLite, error) {
	if strings.TrimSpace(workspace) == "" {
		workspace = "default"
	}
	l := applog.WithComponent("storage").With(slog.String("backend", "sqlite"))

	dsn, path, err := sqliteDSN(root)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if path != "" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}
	const ddl = `CREATE TABLE IF NOT EXISTS plugin_data (
		workspace  TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (workspace, key)
	);`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create plugin_data: %w", err)
	}

	l.Info("sqlite gateway ready", slog.String("path", path), slog.String("workspace", workspace))
	return &SQLite{db: db, workspace: workspace, log: l}, nil
}

func sqliteDSN(root string) (dsn, path string, err error) {
	root = strings.TrimSpace(root)
	switch {
	case root == "":
		return "", "", errors.New("storage root is required")
	case root == ":memory:":
		return "file::memory:", "", nil
	}
	path = root
	if ext := strings.ToLower(filepath.Ext(root)); ext != ".sqlite" && ext != ".db" {
		path = filepath.Join(root, SQLiteFileName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", "", fmt.Errorf("create storage dir: %w", err)
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path)), path, nil
}

func (s *SQLite) Read(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM plugin_data WHERE workspace = ? AND key = ?`, s.workspace, key).Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false
	case err != nil:
		s.log.Warn("read blob failed", slog.String("key", key), slog.Any("err", err))
		return "", false
	}
	return v, true
}

func (s *SQLite) Write(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `INSERT INTO plugin_data (workspace, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(workspace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.workspace, key, value, now)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLite) Close() error { return s.db.Close() }
