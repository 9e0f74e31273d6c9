package files

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const ackSchema = `CREATE TABLE IF NOT EXISTS acks (
	key TEXT PRIMARY KEY,
	acknowledged_at INTEGER NOT NULL
)`

// SQLiteAckStore keeps flags in a SQLite table.
type SQLiteAckStore struct {
	sqlDB *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteAckStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(ackSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create acks table: %w", err)
	}
	return &SQLiteAckStore{sqlDB: sqlDB}, nil
}

func (s *SQLiteAckStore) Acknowledged(ctx context.Context, key string) (bool, error) {
	var n int
	err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(1) FROM acks WHERE key = ?`, key).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query ack %q: %w", key, err)
	}
	return n > 0, nil
}

func (s *SQLiteAckStore) SetAcknowledged(ctx context.Context, key string) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO acks (key, acknowledged_at) VALUES (?, ?) ON CONFLICT(key) DO NOTHING`,
		key, time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("insert ack %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteAckStore) Reset(ctx context.Context, key string) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM acks WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete ack %q: %w", key, err)
	}
	return nil
}

// Close closes the SQLite handle.
func (s *SQLiteAckStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}
