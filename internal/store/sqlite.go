package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // register sqlite driver
)

// SQLite persists values in a single kv table
type SQLite struct {
	notifier
	db *sql.DB
}

// OpenSQLite opens or creates the database at dbPath
func OpenSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrap(err, "creating store dir")
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrap(err, "opening store db")
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating schema")
	}

	return &SQLite{db: db}, nil
}

// Close closes the database
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Get reads the rows for keys that exist
func (s *SQLite) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM kv WHERE key IN ("+placeholders+")", args...)
	if err != nil {
		return nil, errors.Wrap(err, "reading keys")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, errors.Wrap(err, "scanning row")
		}
		out[key] = json.RawMessage(value)
	}
	return out, rows.Err()
}

// Set upserts every value in one transaction
func (s *SQLite) Set(ctx context.Context, values map[string]json.RawMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning write")
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	if err != nil {
		return errors.Wrap(err, "preparing upsert")
	}
	defer func() { _ = stmt.Close() }()

	for k, v := range values {
		if !json.Valid(v) {
			return errors.Errorf("value for %q is not valid JSON", k)
		}
		if _, err := stmt.ExecContext(ctx, k, string(v), now); err != nil {
			return errors.Wrapf(err, "writing %q", k)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "committing write")
	}

	s.notify(values)
	return nil
}
