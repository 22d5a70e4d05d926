//go:build cgo
// +build cgo

package cache

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/carbocation/pfx"
	"github.com/jmoiron/sqlx"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS documents (
	key TEXT PRIMARY KEY NOT NULL,
	body BLOB NOT NULL,
	stored_at TIMESTAMP NOT NULL
)`

// SQLiteStore keeps all documents in a single SQLite table, which is handier
// than thousands of small files when the cache is copied between machines.
type SQLiteStore struct {
	db *sqlx.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	// URI filenames have to begin with 'file:'; see
	// https://www.sqlite.org/c3ref/open.html
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	// One connection keeps the single-writer model of the file driver.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, pfx.Err(err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Driver() Driver { return DriverSQLite }

func (s *SQLiteStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := validKey(key); err != nil {
		return false, err
	}

	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM documents WHERE key = ?", key); err != nil {
		return false, pfx.Err(err)
	}

	return n > 0, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}

	var body []byte
	err := s.db.GetContext(ctx, &body, "SELECT body FROM documents WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	return body, pfx.Err(err)
}

func (s *SQLiteStore) Put(ctx context.Context, key string, body []byte) error {
	if err := validKey(key); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO documents (key, body, stored_at) VALUES (?, ?, ?)",
		key, body, time.Now().UTC())

	return pfx.Err(err)
}

func (s *SQLiteStore) Purge(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM documents")
	return pfx.Err(err)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
