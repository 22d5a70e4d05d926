//go:build !cgo
// +build !cgo

package cache

import (
	"context"
	"fmt"
)

// SQLiteStore is unavailable without cgo; github.com/mattn/go-sqlite3 needs it.
type SQLiteStore struct{}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	return nil, fmt.Errorf("cache: %s: the sqlite cache requires a cgo-enabled build", path)
}

func (s *SQLiteStore) Driver() Driver { return DriverSQLite }

func (s *SQLiteStore) Exists(context.Context, string) (bool, error) { return false, nil }

func (s *SQLiteStore) Get(context.Context, string) ([]byte, error) { return nil, ErrNotFound }

func (s *SQLiteStore) Put(context.Context, string, []byte) error {
	return fmt.Errorf("cache: the sqlite cache requires a cgo-enabled build")
}

func (s *SQLiteStore) Purge(context.Context) error { return nil }

func (s *SQLiteStore) Close() error { return nil }
