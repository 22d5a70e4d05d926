// Package cache holds fetched knowledge-base documents between runs.
//
// Every driver follows the same consistency model: callers check Exists and
// fetch only when it reports false. Nothing is transactional, and concurrent
// writers to the same key are last-writer-wins.
package cache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Driver identifies a concrete Store implementation.
type Driver string

const (
	DriverFile   Driver = "file"
	DriverMemory Driver = "memory"
	DriverGCS    Driver = "gcs"
	DriverSQLite Driver = "sqlite"
)

// SQLiteFileName is the database created in the working directory by the
// sqlite driver.
const SQLiteFileName = "documents.sqlite"

// ErrNotFound is returned by Get for keys that were never Put.
var ErrNotFound = errors.New("cache: key not found")

// Store is a flat key/value store of document bodies.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte) error

	// Purge removes every document the store holds.
	Purge(ctx context.Context) error
	Close() error
	Driver() Driver
}

// Open builds a Store from a -cache flag value. An empty value or "file"
// stores documents as files in localDir; "sqlite" keeps them in
// localDir/documents.sqlite; "sqlite:<path>" uses the given database;
// "memory" keeps them for the life of the process; gs://bucket/prefix puts
// them in Google Cloud Storage. A bare bucket is refused so that Purge stays
// inside the prefix.
func Open(ctx context.Context, spec, localDir string) (Store, error) {
	var (
		store Store
		err   error
	)

	switch {
	case spec == "" || spec == string(DriverFile):
		var fs *FileStore
		fs, err = NewFileStore(localDir)
		store = fs
	case spec == string(DriverMemory):
		store = NewMemoryStore()
	case spec == string(DriverSQLite) || strings.HasPrefix(spec, string(DriverSQLite)+":"):
		dbPath := strings.TrimPrefix(strings.TrimPrefix(spec, string(DriverSQLite)), ":")
		if dbPath == "" {
			dbPath = filepath.Join(localDir, SQLiteFileName)
		}
		var ss *SQLiteStore
		ss, err = NewSQLiteStore(dbPath)
		store = ss
	case strings.HasPrefix(spec, "gs://"):
		var gs *GCSStore
		gs, err = NewGCSStore(ctx, spec)
		store = gs
	default:
		return nil, fmt.Errorf("cache: unrecognized cache %q (expected file, sqlite, sqlite:<path>, memory or gs://bucket/prefix)", spec)
	}

	if err != nil {
		return nil, err
	}

	return store, nil
}

// Shared reports whether a -cache value names a store that lives outside the
// run's working directory: a gs:// prefix or a sqlite database at a given
// path. Such stores may hold documents of other runs and are never purged by
// cleanup.
func Shared(spec string) bool {
	return strings.HasPrefix(spec, "gs://") || strings.HasPrefix(spec, string(DriverSQLite)+":")
}

// validKey forbids keys that could escape a directory or prefix.
func validKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("cache: empty key")
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("cache: invalid key %q", key)
	}
	return nil
}
