package cache

import (
	"context"
	"os"
	"path/filepath"

	"github.com/carbocation/pfx"
)

// FileStore keeps one file per key directly inside root. A key's file existing
// is what makes the key exist.
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, pfx.Err(err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) Driver() Driver { return DriverFile }

// Path is the file backing key.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.root, key)
}

func (s *FileStore) Exists(_ context.Context, key string) (bool, error) {
	if err := validKey(key); err != nil {
		return false, err
	}

	_, err := os.Stat(s.Path(key))
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, pfx.Err(err)
	}

	return true, nil
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}

	body, err := os.ReadFile(s.Path(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}

	return body, pfx.Err(err)
}

func (s *FileStore) Put(_ context.Context, key string, body []byte) error {
	if err := validKey(key); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return pfx.Err(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return pfx.Err(err)
	}
	if err := tmp.Close(); err != nil {
		return pfx.Err(err)
	}

	return pfx.Err(os.Rename(tmp.Name(), s.Path(key)))
}

// Purge removes the regular files directly inside root. Subdirectories are
// left alone; they are not documents.
func (s *FileStore) Purge(_ context.Context) error {
	entries, err := os.ReadDir(s.root)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return pfx.Err(err)
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if err := os.Remove(filepath.Join(s.root, entry.Name())); err != nil && !os.IsNotExist(err) {
			return pfx.Err(err)
		}
	}

	return nil
}

func (s *FileStore) Close() error { return nil }
