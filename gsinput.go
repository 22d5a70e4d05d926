package dataslicer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
)

// IsGoogleStoragePath reports whether path names a gs:// object.
func IsGoogleStoragePath(path string) bool {
	return strings.HasPrefix(path, "gs://")
}

// SplitGoogleStoragePath splits gs://bucket/some/object into its bucket and
// object name.
func SplitGoogleStoragePath(path string) (bucket, object string, err error) {
	pathParts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
	if len(pathParts) != 2 || pathParts[0] == "" {
		return "", "", fmt.Errorf("Tried to split your google storage path into 2 parts, but got %d: %v", len(pathParts), pathParts)
	}

	return pathParts[0], pathParts[1], nil
}

// InputExists reports whether a local file or gs:// object is present. A nil
// client means gs:// paths are treated as local paths, which will not exist.
func InputExists(ctx context.Context, path string, client *storage.Client) (bool, error) {
	if client != nil && IsGoogleStoragePath(path) {
		bucket, object, err := SplitGoogleStoragePath(path)
		if err != nil {
			return false, err
		}
		_, err = client.Bucket(bucket).Object(object).Attrs(ctx)
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return false, nil
		} else if err != nil {
			return false, pfx.Err(fmt.Errorf("%s: %s", path, err))
		}
		return true, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, err
	}

	return true, nil
}

// MaybeOpenFromGoogleStorage opens a gs:// object when a client is available,
// or a local file otherwise.
func MaybeOpenFromGoogleStorage(ctx context.Context, path string, client *storage.Client) (io.ReadCloser, error) {
	if client != nil && IsGoogleStoragePath(path) {
		bucket, object, err := SplitGoogleStoragePath(path)
		if err != nil {
			return nil, err
		}

		rdr, err := client.Bucket(bucket).Object(object).NewReader(ctx)
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("%s: %s", path, err))
		}

		return rdr, nil
	}

	return os.Open(path)
}

// StageLocally returns a local path holding the contents of path. Local
// files are returned untouched; gs:// objects are copied into dir under their
// base name, since external tools such as sort only read local files.
func StageLocally(ctx context.Context, path, dir string, client *storage.Client) (string, error) {
	if client == nil || !IsGoogleStoragePath(path) {
		return path, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", pfx.Err(err)
	}

	src, err := MaybeOpenFromGoogleStorage(ctx, path, client)
	if err != nil {
		return "", err
	}
	defer src.Close()

	local := filepath.Join(dir, filepath.Base(path))
	dst, err := os.Create(local)
	if err != nil {
		return "", pfx.Err(err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", pfx.Err(err)
	}

	return local, pfx.Err(dst.Close())
}
