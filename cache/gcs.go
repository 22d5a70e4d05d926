package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"google.golang.org/api/iterator"
)

// GCSStore keeps documents as objects named prefix/key in a Google Cloud
// Storage bucket, so that several machines can share one document cache.
type GCSStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string

	ownsClient bool
}

// NewGCSStore opens gs://bucket/prefix with application default credentials.
func NewGCSStore(ctx context.Context, url string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, pfx.Err(err)
	}

	s, err := NewGCSStoreWithClient(client, url)
	if err != nil {
		client.Close()
		return nil, err
	}
	s.ownsClient = true

	return s, nil
}

// NewGCSStoreWithClient is NewGCSStore for a caller-managed client.
func NewGCSStoreWithClient(client *storage.Client, url string) (*GCSStore, error) {
	if !strings.HasPrefix(url, "gs://") {
		return nil, fmt.Errorf("cache: %q is not a gs:// URL", url)
	}

	parts := strings.SplitN(strings.TrimPrefix(url, "gs://"), "/", 2)
	if parts[0] == "" {
		return nil, fmt.Errorf("cache: no bucket in %q", url)
	}

	prefix := ""
	if len(parts) == 2 {
		prefix = strings.Trim(parts[1], "/")
	}
	if prefix == "" {
		return nil, fmt.Errorf("cache: %q needs an object prefix, as in gs://bucket/prefix", url)
	}

	return &GCSStore{
		client: client,
		bucket: client.Bucket(parts[0]),
		prefix: prefix,
	}, nil
}

func (s *GCSStore) Driver() Driver { return DriverGCS }

func (s *GCSStore) objectName(key string) string {
	return path.Join(s.prefix, key)
}

func (s *GCSStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := validKey(key); err != nil {
		return false, err
	}

	_, err := s.bucket.Object(s.objectName(key)).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	} else if err != nil {
		return false, pfx.Err(err)
	}

	return true, nil
}

func (s *GCSStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}

	rdr, err := s.bucket.Object(s.objectName(key)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, pfx.Err(err)
	}
	defer rdr.Close()

	body, err := io.ReadAll(rdr)
	return body, pfx.Err(err)
}

func (s *GCSStore) Put(ctx context.Context, key string, body []byte) error {
	if err := validKey(key); err != nil {
		return err
	}

	w := s.bucket.Object(s.objectName(key)).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(body); err != nil {
		w.Close()
		return pfx.Err(err)
	}

	return pfx.Err(w.Close())
}

// Purge deletes the objects directly under the store's prefix. Deeper
// "directories" below the prefix are left alone.
func (s *GCSStore) Purge(ctx context.Context) error {
	query := &storage.Query{Prefix: s.prefix + "/", Delimiter: "/"}

	it := s.bucket.Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		} else if err != nil {
			return pfx.Err(err)
		}

		if attrs.Name == "" {
			// A synthetic entry for a deeper prefix.
			continue
		}

		if err := s.bucket.Object(attrs.Name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return pfx.Err(err)
		}
	}

	return nil
}

func (s *GCSStore) Close() error {
	if s.ownsClient {
		return s.client.Close()
	}
	return nil
}
