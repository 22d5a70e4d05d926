// Package kb reads documents from the exRNA Atlas Genboree knowledge base.
//
// Documents are fetched once and kept in a cache.Store; a document whose
// cache key already exists is never requested again.
package kb

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/BenLubar/memoize"
	"github.com/carbocation/dataslicer/cache"
	"github.com/carbocation/dataslicer/jsonpath"
	"github.com/carbocation/pfx"
)

const (
	// DefaultBaseURL is the exRNA Atlas knowledge base.
	DefaultBaseURL = "https://genboree.org/REST/v1/grp/Extracellular%20RNA%20Atlas/kb/exRNA-atlas-v4"

	// JobsIndexKey caches the list of every job.
	JobsIndexKey = "alljobs.json"

	// DocumentKeySuffix is appended to a document's name to form its cache key.
	DocumentKeySuffix = ".metadata.json"

	StatusPath = "status.msg"
)

// Collections queried by the resolver.
const (
	CollectionJobs        = "Jobs"
	CollectionResultFiles = "Result Files"
)

// ErrBadStatus marks a document whose status is not ok.
var ErrBadStatus = errors.New("kb: document status is not ok")

// Store fetches, caches and parses knowledge-base documents.
type Store struct {
	base    string
	fetcher Fetcher
	cache   cache.Store

	// load parses a cached document at most once per key for the life of the
	// Store. It is a memoize.Memoize'd func(string) (jsonpath.Node, error).
	load interface{}
}

// New creates a Store reading from base (DefaultBaseURL if empty).
func New(base string, fetcher Fetcher, docs cache.Store) *Store {
	if base == "" {
		base = DefaultBaseURL
	}

	s := &Store{
		base:    strings.TrimRight(base, "/"),
		fetcher: fetcher,
		cache:   docs,
	}
	s.load = memoize.Memoize(s.parseCached)

	return s
}

// Cache is the document cache backing the store.
func (s *Store) Cache() cache.Store {
	return s.cache
}

// JobsIndexURL lists every job in the knowledge base.
func (s *Store) JobsIndexURL() string {
	return s.base + "/coll/" + url.PathEscape(CollectionJobs) + "/docs"
}

// DocumentURL addresses one named document of a collection.
func (s *Store) DocumentURL(docType, docName string) string {
	return s.base + "/coll/" + url.PathEscape(docType) + "/doc/" + url.PathEscape(docName)
}

// DocumentKey is the cache key for a document. It depends on docName alone.
func DocumentKey(docName string) string {
	return url.PathEscape(docName) + DocumentKeySuffix
}

// FetchJobsIndex returns the list of every job, fetching it only if it is not
// already cached.
func (s *Store) FetchJobsIndex(ctx context.Context) (jsonpath.Node, error) {
	return s.fetch(ctx, JobsIndexKey, s.JobsIndexURL())
}

// FetchDocument returns the document docName of collection docType, fetching
// it only if it is not already cached.
func (s *Store) FetchDocument(ctx context.Context, docType, docName string) (jsonpath.Node, error) {
	return s.fetch(ctx, DocumentKey(docName), s.DocumentURL(docType, docName))
}

func (s *Store) fetch(ctx context.Context, key, docURL string) (jsonpath.Node, error) {
	exists, err := s.cache.Exists(ctx, key)
	if err != nil {
		return jsonpath.Node{}, err
	}

	if !exists {
		body, err := s.fetcher.Fetch(ctx, docURL)
		if err != nil {
			log.Printf("Could not fetch %s: %v\n", docURL, err)
			return jsonpath.Node{}, err
		}

		if err := s.cache.Put(ctx, key, body); err != nil {
			return jsonpath.Node{}, err
		}
	}

	if err := ctx.Err(); err != nil {
		return jsonpath.Node{}, err
	}

	return s.load.(func(string) (jsonpath.Node, error))(key)
}

// parseCached reads a document the caller has just seen in the cache.
func (s *Store) parseCached(key string) (jsonpath.Node, error) {
	body, err := s.cache.Get(context.Background(), key)
	if errors.Is(err, cache.ErrNotFound) {
		log.Printf("%s not found\n", key)
		return jsonpath.Node{}, err
	} else if err != nil {
		return jsonpath.Node{}, err
	}

	doc, err := jsonpath.Parse(body)
	if err != nil {
		return jsonpath.Node{}, pfx.Err(fmt.Errorf("%s: %w", key, err))
	}

	return doc, nil
}

// ValidateStatus reports whether doc's status message says ok, ignoring
// case. The knowledge base answers errors with HTTP 200 and an error status,
// so no other field of a document can be trusted until this passes.
func ValidateStatus(doc jsonpath.Node) bool {
	msg, err := jsonpath.String(doc, StatusPath)
	if err != nil {
		return false
	}

	return strings.Contains(strings.ToLower(msg), "ok")
}

// CheckStatus is ValidateStatus with a diagnostic for documents that fail it.
func CheckStatus(doc jsonpath.Node, name string) bool {
	if ValidateStatus(doc) {
		return true
	}

	log.Printf("something went wrong while requesting for Doc: %s\n", name)
	return false
}
