package kb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/carbocation/dataslicer/cache"
	"github.com/carbocation/dataslicer/jsonpath"
)

type countingFetcher struct {
	calls int
	urls  []string
	body  string
	err   error
}

func (c *countingFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	c.calls++
	c.urls = append(c.urls, url)
	if c.err != nil {
		return nil, c.err
	}
	return []byte(c.body), nil
}

func TestFetchDocumentSkipsCachedDocuments(t *testing.T) {
	ctx := context.Background()
	docs := cache.NewMemoryStore()
	if err := docs.Put(ctx, DocumentKey("FTJ1"), []byte(`{"status":{"msg":"OK"},"data":{}}`)); err != nil {
		t.Fatal(err)
	}

	f := &countingFetcher{body: `{"status":{"msg":"OK"}}`}
	s := New("http://kb.example", f, docs)

	for i := 0; i < 2; i++ {
		doc, err := s.FetchDocument(ctx, CollectionJobs, "FTJ1")
		if err != nil {
			t.Fatal(err)
		}
		if !ValidateStatus(doc) {
			t.Error("expected the cached document to be ok")
		}
	}

	if f.calls != 0 {
		t.Errorf("expected no fetches for a pre-seeded cache, got %d", f.calls)
	}
}

func TestFetchDocumentFetchesOnce(t *testing.T) {
	ctx := context.Background()
	docs := cache.NewMemoryStore()
	f := &countingFetcher{body: `{"status":{"msg":"OK"}}`}
	s := New("http://kb.example/", f, docs)

	for i := 0; i < 3; i++ {
		if _, err := s.FetchDocument(ctx, CollectionResultFiles, "RF 1"); err != nil {
			t.Fatal(err)
		}
	}

	if f.calls != 1 {
		t.Fatalf("expected exactly one fetch, got %d", f.calls)
	}
	if expected := "http://kb.example/coll/Result%20Files/doc/RF%201"; f.urls[0] != expected {
		t.Errorf("expected %s, got %s", expected, f.urls[0])
	}

	exists, err := docs.Exists(ctx, DocumentKey("RF 1"))
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("expected the fetched document to be cached")
	}
}

func TestFetchJobsIndex(t *testing.T) {
	ctx := context.Background()
	f := &countingFetcher{body: `{"status":{"msg":"OK"},"data":[{"Job":{"value":"FTJ1"}}]}`}
	s := New("", f, cache.NewMemoryStore())

	doc, err := s.FetchJobsIndex(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if f.urls[0] != DefaultBaseURL+"/coll/Jobs/docs" {
		t.Errorf("unexpected index URL %s", f.urls[0])
	}

	name, err := jsonpath.String(doc, "data.0.Job.value")
	if err != nil {
		t.Fatal(err)
	}
	if name != "FTJ1" {
		t.Errorf("expected FTJ1, got %s", name)
	}
}

func TestFetchFailureIsNotCached(t *testing.T) {
	ctx := context.Background()
	docs := cache.NewMemoryStore()
	f := &countingFetcher{err: errors.New("connection refused")}
	s := New("http://kb.example", f, docs)

	if _, err := s.FetchDocument(ctx, CollectionJobs, "FTJ1"); err == nil {
		t.Fatal("expected the fetch error")
	}
	if docs.Len() != 0 {
		t.Errorf("expected nothing cached, got %d documents", docs.Len())
	}
}

func TestValidateStatus(t *testing.T) {
	cases := []struct {
		body     string
		expected bool
	}{
		{`{"status":{"msg":"OK"}}`, true},
		{`{"status":{"msg":"ok"}}`, true},
		{`{"status":{"msg":"Ok: 1 doc"}}`, true},
		{`{"status":{"msg":"NOT_FOUND"}}`, false},
		{`{"status":{"msg":"error"}}`, false},
		{`{"status":"OK"}`, false},
		{`{"data":{}}`, false},
	}

	for _, c := range cases {
		doc, err := jsonpath.Parse([]byte(c.body))
		if err != nil {
			t.Fatal(err)
		}
		if got := ValidateStatus(doc); got != c.expected {
			t.Errorf("%s: expected %v, got %v", c.body, c.expected, got)
		}
	}
}

func TestHTTPFetcher(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"status":{"msg":"OK"}}`)
	}))
	defer srv.Close()

	f := HTTPFetcher{Client: srv.Client()}

	body, err := f.Fetch(context.Background(), srv.URL+"/doc")
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != `{"status":{"msg":"OK"}}` {
		t.Errorf("unexpected body %s", body)
	}

	if _, err := f.Fetch(context.Background(), srv.URL+"/missing"); err == nil {
		t.Error("expected a 404 to fail")
	}

	if atomic.LoadInt32(&hits) != 2 {
		t.Errorf("expected 2 requests, got %d", hits)
	}
}
