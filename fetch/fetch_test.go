package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/carbocation/dataslicer"
)

const coverage = "chr1\t0\t10\t1.5\nchr1\t10\t20\t3\n"

type countingDownloader struct {
	calls int
	body  []byte
	err   error
}

func (c *countingDownloader) Download(_ context.Context, url, dst string) error {
	c.calls++
	if c.err != nil {
		return c.err
	}
	return os.WriteFile(dst, c.body, 0644)
}

func readFixture(t *testing.T) []byte {
	t.Helper()
	body, err := os.ReadFile(filepath.Join("testdata", "coverage.bedgraph.xz"))
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func TestEnsureCoverageFileXZ(t *testing.T) {
	dir := t.TempDir()
	d := &countingDownloader{body: readFixture(t)}
	e := New(dir, d)
	s := dataslicer.Sample{AnalysisID: "A1", BiosampleID: "B1"}

	out, err := e.EnsureCoverageFile(context.Background(), s, "ftp://ftp.example/B1/endogenousAlignments_genome_Aligned.bedgraph.xz")
	if err != nil {
		t.Fatal(err)
	}

	expectedPath := filepath.Join(dir, "B1_endogenousAlignments_genome_Aligned.bedgraph")
	if out.Path != expectedPath {
		t.Errorf("expected %s, got %s", expectedPath, out.Path)
	}
	if out.Compression != dataslicer.DataTypeXZ {
		t.Errorf("expected xz, got %s", out.Compression)
	}

	got, err := os.ReadFile(out.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != coverage {
		t.Errorf("unexpected decompressed contents %q", got)
	}

	if _, err := os.Stat(out.Artifact); !os.IsNotExist(err) {
		t.Errorf("expected the artifact %s to be removed after decompression", out.Artifact)
	}
}

func TestEnsureCoverageFileIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	d := &countingDownloader{body: readFixture(t)}
	e := New(dir, d)
	s := dataslicer.Sample{AnalysisID: "A1", BiosampleID: "B1"}
	url := "ftp://ftp.example/B1/endogenousAlignments_genome_Aligned.bedgraph.xz"

	if _, err := e.EnsureCoverageFile(context.Background(), s, url); err != nil {
		t.Fatal(err)
	}

	out, err := e.EnsureCoverageFile(context.Background(), s, url)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Skipped {
		t.Error("expected the second call to skip")
	}
	if d.calls != 1 {
		t.Errorf("expected one download, got %d", d.calls)
	}
}

func TestEnsureCoverageFileGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(coverage)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	e := New(t.TempDir(), &countingDownloader{body: buf.Bytes()})
	out, err := e.EnsureCoverageFile(context.Background(), dataslicer.Sample{BiosampleID: "B2"}, "http://host/b2.bedgraph.gz")
	if err != nil {
		t.Fatal(err)
	}
	if out.Compression != dataslicer.DataTypeGzip {
		t.Errorf("expected gzip, got %s", out.Compression)
	}
}

func TestEnsureCoverageFileFailedDownload(t *testing.T) {
	e := New(t.TempDir(), &countingDownloader{err: errors.New("connection reset")})

	out, err := e.EnsureCoverageFile(context.Background(), dataslicer.Sample{BiosampleID: "B1"}, "ftp://x/B1.bedgraph.xz")
	if !errors.Is(err, ErrDecompress) {
		t.Fatalf("expected ErrDecompress, got %v", err)
	}
	if _, err := os.Stat(out.Path); !os.IsNotExist(err) {
		t.Error("expected no coverage file")
	}
}

func TestEnsureCoverageFileEmptyDownload(t *testing.T) {
	e := New(t.TempDir(), &countingDownloader{body: nil})

	out, err := e.EnsureCoverageFile(context.Background(), dataslicer.Sample{BiosampleID: "B1"}, "ftp://x/B1.bedgraph.xz")
	if !errors.Is(err, ErrDecompress) {
		t.Fatalf("expected ErrDecompress, got %v", err)
	}
	if e.Exists(dataslicer.Sample{BiosampleID: "B1"}) {
		t.Errorf("expected no coverage file at %s", out.Path)
	}
}

func TestHTTPDownloader(t *testing.T) {
	fixture := readFixture(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/B1/endogenousAlignments_genome_Aligned.bedgraph.xz" {
			http.NotFound(w, r)
			return
		}
		w.Write(fixture)
	}))
	defer srv.Close()

	dir := t.TempDir()
	e := New(dir, HTTPDownloader{Client: srv.Client()})
	s := dataslicer.Sample{AnalysisID: "A1", BiosampleID: "B1"}

	if _, err := e.EnsureCoverageFile(context.Background(), s, srv.URL+"/B1/endogenousAlignments_genome_Aligned.bedgraph.xz"); err != nil {
		t.Fatal(err)
	}
	if !e.Exists(s) {
		t.Error("expected the coverage file to exist")
	}

	missing := dataslicer.Sample{BiosampleID: "B9"}
	if _, err := e.EnsureCoverageFile(context.Background(), missing, srv.URL+"/nope.xz"); !errors.Is(err, ErrDecompress) {
		t.Errorf("expected a 404 to surface as ErrDecompress, got %v", err)
	}
}

func TestArtifactPath(t *testing.T) {
	e := New("/work/tmp/bedgraphs", nil)
	got := e.ArtifactPath(dataslicer.Sample{BiosampleID: "B1"}, "https://host/a/b/file.bedgraph.xz?x=1")
	if expected := "/work/tmp/bedgraphs/B1_file.bedgraph.xz"; got != expected {
		t.Errorf("expected %s, got %s", expected, got)
	}
}
