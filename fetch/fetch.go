// Package fetch downloads and decompresses per-sample coverage bedgraphs.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/carbocation/dataslicer"
)

// ErrDecompress marks a coverage artifact that was missing, empty or
// unreadable after its download was attempted.
var ErrDecompress = errors.New("could not decompress coverage artifact")

// Outcome describes what EnsureCoverageFile did.
type Outcome struct {
	// Path of the decompressed coverage file.
	Path string

	// Skipped is true when the coverage file already existed.
	Skipped bool

	// Artifact is the downloaded file, removed once decompressed.
	Artifact    string
	Compression dataslicer.DataType
}

// Executor places one decompressed bedgraph per biosample in Dir.
type Executor struct {
	Dir        string
	Downloader Downloader
}

func New(dir string, d Downloader) *Executor {
	if d == nil {
		d = HTTPDownloader{}
	}
	return &Executor{Dir: dir, Downloader: d}
}

// CoverageFilePath is where s's decompressed bedgraph belongs.
func (e *Executor) CoverageFilePath(s dataslicer.Sample) string {
	return dataslicer.CoverageFilePath(e.Dir, s.BiosampleID)
}

// Exists reports whether s already has its decompressed bedgraph.
func (e *Executor) Exists(s dataslicer.Sample) bool {
	_, err := os.Stat(e.CoverageFilePath(s))
	return err == nil
}

// ArtifactPath is where the artifact at artifactURL is downloaded for s.
func (e *Executor) ArtifactPath(s dataslicer.Sample, artifactURL string) string {
	name := artifactURL
	if u, err := url.Parse(artifactURL); err == nil && u.Path != "" {
		name = u.Path
	}

	return filepath.Join(e.Dir, s.BiosampleID+"_"+path.Base(name))
}

// EnsureCoverageFile makes sure s's decompressed bedgraph exists, downloading
// it from artifactURL if needed. Downloads are attempted once; a download
// that fails only shows up as the ErrDecompress that follows it.
func (e *Executor) EnsureCoverageFile(ctx context.Context, s dataslicer.Sample, artifactURL string) (Outcome, error) {
	out := Outcome{Path: e.CoverageFilePath(s)}

	if e.Exists(s) {
		out.Skipped = true
		return out, nil
	}

	if err := os.MkdirAll(e.Dir, 0755); err != nil {
		return out, err
	}

	out.Artifact = e.ArtifactPath(s, artifactURL)
	log.Printf("downloading %s to %s\n", artifactURL, out.Artifact)
	if err := e.Downloader.Download(ctx, artifactURL, out.Artifact); err != nil {
		log.Printf("Warning: download of %s failed: %v\n", artifactURL, err)
	}

	if _, err := os.Stat(out.Artifact); err != nil {
		log.Printf("Warning: The compressed file: %s does not exist!\n", out.Artifact)
		return out, fmt.Errorf("%w: %s does not exist", ErrDecompress, out.Artifact)
	}

	dt, err := dataslicer.DecompressFile(out.Artifact, out.Path)
	out.Compression = dt
	if err != nil {
		return out, fmt.Errorf("%w: %s: %v", ErrDecompress, out.Artifact, err)
	}

	log.Printf("%s has been decompressed (%s).\n", out.Artifact, dt)
	return out, nil
}
