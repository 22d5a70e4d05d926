// Package pipeline drives a whole data-slicing run: resolve and download each
// sample's coverage bedgraph, intersect every bedgraph with the sorted region
// of interest, and merge the intersections into one BED file.
//
// Only missing inputs and an unusable Jobs index stop a run. Every other
// problem is recorded in the FailureLog and the run moves on.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/carbocation/dataslicer"
	"github.com/carbocation/dataslicer/cache"
	"github.com/carbocation/dataslicer/fetch"
	"github.com/carbocation/dataslicer/jsonpath"
	"github.com/carbocation/dataslicer/kb"
	"github.com/carbocation/dataslicer/resolve"
	"github.com/carbocation/pfx"
)

var (
	ErrMissingInput  = errors.New("required input file is missing")
	ErrUnusableIndex = errors.New("the Jobs index could not be retrieved")
)

// Config holds the user's choices for one run.
type Config struct {
	ROIPath     string
	SamplesPath string

	// WorkDir holds tmp/ and the combined output.
	WorkDir    string
	OutputName string

	// Delimiter separates columns of the mapping file; 0 auto-detects.
	Delimiter rune

	Cleanup CleanupMode

	// KeepCache leaves the document cache alone under CleanupAll. Set it for
	// caches shared with other runs.
	KeepCache bool
}

// OutputPath is where the combined BED file is written.
func (c Config) OutputPath() string {
	name := c.OutputName
	if name == "" {
		name = DefaultOutputName
	}
	return filepath.Join(c.WorkDir, name)
}

// Documents is what the pipeline needs from kb.Store.
type Documents interface {
	resolve.Documents
	FetchJobsIndex(ctx context.Context) (jsonpath.Node, error)
}

// Resolver turns a sample into the URL of its coverage artifact.
type Resolver interface {
	Resolve(ctx context.Context, s dataslicer.Sample) resolve.Result
}

// CoverageFetcher places decompressed bedgraphs on disk.
type CoverageFetcher interface {
	Exists(s dataslicer.Sample) bool
	EnsureCoverageFile(ctx context.Context, s dataslicer.Sample, url string) (fetch.Outcome, error)
}

// Pipeline is one run. Construct it with New, or fill in every field.
type Pipeline struct {
	Config Config
	Layout Layout

	Docs    Documents
	Cache   cache.Store
	Fetcher CoverageFetcher
	Runner  Runner
	Helper  Helper

	// NewResolver builds the resolver once the Jobs index is loaded.
	NewResolver func(jobs jsonpath.Node) Resolver

	// GCS, if set, lets ROIPath and SamplesPath be gs:// objects.
	GCS *storage.Client

	// Report receives the final failure report.
	Report io.Writer

	Failures FailureLog
}

// New wires a Pipeline from the knowledge-base store, using the working
// directory layout for downloads.
func New(cfg Config, docs *kb.Store, runner Runner, helper Helper, opts resolve.Options) *Pipeline {
	layout := NewLayout(cfg.WorkDir)
	return &Pipeline{
		Config:  cfg,
		Layout:  layout,
		Docs:    docs,
		Cache:   docs.Cache(),
		Fetcher: fetch.New(layout.Bedgraphs, nil),
		Runner:  runner,
		Helper:  helper,
		NewResolver: func(jobs jsonpath.Node) Resolver {
			return resolve.New(docs, jobs, opts)
		},
		Report: os.Stdout,
	}
}

// Run executes the whole pipeline. It returns an error only for
// ErrMissingInput and ErrUnusableIndex; all other problems end up in
// p.Failures, which is printed to p.Report at the end.
func (p *Pipeline) Run(ctx context.Context) error {
	log.Printf("Using roi bed file: %s\n", p.Config.ROIPath)
	log.Printf("Using sample file: %s\n", p.Config.SamplesPath)
	log.Printf("Using output directory: %s\n", p.Config.WorkDir)

	if err := p.checkInputs(ctx); err != nil {
		return err
	}

	if err := p.Layout.Ensure(); err != nil {
		return err
	}

	roi, err := dataslicer.StageLocally(ctx, p.Config.ROIPath, p.Layout.Inputs, p.GCS)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMissingInput, err)
	}

	samples, err := p.readSamples(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMissingInput, err)
	}
	log.Printf("Read %d samples from %s\n", len(samples), p.Config.SamplesPath)

	jobs, err := p.Docs.FetchJobsIndex(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnusableIndex, err)
	}
	if !kb.CheckStatus(jobs, "All Jobs") {
		return fmt.Errorf("%w: %v", ErrUnusableIndex, kb.ErrBadStatus)
	}

	p.ProcessSamples(ctx, samples, p.NewResolver(jobs))

	sorted := p.SortROI(ctx, roi)
	p.Intersect(ctx, sorted)
	p.Merge(ctx)

	docs := p.Cache
	if p.Config.KeepCache {
		docs = nil
	}
	if err := p.Layout.Cleanup(ctx, p.Config.Cleanup, docs); err != nil {
		p.Failures.Addf("Cleaning up %s: %v", p.Layout.Tmp, err)
	}

	if p.Report != nil {
		p.Failures.Report(p.Report)
	}

	return nil
}

func (p *Pipeline) checkInputs(ctx context.Context) error {
	for _, input := range []struct{ kind, path string }{
		{"ROI", p.Config.ROIPath},
		{"Samples", p.Config.SamplesPath},
	} {
		exists, err := dataslicer.InputExists(ctx, input.path, p.GCS)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMissingInput, input.kind, err)
		}
		if !exists {
			log.Printf("%s: %s does not exist\n", input.kind, input.path)
			return fmt.Errorf("%w: %s: %s", ErrMissingInput, input.kind, input.path)
		}
	}

	return nil
}

func (p *Pipeline) readSamples(ctx context.Context) ([]dataslicer.Sample, error) {
	delim := p.Config.Delimiter
	if delim == 0 {
		r, err := dataslicer.MaybeOpenFromGoogleStorage(ctx, p.Config.SamplesPath, p.GCS)
		if err != nil {
			return nil, err
		}
		delim = dataslicer.DetermineDelimiter(r)
		r.Close()
		log.Printf("Detected %q as the sample file delimiter\n", delim)
	}

	r, err := dataslicer.MaybeOpenFromGoogleStorage(ctx, p.Config.SamplesPath, p.GCS)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return dataslicer.ReadSamples(r, delim)
}

// ProcessSamples makes sure every sample has its coverage bedgraph, one
// sample at a time. A sample whose bedgraph is already on disk is not
// resolved at all. Failures are recorded and never stop the loop.
func (p *Pipeline) ProcessSamples(ctx context.Context, samples []dataslicer.Sample, r Resolver) {
	for _, s := range samples {
		if ctx.Err() != nil {
			p.Failures.Addf("Failed to download bedgraph for %s: %v", s.BiosampleID, ctx.Err())
			continue
		}

		log.Printf("Looking for %s bedgraph file\n", s.BiosampleID)
		if p.Fetcher.Exists(s) {
			log.Printf("%s bedgraph exists already.. move on to the next\n", s.BiosampleID)
			continue
		}

		res := r.Resolve(ctx, s)
		if !res.OK() {
			log.Printf("Warning: Cannot find the coverage file for %s. Please check that the analysis and biosample IDs are correct.\n", s)
			p.Failures.Addf("Failed to download bedgraph for %s", res)
			continue
		}

		if _, err := p.Fetcher.EnsureCoverageFile(ctx, s, res.URL); err != nil {
			p.Failures.Addf("Failed to download bedgraph for %s: %v", s.BiosampleID, err)
		}
	}
}

// SortROI writes a sorted copy of roi and returns its path.
func (p *Pipeline) SortROI(ctx context.Context, roi string) string {
	if n, err := ValidateROI(roi); err != nil {
		log.Printf("Warning: %s may not be a valid BED file: %v\n", roi, err)
	} else {
		log.Printf("%s holds %d regions of interest\n", roi, n)
	}

	sorted := p.Layout.SortedROIPath(roi)
	if err := os.MkdirAll(p.Layout.SortedBed, 0755); err != nil {
		p.Failures.Addf("Sorting roi bed file %s: %v", roi, pfx.Err(err))
		return sorted
	}

	cmd := SortBED(roi, sorted)
	log.Printf("Sorting the given roi bed file %s and store it as %s\n", roi, sorted)
	log.Println(cmd)
	if status, err := p.Runner.Run(ctx, cmd); err != nil {
		p.Failures.Add(withErr("Sorting roi bed file "+roi, err))
	} else if status != 0 {
		p.Failures.Addf("Sorting roi bed file %s: exit status %d", roi, status)
	}

	return sorted
}

// Intersect intersects every coverage bedgraph on disk with the sorted ROI.
func (p *Pipeline) Intersect(ctx context.Context, sortedROI string) {
	if err := os.MkdirAll(p.Layout.Intersections, 0755); err != nil {
		p.Failures.Addf("Creating %s: %v", p.Layout.Intersections, pfx.Err(err))
		return
	}

	bedgraphs, err := p.Layout.CoverageFiles()
	if err != nil {
		p.Failures.Addf("Listing bedgraphs in %s: %v", p.Layout.Bedgraphs, err)
		return
	}

	for _, bedgraph := range bedgraphs {
		log.Printf("intersecting sorted roi: %s with bedgraph: %s\n", sortedROI, bedgraph)
		status, err := p.Runner.Run(ctx, p.Helper.Intersect(sortedROI, bedgraph, p.Layout.IntersectionPath(bedgraph)))
		if Failed(status, err) {
			p.Failures.Add(withErr(fmt.Sprintf("Intersecting bedgraph: %s with sortedBedFile: %s", bedgraph, sortedROI), err))
		}
	}
}

// Merge combines every intersection on disk into the output file. With no
// intersections it records a failure only if nothing else has failed.
func (p *Pipeline) Merge(ctx context.Context) {
	paths, err := p.Layout.IntersectionFiles()
	if err != nil {
		p.Failures.Addf("Listing intersections in %s: %v", p.Layout.Intersections, err)
		return
	}
	if len(paths) == 0 {
		// Earlier failures already explain an empty merge.
		if p.Failures.Len() > 0 {
			log.Println("No intersections to merge")
			return
		}
		p.Failures.Add("Merging intersections: no intersections to merge")
		return
	}

	names := make([]string, 0, len(paths))
	for _, path := range paths {
		names = append(names, dataslicer.SampleNameFromPath(path))
	}

	log.Println("Merge intersections")
	status, err := p.Runner.Run(ctx, p.Helper.Merge(names, paths, p.Config.OutputPath()))
	if Failed(status, err) {
		p.Failures.Add(withErr("Merging intersections", err))
	}
}

func withErr(msg string, err error) string {
	if err == nil {
		return msg
	}
	return msg + ": " + err.Error()
}
