// exrnaslicer provides coverage over a region-of-interest BED file for a set
// of exRNA Atlas biosamples. Each biosample's genome-aligned bedgraph is
// located through the Atlas knowledge base, downloaded, intersected with the
// ROI, and all intersections are merged into one BED file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"cloud.google.com/go/storage"
	"github.com/carbocation/dataslicer"
	"github.com/carbocation/dataslicer/cache"
	"github.com/carbocation/dataslicer/compileinfo"
	"github.com/carbocation/dataslicer/fetch"
	"github.com/carbocation/dataslicer/kb"
	"github.com/carbocation/dataslicer/pipeline"
	"github.com/carbocation/dataslicer/resolve"
	"github.com/kardianos/osext"
)

const helperScriptName = "dataSlicerHelper.sh"

func main() {
	compileinfo.PrintToStdErr()
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout))
}

type options struct {
	bed, samples, out, filename string
	multirun, nocleanup         bool
	helper, api, cacheSpec      string
	delimiter, exclude          string
	version                     bool
}

func run(ctx context.Context, args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("exrnaslicer", flag.ContinueOnError)
	fs.SetOutput(stdout)

	var o options
	fs.StringVar(&o.bed, "bed", "", "Path to the region of interest Bed file for intersection. Optionally, may be a google storage URL (gs://)")
	fs.StringVar(&o.bed, "b", "", "Shorthand for -bed")
	fs.StringVar(&o.samples, "samples", "", "Path to the sample file, tab delimited format: each row with [analysis ID]\\t[biosampleID]. Optionally, may be a google storage URL (gs://)")
	fs.StringVar(&o.samples, "s", "", "Shorthand for -samples")
	fs.StringVar(&o.out, "out", "", "Designate output path (default at the current location)")
	fs.StringVar(&o.out, "o", "", "Shorthand for -out")
	fs.StringVar(&o.filename, "filename", pipeline.DefaultOutputName, "The name of the output file")
	fs.StringVar(&o.filename, "n", pipeline.DefaultOutputName, "Shorthand for -filename")
	fs.BoolVar(&o.multirun, "multirun", false, "Keep the downloaded knowledge base documents to speed up future runs")
	fs.BoolVar(&o.multirun, "m", false, "Shorthand for -multirun")
	fs.BoolVar(&o.nocleanup, "nocleanup", false, "Keep the tmp directory and do not remove anything")
	fs.StringVar(&o.helper, "helper", "", "Path to "+helperScriptName+" (default: next to this binary)")
	fs.StringVar(&o.api, "api", kb.DefaultBaseURL, "Base URL of the exRNA Atlas knowledge base")
	fs.StringVar(&o.cacheSpec, "cache", "file", "Where to keep knowledge base documents: file, sqlite, sqlite:<path>, or gs://bucket/prefix")
	fs.StringVar(&o.delimiter, "delimiter", "tab", "Sample file delimiter: tab, comma, or auto")
	fs.StringVar(&o.exclude, "exclude", resolve.DefaultExclude.String(), "Regular expression of job names to skip")
	fs.BoolVar(&o.version, "version", false, "Print build information and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	if o.version {
		fmt.Fprintln(stdout, compileinfo.Get())
		return 0
	}

	if o.bed == "" {
		fmt.Fprintln(stdout, "A region of interest bed file is required.  It can be passed in by using [-b|-bed] [path to bed]")
		fmt.Fprintln(stdout)
		fs.Usage()
		return 1
	}
	if o.samples == "" {
		fmt.Fprintln(stdout, "A tsv for the samples is required.  It can be passed in by using [-s|-samples] [path to sample file]")
		fmt.Fprintln(stdout)
		fs.Usage()
		return 1
	}

	cfg, err := o.config()
	if err != nil {
		log.Println(err)
		return 1
	}

	exclude, err := regexp.Compile(o.exclude)
	if err != nil {
		log.Println(err)
		return 1
	}

	helper, err := o.helperPath()
	if err != nil {
		log.Println(err)
		return 1
	}

	var client *storage.Client
	if dataslicer.IsGoogleStoragePath(cfg.ROIPath) || dataslicer.IsGoogleStoragePath(cfg.SamplesPath) {
		client, err = storage.NewClient(ctx)
		if err != nil {
			log.Println(err)
			return 1
		}
		defer client.Close()
	}

	layout := pipeline.NewLayout(cfg.WorkDir)
	docs, err := cache.Open(ctx, o.cacheSpec, layout.Tmp)
	if err != nil {
		log.Println(err)
		return 1
	}
	defer docs.Close()

	store := kb.New(o.api, kb.HTTPFetcher{Client: http.DefaultClient}, docs)
	p := pipeline.New(cfg, store, pipeline.ExecRunner{}, pipeline.Helper{Script: helper}, resolve.Options{Exclude: exclude})
	p.Fetcher = fetch.New(layout.Bedgraphs, fetch.HTTPDownloader{Client: http.DefaultClient})
	p.GCS = client
	p.Report = stdout

	if err := p.Run(ctx); err != nil {
		log.Println(err)
		return 1
	}

	return 0
}

func (o options) config() (pipeline.Config, error) {
	cfg := pipeline.Config{
		OutputName: o.filename,
		Cleanup:    pipeline.CleanupAll,
		KeepCache:  cache.Shared(o.cacheSpec),
	}

	var err error
	if cfg.ROIPath, err = dataslicer.ExpandHome(o.bed); err != nil {
		return cfg, err
	}
	if cfg.SamplesPath, err = dataslicer.ExpandHome(o.samples); err != nil {
		return cfg, err
	}

	cfg.WorkDir = o.out
	if cfg.WorkDir == "" {
		if cfg.WorkDir, err = os.Getwd(); err != nil {
			return cfg, err
		}
	}
	if cfg.WorkDir, err = dataslicer.ExpandHome(cfg.WorkDir); err != nil {
		return cfg, err
	}

	switch o.delimiter {
	case "tab", "\t":
		cfg.Delimiter = '\t'
	case "comma", ",":
		cfg.Delimiter = ','
	case "auto":
		cfg.Delimiter = 0
	default:
		return cfg, fmt.Errorf("unrecognized -delimiter %q: expected tab, comma or auto", o.delimiter)
	}

	switch {
	case o.nocleanup:
		cfg.Cleanup = pipeline.CleanupNone
	case o.multirun:
		cfg.Cleanup = pipeline.CleanupIntermediates
	}

	return cfg, nil
}

// helperPath finds the intersect/merge helper, by default alongside the
// executable.
func (o options) helperPath() (string, error) {
	if o.helper != "" {
		return dataslicer.ExpandHome(o.helper)
	}

	dir, err := osext.ExecutableFolder()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, helperScriptName), nil
}
