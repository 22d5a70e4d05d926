// Package resolve walks the knowledge base from a biosample's analysis to the
// download URL of its genome-aligned coverage bedgraph:
//
//	Jobs index -> Job -> Related Biosamples -> Result Files -> File
package resolve

import (
	"context"
	"fmt"
	"log"
	"regexp"

	"github.com/carbocation/dataslicer"
	"github.com/carbocation/dataslicer/jsonpath"
	"github.com/carbocation/dataslicer/kb"
)

// Paths into the knowledge-base documents.
const (
	JobsListPath          = "data"
	JobNamePath           = "Job.value"
	RelatedAnalysisPath   = "data.Job.properties.Related Analysis.value"
	RelatedBiosamplesPath = "data.Job.properties.Related Biosamples.items"
	BiosampleIDPath       = "Related Biosample.value"
	ResultFilesRefPath    = "Related Biosample.properties.Related Result Files.value"
	PipelineFilesPath     = "data.Result Files.properties.Biosample ID.properties.Pipeline Result Files.items"
	FileNamePath          = "File ID.properties.File Name.value"
	FileURLPath           = "File ID.properties.Genboree URL.value"
)

// DefaultExclude matches jobs that never carry bedgraph coverage.
var DefaultExclude = regexp.MustCompile(`PCR`)

// Documents is the part of kb.Store the resolver reads from.
type Documents interface {
	FetchDocument(ctx context.Context, docType, docName string) (jsonpath.Node, error)
}

// Options adjusts which jobs and files are considered.
type Options struct {
	// Exclude skips jobs whose name matches. Defaults to DefaultExclude.
	Exclude *regexp.Regexp

	// FileName is the pipeline result file to resolve. Defaults to
	// dataslicer.CoverageArtifactName.
	FileName string
}

// Resolver resolves samples against one Jobs index. It never modifies the
// documents it reads.
type Resolver struct {
	docs    Documents
	jobs    jsonpath.Node
	exclude *regexp.Regexp
	target  string
}

func New(docs Documents, jobsIndex jsonpath.Node, opts Options) *Resolver {
	r := &Resolver{
		docs:    docs,
		jobs:    jobsIndex,
		exclude: opts.Exclude,
		target:  opts.FileName,
	}
	if r.exclude == nil {
		r.exclude = DefaultExclude
	}
	if r.target == "" {
		r.target = dataslicer.CoverageArtifactName
	}

	return r
}

// Resolve finds the coverage file URL for s. The first job in index order
// whose whole chain resolves wins; ambiguous matches are not detected.
func (r *Resolver) Resolve(ctx context.Context, s dataslicer.Sample) Result {
	res := Result{Sample: s, Reached: Start}

	jobs, err := jsonpath.Items(r.jobs, JobsListPath)
	if err != nil {
		return res.mismatch(fmt.Sprintf("jobs index: %v", err))
	}
	res.Reached = JobsScanned

	var reason string
	for _, item := range jobs {
		if err := ctx.Err(); err != nil {
			return res.mismatch(err.Error())
		}

		docName, err := jsonpath.String(item, JobNamePath)
		if err != nil {
			continue
		}
		if r.exclude.MatchString(docName) {
			continue
		}

		jobDoc, err := r.docs.FetchDocument(ctx, kb.CollectionJobs, docName)
		if err != nil {
			continue
		}
		if !kb.CheckStatus(jobDoc, docName) {
			continue
		}

		analysis, err := jsonpath.String(jobDoc, RelatedAnalysisPath)
		if err != nil || analysis != s.AnalysisID {
			continue
		}
		log.Printf("Found the correct job for the analysis: %s (%s)\n", s.AnalysisID, docName)
		res.Job = docName
		res.Reached = JobMatched

		url, reached, why := r.fromJob(ctx, jobDoc, docName, s.BiosampleID)
		if reached == FileMatched {
			res.Status = Resolved
			res.URL = url
			res.Reached = FileMatched
			return res
		}
		if reached > res.Reached {
			res.Reached = reached
		}
		if reason == "" {
			reason = why
		}
	}

	if reason != "" {
		return res.mismatch(reason)
	}

	res.Status = JobNotFound
	return res
}

// fromJob follows one matched job down to the target file. Only a walk that
// reaches FileMatched carries a URL. Otherwise a non-empty reason means the
// chain broke on document shape or status, and an empty one means the IDs or
// file names simply did not match.
func (r *Resolver) fromJob(ctx context.Context, jobDoc jsonpath.Node, jobName, biosampleID string) (url string, reached State, reason string) {
	reached = JobMatched

	related, err := jsonpath.Items(jobDoc, RelatedBiosamplesPath)
	if err != nil {
		return "", reached, fmt.Sprintf("job %s: %v", jobName, err)
	}

	notFound := ""
	for _, rb := range related {
		id, err := jsonpath.String(rb, BiosampleIDPath)
		if err != nil || id != biosampleID {
			continue
		}
		reached = BiosampleMatched

		rfName, err := jsonpath.String(rb, ResultFilesRefPath)
		if err != nil {
			notFound = fmt.Sprintf("job %s: biosample %s: %v", jobName, biosampleID, err)
			continue
		}

		log.Printf("Found result file doc for %s: %s\n", biosampleID, rfName)
		rfDoc, err := r.docs.FetchDocument(ctx, kb.CollectionResultFiles, rfName)
		if err != nil {
			notFound = fmt.Sprintf("result files %s: %v", rfName, err)
			continue
		}
		if !kb.CheckStatus(rfDoc, rfName) {
			notFound = fmt.Sprintf("result files %s: %v", rfName, kb.ErrBadStatus)
			continue
		}
		if reached < ResultFileFetched {
			reached = ResultFileFetched
		}

		files, err := jsonpath.Items(rfDoc, PipelineFilesPath)
		if err != nil {
			notFound = fmt.Sprintf("result files %s: %v", rfName, err)
			continue
		}

		for _, f := range files {
			name, err := jsonpath.String(f, FileNamePath)
			if err != nil || name != r.target {
				continue
			}

			url, err := jsonpath.String(f, FileURLPath)
			if err != nil {
				notFound = fmt.Sprintf("result files %s: %s: %v", rfName, name, err)
				continue
			}

			return url, FileMatched, ""
		}
	}

	return "", reached, notFound
}
