package resolve

import (
	"fmt"

	"github.com/carbocation/dataslicer"
)

// State is a step of the resolution walk.
type State int

const (
	Start State = iota
	JobsScanned
	JobMatched
	BiosampleMatched
	ResultFileFetched
	FileMatched
)

func (s State) String() string {
	switch s {
	case Start:
		return "Start"
	case JobsScanned:
		return "JobsScanned"
	case JobMatched:
		return "JobMatched"
	case BiosampleMatched:
		return "BiosampleMatched"
	case ResultFileFetched:
		return "ResultFileFetched"
	case FileMatched:
		return "FileMatched"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Status is the outcome of resolving one sample.
type Status int

const (
	JobNotFound Status = iota
	StructuralMismatch
	Resolved
)

func (s Status) String() string {
	switch s {
	case Resolved:
		return "Resolved"
	case JobNotFound:
		return "JobNotFound"
	case StructuralMismatch:
		return "StructuralMismatch"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Result is what Resolve learned about one sample.
type Result struct {
	Sample dataslicer.Sample
	Status Status

	// URL of the coverage artifact; set only when Status is Resolved.
	URL string

	// Job is the last job whose analysis matched the sample, if any.
	Job string

	// Reason explains a StructuralMismatch.
	Reason string

	// Reached is the furthest state the walk got to.
	Reached State
}

func (r Result) OK() bool { return r.Status == Resolved }

func (r Result) mismatch(reason string) Result {
	r.Status = StructuralMismatch
	r.Reason = reason
	return r
}

func (r Result) String() string {
	switch r.Status {
	case Resolved:
		return fmt.Sprintf("%s: resolved to %s", r.Sample.BiosampleID, r.URL)
	case StructuralMismatch:
		return fmt.Sprintf("%s: unexpected document structure after %s: %s", r.Sample.BiosampleID, r.Reached, r.Reason)
	}
	return fmt.Sprintf("%s: no job found for analysis %s", r.Sample.BiosampleID, r.Sample.AnalysisID)
}
