package dataslicer

import (
	"encoding/csv"
	"io"
	"log"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

const (
	// CoverageFileSuffix names the genome-aligned bedgraph produced for each
	// biosample by the exRNA pipeline.
	CoverageFileSuffix = "_endogenousAlignments_genome_Aligned.bedgraph"

	// CoverageArtifactName is the compressed coverage artifact listed among a
	// biosample's pipeline result files.
	CoverageArtifactName = "endogenousAlignments_genome_Aligned.bedgraph.xz"

	// SampleNameMarker separates the biosample ID from the rest of an
	// intersection output's file name.
	SampleNameMarker = "_endogenousAlignments"
)

// Sample pairs a biosample with the analysis that processed it.
type Sample struct {
	AnalysisID  string `csv:"analysis"`
	BiosampleID string `csv:"biosample"`
}

func (s Sample) String() string {
	return "analysis: " + s.AnalysisID + ", biosample: " + s.BiosampleID
}

// CoverageFileName is the decompressed bedgraph name for a biosample.
func CoverageFileName(biosampleID string) string {
	return biosampleID + CoverageFileSuffix
}

// CoverageFilePath is where the decompressed bedgraph for biosampleID lives
// inside dir. Each biosample has exactly one such path.
func CoverageFilePath(dir, biosampleID string) string {
	return filepath.Join(dir, CoverageFileName(biosampleID))
}

// SampleNameFromPath recovers the biosample name from a per-sample output
// file: its base name up to SampleNameMarker.
func SampleNameFromPath(path string) string {
	return strings.SplitN(filepath.Base(path), SampleNameMarker, 2)[0]
}

var headerLine = regexp.MustCompile(`(?i)biosample|analysis`)

// ReadSamples parses a mapping file with one `analysisID<delim>biosampleID`
// pair per line. Header-like lines are skipped anywhere in the file, and rows
// missing either ID are skipped with a warning. Each biosample appears once in
// the result, in order of first appearance; a later row for the same
// biosample replaces its analysis ID.
func ReadSamples(r io.Reader, delim rune) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var rows []Sample
	if err := gocsv.UnmarshalCSVWithoutHeaders(pairReader{cr}, &rows); err != nil {
		return nil, pfx.Err(err)
	}

	out := make([]Sample, 0, len(rows))
	seen := make(map[string]int)
	for i, row := range rows {
		row.AnalysisID = strings.TrimSpace(row.AnalysisID)
		row.BiosampleID = strings.TrimSpace(row.BiosampleID)

		if headerLine.MatchString(row.AnalysisID) || headerLine.MatchString(row.BiosampleID) {
			continue
		}
		if row.AnalysisID == "" || row.BiosampleID == "" {
			log.Printf("Warning: skipping sample row %d (%q, %q): expected an analysis ID and a biosample ID\n", i+1, row.AnalysisID, row.BiosampleID)
			continue
		}

		if j, exists := seen[row.BiosampleID]; exists {
			out[j].AnalysisID = row.AnalysisID
			continue
		}

		seen[row.BiosampleID] = len(out)
		out = append(out, row)
	}

	return out, nil
}

// pairReader hands gocsv at most two columns per row; anything after the
// biosample ID is ignored.
type pairReader struct {
	*csv.Reader
}

func (p pairReader) Read() ([]string, error) {
	row, err := p.Reader.Read()
	if len(row) > 2 {
		row = row[:2]
	}
	return row, err
}

func (p pairReader) ReadAll() ([][]string, error) {
	var out [][]string
	for {
		row, err := p.Read()
		if err == io.EOF {
			return out, nil
		} else if err != nil {
			return out, err
		}
		out = append(out, row)
	}
}
