package pipeline

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/carbocation/dataslicer/cache"
	"github.com/carbocation/pfx"
)

const (
	DefaultOutputName = "exRNA_data_slice_combined.bed"

	tmpDirName          = "tmp"
	bedgraphDirName     = "bedgraphs"
	sortedBedDirName    = "sortedBed"
	intersectionDirName = "ind_intersection"
	inputsDirName       = "inputs"

	intersectionSuffix = "_intersect.bed"
)

// Layout names the directories a run works in, all under Root/tmp.
type Layout struct {
	Root          string
	Tmp           string
	Bedgraphs     string
	SortedBed     string
	Intersections string
	Inputs        string
}

func NewLayout(root string) Layout {
	tmp := filepath.Join(root, tmpDirName)
	return Layout{
		Root:          root,
		Tmp:           tmp,
		Bedgraphs:     filepath.Join(tmp, bedgraphDirName),
		SortedBed:     filepath.Join(tmp, sortedBedDirName),
		Intersections: filepath.Join(tmp, intersectionDirName),
		Inputs:        filepath.Join(tmp, inputsDirName),
	}
}

// Ensure creates the directories needed before any sample is processed.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.Tmp, l.Bedgraphs} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return pfx.Err(err)
		}
	}
	return nil
}

// SortedROIPath is where the sorted copy of roi is written:
// sortedBed/<stem>_sorted<ext>.
func (l Layout) SortedROIPath(roi string) string {
	base := filepath.Base(roi)
	ext := filepath.Ext(base)
	return filepath.Join(l.SortedBed, strings.TrimSuffix(base, ext)+"_sorted"+ext)
}

// IntersectionPath is the per-sample intersection output for a bedgraph.
func (l Layout) IntersectionPath(bedgraph string) string {
	return filepath.Join(l.Intersections, filepath.Base(bedgraph)+intersectionSuffix)
}

// CoverageFiles lists the decompressed coverage files present on disk.
func (l Layout) CoverageFiles() ([]string, error) {
	return filepath.Glob(filepath.Join(l.Bedgraphs, "*bedgraph"))
}

// IntersectionFiles lists the per-sample intersection outputs present on disk.
func (l Layout) IntersectionFiles() ([]string, error) {
	return filepath.Glob(filepath.Join(l.Intersections, "*bed"))
}

// CleanupMode selects how much of tmp is removed at the end of a run.
type CleanupMode int

const (
	// CleanupAll removes tmp entirely, including the document cache.
	CleanupAll CleanupMode = iota
	// CleanupIntermediates keeps the document cache for the next run.
	CleanupIntermediates
	// CleanupNone keeps everything.
	CleanupNone
)

// Cleanup removes intermediate files according to mode. Under CleanupAll a
// non-nil docs is purged too.
func (l Layout) Cleanup(ctx context.Context, mode CleanupMode, docs cache.Store) error {
	switch mode {
	case CleanupNone:
		return nil
	case CleanupIntermediates:
		log.Printf("Removing intermediate files in %s, %s and %s\n", l.Bedgraphs, l.SortedBed, l.Intersections)
		for _, dir := range []string{l.Bedgraphs, l.SortedBed, l.Intersections, l.Inputs} {
			if err := os.RemoveAll(dir); err != nil {
				return pfx.Err(err)
			}
		}
		return nil
	}

	log.Println("Removing all of the intermediate files")
	if docs != nil {
		if err := docs.Purge(ctx); err != nil {
			return err
		}
	}
	return pfx.Err(os.RemoveAll(l.Tmp))
}
