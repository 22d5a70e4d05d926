package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/carbocation/dataslicer/pipeline"
)

func TestRunRequiresBed(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	code := run(context.Background(), []string{"-s", filepath.Join(dir, "samples.tsv"), "-o", dir, "-api", "http://127.0.0.1:1"}, &out)
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(out.String(), "region of interest bed file is required") || !strings.Contains(out.String(), "-samples") {
		t.Errorf("expected a message and usage, got %q", out.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "tmp")); !os.IsNotExist(err) {
		t.Error("expected nothing to be created")
	}
}

func TestRunRequiresSamples(t *testing.T) {
	var out bytes.Buffer
	if code := run(context.Background(), []string{"-bed", "roi.bed"}, &out); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(out.String(), "A tsv for the samples is required") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestRunMissingInputFile(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	code := run(context.Background(), []string{"-b", filepath.Join(dir, "nope.bed"), "-s", filepath.Join(dir, "nope.tsv"), "-o", dir, "-helper", "helper.sh", "-cache", "memory"}, &out)
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}

func TestConfig(t *testing.T) {
	o := options{bed: "roi.bed", samples: "s.tsv", out: "/work", filename: "x.bed", delimiter: "auto", multirun: true}
	cfg, err := o.config()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Delimiter != 0 || cfg.Cleanup != pipeline.CleanupIntermediates || cfg.OutputPath() != "/work/x.bed" {
		t.Errorf("unexpected config %+v", cfg)
	}

	o.nocleanup = true
	if cfg, _ = o.config(); cfg.Cleanup != pipeline.CleanupNone {
		t.Errorf("expected -nocleanup to win, got %v", cfg.Cleanup)
	}

	if cfg.KeepCache {
		t.Error("expected the default cache to be purged")
	}
	o.cacheSpec = "gs://bucket/exrna"
	if cfg, _ = o.config(); !cfg.KeepCache {
		t.Error("expected a gs:// cache to be kept")
	}

	o.delimiter = "pipe"
	if _, err := o.config(); err == nil {
		t.Error("expected an unknown delimiter to fail")
	}
}

func TestRunVersion(t *testing.T) {
	var out bytes.Buffer
	if code := run(context.Background(), []string{"-version"}, &out); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if out.Len() == 0 {
		t.Error("expected build information")
	}
}
