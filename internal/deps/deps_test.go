package deps

import (
	"os"
	"path/filepath"
	"testing"

	"kiritan/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Missing script", Command: present, Script: filepath.Join(binDir, "absent.py")},
		{Name: "Unset"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Available {
		t.Fatalf("expected missing script to be unavailable")
	}
	if results[3].Detail != "command not configured" {
		t.Fatalf("unexpected detail for unset command: %q", results[3].Detail)
	}
}

func TestToolRequirementsResolveAgainstRecipeDir(t *testing.T) {
	recipe := t.TempDir()
	cfg := config.Default()
	cfg.Paths.RecipeDir = recipe
	cfg.Tools.SplitCommand = []string{"python3", "local/dataset_split.py"}
	cfg.Tools.DataPrepCommand = []string{"local/data_prep.sh"}
	cfg.Tools.SegmentsCommand = []string{"python3", "-u", "local/prep_segments.py"}

	reqs := ToolRequirements(&cfg)
	if len(reqs) != 3 {
		t.Fatalf("expected 3 requirements, got %d", len(reqs))
	}
	if reqs[0].Command != "python3" || reqs[0].Script != filepath.Join(recipe, "local", "dataset_split.py") {
		t.Fatalf("unexpected splitter requirement %+v", reqs[0])
	}
	if reqs[1].Command != filepath.Join(recipe, "local", "data_prep.sh") || reqs[1].Script != "" {
		t.Fatalf("unexpected data prep requirement %+v", reqs[1])
	}
	if reqs[2].Script != "" {
		t.Fatalf("expected flag argument not treated as script, got %+v", reqs[2])
	}
}
