package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"kiritan/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test:
// a recipe dir holding data/ and exp/logs, and an existing corpus root.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	recipe := filepath.Join(base, "recipe")
	corpus := filepath.Join(base, "corpus")
	for _, dir := range []string{recipe, corpus} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	cfgVal := config.Default()
	cfgVal.Paths.RecipeDir = recipe
	cfgVal.Paths.DataDir = filepath.Join(recipe, "data")
	cfgVal.Paths.LogDir = filepath.Join(recipe, "exp", "logs")
	cfgVal.Paths.EnvFile = ""
	cfgVal.Corpus.Root = corpus
	cfgVal.Corpus.AudioSubdir = ""
	cfgVal.History.DSN = filepath.Join(cfgVal.Paths.LogDir, "history.db")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithoutCorpus clears the corpus root.
func WithoutCorpus() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Corpus.Root = ""
	}
}

// WithToolNames points every tool command at a bare program name, which
// suits injected executors that dispatch on the binary.
func WithToolNames(split, dataPrep, segments string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tools.SplitCommand = []string{split}
		b.cfg.Tools.DataPrepCommand = []string{dataPrep}
		b.cfg.Tools.SegmentsCommand = []string{segments}
	}
}

// WithStubScripts writes local/<name> shell scripts under the recipe dir
// with the given bodies and configures the tools to run them. Empty bodies
// exit 0.
func WithStubScripts(split, dataPrep, segments string) ConfigOption {
	return func(b *configBuilder) {
		local := filepath.Join(b.cfg.Paths.RecipeDir, "local")
		if err := os.MkdirAll(local, 0o755); err != nil {
			b.t.Fatalf("mkdir local dir: %v", err)
		}
		write := func(name, body string) []string {
			if body == "" {
				body = "exit 0"
			}
			target := filepath.Join(local, name)
			if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
			return []string{filepath.Join("local", name)}
		}
		b.cfg.Tools.SplitCommand = write("split.sh", split)
		b.cfg.Tools.DataPrepCommand = write("data_prep.sh", dataPrep)
		b.cfg.Tools.SegmentsCommand = write("segments.sh", segments)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.RecipeDir)
}
