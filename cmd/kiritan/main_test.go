package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kiritan/internal/services"
)

type cliTestEnv struct {
	baseDir    string
	recipeDir  string
	corpusDir  string
	configPath string
}

func setupCLITestEnv(t *testing.T, corpus bool) *cliTestEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("KIRITAN", "")

	base := t.TempDir()
	env := &cliTestEnv{
		baseDir:    base,
		recipeDir:  filepath.Join(base, "recipe"),
		corpusDir:  filepath.Join(base, "corpus"),
		configPath: filepath.Join(base, "kiritan.toml"),
	}
	if err := os.MkdirAll(filepath.Join(env.recipeDir, "local"), 0o755); err != nil {
		t.Fatalf("mkdir recipe: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(env.corpusDir, "wav"), 0o755); err != nil {
		t.Fatalf("mkdir corpus: %v", err)
	}
	root := ""
	if corpus {
		root = env.corpusDir
	}
	writeTestConfig(t, env.configPath, env.recipeDir, root)
	return env
}

func writeTestConfig(t *testing.T, path, recipeDir, corpusRoot string) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
recipe_dir = %q

[corpus]
root = %q
audio_subdir = "wav"

[tools]
split_command = ["local/split.sh"]
data_prep_command = ["local/data_prep.sh"]
segments_command = ["local/segments.sh"]

[logging]
format = "console"
level = "info"
`, recipeDir, corpusRoot)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func writeStubScript(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", path, err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t, true)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.corpusDir)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestEnvFileSuppliesCorpus(t *testing.T) {
	env := setupCLITestEnv(t, false)
	os.Unsetenv("KIRITAN")
	envFile := filepath.Join(env.baseDir, "corpus.env")
	if err := os.WriteFile(envFile, []byte("KIRITAN="+env.corpusDir+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, []string{"--env-file", envFile, "config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Corpus root: "+env.corpusDir)
}

func TestStagesCommandShowsRange(t *testing.T) {
	out, _, err := runCLI(t, []string{"stages", "--stage", "2", "--stop_stage", "3"}, "")
	if err != nil {
		t.Fatalf("stages: %v", err)
	}
	requireContains(t, out, "Range [2, 3]")
	for _, name := range []string{"download", "split", "datadir", "segments"} {
		requireContains(t, out, name)
	}
}

func TestRunRequiresCorpus(t *testing.T) {
	env := setupCLITestEnv(t, false)
	marker := filepath.Join(env.baseDir, "split-ran")
	writeStubScript(t, filepath.Join(env.recipeDir, "local", "split.sh"), "touch "+marker)

	_, _, err := runCLI(t, []string{"run"}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	requireContains(t, err.Error(), "KIRITAN is not set")
	if _, statErr := os.Stat(marker); !os.IsNotExist(statErr) {
		t.Fatal("expected no stage to run without a corpus root")
	}
}

func TestRunSplitStageWithStubScript(t *testing.T) {
	env := setupCLITestEnv(t, true)
	writeStubScript(t, filepath.Join(env.recipeDir, "local", "split.sh"),
		`echo "splitting $1"
mkdir -p "$2/train_raw" "$2/dev_raw" "$2/eval1_raw"`)

	_, stderr, err := runCLI(t, []string{"run", "--stage", "1", "--stop_stage", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, stderr)
	}
	requireContains(t, stderr, "Successfully finished")
	for _, p := range []string{"train", "dev", "eval1"} {
		raw := filepath.Join(env.recipeDir, "data", "local", p+"_raw")
		if _, err := os.Stat(raw); err != nil {
			t.Fatalf("expected %s: %v", raw, err)
		}
	}
	if _, err := os.Stat(filepath.Join(env.recipeDir, "exp", "logs", "kiritan.log")); err != nil {
		t.Fatalf("expected log file: %v", err)
	}

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "succeeded")
	requireContains(t, out, "[1, 1]")

	out, _, err = runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "split done")
	requireContains(t, out, "Eval1")

	out, _, err = runCLI(t, []string{"logs", "-n", "200"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "stage completed")
	requireContains(t, out, "Successfully finished")
}

func TestRunReportsToolFailure(t *testing.T) {
	env := setupCLITestEnv(t, true)
	writeStubScript(t, filepath.Join(env.recipeDir, "local", "split.sh"), "echo boom >&2\nexit 3")

	_, stderr, err := runCLI(t, []string{"run"}, env.configPath)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	requireContains(t, err.Error(), "stage 1 (split)")
	requireContains(t, err.Error(), "exited with code 3")
	requireContains(t, stderr, "run failed")
}

func TestCheckFailsWithMissingTools(t *testing.T) {
	env := setupCLITestEnv(t, true)

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err == nil {
		t.Fatal("expected check to fail without recipe tools")
	}
	requireContains(t, out, "FAIL")
	requireContains(t, out, "Splitter")
}
