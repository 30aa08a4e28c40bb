package workflow

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"kiritan/internal/config"
	"kiritan/internal/history"
	"kiritan/internal/logging"
	"kiritan/internal/services"
	"kiritan/internal/stage"
	"kiritan/internal/testsupport"
)

type stubStage struct {
	number int
	name   string
	err    error
	log    *[]int
}

func (s stubStage) Number() int         { return s.number }
func (s stubStage) Name() string        { return s.name }
func (s stubStage) Description() string { return "stub " + s.name }

func (s stubStage) Execute(ctx context.Context, _ *stage.Env) error {
	*s.log = append(*s.log, s.number)
	return s.err
}

func stubStages(log *[]int) []stage.Handler {
	return []stage.Handler{
		stubStage{number: 3, name: "segments", log: log},
		stubStage{number: 0, name: "download", log: log},
		stubStage{number: 2, name: "datadir", log: log},
		stubStage{number: 1, name: "split", log: log},
	}
}

func TestRunRequiresCorpusBeforeAnyStage(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutCorpus())
	var ran []int

	_, err := Run(context.Background(), stage.DefaultRange(), Options{Config: cfg, Handlers: stubStages(&ran)})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), config.CorpusEnvVar) {
		t.Fatalf("expected message to name %s, got %v", config.CorpusEnvVar, err)
	}
	if len(ran) != 0 {
		t.Fatalf("expected no stages to run, got %v", ran)
	}
}

func TestRunGatesByRangeInAscendingOrder(t *testing.T) {
	cases := []struct {
		rng      stage.Range
		executed []int
	}{
		{stage.DefaultRange(), []int{1, 2, 3}},
		{stage.Range{Start: 0, Stop: 100}, []int{0, 1, 2, 3}},
		{stage.Range{Start: 2, Stop: 2}, []int{2}},
		{stage.Range{Start: -5, Stop: 1}, []int{0, 1}},
		{stage.Range{Start: 3, Stop: 2}, nil},
		{stage.Range{Start: 4, Stop: 100}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.rng.String(), func(t *testing.T) {
			var ran []int
			result, err := Run(context.Background(), tc.rng, Options{Config: testsupport.NewConfig(t), Handlers: stubStages(&ran)})
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if !equalInts(ran, tc.executed) || !equalInts(result.Executed, tc.executed) {
				t.Fatalf("executed %v (result %v), want %v", ran, result.Executed, tc.executed)
			}
			if len(result.Executed)+len(result.Skipped) != 4 {
				t.Fatalf("expected every stage to be executed or skipped, got %+v", result)
			}
			if result.RunID == "" {
				t.Fatal("expected run id")
			}
		})
	}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var ran []int
	boom := services.Wrap(services.ErrExternalTool, "data_prep", "run", "exited with code 1", nil)
	handlers := []stage.Handler{
		stubStage{number: 1, name: "split", log: &ran},
		stubStage{number: 2, name: "datadir", log: &ran, err: boom},
		stubStage{number: 3, name: "segments", log: &ran},
	}

	result, err := Run(context.Background(), stage.DefaultRange(), Options{Config: cfg, Handlers: handlers})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "stage 2 (datadir)") {
		t.Fatalf("expected error to name the failing stage, got %v", err)
	}
	if !equalInts(ran, []int{1, 2}) || !equalInts(result.Executed, []int{1, 2}) {
		t.Fatalf("expected to stop after stage 2, ran %v", ran)
	}
}

func TestRunFailsWhenDataDirLocked(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	layout := stage.Layout{DataDir: cfg.Paths.DataDir}
	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		t.Fatal(err)
	}
	held := flock.New(layout.LockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("take lock: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	var ran []int
	_, err = Run(context.Background(), stage.DefaultRange(), Options{Config: cfg, Handlers: stubStages(&ran)})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected lock contention to be a configuration error, got %v", err)
	}
	if len(ran) != 0 {
		t.Fatalf("expected no stages to run, got %v", ran)
	}
}

func TestRunRecordsHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)

	var ran []int
	result, err := Run(context.Background(), stage.Range{Start: 0, Stop: 2}, Options{
		Config:   cfg,
		Handlers: stubStages(&ran),
		Recorder: store,
		Logger:   logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	runs, err := store.RecentRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != result.RunID || runs[0].Status != history.StatusSucceeded {
		t.Fatalf("unexpected runs %+v", runs)
	}
	stages, err := store.RunStages(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("run stages: %v", err)
	}
	if len(stages) != 3 {
		t.Fatalf("expected one row per executed stage, got %d", len(stages))
	}
	for i, rec := range stages {
		if rec.Number != i || rec.Status != history.StatusSucceeded {
			t.Fatalf("unexpected stage record %+v", rec)
		}
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var ran []int
	_, err := Run(ctx, stage.DefaultRange(), Options{Config: testsupport.NewConfig(t), Handlers: stubStages(&ran)})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if len(ran) != 0 {
		t.Fatalf("expected no stages to run, got %v", ran)
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
