package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"kiritan/internal/config"
	"kiritan/internal/logging"
	"kiritan/internal/prep"
	"kiritan/internal/services"
	"kiritan/internal/stage"
	"kiritan/internal/stageexec"
	"kiritan/internal/toolexec"
)

// Recorder persists run and stage history. *history.Store satisfies it.
type Recorder interface {
	stageexec.Recorder
	BeginRun(ctx context.Context, runID string, start, stop int) error
	FinishRun(ctx context.Context, runID string, runErr error) error
}

// Options wires the runner's collaborators. Only Config is required.
type Options struct {
	Config   *config.Config
	Logger   *slog.Logger
	Recorder Recorder
	// Handlers defaults to prep.Handlers().
	Handlers []stage.Handler
	// Executor defaults to the os/exec backed toolexec.CommandExecutor.
	Executor toolexec.Executor
	// RunID is generated when empty.
	RunID string
}

// Result lists what a run did. Elapsed time is measured by the caller.
type Result struct {
	RunID    string
	Executed []int
	Skipped  []int
}

// Run executes every handler whose number lies in rng, in ascending order,
// stopping at the first error.
func Run(ctx context.Context, rng stage.Range, opts Options) (Result, error) {
	var result Result
	cfg := opts.Config
	if cfg == nil {
		return result, services.Wrap(services.ErrConfiguration, "workflow", "options", "configuration is required", nil)
	}
	if err := cfg.RequireCorpus(); err != nil {
		return result, err
	}

	logger := logging.NewComponentLogger(opts.Logger, "workflow")
	handlers := opts.Handlers
	if handlers == nil {
		handlers = prep.Handlers()
	}
	handlers = append([]stage.Handler(nil), handlers...)
	sort.SliceStable(handlers, func(i, j int) bool {
		return handlers[i].Number() < handlers[j].Number()
	})

	result.RunID = opts.RunID
	if result.RunID == "" {
		result.RunID = uuid.NewString()
	}
	ctx = services.WithRunID(ctx, result.RunID)
	runLogger := logging.WithContext(ctx, logger)

	var selected []stage.Handler
	for _, h := range handlers {
		if rng.Contains(h.Number()) {
			selected = append(selected, h)
		} else {
			result.Skipped = append(result.Skipped, h.Number())
		}
	}
	if len(selected) == 0 {
		runLogger.Info("no stages in range",
			logging.String("range", rng.String()),
			logging.String(logging.FieldEventType, "run_noop"),
		)
		return result, nil
	}

	env := stage.NewEnv(cfg, &toolexec.Runner{
		Dir:    cfg.Paths.RecipeDir,
		Exec:   opts.Executor,
		Logger: logger,
	}, logger)

	unlock, err := acquireLock(env.Layout)
	if err != nil {
		return result, err
	}
	defer unlock()

	runLogger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("range", rng.String()),
		logging.String("corpus_root", cfg.Corpus.Root),
		logging.String("data_dir", cfg.Paths.DataDir),
	)
	recordRun(runLogger, "begin", opts.Recorder, func(rec Recorder) error {
		return rec.BeginRun(context.WithoutCancel(ctx), result.RunID, rng.Start, rng.Stop)
	})

	runErr := runStages(ctx, selected, env, logger, opts.Recorder, result.RunID, &result)

	recordRun(runLogger, "finish", opts.Recorder, func(rec Recorder) error {
		return rec.FinishRun(context.WithoutCancel(ctx), result.RunID, runErr)
	})
	if runErr != nil {
		return result, runErr
	}
	runLogger.Info("run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Any("executed", result.Executed),
	)
	return result, nil
}

func runStages(ctx context.Context, handlers []stage.Handler, env *stage.Env, logger *slog.Logger, recorder Recorder, runID string, result *Result) error {
	var stageRecorder stageexec.Recorder
	if recorder != nil {
		stageRecorder = recorder
	}
	for _, h := range handlers {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run interrupted before stage %d (%s): %w", h.Number(), h.Name(), err)
		}
		err := stageexec.Run(ctx, stageexec.Options{
			Logger:   logger,
			Recorder: stageRecorder,
			Handler:  h,
			Env:      env,
			RunID:    runID,
		})
		result.Executed = append(result.Executed, h.Number())
		if err != nil {
			return fmt.Errorf("stage %d (%s): %w", h.Number(), h.Name(), err)
		}
	}
	return nil
}

// acquireLock takes the data-directory lock, creating the directory first.
func acquireLock(layout stage.Layout) (func(), error) {
	if err := os.MkdirAll(layout.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	lockPath := layout.LockPath()
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "lock",
			fmt.Sprintf("another kiritan run holds %s", lockPath), nil)
	}
	return func() { _ = lock.Unlock() }, nil
}

func recordRun(logger *slog.Logger, what string, rec Recorder, fn func(Recorder) error) {
	if rec == nil {
		return
	}
	if err := fn(rec); err != nil {
		logging.WarnWithContext(logger, "failed to record run "+what, "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run history will be incomplete"),
		)
	}
}
