package stageexec

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"kiritan/internal/logging"
	"kiritan/internal/services"
	"kiritan/internal/stage"
)

// Recorder persists stage lifecycle transitions. Implementations must be
// safe to call with a cancelled context.
type Recorder interface {
	StageStarted(ctx context.Context, runID string, number int, name string) error
	StageFinished(ctx context.Context, runID string, number int, stageErr error) error
}

// Options controls a single stage execution.
type Options struct {
	Logger   *slog.Logger
	Recorder Recorder
	Handler  stage.Handler
	Env      *stage.Env
	RunID    string
}

// Run executes one stage with lifecycle logging and history persistence.
// The handler error is returned unchanged.
func Run(ctx context.Context, opts Options) error {
	if opts.Handler == nil {
		return fmt.Errorf("stage handler unavailable")
	}
	if opts.Env == nil {
		return fmt.Errorf("stage environment is required: %s", opts.Handler.Name())
	}
	name := opts.Handler.Name()
	number := opts.Handler.Number()

	stageCtx := services.WithStage(ctx, name)
	logger := opts.Logger
	if logger == nil {
		logger = opts.Env.Logger
	}
	stageLogger := logging.WithContext(stageCtx, logger)

	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.Int("stage_number", number),
		logging.String("description", opts.Handler.Description()),
	)
	record(stageLogger, "start", func() error {
		if opts.Recorder == nil {
			return nil
		}
		return opts.Recorder.StageStarted(context.WithoutCancel(stageCtx), opts.RunID, number, name)
	})

	env := *opts.Env
	env.Logger = logger
	start := time.Now()
	stageErr := opts.Handler.Execute(stageCtx, &env)
	elapsed := time.Since(start)

	record(stageLogger, "finish", func() error {
		if opts.Recorder == nil {
			return nil
		}
		return opts.Recorder.StageFinished(context.WithoutCancel(stageCtx), opts.RunID, number, stageErr)
	})

	if stageErr != nil {
		logging.ErrorWithContext(stageLogger, "stage failed", "stage_failure",
			logging.Int("stage_number", number),
			logging.Duration("duration", elapsed),
			logging.String("error_message", failureMessage(stageErr)),
			logging.String(logging.FieldErrorHint, services.Hint(stageErr)),
			logging.Error(stageErr),
		)
		return stageErr
	}

	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Int("stage_number", number),
		logging.Duration("duration", elapsed),
	)
	return nil
}

func record(logger *slog.Logger, what string, fn func() error) {
	if err := fn(); err != nil {
		logging.WarnWithContext(logger, "failed to record stage "+what, "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run history will be incomplete"),
			logging.String(logging.FieldErrorHint, "check history.dsn and database permissions"),
		)
	}
}

func failureMessage(err error) string {
	details := services.Details(err)
	message := strings.TrimSpace(details.Message)
	if message == "" {
		message = strings.TrimSpace(err.Error())
	}
	return message
}
