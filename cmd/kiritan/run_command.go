package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"kiritan/internal/history"
	"kiritan/internal/logging"
	"kiritan/internal/services"
	"kiritan/internal/stage"
	"kiritan/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var startStage, stopStage int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the data preparation stages in [--stage, --stop_stage]",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireCorpus(); err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			logger, err := ctx.ensureLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer ctx.closeLogger()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := workflow.Options{Config: cfg, Logger: logger}
			if cfg.History.Enabled {
				store, err := history.Open(cfg)
				if err != nil {
					logging.WarnWithContext(logger, "run history unavailable", "history_unavailable",
						logging.Error(err),
						logging.String("driver", cfg.History.Driver),
						logging.String(logging.FieldImpact, "this run will not be recorded"),
						logging.String(logging.FieldErrorHint, "check history.dsn or set history.enabled = false"),
					)
				} else {
					defer store.Close()
					opts.Recorder = store
				}
			}

			rng := stage.Range{Start: startStage, Stop: stopStage}
			started := time.Now()
			result, err := workflow.Run(runCtx, rng, opts)
			elapsed := time.Since(started)
			runLogger := logging.WithContext(services.WithRunID(context.Background(), result.RunID), logger)
			if err != nil {
				logging.ErrorWithContext(runLogger, "run failed", "run_failure",
					logging.Duration("elapsed", elapsed),
					logging.String(logging.FieldErrorHint, services.Hint(err)),
					logging.Error(err),
				)
				return err
			}
			runLogger.Info("Successfully finished",
				logging.Duration("elapsed", elapsed.Round(time.Millisecond)),
				logging.Any("executed", result.Executed),
			)
			return nil
		},
	}

	cmd.Flags().IntVar(&startStage, "stage", stage.DefaultStart, "First stage to run")
	cmd.Flags().IntVar(&stopStage, "stop_stage", stage.DefaultStop, "Last stage to run")
	return cmd
}
