package stage

import (
	"context"
	"log/slog"

	"kiritan/internal/config"
	"kiritan/internal/toolexec"
)

// Handler describes the contract the runner needs from each numbered stage.
type Handler interface {
	Number() int
	Name() string
	Description() string
	Execute(context.Context, *Env) error
}

// HealthChecker is implemented by stages that depend on external programs.
type HealthChecker interface {
	HealthCheck(context.Context, *Env) Health
}

// Env carries everything a stage body may touch.
type Env struct {
	Config *config.Config
	Layout Layout
	Tools  *toolexec.Runner
	Logger *slog.Logger
}

// NewEnv builds the stage environment for cfg.
func NewEnv(cfg *config.Config, tools *toolexec.Runner, logger *slog.Logger) *Env {
	return &Env{
		Config: cfg,
		Layout: Layout{DataDir: cfg.Paths.DataDir},
		Tools:  tools,
		Logger: logger,
	}
}
