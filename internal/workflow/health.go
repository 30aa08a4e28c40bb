package workflow

import (
	"context"
	"log/slog"

	"kiritan/internal/config"
	"kiritan/internal/logging"
	"kiritan/internal/prep"
	"kiritan/internal/stage"
	"kiritan/internal/toolexec"
)

// StageHealth pairs a handler with its readiness.
type StageHealth struct {
	Number int
	stage.Health
}

// CheckHealth asks every handler that depends on external programs whether
// it can run. Handlers without a health check are reported ready.
func CheckHealth(ctx context.Context, cfg *config.Config, handlers []stage.Handler, logger *slog.Logger) []StageHealth {
	if handlers == nil {
		handlers = prep.Handlers()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	env := stage.NewEnv(cfg, toolexec.NewRunner(cfg.Paths.RecipeDir, logger), logger)

	results := make([]StageHealth, 0, len(handlers))
	for _, h := range handlers {
		health := stage.Healthy(h.Name())
		if checker, ok := h.(stage.HealthChecker); ok {
			health = checker.HealthCheck(ctx, env)
		}
		results = append(results, StageHealth{Number: h.Number(), Health: health})
	}
	return results
}
