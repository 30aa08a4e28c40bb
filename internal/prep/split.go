package prep

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"kiritan/internal/logging"
	"kiritan/internal/services"
	"kiritan/internal/stage"
	"kiritan/internal/toolexec"
)

// Split is stage 1: it divides the corpus into train/dev/eval1 raw
// directories under data/local.
type Split struct{}

func (Split) Number() int         { return 1 }
func (Split) Name() string        { return "split" }
func (Split) Description() string { return "Split corpus into train/dev/eval1" }

func (s Split) Execute(ctx context.Context, env *stage.Env) error {
	cfg := env.Config
	local := env.Layout.LocalDir()
	if err := os.MkdirAll(local, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", local, err)
	}

	cmd := toolexec.Command{Name: "split", Argv: cfg.Tools.SplitCommand}
	err := env.Tools.Run(ctx, cmd,
		cfg.SplitInput(),
		local,
		formatRatio(cfg.Prep.DevRatio),
		formatRatio(cfg.Prep.EvalRatio),
	)
	if err != nil {
		return err
	}

	for _, p := range stage.Partitions {
		raw := env.Layout.RawDir(p)
		info, err := os.Stat(raw)
		if err != nil || !info.IsDir() {
			return services.Wrap(services.ErrValidation, s.Name(), "verify",
				fmt.Sprintf("splitter did not produce %s", raw), err)
		}
	}
	logging.WithContext(ctx, env.Logger).Info("corpus split",
		logging.String("local_dir", local),
		logging.Int("partitions", len(stage.Partitions)),
	)
	return nil
}

func (s Split) HealthCheck(_ context.Context, env *stage.Env) stage.Health {
	return toolHealth(env, s.Name(), env.Config.Tools.SplitCommand)
}

func formatRatio(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
