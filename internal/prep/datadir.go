package prep

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"kiritan/internal/services"
	"kiritan/internal/stage"
	"kiritan/internal/toolexec"
)

// DataDir is stage 2: it turns each raw split into a data directory.
type DataDir struct{}

func (DataDir) Number() int         { return 2 }
func (DataDir) Name() string        { return "datadir" }
func (DataDir) Description() string { return "Generate data directories (wav.scp and friends)" }

func (d DataDir) Execute(ctx context.Context, env *stage.Env) error {
	cmd := toolexec.Command{Name: "data_prep", Argv: env.Config.Tools.DataPrepCommand}
	rate := strconv.Itoa(env.Config.Prep.SampleRate)

	return stage.ForEachPartition(ctx, env, func(ctx context.Context, p stage.Partition) error {
		raw := env.Layout.RawDir(p)
		if _, err := os.Stat(raw); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return services.Wrap(services.ErrNotFound, d.Name(), p.Name,
					fmt.Sprintf("raw directory %s missing (run stage 1 first)", raw), err)
			}
			return fmt.Errorf("stat %s: %w", raw, err)
		}
		out := env.Layout.PartitionDir(p)
		if err := os.MkdirAll(out, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		return env.Tools.Run(ctx, cmd, raw, out, rate)
	})
}

func (d DataDir) HealthCheck(_ context.Context, env *stage.Env) stage.Health {
	return toolHealth(env, d.Name(), env.Config.Tools.DataPrepCommand)
}
