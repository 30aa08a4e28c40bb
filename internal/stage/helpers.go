package stage

import (
	"context"

	"kiritan/internal/logging"
	"kiritan/internal/services"
)

// ForEachPartition runs fn for every partition in order and stops at the
// first error. The context passed to fn carries the partition name.
func ForEachPartition(ctx context.Context, env *Env, fn func(context.Context, Partition) error) error {
	for _, p := range Partitions {
		if err := ctx.Err(); err != nil {
			return err
		}
		pctx := services.WithPartition(ctx, p.Name)
		logging.WithContext(pctx, env.Logger).Debug("partition started",
			logging.String("alias", p.Alias),
		)
		if err := fn(pctx, p); err != nil {
			return err
		}
	}
	return nil
}
