package prep

import (
	"context"

	"kiritan/internal/config"
	"kiritan/internal/logging"
	"kiritan/internal/stage"
)

// Download is stage 0. The corpus cannot be fetched automatically, so the
// stage only tells the operator where it is expected.
type Download struct{}

func (Download) Number() int         { return 0 }
func (Download) Name() string        { return "download" }
func (Download) Description() string { return "Remind where to place the manually downloaded corpus" }

func (Download) Execute(ctx context.Context, env *stage.Env) error {
	logger := logging.WithContext(ctx, env.Logger)
	logger.Info("corpus must be downloaded manually",
		logging.String(logging.FieldEventType, "download_instruction"),
		logging.String("env_var", config.CorpusEnvVar),
		logging.String("corpus_root", env.Config.Corpus.Root),
	)
	return nil
}
