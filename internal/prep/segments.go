package prep

import (
	"context"
	"strconv"

	"kiritan/internal/datadir"
	"kiritan/internal/logging"
	"kiritan/internal/stage"
	"kiritan/internal/toolexec"
)

// Segments is stage 3: segmentation, speaker maps and the consistency pass.
type Segments struct{}

func (Segments) Number() int         { return 3 }
func (Segments) Name() string        { return "segments" }
func (Segments) Description() string { return "Prepare segments, label, text, utt2spk and spk2utt" }

func (s Segments) Execute(ctx context.Context, env *stage.Env) error {
	prep := env.Config.Prep
	cmd := toolexec.Command{Name: "segments", Argv: env.Config.Tools.SegmentsCommand}

	return stage.ForEachPartition(ctx, env, func(ctx context.Context, p stage.Partition) error {
		dir := env.Layout.PartitionDir(p)

		args := make([]string, 0, 2*len(prep.SilencePhones)+2)
		for _, phone := range prep.SilencePhones {
			args = append(args, "--silence", phone)
		}
		args = append(args, dir, strconv.Itoa(prep.MaxSegmentMS))
		if err := env.Tools.Run(ctx, cmd, args...); err != nil {
			return err
		}

		if err := datadir.PromoteTemp(dir, datadir.Segments, datadir.Label, datadir.Text); err != nil {
			return err
		}
		utts, err := datadir.WriteUtt2Spk(dir, prep.SpeakerID)
		if err != nil {
			return err
		}
		if err := datadir.WriteSpk2Utt(dir); err != nil {
			return err
		}
		report, err := datadir.Fix(dir, datadir.FixOptions{UttExtraFiles: []string{datadir.Label}})
		if err != nil {
			return err
		}

		logger := logging.WithContext(ctx, env.Logger)
		attrs := []logging.Attr{
			logging.String("dir", dir),
			logging.Int("utterances", report.Utterances),
			logging.Int("speakers", report.Speakers),
		}
		if report.DroppedUtterances > 0 || report.DroppedRecordings > 0 {
			attrs = append(attrs,
				logging.Int("segmented", utts),
				logging.Int("dropped_utterances", report.DroppedUtterances),
				logging.Int("dropped_recordings", report.DroppedRecordings),
			)
			logging.WarnWithContext(logger, "fix pass dropped inconsistent entries", "data_dir_fixed",
				append(attrs, logging.String(logging.FieldImpact, "utterances missing from some files were removed"))...)
			return nil
		}
		logger.Info("data directory ready", logging.Args(attrs...)...)
		return nil
	})
}

func (s Segments) HealthCheck(_ context.Context, env *stage.Env) stage.Health {
	return toolHealth(env, s.Name(), env.Config.Tools.SegmentsCommand)
}
