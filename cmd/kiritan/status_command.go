package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"kiritan/internal/config"
	"kiritan/internal/datadir"
	"kiritan/internal/fileutil"
	"kiritan/internal/stage"
)

// statusFiles are the per-partition outputs reported by status, in stage order.
var statusFiles = []string{datadir.WavScp, datadir.Segments, datadir.Label, datadir.Text, datadir.Utt2Spk, datadir.Spk2Utt}

type partitionStatus struct {
	partition stage.Partition
	rawReady  bool
	counts    []int
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show what the stages have produced for each partition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			statuses, err := collectPartitionStatus(stage.Layout{DataDir: cfg.Paths.DataDir})
			if err != nil {
				return err
			}

			report := newStatusPrinter(out)
			report.section("Corpus")
			if cfg.Corpus.Root == "" {
				report.line("Root", statusError, config.CorpusEnvVar+" is not set")
			} else {
				report.line("Root", statusInfo, cfg.Corpus.Root)
			}
			report.line("Data", statusInfo, cfg.Paths.DataDir)
			report.lines = append(report.lines, "")
			report.section("Partitions")
			for _, st := range statuses {
				kind, message := summarizePartition(st)
				report.line(displayLabel(st.partition.Name), kind, message)
			}
			fmt.Fprintln(out, report.String())
			fmt.Fprintln(out)

			counts := tableSpec{headers: []string{"Partition"}}
			for i, name := range statusFiles {
				counts.headers = append(counts.headers, displayLabel(name))
				counts.numeric = append(counts.numeric, i+1)
			}
			rows := make([][]string, 0, len(statuses))
			for _, st := range statuses {
				row := []string{st.partition.Name}
				for _, n := range st.counts {
					row = append(row, formatCount(n))
				}
				rows = append(rows, row)
			}
			fmt.Fprintln(out, counts.render(rows))
			return nil
		},
	}
}

func collectPartitionStatus(layout stage.Layout) ([]partitionStatus, error) {
	statuses := make([]partitionStatus, 0, len(stage.Partitions))
	for _, p := range stage.Partitions {
		st := partitionStatus{partition: p}
		if info, err := os.Stat(layout.RawDir(p)); err == nil && info.IsDir() {
			st.rawReady = true
		}
		dir := layout.PartitionDir(p)
		for _, name := range statusFiles {
			n, err := fileutil.CountLines(filepath.Join(dir, name))
			if err != nil {
				return nil, err
			}
			st.counts = append(st.counts, n)
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// summarizePartition maps the file counts onto the last stage that completed.
func summarizePartition(st partitionStatus) (statusKind, string) {
	present := 0
	for _, n := range st.counts {
		if n >= 0 {
			present++
		}
	}
	switch {
	case present == len(st.counts):
		utts := st.counts[len(st.counts)-2]
		return statusOK, fmt.Sprintf("ready (%d utterances)", utts)
	case present == 1 && st.counts[0] >= 0:
		return statusWarn, "data directory created, segments pending (stage 3)"
	case present > 0:
		return statusError, "incomplete outputs; rerun from stage 3"
	case st.rawReady:
		return statusWarn, "split done, data directory pending (stage 2)"
	default:
		return statusInfo, "not prepared (stage 1)"
	}
}

func formatCount(n int) string {
	if n < 0 {
		return "-"
	}
	return strconv.Itoa(n)
}
