package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"kiritan/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs, or the stages of one run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return fmt.Errorf("run history is disabled (history.enabled = false)")
			}
			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if strings.TrimSpace(runID) != "" {
				id, err := store.ResolveRunID(cmd.Context(), runID)
				if err != nil {
					return err
				}
				records, err := store.RunStages(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, tableSpec{
					title:   "Run " + id,
					headers: []string{"#", "Stage", "Status", "Started", "Duration", "Error"},
					numeric: []int{0, 4},
				}.render(stageRows(records)))
				return nil
			}

			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, tableSpec{
				headers: []string{"Run", "Started", "Range", "Status", "Duration", "Error"},
				numeric: []int{4},
			}.render(runRows(runs)))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	cmd.Flags().StringVar(&runID, "run", "", "Show the stages of this run (id or unique prefix)")
	return cmd
}

func runRows(runs []history.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			humanize.Time(run.StartedAt),
			fmt.Sprintf("[%d, %d]", run.Start, run.Stop),
			string(run.Status),
			formatDuration(run.StartedAt, run.FinishedAt),
			truncate(run.Error, 60),
		})
	}
	return rows
}

func stageRows(records []history.StageRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			strconv.Itoa(rec.Number),
			rec.Name,
			string(rec.Status),
			rec.StartedAt.Local().Format("2006-01-02 15:04:05"),
			formatDuration(rec.StartedAt, rec.FinishedAt),
			truncate(rec.Error, 80),
		})
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDuration(start, finish time.Time) string {
	if finish.IsZero() || start.IsZero() {
		return "-"
	}
	return finish.Sub(start).Round(time.Millisecond).String()
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
