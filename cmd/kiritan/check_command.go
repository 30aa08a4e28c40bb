package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"kiritan/internal/logging"
	"kiritan/internal/preflight"
	"kiritan/internal/workflow"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify corpus, data directory and recipe tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			results := preflight.Run(cfg)
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := "OK"
				switch {
				case !r.Passed && r.Optional:
					status = "WARN"
				case !r.Passed:
					status = "FAIL"
				}
				rows = append(rows, []string{r.Name, status, r.Detail})
			}
			fmt.Fprintln(out, tableSpec{title: "Preflight", headers: []string{"Check", "Result", "Detail"}}.render(rows))

			health := workflow.CheckHealth(cmd.Context(), cfg, nil, logging.NewNop())
			stageRows := make([][]string, 0, len(health))
			for _, h := range health {
				stageRows = append(stageRows, []string{strconv.Itoa(h.Number), h.Name, yesNo(h.Ready), h.Detail})
			}
			fmt.Fprintln(out, tableSpec{
				title:   "Stages",
				headers: []string{"#", "Stage", "Ready", "Detail"},
				numeric: []int{0},
			}.render(stageRows))

			if preflight.Failed(results) {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}
}
