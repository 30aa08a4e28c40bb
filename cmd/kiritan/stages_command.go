package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"kiritan/internal/prep"
	"kiritan/internal/stage"
)

func newStagesCommand(ctx *commandContext) *cobra.Command {
	var startStage, stopStage int

	cmd := &cobra.Command{
		Use:         "stages",
		Short:       "List stages and whether a range would run them",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rng := stage.Range{Start: startStage, Stop: stopStage}
			handlers := prep.Handlers()
			rows := make([][]string, 0, len(handlers))
			for _, h := range handlers {
				rows = append(rows, []string{
					strconv.Itoa(h.Number()),
					h.Name(),
					h.Description(),
					yesNo(rng.Contains(h.Number())),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Range %s\n", rng)
			fmt.Fprintln(out, tableSpec{
				headers: []string{"#", "Stage", "Description", "Runs"},
				numeric: []int{0},
			}.render(rows))
			return nil
		},
	}

	cmd.Flags().IntVar(&startStage, "stage", stage.DefaultStart, "First stage to run")
	cmd.Flags().IntVar(&stopStage, "stop_stage", stage.DefaultStop, "Last stage to run")
	return cmd
}
