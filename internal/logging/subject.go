package logging

import "strings"

// FormatSubject builds the run/stage/partition subject string used in console output.
func FormatSubject(runID, stage, partition string) string {
	runID = strings.TrimSpace(runID)
	stage = strings.TrimSpace(stage)
	partition = strings.TrimSpace(partition)
	parts := make([]string, 0, 3)
	if runID != "" {
		if len(runID) > 8 {
			runID = runID[:8]
		}
		parts = append(parts, "Run "+runID)
	}
	if stage != "" {
		parts = append(parts, stage)
	}
	if partition != "" {
		parts = append(parts, partition)
	}
	return strings.Join(parts, " · ")
}
