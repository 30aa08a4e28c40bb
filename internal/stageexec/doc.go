// Package stageexec runs a single stage handler with the standard lifecycle:
// stage_start/stage_complete/stage_failure log records and history rows.
package stageexec
