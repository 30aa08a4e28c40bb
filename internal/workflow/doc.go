// Package workflow runs the numbered data-preparation stages.
//
// Run validates the configuration, takes an exclusive lock on the data
// directory, and then executes every registered handler whose number falls
// inside the requested range in ascending order. The first failure aborts
// the run. Each invocation gets a run id that tags every log record and the
// history rows written through the Recorder.
package workflow
