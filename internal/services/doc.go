// Package services defines shared utilities consumed by the stage handlers and
// the external tool wrappers.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and partitions for
//     logging.
//   - Structured error markers plus the Wrap helper so failures carry a
//     consistent class (configuration, external tool, not found, validation).
//
// Use these helpers when wiring new stage logic so error reporting stays
// uniform across the pipeline.
package services
