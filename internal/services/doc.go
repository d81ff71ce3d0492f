// Package services defines shared utilities consumed by the pipeline stages.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, chapter names, pages, and stage
//     names for logging.
//   - Structured error markers plus the Wrap helper. The taxonomy markers
//     (probe, audio, encode, repair, concat, final) classify each failure by
//     Scope: degrade with defaults, fail the chapter, or abort the run.
//
// Use these helpers when wiring new stage logic so failure handling stays
// uniform across the pipeline.
package services
