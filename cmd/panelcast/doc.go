// Package main hosts the panelcast CLI.
//
// The Cobra command tree maps terminal invocations onto the pipeline runner:
// full runs, the chapter and finalize sub-stages, the read-only analysis
// report, run history, work directory maintenance, dependency checks, and
// configuration scaffolding. Configuration loading, logger construction, and
// progress rendering live here so the internal packages stay free of terminal
// concerns.
package main
