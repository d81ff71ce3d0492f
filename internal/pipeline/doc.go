// Package pipeline orchestrates a panelcast run end to end.
//
// A run takes the workspace lock, stamps a run ID on the context, clears work
// left behind by interrupted runs, then walks every chapter through the
// chapter assembler in natural order. Once all chapters are settled the
// finalize phase standardizes each chapter video against the VideoSpec and
// concatenates the results into the final output. Chapter-scoped failures are
// recorded and the loop continues; run-scoped failures (missing ffprobe,
// cancellation, standardize or final concat errors) abort immediately.
//
// The output files on disk are the only resume signal. The history ledger is
// written for operators and never read back by a run.
package pipeline
