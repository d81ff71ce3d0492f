// Package history persists a ledger of pipeline runs and per-chapter outcomes
// in SQLite.
//
// The ledger is advisory. The resume signal for a chapter is always the
// presence of its committed video, so a missing or deleted database never
// changes what a run does. Runs are keyed by the run ID that tags every log
// line, which makes it possible to line up `panelcast history show` output
// with the log file.
package history
