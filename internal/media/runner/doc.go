// Package runner is the single narrow boundary between the pipeline and
// external media tools.
//
// Every probe, encode, and concat goes through Runner so stage logic can be
// exercised with a scripted fake. A non-zero exit is reported through
// Result.ExitCode, not as an error; errors are reserved for tools that could
// not be started and for timeouts.
package runner
