// Package standardize compares chapter videos against the target VideoSpec
// and re-encodes the ones that differ, so the final concatenation can
// stream-copy every input.
//
// Every decision is made from a fresh probe. A file that already matches on
// resolution, frame rate, audio presence, sample rate, channel count, and has
// no audio/container drift beyond SyncTolerance is passed through untouched.
package standardize
