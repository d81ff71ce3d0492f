// Package concat builds concat-demuxer manifests and runs the final
// stream-copy concatenation of standardized chapter videos.
//
// Manifests list one absolute path per line in the demuxer's quoted form.
// Every entry is checked before ffmpeg starts: a missing file, or one with no
// audio stream, aborts the concatenation instead of producing a video whose
// audio silently ends early.
//
// The Finalizer streams ffmpeg's stderr, turns its time= progress lines into a
// monotonic position against the summed input durations, and re-probes the
// result for the final report. A non-zero exit removes the output.
package concat
