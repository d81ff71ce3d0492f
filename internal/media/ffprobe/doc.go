// Package ffprobe is the media prober. It answers every question the pipeline
// asks about a file on disk: container duration, the first video stream's
// geometry and frame rate, the first audio stream's format, and whether an
// audio stream exists at all.
//
// Key types:
//   - Prober: issues ffprobe queries through a runner.Runner
//   - MediaInfo: a freshly probed snapshot with documented defaults for any
//     field ffprobe could not report
//   - DurationResult: the classified outcome of a duration query
//   - Result: parsed `-show_streams -show_format` JSON for stream counts
//
// Diagnostic queries degrade instead of failing: timeouts and unparseable
// output fall back to defaults and are recorded in MediaInfo.Warnings. The only
// hard error is an ffprobe binary that cannot be started.
package ffprobe
