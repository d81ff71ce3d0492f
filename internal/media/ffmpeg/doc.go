// Package ffmpeg builds the encoder command lines the pipeline runs and
// parses the encoder's diagnostic stream for progress.
//
// Every command keeps the same audio parameters (AAC, configured bitrate,
// sample rate, and channel count) and timestamp normalization so segments,
// chapter videos, and standardized files stay stream-copy concatenable.
package ffmpeg
