// Package audio decides which narration track and duration each page segment
// uses.
//
// The resolver never trusts a file's extension. It measures the clip with
// ffprobe and applies a fixed policy:
//
//	no audio file                -> silent clip, fallback duration
//	ffprobe reports invalid data -> silent clip, fallback duration
//	ffprobe reports zero         -> silent clip, fallback duration
//	duration unavailable         -> real clip, fallback duration (warned)
//	positive duration            -> real clip, max(duration, minimum)
//
// Silent clips are written to the chapter work directory as
// silent_<page>.aac. When that encode fails the page resolves to no audio at
// all and the segment encoder supplies an inline null source instead.
package audio
