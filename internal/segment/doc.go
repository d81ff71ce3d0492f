// Package segment encodes single-page video segments and guarantees each one
// carries an audio track before it reaches chapter concatenation.
//
// A Segment loops a composed frame for exactly the resolved audio duration,
// encoded to the VideoSpec so every segment in a chapter can be stream-copied
// together. The Auditor re-probes each finished segment; a segment without
// audio gets exactly one repair encode with a null audio source mapped
// explicitly, and a segment that still has no audio fails its chapter.
package segment
