// Package chapter assembles one chapter video from its pages.
//
// Each chapter runs through an explicit state machine:
//
//	Pending -> ImagesDiscovered -> SegmentsBuilt -> Concatenated -> Done
//	Pending -> Done (output already exists)
//	any non-terminal state -> Failed
//
// The Machine holds only states and transitions so resume and failure logic
// can be tested without touching disk. The Assembler drives it: discover pages,
// render and encode one segment per page (optionally with a bounded worker
// pool), stream-copy the segments together, verify the result has audio, and
// remove the chapter's temp_<chapter> directory on every exit path.
package chapter
