// Package layout describes the on-disk input model shared by every stage.
//
// Page images live under images_dir/<chapter>/ and narration clips under
// audio_dir/<chapter>/<page base name>.<ext>. Chapters and pages are ordered by
// the integer formed from all digits in their names (see textutil.NaturalLess),
// so "page_2" precedes "page_10". Chapter videos are written to
// chapter_videos_dir/<chapter>.mp4, and the presence of that file is the only
// signal used to skip a chapter on later runs.
package layout
