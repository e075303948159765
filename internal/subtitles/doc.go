// Package subtitles turns timed transcript segments into SRT caption files.
//
// Format applies lead-in/lead-out padding and millisecond rounding, Encode and
// Parse convert between cues and the SRT interchange format, and Save writes
// the rendered file atomically next to the other generated captions.
package subtitles
