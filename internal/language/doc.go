// Package language normalizes language codes and detects transcript language.
//
// Caption tracks on the hosting platform are keyed by ISO 639-2 codes while
// transcription backends report ISO 639-1 codes (or nothing at all); all
// conversions between the two live here.
package language
