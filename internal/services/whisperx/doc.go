// Package whisperx runs WhisperX locally through uvx to transcribe a
// downloaded video.
//
// Audio is first extracted with ffmpeg into a mono 16 kHz WAV, then WhisperX
// writes its JSON output next to it; LoadTranscript reads the timed segments
// and the detected language back.
package whisperx
