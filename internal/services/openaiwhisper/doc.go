// Package openaiwhisper uploads a downloaded video to the OpenAI audio
// transcription endpoint and returns its timed segments.
package openaiwhisper
