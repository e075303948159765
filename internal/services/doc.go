// Package services defines shared utilities consumed by the captioning
// pipeline and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp video IDs, project IDs, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (no asset, upload conflict, rate limit, parse errors) with
//     errors.Is.
//
// External clients live in subpackages (nlpcloud, whisperx, openaiwhisper).
package services
