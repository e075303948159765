// Package transcription turns a video into timed transcript segments.
//
// Three backends satisfy Backend: the cloud ASR service driven through the
// submit-then-poll Poller, WhisperX run locally, and the OpenAI audio API.
// The Poller persists the submission handle and the completed result in the
// response cache so an interrupted run resumes without resubmitting.
package transcription
