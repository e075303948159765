package transcription

import (
	"context"
	"strings"

	"autocap/internal/language"
	"autocap/internal/subtitles"
)

// Transcript is the time-aligned output of a backend.
type Transcript struct {
	Language string              `json:"language"`
	Text     string              `json:"text"`
	Segments []subtitles.Segment `json:"segments"`
}

// Request identifies the media to transcribe. LocalPath is set only when the
// backend asked for a download.
type Request struct {
	VideoID   string
	MediaURL  string
	LocalPath string
}

// Backend transcribes one video.
type Backend interface {
	Name() string
	// NeedsDownload reports whether Transcribe reads Request.LocalPath.
	NeedsDownload() bool
	Transcribe(ctx context.Context, req Request) (Transcript, error)
}

// fillLanguage normalizes the reported language to ISO 639-1 and detects it
// from the segment text when the backend did not report one.
func fillLanguage(t Transcript) Transcript {
	if code := language.ToISO2(t.Language); code != "" {
		t.Language = code
		return t
	}
	fragments := make([]string, 0, len(t.Segments)+1)
	for _, seg := range t.Segments {
		fragments = append(fragments, seg.Text)
	}
	if len(fragments) == 0 {
		fragments = append(fragments, t.Text)
	}
	t.Language = language.Detect(fragments...)
	return t
}

func joinText(segments []subtitles.Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
