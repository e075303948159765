package transcription

import (
	"testing"

	"autocap/internal/subtitles"
)

func TestFillLanguageDetectsFromSegments(t *testing.T) {
	got := fillLanguage(Transcript{Segments: []subtitles.Segment{
		{Text: "Welcome back to the channel, today we are going to look at how the new release works."},
		{Text: "First we will open the settings page and then walk through each of the options together."},
	}})
	if got.Language != "en" {
		t.Fatalf("expected en, got %q", got.Language)
	}
}

func TestFillLanguageNormalizesReportedLanguage(t *testing.T) {
	for in, want := range map[string]string{"english": "en", "FR": "fr", "deu": "de"} {
		if got := fillLanguage(Transcript{Language: in}); got.Language != want {
			t.Fatalf("fillLanguage(%q) = %q, want %q", in, got.Language, want)
		}
	}
}
