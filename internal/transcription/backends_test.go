package transcription

import (
	"context"
	"errors"
	"testing"
	"time"

	"autocap/internal/config"
	"autocap/internal/respcache"
	"autocap/internal/services"
	"autocap/internal/services/nlpcloud"
	"autocap/internal/services/openaiwhisper"
	"autocap/internal/services/whisperx"
)

type fakeASR struct {
	submitted []string
	results   []*nlpcloud.Result
	polls     int
}

func (f *fakeASR) Submit(_ context.Context, mediaURL string) (nlpcloud.AsyncHandle, error) {
	f.submitted = append(f.submitted, mediaURL)
	return nlpcloud.AsyncHandle{URL: "https://api.example/result/1"}, nil
}

func (f *fakeASR) Result(_ context.Context, resultURL string) (*nlpcloud.Result, error) {
	if resultURL != "https://api.example/result/1" {
		return nil, errors.New("unexpected result url " + resultURL)
	}
	r := f.results[f.polls]
	f.polls++
	return r, nil
}

func TestCloudBackendConvertsSegments(t *testing.T) {
	asr := &fakeASR{results: []*nlpcloud.Result{nil, {
		HTTPCode: 200,
		Content: nlpcloud.Content{
			Text:     " So if we look at it",
			Language: "en",
			Segments: []nlpcloud.Segment{
				{ID: 0, Start: 0, End: 5.8, Text: " So if we look"},
				{ID: 1, Start: 5.8, End: 11.48, Text: " at it"},
			},
		},
	}}}
	clock := newFakeClock()
	poller, _ := newTestPoller(clock)
	backend := NewCloudBackend(asr, poller)

	if backend.NeedsDownload() {
		t.Fatal("cloud backend should not need a download")
	}
	got, err := backend.Transcribe(context.Background(), Request{VideoID: "abc123", MediaURL: "https://embed/abc.bin"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(asr.submitted) != 1 || asr.submitted[0] != "https://embed/abc.bin" {
		t.Fatalf("unexpected submissions %v", asr.submitted)
	}
	if len(got.Segments) != 2 || got.Segments[1].Start != 5.8 {
		t.Fatalf("unexpected segments %+v", got.Segments)
	}
	if got.Language != "en" {
		t.Fatalf("expected language en, got %q", got.Language)
	}
	if len(clock.sleeps) != 1 {
		t.Fatalf("expected one sleep, got %d", len(clock.sleeps))
	}
}

func TestCloudBackendRequiresMediaURL(t *testing.T) {
	poller, _ := newTestPoller(newFakeClock())
	backend := NewCloudBackend(&fakeASR{}, poller)
	if _, err := backend.Transcribe(context.Background(), Request{VideoID: "abc"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

type fakeWhisperX struct {
	calls int
	out   whisperx.Transcript
}

func (f *fakeWhisperX) Transcribe(_ context.Context, _, _, _ string) (whisperx.Transcript, error) {
	f.calls++
	return f.out, nil
}

func TestLocalBackendCachesResult(t *testing.T) {
	svc := &fakeWhisperX{out: whisperx.Transcript{
		Language: "fr",
		Segments: []whisperx.Segment{{Start: 1, End: 2, Text: " Bonjour"}},
	}}
	cache := respcache.New(respcache.NewMemoryStore(), nil)
	backend := NewLocalBackend(svc, t.TempDir(), "auto", cache)
	req := Request{VideoID: "abc123", LocalPath: "/tmp/abc123.mp4"}

	for i := 0; i < 2; i++ {
		got, err := backend.Transcribe(context.Background(), req)
		if err != nil {
			t.Fatalf("Transcribe %d: %v", i, err)
		}
		if got.Language != "fr" || got.Text != "Bonjour" || len(got.Segments) != 1 {
			t.Fatalf("unexpected transcript %+v", got)
		}
	}
	if svc.calls != 1 {
		t.Fatalf("expected one whisperx run, got %d", svc.calls)
	}
	if !backend.NeedsDownload() {
		t.Fatal("local backend needs a download")
	}
	if _, err := backend.Transcribe(context.Background(), Request{VideoID: "x"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error without a local path, got %v", err)
	}
}

type fakeOpenAI struct {
	lang string
	out  openaiwhisper.Transcript
}

func (f *fakeOpenAI) Transcribe(_ context.Context, _ string, lang string) (openaiwhisper.Transcript, error) {
	f.lang = lang
	return f.out, nil
}

func TestOpenAIBackendNormalizesLanguage(t *testing.T) {
	client := &fakeOpenAI{out: openaiwhisper.Transcript{
		Language: "english",
		Segments: []openaiwhisper.Segment{{Start: 0, End: 1.5, Text: " hello there"}},
	}}
	backend := NewOpenAIBackend(client, "en", nil)
	got, err := backend.Transcribe(context.Background(), Request{VideoID: "abc", LocalPath: "/tmp/abc.mp4"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got.Language != "en" {
		t.Fatalf("expected en, got %q", got.Language)
	}
	if got.Text != "hello there" {
		t.Fatalf("expected text joined from segments, got %q", got.Text)
	}
	if client.lang != "en" {
		t.Fatalf("expected configured language to be passed, got %q", client.lang)
	}
}

func TestNewBackendSelectsService(t *testing.T) {
	cache := respcache.New(respcache.NewMemoryStore(), nil)
	tests := []struct {
		service  string
		name     string
		download bool
	}{
		{config.ServiceCloudASR, config.ServiceCloudASR, false},
		{config.ServiceLocalTool, config.ServiceLocalTool, true},
		{config.ServiceOpenAI, config.ServiceOpenAI, true},
	}
	for _, tt := range tests {
		cfg := config.Default()
		cfg.Transcription.Service = tt.service
		cfg.NLPCloud.APIKey = "nlp"
		cfg.OpenAI.APIKey = "sk"
		backend, err := NewBackend(&cfg, cache, nil)
		if err != nil {
			t.Fatalf("%s: NewBackend: %v", tt.service, err)
		}
		if backend.Name() != tt.name || backend.NeedsDownload() != tt.download {
			t.Fatalf("%s: unexpected backend %s download=%v", tt.service, backend.Name(), backend.NeedsDownload())
		}
		if cloud, ok := backend.(*CloudBackend); ok && cloud.poller.Interval != 10*time.Second {
			t.Fatalf("expected default poll interval, got %s", cloud.poller.Interval)
		}
	}

	cfg := config.Default()
	cfg.Transcription.Service = "carrier_pigeon"
	if _, err := NewBackend(&cfg, cache, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
