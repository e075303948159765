package transcription

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"autocap/internal/config"
	"autocap/internal/respcache"
	"autocap/internal/services"
	"autocap/internal/services/nlpcloud"
	"autocap/internal/services/openaiwhisper"
	"autocap/internal/services/whisperx"
	"autocap/internal/subtitles"
)

// Cache keys for backends that produce the transcript in a single call.
const (
	localPattern  respcache.Pattern = "transcribe_local__{key}.json"
	openAIPattern respcache.Pattern = "transcribe_openai__{key}.json"
)

type asyncASR interface {
	Submit(ctx context.Context, mediaURL string) (nlpcloud.AsyncHandle, error)
	Result(ctx context.Context, resultURL string) (*nlpcloud.Result, error)
}

// CloudBackend submits the media URL to the cloud ASR service and polls for
// the result. It needs no local copy of the video.
type CloudBackend struct {
	client asyncASR
	poller *Poller
}

// NewCloudBackend wires client to poller.
func NewCloudBackend(client asyncASR, poller *Poller) *CloudBackend {
	return &CloudBackend{client: client, poller: poller}
}

func (b *CloudBackend) Name() string        { return config.ServiceCloudASR }
func (b *CloudBackend) NeedsDownload() bool { return false }

func (b *CloudBackend) Transcribe(ctx context.Context, req Request) (Transcript, error) {
	if req.MediaURL == "" {
		return Transcript{}, services.Wrap(services.ErrValidation, "transcribe", b.Name(), "media url required", nil)
	}
	submit := func(ctx context.Context, mediaURL string) (Handle, error) {
		handle, err := b.client.Submit(ctx, mediaURL)
		if err != nil {
			return Handle{}, err
		}
		return Handle{ResultURL: handle.URL}, nil
	}
	poll := func(ctx context.Context, handle Handle) (*Transcript, error) {
		result, err := b.client.Result(ctx, handle.ResultURL)
		if err != nil || result == nil {
			return nil, err
		}
		t := fromCloud(result.Content)
		return &t, nil
	}
	t, err := b.poller.Transcribe(ctx, req.MediaURL, req.VideoID, submit, poll)
	if err != nil {
		return Transcript{}, err
	}
	return fillLanguage(t), nil
}

func fromCloud(content nlpcloud.Content) Transcript {
	segments := make([]subtitles.Segment, 0, len(content.Segments))
	for _, seg := range content.Segments {
		segments = append(segments, subtitles.Segment{Start: seg.Start, End: seg.End, Text: seg.Text})
	}
	return Transcript{Language: content.Language, Text: content.Text, Segments: segments}
}

type localTranscriber interface {
	Transcribe(ctx context.Context, videoPath, workDir, lang string) (whisperx.Transcript, error)
}

// LocalBackend runs WhisperX on the downloaded video.
type LocalBackend struct {
	svc      localTranscriber
	workDir  string
	language string
	cache    *respcache.Cache
}

// NewLocalBackend builds a LocalBackend. cache may be nil to disable result
// caching.
func NewLocalBackend(svc localTranscriber, workDir, lang string, cache *respcache.Cache) *LocalBackend {
	return &LocalBackend{svc: svc, workDir: workDir, language: lang, cache: cache}
}

func (b *LocalBackend) Name() string        { return config.ServiceLocalTool }
func (b *LocalBackend) NeedsDownload() bool { return true }

func (b *LocalBackend) Transcribe(ctx context.Context, req Request) (Transcript, error) {
	if req.LocalPath == "" {
		return Transcript{}, services.Wrap(services.ErrValidation, "transcribe", b.Name(), "local media path required", nil)
	}
	return cached(ctx, b.cache, localPattern, req.VideoID, func(ctx context.Context) (Transcript, error) {
		workDir := b.workDir
		if workDir == "" {
			workDir = filepath.Dir(req.LocalPath)
		}
		out, err := b.svc.Transcribe(ctx, req.LocalPath, workDir, b.language)
		if err != nil {
			return Transcript{}, err
		}
		segments := make([]subtitles.Segment, 0, len(out.Segments))
		for _, seg := range out.Segments {
			segments = append(segments, subtitles.Segment{Start: seg.Start, End: seg.End, Text: seg.Text})
		}
		return fillLanguage(Transcript{Language: out.Language, Text: out.Text(), Segments: segments}), nil
	})
}

type fileTranscriber interface {
	Transcribe(ctx context.Context, path, lang string) (openaiwhisper.Transcript, error)
}

// OpenAIBackend uploads the downloaded video to the OpenAI audio API.
type OpenAIBackend struct {
	client   fileTranscriber
	language string
	cache    *respcache.Cache
}

// NewOpenAIBackend builds an OpenAIBackend. cache may be nil.
func NewOpenAIBackend(client fileTranscriber, lang string, cache *respcache.Cache) *OpenAIBackend {
	return &OpenAIBackend{client: client, language: lang, cache: cache}
}

func (b *OpenAIBackend) Name() string        { return config.ServiceOpenAI }
func (b *OpenAIBackend) NeedsDownload() bool { return true }

func (b *OpenAIBackend) Transcribe(ctx context.Context, req Request) (Transcript, error) {
	if req.LocalPath == "" {
		return Transcript{}, services.Wrap(services.ErrValidation, "transcribe", b.Name(), "local media path required", nil)
	}
	return cached(ctx, b.cache, openAIPattern, req.VideoID, func(ctx context.Context) (Transcript, error) {
		out, err := b.client.Transcribe(ctx, req.LocalPath, b.language)
		if err != nil {
			return Transcript{}, err
		}
		segments := make([]subtitles.Segment, 0, len(out.Segments))
		for _, seg := range out.Segments {
			segments = append(segments, subtitles.Segment{Start: seg.Start, End: seg.End, Text: seg.Text})
		}
		text := out.Text
		if text == "" {
			text = joinText(segments)
		}
		return fillLanguage(Transcript{Language: out.Language, Text: text, Segments: segments}), nil
	})
}

func cached(ctx context.Context, cache *respcache.Cache, pattern respcache.Pattern, key string, fn func(context.Context) (Transcript, error)) (Transcript, error) {
	if cache == nil || key == "" {
		return fn(ctx)
	}
	res, err := respcache.Memoize(ctx, cache, pattern, respcache.Params{"key": key}, fn)
	if err != nil {
		return Transcript{}, err
	}
	return res.Value, nil
}

// NewBackend builds the backend selected by cfg.Transcription.Service.
func NewBackend(cfg *config.Config, cache *respcache.Cache, logger *slog.Logger) (Backend, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "transcribe", "backend", "config required", nil)
	}
	switch cfg.Transcription.Service {
	case config.ServiceCloudASR:
		timeout := time.Duration(cfg.NLPCloud.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = time.Minute
		}
		client, err := nlpcloud.New(nlpcloud.Config{
			APIKey:     cfg.NLPCloud.APIKey,
			BaseURL:    cfg.NLPCloud.BaseURL,
			Model:      cfg.NLPCloud.Model,
			GPU:        cfg.NLPCloud.GPU,
			HTTPClient: &http.Client{Timeout: timeout},
		})
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "transcribe", "backend", "", err)
		}
		poller := NewPoller(cache, logger)
		poller.Interval = cfg.PollInterval()
		poller.MaxAttempts = cfg.Transcription.MaxPolls
		poller.Deadline = cfg.PollDeadline()
		return NewCloudBackend(client, poller), nil
	case config.ServiceLocalTool:
		svc := whisperx.NewService(whisperx.Config{
			Model:        cfg.WhisperX.Model,
			CUDAEnabled:  cfg.WhisperX.CUDAEnabled,
			VADMethod:    cfg.WhisperX.VADMethod,
			HFToken:      cfg.WhisperX.HFToken,
			UVXBinary:    cfg.UVXBinary(),
			FFmpegBinary: cfg.FFmpegBinary(),
		})
		return NewLocalBackend(svc, cfg.Paths.DownloadDir, cfg.Wistia.Language, cache), nil
	case config.ServiceOpenAI:
		client, err := openaiwhisper.New(openaiwhisper.Config{
			APIKey:     cfg.OpenAI.APIKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			Model:      cfg.OpenAI.Model,
			MaxRetries: 2,
		})
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "transcribe", "backend", "", err)
		}
		return NewOpenAIBackend(client, cfg.Wistia.Language, cache), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "transcribe", "backend",
			fmt.Sprintf("unknown service %q", cfg.Transcription.Service), nil)
	}
}
