package captioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"autocap/internal/archive"
	"autocap/internal/config"
	"autocap/internal/fileutil"
	"autocap/internal/language"
	"autocap/internal/logging"
	"autocap/internal/services"
	"autocap/internal/subtitles"
	"autocap/internal/transcription"
	"autocap/internal/wistia"
)

// Stage names used in logs and error details.
const (
	StageFetch      = "fetch"
	StageDownload   = "download"
	StageTranscribe = "transcribe"
	StageFormat     = "format"
	StageArchive    = "archive"
	StageUpload     = "upload"
)

// DefaultMediaURL is where a captioned video can be viewed.
const DefaultMediaURL = "https://my.wistia.com/medias"

// Platform is the subset of the hosting API the pipeline needs.
// *wistia.Client satisfies it.
type Platform interface {
	ListProjects(ctx context.Context) ([]wistia.Project, error)
	ShowProject(ctx context.Context, projectID string) (wistia.Project, error)
	ShowMedia(ctx context.Context, mediaID string) (wistia.Media, error)
	ShowCustomizations(ctx context.Context, mediaID string) (wistia.Customizations, error)
	ListCaptions(ctx context.Context, mediaID string) ([]wistia.Caption, error)
	CreateCaptions(ctx context.Context, mediaID, languageCode string, srt []byte) error
	UpdateCaptions(ctx context.Context, mediaID, languageCode string, srt []byte) error
	SetCaptionsEnabled(ctx context.Context, mediaID string, enabled bool) (wistia.Customizations, error)
	DownloadAsset(ctx context.Context, assetURL, dest string) (int64, error)
}

// Options configures a Pipeline.
type Options struct {
	Platform    Platform
	Backend     transcription.Backend
	Archiver    *archive.Archiver
	Logger      *slog.Logger
	SRTDir      string
	DownloadDir string
	MediaURL    string
	// Language is the caption language code, or "auto".
	Language string
	Padding  subtitles.Padding
}

// Pipeline captions videos.
type Pipeline struct {
	platform    Platform
	backend     transcription.Backend
	archiver    *archive.Archiver
	logger      *slog.Logger
	srtDir      string
	downloadDir string
	mediaURL    string
	language    string
	padding     subtitles.Padding
}

// New builds a Pipeline. Platform and Backend are required for
// ProcessVideo; toggling and listing only need Platform.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	mediaURL := strings.TrimRight(strings.TrimSpace(opts.MediaURL), "/")
	if mediaURL == "" {
		mediaURL = DefaultMediaURL
	}
	srtDir := opts.SRTDir
	if srtDir == "" {
		srtDir = "srt"
	}
	downloadDir := opts.DownloadDir
	if downloadDir == "" {
		downloadDir = "downloads"
	}
	return &Pipeline{
		platform:    opts.Platform,
		backend:     opts.Backend,
		archiver:    opts.Archiver,
		logger:      logging.NewComponentLogger(logger, "captioning"),
		srtDir:      srtDir,
		downloadDir: downloadDir,
		mediaURL:    mediaURL,
		language:    opts.Language,
		padding:     opts.Padding,
	}
}

// OptionsFromConfig fills the path, language and padding options from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SRTDir:      cfg.Paths.SRTDir,
		DownloadDir: cfg.Paths.DownloadDir,
		MediaURL:    cfg.Wistia.MediaURL,
		Language:    cfg.Wistia.Language,
		Padding:     subtitles.Padding{LeadIn: cfg.LeadIn(), LeadOut: cfg.LeadOut()},
	}
}

// Outcome describes a captioned video.
type Outcome struct {
	VideoID      string
	CaptionURL   string
	SubtitlePath string
	ArchiveKey   string
	Language     string
	Cues         int
	Replaced     bool
}

// CaptionURL returns the page where videoID's captions can be viewed.
func (p *Pipeline) CaptionURL(videoID string) string {
	return p.mediaURL + "/" + videoID
}

func (p *Pipeline) stageLogger(ctx context.Context, stage string) (context.Context, *slog.Logger) {
	ctx = services.WithStage(ctx, stage)
	return ctx, logging.WithContext(ctx, p.logger)
}

// ProcessVideo captions one video. With replace, an existing caption track in
// the same language is updated instead of creating a new one.
func (p *Pipeline) ProcessVideo(ctx context.Context, videoID string, replace bool) (Outcome, error) {
	videoID = strings.TrimSpace(videoID)
	if err := checkVideoID(videoID); err != nil {
		return Outcome{}, err
	}
	if p.platform == nil || p.backend == nil {
		return Outcome{}, services.Wrap(services.ErrConfiguration, StageFetch, "pipeline", "platform and backend required", nil)
	}
	ctx = services.WithVideoID(ctx, videoID)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	started := time.Now()
	outcome := Outcome{VideoID: videoID}

	stageCtx, logger := p.stageLogger(ctx, StageFetch)
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))
	media, err := p.platform.ShowMedia(stageCtx, videoID)
	if err != nil {
		return outcome, p.stageFailed(logger, StageFetch, err)
	}
	asset, err := wistia.SmallestVideoAsset(media.Assets)
	if err != nil {
		return outcome, p.stageFailed(logger, StageFetch, err)
	}
	logger.Debug("selected video asset",
		logging.String("asset_url", asset.URL),
		logging.Int64("file_size", asset.FileSize),
		logging.Int("assets", len(media.Assets)),
	)

	req := transcription.Request{VideoID: videoID, MediaURL: asset.URL}
	if p.backend.NeedsDownload() {
		stageCtx, logger = p.stageLogger(ctx, StageDownload)
		path, err := p.download(stageCtx, logger, videoID, asset)
		if err != nil {
			return outcome, p.stageFailed(logger, StageDownload, err)
		}
		req.LocalPath = path
	}

	stageCtx, logger = p.stageLogger(ctx, StageTranscribe)
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("service", p.backend.Name()),
	)
	transcript, err := p.backend.Transcribe(stageCtx, req)
	if err != nil {
		return outcome, p.stageFailed(logger, StageTranscribe, err)
	}

	_, logger = p.stageLogger(ctx, StageFormat)
	file := subtitles.Format(transcript.Segments, p.padding)
	file.Language = language.CaptionCode(p.language, transcript.Language)
	outcome.Language = file.Language
	outcome.Cues = len(file.Cues)
	if len(file.Cues) == 0 {
		return outcome, p.stageFailed(logger, StageFormat,
			services.Wrap(services.ErrTranscriptionParse, StageFormat, "subtitles", "transcript has no segments", nil))
	}
	mediaDuration := time.Duration(media.Duration * float64(time.Second))
	for _, issue := range subtitles.Validate(file, mediaDuration) {
		logging.WarnWithContext(logger, "subtitle validation issue", "subtitle_validation",
			logging.String("issue", issue),
			logging.String(logging.FieldErrorHint, "review the generated srt before publishing"),
			logging.String(logging.FieldImpact, "captions may be misaligned"),
		)
	}
	subtitlePath, err := subtitles.Save(p.srtDir, videoID, file)
	if err != nil {
		return outcome, p.stageFailed(logger, StageFormat, err)
	}
	outcome.SubtitlePath = subtitlePath
	saved, err := reloadSubtitles(subtitlePath, file)
	if err != nil {
		return outcome, p.stageFailed(logger, StageFormat, err)
	}
	logger.Info("subtitles saved",
		logging.String("path", subtitlePath),
		logging.Int("cues", outcome.Cues),
		logging.String("language", file.Language),
	)

	if p.archiver.Enabled() {
		stageCtx, logger = p.stageLogger(ctx, StageArchive)
		key, err := p.archiver.Archive(stageCtx, videoID, subtitlePath)
		if err != nil {
			// The caption upload does not depend on the archive copy.
			logging.WarnWithContext(logger, "subtitle archive failed", "archive_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the [archive] bucket settings"),
				logging.String(logging.FieldImpact, "the srt file is only stored locally"),
			)
		}
		outcome.ArchiveKey = key
	}

	stageCtx, logger = p.stageLogger(ctx, StageUpload)
	replaced, err := p.upload(stageCtx, logger, videoID, saved, replace)
	if err != nil {
		return outcome, p.stageFailed(logger, StageUpload, err)
	}
	outcome.Replaced = replaced
	outcome.CaptionURL = p.CaptionURL(videoID)

	logging.WithContext(ctx, p.logger).Info("video captioned",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("duration", time.Since(started)),
		logging.Int("cues", outcome.Cues),
		logging.Bool("replaced", replaced),
	)
	logging.WithContext(ctx, p.logger).Info("view your captions", logging.String("url", outcome.CaptionURL))
	return outcome, nil
}

// checkVideoID rejects ids that are empty or would escape the download and
// subtitle directories.
func checkVideoID(videoID string) error {
	if videoID == "" {
		return services.Wrap(services.ErrValidation, StageFetch, "video", "video id required", nil)
	}
	if videoID != filepath.Base(videoID) || videoID == "." || videoID == ".." {
		return services.Wrap(services.ErrValidation, StageFetch, "video", fmt.Sprintf("invalid video id %q", videoID), nil)
	}
	return nil
}

// reloadSubtitles reads the saved file back so the uploaded body is exactly
// what is on disk.
func reloadSubtitles(path string, want subtitles.File) (subtitles.File, error) {
	saved, err := subtitles.Load(path)
	if err != nil {
		return subtitles.File{}, services.Wrap(services.ErrValidation, StageFormat, "subtitles", "saved srt is unreadable", err)
	}
	if len(saved.Cues) != len(want.Cues) {
		return subtitles.File{}, services.Wrap(services.ErrValidation, StageFormat, "subtitles",
			fmt.Sprintf("saved srt has %d cues, expected %d", len(saved.Cues), len(want.Cues)), nil)
	}
	saved.Language = want.Language
	return saved, nil
}

func (p *Pipeline) download(ctx context.Context, logger *slog.Logger, videoID string, asset wistia.Asset) (string, error) {
	dest := filepath.Join(p.downloadDir, videoID+".mp4")
	if fileutil.Exists(dest) {
		logger.Info("using existing download", logging.String("path", dest))
		return dest, nil
	}
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("destination", dest),
	)
	written, err := p.platform.DownloadAsset(ctx, asset.URL, dest)
	if err != nil {
		return "", err
	}
	logger.Info("asset downloaded", logging.Int64("bytes", written))
	return dest, nil
}

// upload creates or replaces the caption track and reports whether an
// existing track was replaced.
func (p *Pipeline) upload(ctx context.Context, logger *slog.Logger, videoID string, file subtitles.File, replace bool) (bool, error) {
	captions, err := p.platform.ListCaptions(ctx, videoID)
	if err != nil {
		return false, err
	}
	exists := false
	for _, c := range captions {
		if strings.EqualFold(c.Language, file.Language) {
			exists = true
			break
		}
	}
	data := subtitles.Encode(file)
	if replace && exists {
		logger.Info("replacing caption track", logging.Args(logging.DecisionAttrs("caption_upload", "update", "track exists and replace requested")...)...)
		err := p.platform.UpdateCaptions(ctx, videoID, file.Language, data)
		if !wistia.IsNotFound(err) {
			return err == nil, err
		}
		// The track was removed between listing and updating.
		logger.Info("caption track vanished, creating instead", logging.Args(logging.DecisionAttrs("caption_upload", "create", "update returned not found")...)...)
		exists = false
	}
	logger.Info("creating caption track", logging.Args(logging.DecisionAttrs("caption_upload", "create", trackReason(exists))...)...)
	if err := p.platform.CreateCaptions(ctx, videoID, file.Language, data); err != nil {
		if exists {
			return false, services.Wrap(services.ErrUploadConflict, StageUpload, "captions",
				fmt.Sprintf("a %s caption track already exists; rerun with --replace", file.Language), err)
		}
		return false, err
	}
	return false, nil
}

func trackReason(exists bool) string {
	if exists {
		return "track exists but replace not requested"
	}
	return "no track in this language"
}

func (p *Pipeline) stageFailed(logger *slog.Logger, stage string, err error) error {
	if errors.Is(err, context.Canceled) {
		logger.Debug("stage interrupted")
		return err
	}
	logging.ErrorWithContext(logger, "stage failed", "stage_failure",
		logging.Stage(stage),
		logging.String("error_kind", services.Kind(err)),
		logging.Error(err),
	)
	return err
}
