package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"autocap/internal/language"
	"autocap/internal/services"
)

// CommandRunner executes an external command. Tests substitute it.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Service provides WhisperX transcription capabilities.
type Service struct {
	cfg           Config
	uvxBinary     string
	ffmpegBinary  string
	commandRunner CommandRunner
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config) *Service {
	uvx := strings.TrimSpace(cfg.UVXBinary)
	if uvx == "" {
		uvx = UVXCommand
	}
	ffmpeg := strings.TrimSpace(cfg.FFmpegBinary)
	if ffmpeg == "" {
		ffmpeg = FFmpegCommand
	}
	return &Service{cfg: cfg, uvxBinary: uvx, ffmpegBinary: ffmpeg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner CommandRunner) {
	s.commandRunner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Transcribe extracts the audio of a local video into workDir, runs WhisperX
// on it and loads the resulting transcript.
func (s *Service) Transcribe(ctx context.Context, videoPath, workDir, lang string) (Transcript, error) {
	if videoPath == "" {
		return Transcript{}, services.Wrap(services.ErrValidation, "transcribe", "whisperx", "video path required", nil)
	}
	if workDir == "" {
		workDir = filepath.Dir(videoPath)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return Transcript{}, fmt.Errorf("transcribe: ensure work dir: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	audioPath := filepath.Join(workDir, base+".wav")
	if err := s.ExtractFullAudio(ctx, videoPath, audioPath); err != nil {
		return Transcript{}, services.Wrap(services.ErrExternalTool, "transcribe", "extract audio", "", err)
	}
	defer os.Remove(audioPath)

	jsonPath, err := s.TranscribeFile(ctx, audioPath, workDir, lang)
	if err != nil {
		return Transcript{}, services.Wrap(services.ErrExternalTool, "transcribe", "whisperx", "", err)
	}
	transcript, err := LoadTranscript(jsonPath)
	if err != nil {
		return Transcript{}, services.Wrap(services.ErrTranscriptionParse, "transcribe", "whisperx output", "", err)
	}
	return transcript, nil
}

// TranscribeFile runs WhisperX on a WAV file and returns the path of the
// JSON it wrote into outputDir.
func (s *Service) TranscribeFile(ctx context.Context, source, outputDir, lang string) (string, error) {
	if source == "" {
		return "", fmt.Errorf("transcribe: source path required")
	}
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("transcribe: ensure output dir: %w", err)
	}
	if err := s.run(ctx, s.uvxBinary, s.buildArgs(source, outputDir, lang)...); err != nil {
		return "", fmt.Errorf("whisperx: %w", err)
	}
	baseName := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(outputDir, baseName+".json"), nil
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (s *Service) buildArgs(source, outputDir, lang string) []string {
	args := make([]string, 0, 32)

	if s.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	args = append(args,
		"whisperx",
		source,
		"--model", s.Model(),
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--beam_size", BeamSize,
	)

	vadMethod := s.cfg.VADMethod
	if vadMethod == "" {
		vadMethod = VADMethodSilero
	}
	args = append(args, "--vad_method", vadMethod)
	if vadMethod == VADMethodPyannote && s.cfg.HFToken != "" {
		args = append(args, "--hf_token", s.cfg.HFToken)
	}

	// "auto" leaves detection to WhisperX.
	if code := language.ToISO2(lang); code != "" && lang != language.Auto {
		args = append(args, "--language", code)
	}

	if s.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}

	return args
}

// Segment represents a transcribed segment from WhisperX JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcript is the decoded WhisperX output.
type Transcript struct {
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// Text joins the non-empty segment texts.
func (t Transcript) Text() string {
	parts := make([]string, 0, len(t.Segments))
	for _, seg := range t.Segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// LoadTranscript loads segments and the detected language from a WhisperX
// JSON file.
func LoadTranscript(jsonPath string) (Transcript, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return Transcript{}, err
	}
	var payload Transcript
	if err := json.Unmarshal(data, &payload); err != nil {
		return Transcript{}, fmt.Errorf("parse whisperx json: %w", err)
	}
	return payload, nil
}
