package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Transcription service identifiers accepted by transcription.service and --service.
const (
	ServiceCloudASR  = "cloud_asr"
	ServiceLocalTool = "local_tool"
	ServiceOpenAI    = "openai"
)

// Cache backend identifiers accepted by cache.backend.
const (
	CacheBackendFile   = "file"
	CacheBackendSQLite = "sqlite"
	CacheBackendBadger = "badger"
	CacheBackendMemory = "memory"
)

// Paths contains working directory configuration.
type Paths struct {
	CacheDir    string `toml:"cache_dir"`
	SRTDir      string `toml:"srt_dir"`
	DownloadDir string `toml:"download_dir"`
	LogDir      string `toml:"log_dir"`
}

// Wistia contains configuration for the hosting platform data API.
type Wistia struct {
	APIPassword    string `toml:"api_password"`
	BaseURL        string `toml:"base_url"`
	MediaURL       string `toml:"media_url"`
	Language       string `toml:"language"`
	PageLimit      int    `toml:"page_limit"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Transcription contains the backend selection and cue timing knobs.
type Transcription struct {
	Service             string `toml:"service"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	MaxPolls            int    `toml:"max_polls"`
	DeadlineSeconds     int    `toml:"deadline_seconds"`
	LeadInMS            int    `toml:"lead_in_ms"`
	LeadOutMS           int    `toml:"lead_out_ms"`
}

// NLPCloud contains configuration for the cloud ASR backend.
type NLPCloud struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	GPU            bool   `toml:"gpu"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// WhisperX contains configuration for the local transcription tool.
type WhisperX struct {
	Model       string `toml:"model"`
	CUDAEnabled bool   `toml:"cuda_enabled"`
	VADMethod   string `toml:"vad_method"`
	HFToken     string `toml:"hf_token"`
}

// OpenAI contains configuration for the hosted Whisper API backend.
type OpenAI struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// Workflow contains batch processing settings.
type Workflow struct {
	Concurrency int `toml:"concurrency"`
}

// Cache selects where remote responses are memoized.
type Cache struct {
	Backend string `toml:"backend"`
}

// Archive contains configuration for mirroring SRT files to object storage.
type Archive struct {
	Enabled         bool   `toml:"enabled"`
	Bucket          string `toml:"bucket"`
	Prefix          string `toml:"prefix"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	UsePathStyle    bool   `toml:"use_path_style"`
}

// Notifications contains the optional ntfy target for run summaries.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for autocap.
//
// Configuration sections by subsystem:
//   - Paths: cache, subtitle, download and log directories
//   - Wistia: data API credentials and caption language
//   - Transcription: backend selection, polling and cue padding
//   - NLPCloud, WhisperX, OpenAI: per-backend settings
//   - Workflow: project batch concurrency
//   - Cache: response cache backend
//   - Archive: optional S3 mirror for generated subtitles
//   - Notifications: optional ntfy summaries
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Wistia        Wistia        `toml:"wistia"`
	Transcription Transcription `toml:"transcription"`
	NLPCloud      NLPCloud      `toml:"nlpcloud"`
	WhisperX      WhisperX      `toml:"whisperx"`
	OpenAI        OpenAI        `toml:"openai"`
	Workflow      Workflow      `toml:"workflow"`
	Cache         Cache         `toml:"cache"`
	Archive       Archive       `toml:"archive"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file in the working directory is read
// first so credentials can live outside the TOML file; it never overrides variables
// already present in the environment.
func Load(path string) (*Config, string, bool, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, "", false, err
	}

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("autocap.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the working directories used during a run. The
// download directory is only needed by backends that transcribe local files.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.CacheDir, c.Paths.SRTDir}
	if c.NeedsDownloads() {
		dirs = append(dirs, c.Paths.DownloadDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// NeedsDownloads reports whether the selected service transcribes local copies
// of the media instead of a remote URL.
func (c *Config) NeedsDownloads() bool {
	switch c.Transcription.Service {
	case ServiceLocalTool, ServiceOpenAI:
		return true
	default:
		return false
	}
}

// PollInterval returns the async ASR poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Transcription.PollIntervalSeconds) * time.Second
}

// PollDeadline returns the overall async ASR deadline; zero means unbounded.
func (c *Config) PollDeadline() time.Duration {
	return time.Duration(c.Transcription.DeadlineSeconds) * time.Second
}

// LeadIn returns the cue lead-in padding.
func (c *Config) LeadIn() time.Duration {
	return time.Duration(c.Transcription.LeadInMS) * time.Millisecond
}

// LeadOut returns the cue lead-out padding.
func (c *Config) LeadOut() time.Duration {
	return time.Duration(c.Transcription.LeadOutMS) * time.Millisecond
}

// FFmpegBinary returns the ffmpeg executable name used for audio extraction.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// UVXBinary returns the uvx executable name used to launch WhisperX.
func (c *Config) UVXBinary() string {
	return "uvx"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML with secrets masked.
func (c *Config) Encode() ([]byte, error) {
	masked := *c
	masked.Wistia.APIPassword = maskSecret(masked.Wistia.APIPassword)
	masked.NLPCloud.APIKey = maskSecret(masked.NLPCloud.APIKey)
	masked.OpenAI.APIKey = maskSecret(masked.OpenAI.APIKey)
	masked.WhisperX.HFToken = maskSecret(masked.WhisperX.HFToken)
	masked.Archive.AccessKeyID = maskSecret(masked.Archive.AccessKeyID)
	masked.Archive.SecretAccessKey = maskSecret(masked.Archive.SecretAccessKey)
	data, err := toml.Marshal(masked)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

func maskSecret(value string) string {
	if value == "" {
		return ""
	}
	return "********"
}
