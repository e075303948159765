package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWistia()
	c.normalizeTranscription()
	c.normalizeNLPCloud()
	c.normalizeWhisperX()
	c.normalizeOpenAI()
	c.normalizeArchive()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		c.Notifications.NtfyTopic = lookupEnv("NTFY_TOPIC")
	}
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
	c.normalizeLogging()
	if c.Workflow.Concurrency <= 0 {
		c.Workflow.Concurrency = defaultWorkflowConcurrency
	}
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = defaultCacheBackend
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SRTDir) == "" {
		c.Paths.SRTDir = defaultSRTDir
	}
	if c.Paths.SRTDir, err = expandPath(c.Paths.SRTDir); err != nil {
		return fmt.Errorf("paths.srt_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		c.Paths.DownloadDir = defaultDownloadDir
	}
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWistia() {
	c.Wistia.APIPassword = strings.TrimSpace(c.Wistia.APIPassword)
	if c.Wistia.APIPassword == "" {
		c.Wistia.APIPassword = lookupEnv("WISTIA_API_PASSWORD")
	}
	c.Wistia.BaseURL = strings.TrimRight(strings.TrimSpace(c.Wistia.BaseURL), "/")
	if c.Wistia.BaseURL == "" {
		c.Wistia.BaseURL = defaultWistiaBaseURL
	}
	c.Wistia.MediaURL = strings.TrimRight(strings.TrimSpace(c.Wistia.MediaURL), "/")
	if c.Wistia.MediaURL == "" {
		c.Wistia.MediaURL = defaultWistiaMediaURL
	}
	c.Wistia.Language = strings.ToLower(strings.TrimSpace(c.Wistia.Language))
	if c.Wistia.Language == "" {
		c.Wistia.Language = defaultWistiaLanguage
	}
	if c.Wistia.PageLimit <= 0 {
		c.Wistia.PageLimit = defaultWistiaPageLimit
	}
	if c.Wistia.TimeoutSeconds <= 0 {
		c.Wistia.TimeoutSeconds = defaultWistiaTimeoutSeconds
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Service = strings.ToLower(strings.TrimSpace(c.Transcription.Service))
	if c.Transcription.Service == "" {
		c.Transcription.Service = defaultService
	}
	if c.Transcription.PollIntervalSeconds == 0 {
		c.Transcription.PollIntervalSeconds = defaultPollIntervalSeconds
	}
}

func (c *Config) normalizeNLPCloud() {
	c.NLPCloud.APIKey = strings.TrimSpace(c.NLPCloud.APIKey)
	if c.NLPCloud.APIKey == "" {
		c.NLPCloud.APIKey = lookupEnv("NLPCLOUD_KEY")
	}
	c.NLPCloud.BaseURL = strings.TrimRight(strings.TrimSpace(c.NLPCloud.BaseURL), "/")
	if c.NLPCloud.BaseURL == "" {
		c.NLPCloud.BaseURL = defaultNLPCloudBaseURL
	}
	c.NLPCloud.Model = strings.TrimSpace(c.NLPCloud.Model)
	if c.NLPCloud.Model == "" {
		c.NLPCloud.Model = defaultNLPCloudModel
	}
	if c.NLPCloud.TimeoutSeconds <= 0 {
		c.NLPCloud.TimeoutSeconds = defaultNLPCloudTimeout
	}
}

func (c *Config) normalizeWhisperX() {
	c.WhisperX.Model = strings.TrimSpace(c.WhisperX.Model)
	if c.WhisperX.Model == "" {
		c.WhisperX.Model = defaultWhisperXModel
	}
	c.WhisperX.VADMethod = strings.ToLower(strings.TrimSpace(c.WhisperX.VADMethod))
	if c.WhisperX.VADMethod == "" {
		c.WhisperX.VADMethod = defaultWhisperXVADMethod
	}
	c.WhisperX.HFToken = strings.TrimSpace(c.WhisperX.HFToken)
	if c.WhisperX.HFToken == "" {
		if value := lookupEnv("HUGGING_FACE_HUB_TOKEN"); value != "" {
			c.WhisperX.HFToken = value
		} else {
			c.WhisperX.HFToken = lookupEnv("HF_TOKEN")
		}
	}
}

func (c *Config) normalizeOpenAI() {
	c.OpenAI.APIKey = strings.TrimSpace(c.OpenAI.APIKey)
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = lookupEnv("OPENAI_API_KEY")
	}
	c.OpenAI.BaseURL = strings.TrimSpace(c.OpenAI.BaseURL)
	c.OpenAI.Model = strings.TrimSpace(c.OpenAI.Model)
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = defaultOpenAIModel
	}
}

func (c *Config) normalizeArchive() {
	c.Archive.Bucket = strings.TrimSpace(c.Archive.Bucket)
	c.Archive.Prefix = strings.TrimLeft(strings.TrimSpace(c.Archive.Prefix), "/")
	c.Archive.Endpoint = strings.TrimSpace(c.Archive.Endpoint)
	c.Archive.Region = strings.TrimSpace(c.Archive.Region)
	if c.Archive.Region == "" {
		c.Archive.Region = defaultArchiveRegion
	}
	c.Archive.AccessKeyID = strings.TrimSpace(c.Archive.AccessKeyID)
	if c.Archive.AccessKeyID == "" {
		c.Archive.AccessKeyID = lookupEnv("AWS_ACCESS_KEY_ID")
	}
	c.Archive.SecretAccessKey = strings.TrimSpace(c.Archive.SecretAccessKey)
	if c.Archive.SecretAccessKey == "" {
		c.Archive.SecretAccessKey = lookupEnv("AWS_SECRET_ACCESS_KEY")
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func lookupEnv(key string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
