package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. Credentials are checked
// separately by RequireCredentials because CLI flags may still supply them.
func (c *Config) Validate() error {
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateWistia(); err != nil {
		return err
	}
	if c.Workflow.Concurrency <= 0 {
		return errors.New("workflow.concurrency must be positive")
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	if topic := c.Notifications.NtfyTopic; topic != "" &&
		!strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL (got %q)", topic)
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if !ValidService(c.Transcription.Service) {
		return fmt.Errorf("transcription.service must be one of %s, %s, %s (got %q)",
			ServiceCloudASR, ServiceLocalTool, ServiceOpenAI, c.Transcription.Service)
	}
	if c.Transcription.PollIntervalSeconds <= 0 {
		return errors.New("transcription.poll_interval_seconds must be positive")
	}
	if c.Transcription.MaxPolls < 0 {
		return errors.New("transcription.max_polls must be >= 0")
	}
	if c.Transcription.DeadlineSeconds < 0 {
		return errors.New("transcription.deadline_seconds must be >= 0")
	}
	if c.Transcription.LeadInMS < 0 {
		return errors.New("transcription.lead_in_ms must be >= 0")
	}
	if c.Transcription.LeadOutMS < 0 {
		return errors.New("transcription.lead_out_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateWistia() error {
	lang := c.Wistia.Language
	if lang == "auto" {
		return nil
	}
	if len(lang) != 2 && len(lang) != 3 {
		return fmt.Errorf("wistia.language must be a 2 or 3 letter code or \"auto\" (got %q)", lang)
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case CacheBackendFile, CacheBackendSQLite, CacheBackendBadger, CacheBackendMemory:
		return nil
	default:
		return fmt.Errorf("cache.backend must be one of file, sqlite, badger, memory (got %q)", c.Cache.Backend)
	}
}

func (c *Config) validateArchive() error {
	if !c.Archive.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Archive.Bucket) == "" {
		return errors.New("archive.bucket must be set when archive.enabled is true")
	}
	return nil
}

// ValidService reports whether name is a known transcription service.
func ValidService(name string) bool {
	switch name {
	case ServiceCloudASR, ServiceLocalTool, ServiceOpenAI:
		return true
	default:
		return false
	}
}

// RequireCredentials checks that the Wistia password and the credentials of
// the selected transcription service are present.
func (c *Config) RequireCredentials() error {
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	if c.Wistia.APIPassword == "" {
		return fmt.Errorf("wistia.api_password is required. Pass --password, set WISTIA_API_PASSWORD, or edit %s (create with 'autocap config init')", defaultPath)
	}
	switch c.Transcription.Service {
	case ServiceCloudASR:
		if c.NLPCloud.APIKey == "" {
			return fmt.Errorf("nlpcloud.api_key is required for %s. Set NLPCLOUD_KEY or edit %s", ServiceCloudASR, defaultPath)
		}
	case ServiceOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("openai.api_key is required for %s. Set OPENAI_API_KEY or edit %s", ServiceOpenAI, defaultPath)
		}
	}
	return nil
}
