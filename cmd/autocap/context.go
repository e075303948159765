package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"autocap/internal/archive"
	"autocap/internal/captioning"
	"autocap/internal/config"
	"autocap/internal/logging"
	"autocap/internal/notifications"
	"autocap/internal/respcache"
	"autocap/internal/transcription"
	"autocap/internal/wistia"
)

type commandContext struct {
	configFlag *string
	opts       *runOptions

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	notifyOnce sync.Once
	notifySvc  notifications.Service
}

func newCommandContext(configFlag *string, opts *runOptions) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		opts:       opts,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := c.applyOverrides(cfg); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

// applyOverrides layers command-line flags over the loaded file.
func (c *commandContext) applyOverrides(cfg *config.Config) error {
	if c.opts == nil {
		return nil
	}
	if service := strings.TrimSpace(c.opts.service); service != "" {
		if !config.ValidService(service) {
			return fmt.Errorf("--service must be one of %s, %s, %s (got %q)",
				config.ServiceCloudASR, config.ServiceLocalTool, config.ServiceOpenAI, service)
		}
		cfg.Transcription.Service = service
	}
	if password := strings.TrimSpace(c.opts.password); password != "" {
		cfg.Wistia.APIPassword = password
	}
	if c.opts.concurrency < 0 {
		return fmt.Errorf("--concurrency must be positive (got %d)", c.opts.concurrency)
	}
	if c.opts.concurrency > 0 {
		cfg.Workflow.Concurrency = c.opts.concurrency
	}
	return nil
}

func (c *commandContext) levelOverride() string {
	switch {
	case c.opts == nil:
		return ""
	case c.opts.debug:
		return "debug"
	case c.opts.verbose:
		return "info"
	default:
		return ""
	}
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg, c.levelOverride())
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) notifier() notifications.Service {
	c.notifyOnce.Do(func() {
		cfg, _ := c.ensureConfig()
		c.notifySvc = notifications.NewService(cfg)
	})
	return c.notifySvc
}

// logInterrupt records an interrupted run at error level. It falls back to a
// stderr console logger when the configured one cannot be built.
func (c *commandContext) logInterrupt(err error) {
	logger, lerr := c.ensureLogger()
	if lerr != nil || logger == nil {
		logger, _ = logging.New(logging.Options{Level: "error", Format: "console"})
	}
	logging.ErrorWithContext(logger, "program interrupted", "user_interrupt",
		logging.String(logging.FieldErrorHint, "rerun the same command; finished transcriptions are cached"),
		logging.Error(err),
	)
}

// openPipeline wires the Wistia client and, when withBackend is set, the
// transcription backend, response cache and archive. The returned close
// function releases the cache.
func (c *commandContext) openPipeline(withBackend bool) (*captioning.Pipeline, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	if withBackend || cfg.Wistia.APIPassword == "" {
		if err := cfg.RequireCredentials(); err != nil {
			return nil, nil, err
		}
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}

	client, err := wistia.New(wistia.Config{
		APIPassword: cfg.Wistia.APIPassword,
		BaseURL:     cfg.Wistia.BaseURL,
		PageLimit:   cfg.Wistia.PageLimit,
		HTTPClient:  &http.Client{Timeout: time.Duration(cfg.Wistia.TimeoutSeconds) * time.Second},
		Logger:      logger,
	})
	if err != nil {
		return nil, nil, err
	}

	opts := captioning.OptionsFromConfig(cfg)
	opts.Platform = client
	opts.Logger = logger
	closeFn := func() {}

	if withBackend {
		store, err := respcache.OpenStore(cfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open response cache: %w", err)
		}
		cache := respcache.New(store, logger)
		closeFn = func() { _ = cache.Close() }

		backend, err := transcription.NewBackend(cfg, cache, logger)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		archiver, err := archive.NewFromConfig(cfg, logger)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		opts.Backend = backend
		opts.Archiver = archiver
	}

	return captioning.New(opts), closeFn, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
