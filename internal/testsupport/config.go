package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"autocap/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Credentials for Wistia and the default service are filled with dummies and
// every working directory exists.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Wistia.APIPassword = "test-password"
	cfgVal.NLPCloud.APIKey = "test-key"
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.SRTDir = filepath.Join(base, "srt")
	cfgVal.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	for _, dir := range []string{cfgVal.Paths.CacheDir, cfgVal.Paths.SRTDir, cfgVal.Paths.DownloadDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	return builder.cfg
}

// WithService selects the transcription service and fills its credential.
func WithService(service string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Transcription.Service = service
		if service == config.ServiceOpenAI && b.cfg.OpenAI.APIKey == "" {
			b.cfg.OpenAI.APIKey = "sk-test"
		}
	}
}

// WithWistiaBaseURL points the data API at a test server.
func WithWistiaBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Wistia.BaseURL = url
	}
}

// WithCacheBackend overrides cache.backend.
func WithCacheBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Backend = backend
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the binaries the local
// transcription tool needs are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{b.cfg.UVXBinary(), b.cfg.FFmpegBinary()}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.CacheDir)
}
