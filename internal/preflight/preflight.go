package preflight

import (
	"context"
	"strings"

	"autocap/internal/config"
	"autocap/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir),
		CheckDirectoryAccess("Subtitle directory", cfg.Paths.SRTDir),
	}
	if cfg.NeedsDownloads() {
		results = append(results, CheckDirectoryAccess("Download directory", cfg.Paths.DownloadDir))
	}

	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, statusResult(status))
	}

	results = append(results, CheckWistia(ctx, cfg.Wistia.BaseURL, cfg.Wistia.APIPassword))

	switch cfg.Transcription.Service {
	case config.ServiceCloudASR:
		results = append(results, CheckCredential("NLP Cloud", cfg.NLPCloud.APIKey))
	case config.ServiceOpenAI:
		results = append(results, CheckOpenAI(ctx, cfg.OpenAI))
	}

	if cfg.Archive.Enabled {
		results = append(results, CheckArchive(ctx, cfg))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

func statusResult(status deps.Status) Result {
	name := status.Name
	if status.Available {
		detail := status.Command
		if status.Detail != "" {
			detail = status.Detail
		}
		return Result{Name: name, Passed: true, Detail: detail}
	}
	detail := status.Detail
	if desc := strings.TrimSpace(status.Description); desc != "" {
		detail += " (" + strings.ToLower(desc[:1]) + desc[1:] + ")"
	}
	// optional tools never fail the run
	return Result{Name: name, Passed: status.Optional, Detail: detail}
}
