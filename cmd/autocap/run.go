package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"autocap/internal/captioning"
	"autocap/internal/language"
	"autocap/internal/logging"
	"autocap/internal/notifications"
)

// parseToggle maps --toggle-captions to (set, enabled).
func parseToggle(value string) (bool, bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return false, false, nil
	case "on":
		return true, true, nil
	case "off":
		return true, false, nil
	default:
		return false, false, fmt.Errorf("--toggle-captions must be on or off (got %q)", value)
	}
}

func (c *commandContext) runRoot(cmd *cobra.Command) error {
	opts := c.opts
	toggle, enabled, err := parseToggle(opts.toggle)
	if err != nil {
		return err
	}
	videoID := strings.TrimSpace(opts.videoID)
	projectID := strings.TrimSpace(opts.projectID)

	switch {
	case opts.listProjects && toggle:
		return errors.New("--toggle-captions needs --video or --project, not --list-projects")
	case videoID == "" && projectID == "" && !opts.listProjects:
		return errors.New("one of --video, --project or --list-projects is required")
	}

	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	pipeline, closeFn, err := c.openPipeline(!opts.listProjects && !toggle)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case opts.listProjects:
		projects, err := pipeline.ListProjects(ctx)
		if err != nil {
			return err
		}
		printProjects(out, projects, isTerminal(out))
		return nil

	case toggle && videoID != "":
		if err := pipeline.ToggleCaptions(ctx, videoID, enabled); err != nil {
			return err
		}
		fmt.Fprintf(out, "Captions %s for %s\n", onOff(enabled), videoID)
		return nil

	case toggle:
		results, err := pipeline.ToggleProject(ctx, projectID, enabled, cfg.Workflow.Concurrency)
		printResults(out, results, "toggled "+onOff(enabled))
		if err != nil {
			return err
		}
		return failedVideos(results)

	case videoID != "":
		outcome, err := pipeline.ProcessVideo(ctx, videoID, opts.replace)
		if err != nil {
			c.notify(ctx, func(n notifications.Service) error {
				return n.NotifyError(ctx, err, "video "+videoID)
			})
			return err
		}
		c.notify(ctx, func(n notifications.Service) error {
			return n.NotifyVideoCaptioned(ctx, videoID, outcome.CaptionURL, outcome.Cues)
		})
		verb := "uploaded"
		if outcome.Replaced {
			verb = "replaced"
		}
		fmt.Fprintf(out, "Captions %s for %s (%d cues, %s)\n", verb, videoID, outcome.Cues, language.DisplayName(outcome.Language))
		fmt.Fprintf(out, "Subtitle file: %s\n", outcome.SubtitlePath)
		if outcome.ArchiveKey != "" {
			fmt.Fprintf(out, "Archived as: %s\n", outcome.ArchiveKey)
		}
		fmt.Fprintf(out, "View your captions: %s\n", outcome.CaptionURL)
		return nil

	default:
		started := time.Now()
		results, err := pipeline.ProcessProject(ctx, projectID, opts.replace, cfg.Workflow.Concurrency)
		printResults(out, results, "captioned")
		if err != nil {
			c.notify(ctx, func(n notifications.Service) error {
				return n.NotifyError(ctx, err, "project "+projectID)
			})
			return err
		}
		succeeded, failed := countResults(results)
		c.notify(ctx, func(n notifications.Service) error {
			return n.NotifyProjectCompleted(ctx, projectID, succeeded, failed, time.Since(started))
		})
		return failedVideos(results)
	}
}

// notify delivers a notification when ntfy is configured. Delivery errors are
// logged and never change the command result.
func (c *commandContext) notify(ctx context.Context, send func(notifications.Service) error) {
	if ctx.Err() != nil {
		return
	}
	svc := c.notifier()
	if !notifications.Enabled(svc) {
		return
	}
	if err := send(svc); err != nil {
		if logger, lerr := c.ensureLogger(); lerr == nil {
			logging.WarnWithContext(logger, "notification failed", "notification_failed",
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
				logging.String(logging.FieldImpact, "run result unaffected"),
				logging.Error(err))
		}
	}
}

func countResults(results []captioning.Result) (int, int) {
	var succeeded, failed int
	for _, r := range results {
		if r.Failed() {
			failed++
		} else {
			succeeded++
		}
	}
	return succeeded, failed
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
