package captioning

import (
	"context"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"autocap/internal/logging"
	"autocap/internal/services"
	"autocap/internal/wistia"
)

// DefaultConcurrency is the worker count for project runs.
const DefaultConcurrency = 10

// Result is the per-video outcome of a project run. Index is the video's
// position in the project listing; results are returned in that order.
type Result struct {
	Index      int
	VideoID    string
	Name       string
	CaptionURL string
	Outcome    Outcome
	Err        error
}

// Failed reports whether the video did not complete.
func (r Result) Failed() bool { return r.Err != nil }

type videoRef struct {
	id   string
	name string
}

// ProcessProject captions every video of a project with concurrency workers.
// Per-video failures are recorded in the results; the returned error is only
// set when the project cannot be read or ctx ends.
func (p *Pipeline) ProcessProject(ctx context.Context, projectID string, replace bool, concurrency int) ([]Result, error) {
	return p.forProject(ctx, projectID, concurrency, "caption", func(ctx context.Context, ref videoRef) Result {
		outcome, err := p.ProcessVideo(ctx, ref.id, replace)
		if err != nil {
			return Result{Outcome: outcome, Err: err}
		}
		return Result{CaptionURL: outcome.CaptionURL, Outcome: outcome}
	})
}

// ToggleCaptions shows captions by default (enabled) or removes the captions
// plugin from one video. An unchanged video is left alone.
func (p *Pipeline) ToggleCaptions(ctx context.Context, videoID string, enabled bool) error {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return services.Wrap(services.ErrValidation, "toggle", "video", "video id required", nil)
	}
	ctx = services.WithVideoID(ctx, videoID)
	logger := logging.WithContext(ctx, p.logger)
	current, err := p.platform.ShowCustomizations(ctx, videoID)
	if err != nil {
		return p.stageFailed(logger, "toggle", err)
	}
	if current.CaptionsEnabled() == enabled && current.HasCaptionsPlugin() == enabled {
		logger.Info("captions already in requested state", logging.Bool("enabled", enabled))
		return nil
	}
	custom, err := p.platform.SetCaptionsEnabled(ctx, videoID, enabled)
	if err != nil {
		return p.stageFailed(logger, "toggle", err)
	}
	logger.Info("captions toggled",
		logging.Bool("requested", enabled),
		logging.Bool("enabled", custom.CaptionsEnabled()),
	)
	return nil
}

// ToggleProject applies ToggleCaptions to every video of a project.
func (p *Pipeline) ToggleProject(ctx context.Context, projectID string, enabled bool, concurrency int) ([]Result, error) {
	return p.forProject(ctx, projectID, concurrency, "toggle", func(ctx context.Context, ref videoRef) Result {
		if err := p.ToggleCaptions(ctx, ref.id, enabled); err != nil {
			return Result{Err: err}
		}
		return Result{CaptionURL: p.CaptionURL(ref.id)}
	})
}

// ListProjects returns every project sorted by name.
func (p *Pipeline) ListProjects(ctx context.Context) ([]wistia.Project, error) {
	projects, err := p.platform.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(projects, func(a, b wistia.Project) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return projects, nil
}

func (p *Pipeline) forProject(ctx context.Context, projectID string, concurrency int, action string, fn func(context.Context, videoRef) Result) ([]Result, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, services.Wrap(services.ErrValidation, StageFetch, "project", "project id required", nil)
	}
	ctx = services.WithProjectID(ctx, projectID)
	logger := logging.WithContext(ctx, p.logger)

	project, err := p.platform.ShowProject(ctx, projectID)
	if err != nil {
		return nil, p.stageFailed(logger, StageFetch, err)
	}
	refs := make([]videoRef, 0, len(project.Medias))
	for _, media := range project.Medias {
		if !isCaptionable(media) {
			logger.Debug("skipping media", logging.VideoID(media.HashedID), logging.String("type", media.Type))
			continue
		}
		refs = append(refs, videoRef{id: media.HashedID, name: media.Name})
	}
	logger.Info("project run started",
		logging.String("action", action),
		logging.String("project", project.Name),
		logging.Int("videos", len(refs)),
		logging.Int("concurrency", workerCount(concurrency, len(refs))),
	)

	results := runPool(ctx, refs, concurrency, fn)

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	logger.Info("project run finished",
		logging.String("action", action),
		logging.Int("succeeded", len(results)-failed),
		logging.Int("failed", failed),
	)
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func isCaptionable(media wistia.Media) bool {
	switch strings.ToLower(strings.TrimSpace(media.Type)) {
	case "", "video", "audio":
		return media.HashedID != ""
	default:
		return false
	}
}

func workerCount(concurrency, jobs int) int {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if jobs > 0 && concurrency > jobs {
		concurrency = jobs
	}
	return concurrency
}

// runPool runs fn for every ref with a fixed number of workers pulling from a
// channel. Each result lands in the slot of its ref. Refs never started
// because ctx ended carry ctx's error.
func runPool(ctx context.Context, refs []videoRef, concurrency int, fn func(context.Context, videoRef) Result) []Result {
	results := make([]Result, len(refs))
	done := make([]bool, len(refs))
	jobs := make(chan int)

	var g errgroup.Group
	g.Go(func() error {
		defer close(jobs)
		for i := range refs {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	})
	for w := 0; w < workerCount(concurrency, len(refs)); w++ {
		g.Go(func() error {
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				r := fn(ctx, refs[i])
				r.Index = i
				r.VideoID = refs[i].id
				r.Name = refs[i].name
				results[i] = r
				done[i] = true
			}
			return nil
		})
	}
	_ = g.Wait()

	for i := range results {
		if !done[i] {
			results[i] = Result{Index: i, VideoID: refs[i].id, Name: refs[i].name, Err: ctx.Err()}
		}
	}
	return results
}
