package transcription

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"autocap/internal/logging"
	"autocap/internal/respcache"
	"autocap/internal/services"
)

// Cache key patterns for the two halves of an async job.
const (
	SubmitPattern respcache.Pattern = "request_async_asr__{key}.json"
	ResultPattern respcache.Pattern = "retrieve_async_asr_result__{key}.json"
)

// DefaultInterval is the wait between result polls.
const DefaultInterval = 10 * time.Second

// Handle locates the result of a submitted job.
type Handle struct {
	ResultURL string `json:"url"`
}

// SubmitFunc starts an async job for mediaURL.
type SubmitFunc func(ctx context.Context, mediaURL string) (Handle, error)

// PollFunc fetches the job result. A nil transcript means not ready yet.
type PollFunc func(ctx context.Context, handle Handle) (*Transcript, error)

// Clock abstracts time so tests can drive the poll loop.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	return services.SleepWithContext(ctx, d)
}

// State is the lifecycle position of a Job.
type State string

const (
	StateSubmitted State = "submitted"
	StatePending   State = "pending"
	StateComplete  State = "complete"
	StateFailed    State = "failed"
)

// Job tracks one submit-then-poll run.
type Job struct {
	ID            string
	SubmissionURL string
	Key           string
	ResultURL     string
	State         State
	Attempts      int
	Result        *Transcript
	Err           error
}

func (j *Job) attrs() []logging.Attr {
	attrs := []logging.Attr{
		logging.String(logging.FieldCorrelationID, j.ID),
		logging.String("job_key", j.Key),
		logging.String("state", string(j.State)),
		logging.Int("attempts", j.Attempts),
	}
	if j.ResultURL != "" {
		attrs = append(attrs, logging.String("result_url", j.ResultURL))
	}
	return attrs
}

// Poller drives async jobs to completion through the response cache.
type Poller struct {
	Cache  *respcache.Cache
	Clock  Clock
	Logger *slog.Logger
	// Interval between polls; DefaultInterval when zero.
	Interval time.Duration
	// MaxAttempts and Deadline bound the poll loop; zero means unbounded.
	MaxAttempts int
	Deadline    time.Duration
}

// NewPoller builds a Poller with the real clock and the default interval.
func NewPoller(cache *respcache.Cache, logger *slog.Logger) *Poller {
	return &Poller{Cache: cache, Clock: realClock{}, Logger: logger, Interval: DefaultInterval}
}

// Transcribe submits mediaURL once per jobKey and polls until the result is
// complete. Submission and the complete result are cached under jobKey, so a
// repeated call never resubmits and returns the stored result directly.
func (p *Poller) Transcribe(ctx context.Context, mediaURL, jobKey string, submit SubmitFunc, poll PollFunc) (Transcript, error) {
	if p == nil || p.Cache == nil {
		return Transcript{}, fmt.Errorf("transcription: poller is not configured")
	}
	if strings.TrimSpace(jobKey) == "" {
		return Transcript{}, services.Wrap(services.ErrValidation, "transcribe", "poll", "job key required", nil)
	}
	clock := p.Clock
	if clock == nil {
		clock = realClock{}
	}
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := p.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "transcription"))

	job := &Job{
		ID:            uuid.NewString(),
		SubmissionURL: mediaURL,
		Key:           jobKey,
		State:         StateSubmitted,
	}
	params := respcache.Params{"key": jobKey}

	submitted, err := respcache.Once(ctx, p.Cache, SubmitPattern, params, func(ctx context.Context) (Handle, error) {
		return submit(ctx, mediaURL)
	})
	if err != nil {
		return Transcript{}, p.fail(logger, job, err)
	}
	if strings.TrimSpace(submitted.Value.ResultURL) == "" {
		return Transcript{}, p.fail(logger, job,
			services.Wrap(services.ErrTranscriptionParse, "transcribe", "submit", "handle missing result url", nil))
	}
	job.ResultURL = submitted.Value.ResultURL
	logger.Info("transcription submitted", logging.Args(append(job.attrs(),
		logging.String("source", submitted.Source.String()))...)...)

	started := clock.Now()
	keepComplete := func(t *Transcript) bool { return t != nil }
	for {
		job.Attempts++
		polled, err := respcache.MemoizeIf(ctx, p.Cache, ResultPattern, params, keepComplete, func(ctx context.Context) (*Transcript, error) {
			return poll(ctx, submitted.Value)
		})
		if err != nil {
			return Transcript{}, p.fail(logger, job, err)
		}
		if polled.Value != nil {
			job.State = StateComplete
			job.Result = polled.Value
			logger.Info("transcription complete", logging.Args(append(job.attrs(),
				logging.String("source", polled.Source.String()),
				logging.Int("segments", len(polled.Value.Segments)))...)...)
			return *polled.Value, nil
		}

		job.State = StatePending
		logger.Debug("transcription pending", logging.Args(job.attrs()...)...)
		if p.MaxAttempts > 0 && job.Attempts >= p.MaxAttempts {
			return Transcript{}, p.fail(logger, job, services.Wrap(services.ErrTimeout, "transcribe", "poll",
				fmt.Sprintf("result not ready after %d attempts", job.Attempts), nil))
		}
		if p.Deadline > 0 && clock.Now().Add(interval).Sub(started) > p.Deadline {
			return Transcript{}, p.fail(logger, job, services.Wrap(services.ErrTimeout, "transcribe", "poll",
				fmt.Sprintf("result not ready within %s", p.Deadline), nil))
		}
		if err := clock.Sleep(ctx, interval); err != nil {
			return Transcript{}, p.fail(logger, job, err)
		}
	}
}

func (p *Poller) fail(logger *slog.Logger, job *Job, err error) error {
	job.State = StateFailed
	job.Err = err
	logging.WarnWithContext(logger, "transcription failed", "transcription_failed",
		append(job.attrs(), logging.Error(err))...)
	return err
}
