// Package pipeline provides the orchestrator that turns a content request
// into a finished talking-head video by sequencing the script, audio and
// video stages. It owns job lifecycle, request coalescing, result caching,
// retry/fallback policy and the persistence hook.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/postervoice/talkinghead-api/internal/artifact"
	"github.com/postervoice/talkinghead-api/internal/cache"
	"github.com/postervoice/talkinghead-api/internal/generator"
	"github.com/postervoice/talkinghead-api/internal/job"
	"github.com/postervoice/talkinghead-api/internal/request"
	"github.com/postervoice/talkinghead-api/internal/retry"
	"github.com/postervoice/talkinghead-api/internal/stage"
)

// Static errors for orchestrator construction and entry points.
var (
	// ErrAdapterMissing is returned when no adapter is wired for a stage.
	ErrAdapterMissing = errors.New("pipeline: no adapter registered for stage")
	// ErrUnsupportedEntry is returned when an entry point does not match the
	// requested operation.
	ErrUnsupportedEntry = errors.New("pipeline: entry not supported for this operation")
)

// Default per-stage timeouts. Video generation is expected to be the slowest.
const (
	DefaultScriptTimeout = 10 * time.Second
	DefaultAudioTimeout  = 30 * time.Second
	DefaultVideoTimeout  = 60 * time.Second
)

// FinalResult is the artifact set of a completed pipeline run.
type FinalResult struct {
	JobID         string
	Script        string
	AudioURL      string
	AudioDuration float64
	VideoURL      string
	VideoDuration float64
	Sources       map[stage.Kind]stage.Source
}

// JobError converts a terminally failed job into an error for synchronous
// callers. Coalesced callers waiting on a shared job receive the same
// original failure.
type JobError struct {
	JobID string
	Info  job.ErrorInfo
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %s failed at %s stage (%s): %s", e.JobID, e.Info.Stage, e.Info.Class, e.Info.Message)
}

// Orchestrator sequences the generation stages and tracks jobs. Each job has
// a single writer goroutine; all shared state lives in the registry and the
// cache.
type Orchestrator struct {
	registry *job.Registry
	cache    *cache.Store
	adapters map[stage.Kind]stage.Adapter
	fallback map[stage.Kind]stage.Adapter
	policy   retry.Policy
	timeouts map[stage.Kind]time.Duration
	strict   bool
	recorder artifact.Recorder
	logger   *slog.Logger
}

// Option is a function that configures an Orchestrator.
type Option func(*Orchestrator)

// WithRetryPolicy overrides the shared stage retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(o *Orchestrator) {
		o.policy = p
	}
}

// WithStageTimeout overrides the per-attempt timeout for one stage.
func WithStageTimeout(kind stage.Kind, d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeouts[kind] = d
		}
	}
}

// WithStrictProviders disables fallback-to-mock: exhausting a live provider's
// retry budget fails the job.
func WithStrictProviders(strict bool) Option {
	return func(o *Orchestrator) {
		o.strict = strict
	}
}

// WithRecorder sets the persistence hook invoked after a successful video stage.
func WithRecorder(r artifact.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates an Orchestrator. The adapters are the primary implementation
// per stage, chosen at bootstrap (live when the provider is configured, mock
// otherwise); deterministic mocks are always installed as the fallback.
func New(registry *job.Registry, store *cache.Store, adapters map[stage.Kind]stage.Adapter, opts ...Option) (*Orchestrator, error) {
	for _, kind := range []stage.Kind{stage.KindScript, stage.KindAudio, stage.KindVideo} {
		if adapters[kind] == nil {
			return nil, fmt.Errorf("%w: %s", ErrAdapterMissing, kind)
		}
	}

	o := &Orchestrator{
		registry: registry,
		cache:    store,
		adapters: adapters,
		fallback: map[stage.Kind]stage.Adapter{
			stage.KindScript: generator.NewMockScript(),
			stage.KindAudio:  generator.NewMockTTS(),
			stage.KindVideo:  generator.NewMockLipsync(),
		},
		policy: retry.DefaultPolicy(),
		timeouts: map[stage.Kind]time.Duration{
			stage.KindScript: DefaultScriptTimeout,
			stage.KindAudio:  DefaultAudioTimeout,
			stage.KindVideo:  DefaultVideoTimeout,
		},
		recorder: artifact.NopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Submit starts (or joins) an orchestrated pipeline run and returns a job
// snapshot immediately. A live cache entry short-circuits into an
// already-completed pseudo-job; an in-flight job with the same fingerprint is
// returned as-is (coalescing).
func (o *Orchestrator) Submit(ctx context.Context, raw request.Raw) (*job.Job, error) {
	req, err := request.Normalize(raw)
	if err != nil {
		return nil, err
	}
	if req.Entry != request.EntryFull && req.Entry != request.EntryAd {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEntry, req.Entry)
	}

	fp := string(request.FingerprintOf(req))

	if entry, ok := o.cache.Get(fp); ok {
		snap, created := o.registry.CreateIfAbsent(fp, func() *job.Job {
			return jobFromCache(fp, entry)
		})
		if created {
			o.logger.Info("cache hit, synthesized completed job",
				slog.String("job_id", snap.ID),
				slog.String("fingerprint", fp),
			)
		}
		return snap, nil
	}

	snap, created := o.registry.CreateIfAbsent(fp, func() *job.Job {
		return job.New(fp)
	})
	if !created {
		o.logger.Debug("coalesced onto in-flight job",
			slog.String("job_id", snap.ID),
			slog.String("fingerprint", fp),
		)
		return snap, nil
	}

	o.logger.Info("job created",
		slog.String("job_id", snap.ID),
		slog.String("entry", string(req.Entry)),
		slog.String("subject_id", req.SubjectID),
	)

	// Detach from the caller's context: the job outlives the request.
	go o.run(context.WithoutCancel(ctx), snap.ID, fp, req)

	return snap, nil
}

// GetJob returns a snapshot of a job for polling callers.
func (o *Orchestrator) GetJob(id string) (*job.Job, error) {
	return o.registry.Get(id)
}

// GenerateFull runs the whole pipeline synchronously: submit, await the
// terminal state, and convert a failed job into an error.
func (o *Orchestrator) GenerateFull(ctx context.Context, raw request.Raw) (FinalResult, error) {
	snap, err := o.Submit(ctx, raw)
	if err != nil {
		return FinalResult{}, err
	}

	final, err := o.registry.Await(ctx, snap.ID)
	if err != nil {
		return FinalResult{}, err
	}
	if final.Status == job.StatusFailed {
		info := job.ErrorInfo{Class: job.ClassFatal, Message: "job failed"}
		if final.Error != nil {
			info = *final.Error
		}
		return FinalResult{}, &JobError{JobID: final.ID, Info: info}
	}

	return FinalResult{
		JobID:         final.ID,
		Script:        final.Script,
		AudioURL:      final.AudioURL,
		AudioDuration: final.AudioDuration,
		VideoURL:      final.VideoURL,
		VideoDuration: final.VideoDuration,
		Sources:       final.Sources,
	}, nil
}

// run advances a job through its stages. It is the job's single writer.
func (o *Orchestrator) run(ctx context.Context, jobID, fp string, req request.GenerateRequest) {
	in := stage.Input{
		SubjectID:   req.SubjectID,
		Metadata:    req.Metadata,
		Preferences: req.Preferences,
		Language:    req.Language,
		Emotion:     req.Emotion,
		Text:        req.Text,
		AvatarRef:   req.AvatarRef,
	}
	// For the full pipeline the poster image doubles as the avatar.
	if in.AvatarRef == "" {
		in.AvatarRef = req.SubjectID
	}

	plan := []struct {
		kind   stage.Kind
		status job.Status
	}{
		{stage.KindScript, job.StatusGeneratingScript},
		{stage.KindAudio, job.StatusGeneratingAudio},
		{stage.KindVideo, job.StatusGeneratingVideo},
	}

	for _, step := range plan {
		if err := o.registry.Update(jobID, func(j *job.Job) error {
			return j.TransitionTo(step.status)
		}); err != nil {
			o.logger.Error("status transition failed",
				slog.String("job_id", jobID),
				slog.String("status", string(step.status)),
				slog.String("error", err.Error()),
			)
			return
		}

		res, attempts, err := o.runStage(ctx, step.kind, in)

		if uerr := o.registry.Update(jobID, func(j *job.Job) error {
			j.RecordAttempt(step.kind, attempts)
			if err != nil {
				return j.Fail(job.ErrorInfo{
					Stage:   step.kind,
					Class:   classify(err),
					Message: err.Error(),
				})
			}
			j.SetStageResult(step.kind, res)
			return nil
		}); uerr != nil {
			o.logger.Error("job update failed",
				slog.String("job_id", jobID),
				slog.String("error", uerr.Error()),
			)
			return
		}

		if err != nil {
			o.logger.Warn("stage failed, job stopped",
				slog.String("job_id", jobID),
				slog.String("stage", string(step.kind)),
				slog.String("class", classify(err)),
				slog.String("error", err.Error()),
			)
			return
		}

		// Feed this stage's output into the next one.
		switch step.kind {
		case stage.KindScript:
			in.Text = res.Value
		case stage.KindAudio:
			in.AudioURL = res.Value
			in.AudioDuration = res.Duration
		}
	}

	o.complete(ctx, jobID, fp, in)
}

// complete records the association, writes the cache entry and marks the job
// completed.
func (o *Orchestrator) complete(ctx context.Context, jobID, fp string, in stage.Input) {
	final, err := o.registry.Get(jobID)
	if err != nil {
		o.logger.Error("completed job vanished", slog.String("job_id", jobID))
		return
	}

	// Persistence hook: best-effort, never fails the job.
	subject := in.SubjectID
	if subject == "" {
		subject = in.AvatarRef
	}
	if subject != "" {
		if err := o.recorder.RecordVideo(ctx, subject, final.VideoURL, final.VideoDuration); err != nil {
			o.logger.Warn("video association hook failed",
				slog.String("job_id", jobID),
				slog.String("subject_id", subject),
				slog.String("error", err.Error()),
			)
		}
	}

	o.cache.Put(fp, cache.Entry{
		Script:        final.Script,
		AudioURL:      final.AudioURL,
		AudioDuration: final.AudioDuration,
		VideoURL:      final.VideoURL,
		VideoDuration: final.VideoDuration,
		Sources:       final.Sources,
	})

	if err := o.registry.Update(jobID, func(j *job.Job) error {
		return j.TransitionTo(job.StatusCompleted)
	}); err != nil {
		o.logger.Error("completion transition failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return
	}

	o.logger.Info("job completed",
		slog.String("job_id", jobID),
		slog.String("video_url", final.VideoURL),
	)
}

// runStage executes one stage under the retry policy with its per-attempt
// timeout, falling back to the deterministic mock when the primary adapter's
// budget is exhausted (unless strict mode is set). It returns the result, the
// number of adapter invocations, and the terminal error if any.
func (o *Orchestrator) runStage(ctx context.Context, kind stage.Kind, in stage.Input) (stage.Result, int, error) {
	adapter := o.adapters[kind]
	timeout := o.timeouts[kind]

	attempts := 0
	var res stage.Result
	err := retry.Do(ctx, o.policy, func(ctx context.Context) error {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		r, runErr := adapter.Run(attemptCtx, in)
		if runErr != nil {
			// A per-attempt deadline is a transient failure unless the
			// adapter already classified it.
			if errors.Is(runErr, context.DeadlineExceeded) && !stage.IsTransient(runErr) && !stage.IsPermanent(runErr) {
				return stage.Transient(runErr)
			}
			return runErr
		}
		res = r
		return nil
	})
	if err == nil {
		return res, attempts, nil
	}

	if o.strict {
		return stage.Result{}, attempts, err
	}

	o.logger.Warn("falling back to mock generation",
		slog.String("stage", string(kind)),
		slog.Int("attempts", attempts),
		slog.String("error", err.Error()),
	)

	attempts++
	res, mockErr := o.fallback[kind].Run(ctx, in)
	if mockErr != nil {
		return stage.Result{}, attempts, mockErr
	}
	return res, attempts, nil
}

// classify maps a stage error onto the job error classes.
func classify(err error) string {
	var exhausted *retry.ExhaustedError
	switch {
	case errors.As(err, &exhausted):
		return job.ClassTransient
	case stage.IsTransient(err):
		return job.ClassTransient
	case stage.IsPermanent(err):
		return job.ClassPermanent
	case request.IsValidation(err):
		return job.ClassValidation
	default:
		return job.ClassFatal
	}
}

// jobFromCache synthesizes an already-completed pseudo-job from a cache
// entry, so cache hits are observable through the same polling surface.
func jobFromCache(fp string, entry cache.Entry) *job.Job {
	j := job.New(fp)
	j.Status = job.StatusCompleted
	j.Script = entry.Script
	j.AudioURL = entry.AudioURL
	j.AudioDuration = entry.AudioDuration
	j.VideoURL = entry.VideoURL
	j.VideoDuration = entry.VideoDuration
	for k, v := range entry.Sources {
		j.Sources[k] = v
	}
	return j
}
