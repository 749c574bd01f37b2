// Package job provides the Job aggregate for tracking talking-head generation
// work, with a strictly forward state machine and an in-memory registry that
// deduplicates in-flight work by request fingerprint.
//
// A Job is mutated only through the Registry, which serializes writes; callers
// always receive snapshots (clones), never live references.
package job

import (
	"time"

	"github.com/postervoice/talkinghead-api/internal/job/id"
	"github.com/postervoice/talkinghead-api/internal/stage"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusPending indicates the job is created but no stage has started.
	StatusPending Status = "PENDING"
	// StatusGeneratingScript indicates the script stage is running.
	StatusGeneratingScript Status = "GENERATING_SCRIPT"
	// StatusGeneratingAudio indicates the audio stage is running.
	StatusGeneratingAudio Status = "GENERATING_AUDIO"
	// StatusGeneratingVideo indicates the video stage is running.
	StatusGeneratingVideo Status = "GENERATING_VIDEO"
	// StatusCompleted indicates the job finished successfully.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the job stopped after exhausting a stage's retry budget.
	StatusFailed Status = "FAILED"
)

// statusOrder defines the monotonic progression of the success path.
var statusOrder = map[Status]int{
	StatusPending:          0,
	StatusGeneratingScript: 1,
	StatusGeneratingAudio:  2,
	StatusGeneratingVideo:  3,
	StatusCompleted:        4,
	StatusFailed:           5,
}

// validTransitions defines which state transitions are allowed. Every
// non-terminal state may fail; success transitions never skip a stage.
var validTransitions = map[Status][]Status{
	StatusPending:          {StatusGeneratingScript, StatusFailed},
	StatusGeneratingScript: {StatusGeneratingAudio, StatusFailed},
	StatusGeneratingAudio:  {StatusGeneratingVideo, StatusFailed},
	StatusGeneratingVideo:  {StatusCompleted, StatusFailed},
	StatusCompleted:        {},
	StatusFailed:           {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Before reports whether s precedes other in the state-machine order.
func (s Status) Before(other Status) bool {
	return statusOrder[s] < statusOrder[other]
}

// IsTerminal returns true if the status is a final state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Error classes recorded on a failed job.
const (
	ClassValidation = "validation"
	ClassTransient  = "transient"
	ClassPermanent  = "permanent"
	ClassFatal      = "fatal"
)

// ErrorInfo describes a job failure: which stage failed and how the failure
// was classified.
type ErrorInfo struct {
	Stage   stage.Kind `json:"stage"`
	Class   string     `json:"class"`
	Message string     `json:"message"`
}

// Job is the unit of orchestrated work. It is not safe for concurrent use on
// its own; the Registry serializes all access.
type Job struct {
	// ID is the unique identifier for this job.
	ID string
	// Fingerprint is the normalized request key this job serves.
	Fingerprint string
	// Status is the current job state.
	Status Status
	// Script is the generated script text, set after the script stage.
	Script string
	// AudioURL is the synthesized audio reference, set after the audio stage.
	AudioURL string
	// AudioDuration is the estimated audio length in seconds.
	AudioDuration float64
	// VideoURL is the lip-synced video reference, set after the video stage.
	VideoURL string
	// VideoDuration is the estimated video length in seconds.
	VideoDuration float64
	// Sources records per stage whether a live provider or a mock produced
	// the result.
	Sources map[stage.Kind]stage.Source
	// Attempts counts adapter invocations per stage.
	Attempts map[stage.Kind]int
	// Error describes the failure when Status is FAILED.
	Error *ErrorInfo
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
}

// New creates a new Job in PENDING state for the given fingerprint.
func New(fingerprint string) *Job {
	now := time.Now()
	return &Job{
		ID:          id.Generate(),
		Fingerprint: fingerprint,
		Status:      StatusPending,
		Sources:     make(map[stage.Kind]stage.Source),
		Attempts:    make(map[stage.Kind]int),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// TransitionTo attempts to change the job status.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}
	j.Status = status
	j.UpdatedAt = time.Now()
	return nil
}

// Fail transitions the job to FAILED and records the failure.
func (j *Job) Fail(info ErrorInfo) error {
	if err := j.TransitionTo(StatusFailed); err != nil {
		return err
	}
	j.Error = &info
	return nil
}

// RecordAttempt increments the invocation counter for a stage.
func (j *Job) RecordAttempt(kind stage.Kind, n int) {
	j.Attempts[kind] += n
	j.UpdatedAt = time.Now()
}

// SetStageResult stores a stage's output on the job.
func (j *Job) SetStageResult(kind stage.Kind, res stage.Result) {
	switch kind {
	case stage.KindScript:
		j.Script = res.Value
	case stage.KindAudio:
		j.AudioURL = res.Value
		j.AudioDuration = res.Duration
	case stage.KindVideo:
		j.VideoURL = res.Value
		j.VideoDuration = res.Duration
	}
	j.Sources[kind] = res.Source
	j.UpdatedAt = time.Now()
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	sources := make(map[stage.Kind]stage.Source, len(j.Sources))
	for k, v := range j.Sources {
		sources[k] = v
	}
	attempts := make(map[stage.Kind]int, len(j.Attempts))
	for k, v := range j.Attempts {
		attempts[k] = v
	}

	var errInfo *ErrorInfo
	if j.Error != nil {
		cp := *j.Error
		errInfo = &cp
	}

	return &Job{
		ID:            j.ID,
		Fingerprint:   j.Fingerprint,
		Status:        j.Status,
		Script:        j.Script,
		AudioURL:      j.AudioURL,
		AudioDuration: j.AudioDuration,
		VideoURL:      j.VideoURL,
		VideoDuration: j.VideoDuration,
		Sources:       sources,
		Attempts:      attempts,
		Error:         errInfo,
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
	}
}
