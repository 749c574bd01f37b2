// Package server provides the HTTP server for the talking-head API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "github.com/postervoice/talkinghead-api/internal/request"

// GenerateRequest is the HTTP request body shared by the generation endpoints.
// Entry is optional for /generate (defaults to "full") and fixed by the
// single-stage endpoints.
type GenerateRequest struct {
	// Entry selects the pipeline entry point: full, script, audio, video or ad.
	Entry string `json:"entry,omitempty"`
	// SubjectID identifies the poster/product the content is about.
	SubjectID string `json:"subject_id,omitempty"`
	// Language is the target language code (defaults to "en").
	Language string `json:"language,omitempty"`
	// Emotion is the desired tone (defaults to "neutral").
	Emotion string `json:"emotion,omitempty"`
	// Text is caller-provided text: script for /audio, ad brief for /ad.
	Text string `json:"text,omitempty"`
	// AudioURL is an existing audio artifact for /video.
	AudioURL string `json:"audio_url,omitempty"`
	// AvatarRef is the avatar/image reference for lip-sync.
	AvatarRef string `json:"avatar_ref,omitempty"`
	// Metadata is an optional snapshot of subject attributes.
	Metadata map[string]string `json:"metadata,omitempty"`
	// Preferences are optional user preferences influencing the script.
	Preferences map[string]string `json:"preferences,omitempty"`
}

// toRaw converts the DTO into the domain's unvalidated input.
func (r GenerateRequest) toRaw() request.Raw {
	return request.Raw{
		Entry:       request.Entry(r.Entry),
		SubjectID:   r.SubjectID,
		Language:    r.Language,
		Emotion:     r.Emotion,
		Text:        r.Text,
		AudioURL:    r.AudioURL,
		AvatarRef:   r.AvatarRef,
		Metadata:    r.Metadata,
		Preferences: r.Preferences,
	}
}

// SubmitResponse is the HTTP response after submitting an async generation.
type SubmitResponse struct {
	// ID is the job identifier to poll.
	ID string `json:"id"`
	// Status is the job status at submission time.
	Status string `json:"status"`
}

// JobErrorInfo describes a job failure in responses.
type JobErrorInfo struct {
	// Stage is the pipeline stage that failed.
	Stage string `json:"stage"`
	// Class is the failure classification (validation, transient, permanent, fatal).
	Class string `json:"class"`
	// Message is the human-readable error message.
	Message string `json:"message"`
}

// JobResponse is the HTTP response for getting job details.
type JobResponse struct {
	// ID is the unique identifier for the job.
	ID string `json:"id"`
	// Status is the current job status.
	Status string `json:"status"`
	// Script is the generated script, once available.
	Script string `json:"script,omitempty"`
	// AudioURL is the synthesized audio artifact, once available.
	AudioURL string `json:"audio_url,omitempty"`
	// AudioDuration is the estimated audio length in seconds.
	AudioDuration float64 `json:"audio_duration,omitempty"`
	// VideoURL is the final video artifact, once available.
	VideoURL string `json:"video_url,omitempty"`
	// VideoDuration is the estimated video length in seconds.
	VideoDuration float64 `json:"video_duration,omitempty"`
	// Sources records whether each stage used a live provider or a mock.
	Sources map[string]string `json:"sources,omitempty"`
	// Attempts records per-stage adapter invocation counts.
	Attempts map[string]int `json:"attempts,omitempty"`
	// Error contains the failure details if the job failed.
	Error *JobErrorInfo `json:"error,omitempty"`
}

// ResultResponse is the HTTP response of a synchronous full-pipeline run.
type ResultResponse struct {
	JobID         string            `json:"job_id"`
	Script        string            `json:"script"`
	AudioURL      string            `json:"audio_url"`
	AudioDuration float64           `json:"audio_duration"`
	VideoURL      string            `json:"video_url"`
	VideoDuration float64           `json:"video_duration"`
	Sources       map[string]string `json:"sources"`
}

// ScriptResponse is the HTTP response of a script-only generation.
type ScriptResponse struct {
	Script string `json:"script"`
	Source string `json:"source"`
}

// AudioResponse is the HTTP response of an audio-only synthesis.
type AudioResponse struct {
	AudioURL string  `json:"audio_url"`
	Duration float64 `json:"duration"`
	Source   string  `json:"source"`
}

// VideoResponse is the HTTP response of a video-only lip-sync.
type VideoResponse struct {
	VideoURL string  `json:"video_url"`
	Duration float64 `json:"duration"`
	Source   string  `json:"source"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
