// Package artifact persists the association between a subject (poster/avatar)
// and its generated video. The pipeline invokes the Recorder after a
// successful video stage; a recording failure is logged by the caller and
// never fails the job.
package artifact

import (
	"context"
	"time"
)

// Record is the stored association document.
type Record struct {
	SubjectID  string    `json:"subject_id"`
	VideoURL   string    `json:"video_url"`
	Duration   float64   `json:"duration"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Recorder defines the persistence hook for finished videos.
type Recorder interface {
	// RecordVideo stores the subject→video association.
	RecordVideo(ctx context.Context, subjectID, videoURL string, duration float64) error
}

// NopRecorder discards associations. Used when no artifact store is configured.
type NopRecorder struct{}

// RecordVideo does nothing.
func (NopRecorder) RecordVideo(context.Context, string, string, float64) error {
	return nil
}

// Compile-time check that NopRecorder implements Recorder.
var _ Recorder = NopRecorder{}
