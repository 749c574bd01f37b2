// Package lipsync provides an HTTP client for queue-style lip-sync video
// providers. A submission either returns the finished output inline or a job
// id to poll until ready; the stage adapter hides that difference.
package lipsync

// Status represents the status of a provider-side lip-sync job.
type Status string

// Provider job statuses, mirroring queue-style GPU providers.
const (
	StatusInQueue   Status = "IN_QUEUE"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusTimedOut  Status = "TIMED_OUT"
)

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTimedOut:
		return true
	default:
		return false
	}
}

// SubmitInput contains the parameters for submitting a lip-sync job.
type SubmitInput struct {
	// AudioURL is the speech audio to sync.
	AudioURL string
	// AvatarRef is the avatar/image reference to animate.
	AvatarRef string
	// Emotion optionally steers the facial expression.
	Emotion string
}

// Output is the finished video artifact.
type Output struct {
	VideoURL string  `json:"video_url"`
	Duration float64 `json:"duration"`
}

// SubmitResult is the outcome of a submission. Exactly one of JobID and
// Output is set: synchronous providers answer with the output inline,
// queue-style providers answer with a job id.
type SubmitResult struct {
	JobID  string
	Output *Output
}

// PollResult contains the result of polling a job's status.
type PollResult struct {
	Status Status
	Output *Output
	Error  string
}

// runRequest represents the request body for the /run endpoint.
type runRequest struct {
	Input runInput `json:"input"`
}

type runInput struct {
	AudioURL  string `json:"audio_url"`
	AvatarRef string `json:"avatar_ref"`
	Emotion   string `json:"emotion,omitempty"`
}

// runResponse represents the response from the /run endpoint.
type runResponse struct {
	ID     string  `json:"id,omitempty"`
	Status string  `json:"status,omitempty"`
	Output *Output `json:"output,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// statusResponse represents the response from the /status endpoint.
type statusResponse struct {
	ID     string  `json:"id"`
	Status string  `json:"status"`
	Output *Output `json:"output,omitempty"`
	Error  string  `json:"error,omitempty"`
}
