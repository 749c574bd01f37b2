// Package stage defines the common adapter contract for the three generation
// stages (script, audio, video). Live adapters wrap external provider clients;
// mock adapters synthesize deterministic placeholder results so the pipeline
// can run without network access or credentials.
package stage

import "context"

// Kind identifies a pipeline stage.
type Kind string

const (
	// KindScript generates the spoken text.
	KindScript Kind = "script"
	// KindAudio synthesizes speech from the script.
	KindAudio Kind = "audio"
	// KindVideo produces the lip-synced video from audio and an avatar.
	KindVideo Kind = "video"
)

// Source records where a stage result came from.
type Source string

const (
	// SourceLive means the result came from the real external provider.
	SourceLive Source = "live"
	// SourceMock means the result was synthesized locally.
	SourceMock Source = "mock"
)

// Input carries the data a stage needs to run. Each stage reads only the
// fields relevant to it; the orchestrator fills them from the request and
// from earlier stage outputs.
type Input struct {
	// SubjectID identifies the poster/product the content is about.
	SubjectID string
	// Metadata is an optional snapshot of subject attributes (title, brand...).
	Metadata map[string]string
	// Preferences are optional user preferences influencing the script.
	Preferences map[string]string
	// Language is the canonical language code.
	Language string
	// Emotion is the canonical emotion/tone code.
	Emotion string
	// Text is the script text (audio stage) or the ad brief (ad entry).
	Text string
	// AudioURL is the synthesized audio reference (video stage).
	AudioURL string
	// AudioDuration is the estimated audio length in seconds (video stage).
	AudioDuration float64
	// AvatarRef is the avatar/image reference for lip-sync.
	AvatarRef string
}

// Result is the uniform success payload of a stage run.
type Result struct {
	// Value is the generated text (script stage) or artifact URL (audio/video).
	Value string
	// Duration is the estimated playback length in seconds; zero for script.
	Duration float64
	// Source tells whether a live provider or a mock produced the value.
	Source Source
}

// Adapter is the uniform interface over one pipeline stage.
type Adapter interface {
	// Kind returns the stage this adapter serves.
	Kind() Kind

	// Run executes the stage once. Failures must be classified with
	// Transient or Permanent so the retry policy can decide.
	Run(ctx context.Context, in Input) (Result, error)
}
