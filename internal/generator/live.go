// Package generator provides the stage adapter implementations: live adapters
// wrapping the external provider clients, and deterministic mocks used in
// development mode and as the fallback when a live provider's retry budget is
// exhausted.
package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/postervoice/talkinghead-api/internal/provider/lipsync"
	"github.com/postervoice/talkinghead-api/internal/provider/script"
	"github.com/postervoice/talkinghead-api/internal/provider/tts"
	"github.com/postervoice/talkinghead-api/internal/stage"
)

// LiveScript adapts the script provider client to the stage.Adapter interface.
type LiveScript struct {
	client script.Client
}

// NewLiveScript creates the live script adapter.
func NewLiveScript(client script.Client) *LiveScript {
	return &LiveScript{client: client}
}

// Kind returns stage.KindScript.
func (a *LiveScript) Kind() stage.Kind {
	return stage.KindScript
}

// Run generates the script via the provider. Empty upstream text is
// classified transient so the retry policy takes another attempt.
func (a *LiveScript) Run(ctx context.Context, in stage.Input) (stage.Result, error) {
	subject := in.SubjectID
	if subject == "" {
		subject = in.Text
	}

	text, err := a.client.Complete(ctx, script.CompletionInput{
		Subject:     subject,
		Language:    in.Language,
		Emotion:     in.Emotion,
		Metadata:    in.Metadata,
		Preferences: in.Preferences,
	})
	if err != nil {
		return stage.Result{}, fmt.Errorf("script adapter: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return stage.Result{}, stage.Transient(fmt.Errorf("script adapter: provider returned empty text"))
	}

	return stage.Result{Value: text, Source: stage.SourceLive}, nil
}

// LiveTTS adapts the TTS provider client to the stage.Adapter interface.
type LiveTTS struct {
	client tts.Client
}

// NewLiveTTS creates the live TTS adapter.
func NewLiveTTS(client tts.Client) *LiveTTS {
	return &LiveTTS{client: client}
}

// Kind returns stage.KindAudio.
func (a *LiveTTS) Kind() stage.Kind {
	return stage.KindAudio
}

// Run synthesizes speech via the provider.
func (a *LiveTTS) Run(ctx context.Context, in stage.Input) (stage.Result, error) {
	res, err := a.client.Synthesize(ctx, in.Text, in.Language, in.Emotion)
	if err != nil {
		return stage.Result{}, fmt.Errorf("tts adapter: %w", err)
	}

	return stage.Result{Value: res.AudioURL, Duration: res.Duration, Source: stage.SourceLive}, nil
}

// defaultPollInterval is the wait between status polls for queue-style
// lip-sync providers.
const defaultPollInterval = 2 * time.Second

// LiveLipsync adapts the lip-sync provider client to the stage.Adapter
// interface. It hides the provider style: a synchronous provider answers the
// submission with the output inline, a queue-style provider answers with a
// job id that Run polls until terminal.
type LiveLipsync struct {
	client       lipsync.Client
	pollInterval time.Duration
}

// LipsyncOption configures a LiveLipsync adapter.
type LipsyncOption func(*LiveLipsync)

// WithPollInterval overrides the wait between status polls.
func WithPollInterval(d time.Duration) LipsyncOption {
	return func(a *LiveLipsync) {
		if d > 0 {
			a.pollInterval = d
		}
	}
}

// NewLiveLipsync creates the live lip-sync adapter.
func NewLiveLipsync(client lipsync.Client, opts ...LipsyncOption) *LiveLipsync {
	a := &LiveLipsync{
		client:       client,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Kind returns stage.KindVideo.
func (a *LiveLipsync) Kind() stage.Kind {
	return stage.KindVideo
}

// Run submits the lip-sync job and, for queue-style providers, polls until a
// terminal status. The per-stage timeout on ctx bounds the whole call; a
// deadline hit is classified transient.
func (a *LiveLipsync) Run(ctx context.Context, in stage.Input) (stage.Result, error) {
	submitted, err := a.client.Submit(ctx, lipsync.SubmitInput{
		AudioURL:  in.AudioURL,
		AvatarRef: in.AvatarRef,
		Emotion:   in.Emotion,
	})
	if err != nil {
		return stage.Result{}, fmt.Errorf("lipsync adapter: %w", err)
	}

	if submitted.Output != nil {
		return resultFromOutput(submitted.Output), nil
	}

	return a.pollUntilReady(ctx, submitted.JobID)
}

// pollUntilReady polls the provider until the job is terminal or ctx expires.
func (a *LiveLipsync) pollUntilReady(ctx context.Context, jobID string) (stage.Result, error) {
	for {
		res, err := a.client.Poll(ctx, jobID)
		if err != nil {
			return stage.Result{}, fmt.Errorf("lipsync adapter: %w", err)
		}

		switch res.Status {
		case lipsync.StatusCompleted:
			if res.Output == nil || res.Output.VideoURL == "" {
				return stage.Result{}, stage.Permanent(fmt.Errorf("lipsync adapter: completed without output"))
			}
			return resultFromOutput(res.Output), nil
		case lipsync.StatusFailed:
			return stage.Result{}, stage.Permanent(fmt.Errorf("lipsync adapter: provider failure: %s", res.Error))
		case lipsync.StatusTimedOut:
			return stage.Result{}, stage.Transient(fmt.Errorf("lipsync adapter: provider timed out: %s", res.Error))
		}

		select {
		case <-ctx.Done():
			return stage.Result{}, stage.Transient(fmt.Errorf("lipsync adapter: poll abandoned: %w", ctx.Err()))
		case <-time.After(a.pollInterval):
		}
	}
}

func resultFromOutput(out *lipsync.Output) stage.Result {
	return stage.Result{Value: out.VideoURL, Duration: out.Duration, Source: stage.SourceLive}
}

// Compile-time checks that all live adapters implement stage.Adapter.
var (
	_ stage.Adapter = (*LiveScript)(nil)
	_ stage.Adapter = (*LiveTTS)(nil)
	_ stage.Adapter = (*LiveLipsync)(nil)
)
