package pipeline

import (
	"context"
	"log/slog"

	"github.com/postervoice/talkinghead-api/internal/cache"
	"github.com/postervoice/talkinghead-api/internal/request"
	"github.com/postervoice/talkinghead-api/internal/stage"
)

// Partial entry points run a single stage synchronously, without job
// machinery. They share the retry/fallback policy and the result cache with
// the full pipeline; cached entries are keyed by entry-scoped fingerprints so
// a partial run never collides with a full run of the same input.

// ScriptResult is the outcome of a script-only generation.
type ScriptResult struct {
	Script string
	Source stage.Source
}

// AudioResult is the outcome of an audio-only synthesis.
type AudioResult struct {
	AudioURL string
	Duration float64
	Source   stage.Source
}

// VideoResult is the outcome of a video-only lip-sync.
type VideoResult struct {
	VideoURL string
	Duration float64
	Source   stage.Source
}

// GenerateScript produces only the promotional script for a subject.
func (o *Orchestrator) GenerateScript(ctx context.Context, raw request.Raw) (ScriptResult, error) {
	raw.Entry = request.EntryScript
	req, err := request.Normalize(raw)
	if err != nil {
		return ScriptResult{}, err
	}

	fp := string(request.FingerprintOf(req))
	if entry, ok := o.cache.Get(fp); ok {
		return ScriptResult{Script: entry.Script, Source: entry.Sources[stage.KindScript]}, nil
	}

	res, _, err := o.runStage(ctx, stage.KindScript, stage.Input{
		SubjectID:   req.SubjectID,
		Metadata:    req.Metadata,
		Preferences: req.Preferences,
		Language:    req.Language,
		Emotion:     req.Emotion,
		Text:        req.Text,
	})
	if err != nil {
		return ScriptResult{}, err
	}

	o.cache.Put(fp, cache.Entry{
		Script:  res.Value,
		Sources: map[stage.Kind]stage.Source{stage.KindScript: res.Source},
	})
	return ScriptResult{Script: res.Value, Source: res.Source}, nil
}

// GenerateAudio synthesizes speech from caller-provided text.
func (o *Orchestrator) GenerateAudio(ctx context.Context, raw request.Raw) (AudioResult, error) {
	raw.Entry = request.EntryAudio
	req, err := request.Normalize(raw)
	if err != nil {
		return AudioResult{}, err
	}

	fp := string(request.FingerprintOf(req))
	if entry, ok := o.cache.Get(fp); ok {
		return AudioResult{
			AudioURL: entry.AudioURL,
			Duration: entry.AudioDuration,
			Source:   entry.Sources[stage.KindAudio],
		}, nil
	}

	res, _, err := o.runStage(ctx, stage.KindAudio, stage.Input{
		Language: req.Language,
		Emotion:  req.Emotion,
		Text:     req.Text,
	})
	if err != nil {
		return AudioResult{}, err
	}

	o.cache.Put(fp, cache.Entry{
		AudioURL:      res.Value,
		AudioDuration: res.Duration,
		Sources:       map[stage.Kind]stage.Source{stage.KindAudio: res.Source},
	})
	return AudioResult{AudioURL: res.Value, Duration: res.Duration, Source: res.Source}, nil
}

// GenerateVideo lip-syncs existing audio onto an avatar. The resulting video
// is recorded against the avatar via the persistence hook, best-effort.
func (o *Orchestrator) GenerateVideo(ctx context.Context, raw request.Raw) (VideoResult, error) {
	raw.Entry = request.EntryVideo
	req, err := request.Normalize(raw)
	if err != nil {
		return VideoResult{}, err
	}

	fp := string(request.FingerprintOf(req))
	if entry, ok := o.cache.Get(fp); ok {
		return VideoResult{
			VideoURL: entry.VideoURL,
			Duration: entry.VideoDuration,
			Source:   entry.Sources[stage.KindVideo],
		}, nil
	}

	res, _, err := o.runStage(ctx, stage.KindVideo, stage.Input{
		Emotion:   req.Emotion,
		AudioURL:  req.AudioURL,
		AvatarRef: req.AvatarRef,
	})
	if err != nil {
		return VideoResult{}, err
	}

	if err := o.recorder.RecordVideo(ctx, req.AvatarRef, res.Value, res.Duration); err != nil {
		o.logger.Warn("video association hook failed",
			slog.String("subject_id", req.AvatarRef),
			slog.String("error", err.Error()),
		)
	}

	o.cache.Put(fp, cache.Entry{
		VideoURL:      res.Value,
		VideoDuration: res.Duration,
		Sources:       map[stage.Kind]stage.Source{stage.KindVideo: res.Source},
	})
	return VideoResult{VideoURL: res.Value, Duration: res.Duration, Source: res.Source}, nil
}
