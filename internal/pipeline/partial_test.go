package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/postervoice/talkinghead-api/internal/request"
	"github.com/postervoice/talkinghead-api/internal/stage"
)

func TestGenerateScript_CachesResult(t *testing.T) {
	script := succeeding(stage.KindScript, "a generated line", 0)
	f := newFixture(t, map[stage.Kind]stage.Adapter{
		stage.KindScript: script,
		stage.KindAudio:  succeeding(stage.KindAudio, "a.wav", 3),
		stage.KindVideo:  succeeding(stage.KindVideo, "v.mp4", 3),
	})
	ctx := context.Background()
	raw := request.Raw{SubjectID: "poster_01"}

	first, err := f.orch.GenerateScript(ctx, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := f.orch.GenerateScript(ctx, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.Script != "a generated line" || second.Script != first.Script {
		t.Errorf("unexpected scripts: %q, %q", first.Script, second.Script)
	}
	if script.callCount() != 1 {
		t.Errorf("second call must be served from cache, got %d invocations", script.callCount())
	}
}

func TestGenerateScript_DoesNotCollideWithFullRun(t *testing.T) {
	script := succeeding(stage.KindScript, "line", 0)
	f := newFixture(t, map[stage.Kind]stage.Adapter{
		stage.KindScript: script,
		stage.KindAudio:  succeeding(stage.KindAudio, "a.wav", 3),
		stage.KindVideo:  succeeding(stage.KindVideo, "v.mp4", 3),
	})
	ctx := context.Background()

	if _, err := f.orch.GenerateScript(ctx, request.Raw{SubjectID: "poster_01"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The script-only cache entry must not satisfy a full pipeline run.
	res, err := f.orch.GenerateFull(ctx, request.Raw{Entry: request.EntryFull, SubjectID: "poster_01"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.VideoURL == "" {
		t.Error("full run must produce a video")
	}
	if script.callCount() != 2 {
		t.Errorf("expected a fresh script invocation for the full run, got %d total", script.callCount())
	}
}

func TestGenerateAudio_EmptyTextIsValidationError(t *testing.T) {
	audio := succeeding(stage.KindAudio, "a.wav", 3)
	f := newFixture(t, map[stage.Kind]stage.Adapter{
		stage.KindScript: succeeding(stage.KindScript, "line", 0),
		stage.KindAudio:  audio,
		stage.KindVideo:  succeeding(stage.KindVideo, "v.mp4", 3),
	})

	_, err := f.orch.GenerateAudio(context.Background(), request.Raw{Text: "   "})
	if !request.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if audio.callCount() != 0 {
		t.Errorf("invalid input must never reach the provider, got %d calls", audio.callCount())
	}
}

func TestGenerateAudio_ReturnsSynthesis(t *testing.T) {
	f := newFixture(t, mockAdapters())

	res, err := f.orch.GenerateAudio(context.Background(), request.Raw{
		Text: "ten short words make a predictable mock duration estimate here",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Duration != 4 {
		t.Errorf("expected 4s for 10 words, got %v", res.Duration)
	}
	if res.Source != stage.SourceMock {
		t.Errorf("expected mock source, got %s", res.Source)
	}
}

func TestGenerateVideo_RecordsAssociation(t *testing.T) {
	rec := &capturingRecorder{}
	f := newFixture(t, mockAdapters(), WithRecorder(rec))

	res, err := f.orch.GenerateVideo(context.Background(), request.Raw{
		AudioURL:  "mock://audio/abc.wav",
		AvatarRef: "avatar_01",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.records) != 1 {
		t.Fatalf("expected 1 recorded association, got %d", len(rec.records))
	}
	if rec.records[0].subjectID != "avatar_01" || rec.records[0].videoURL != res.VideoURL {
		t.Errorf("unexpected association: %+v", rec.records[0])
	}
}

func TestGenerateVideo_MissingAvatar(t *testing.T) {
	f := newFixture(t, mockAdapters())

	_, err := f.orch.GenerateVideo(context.Background(), request.Raw{AudioURL: "mock://audio/a.wav"})
	if !request.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGenerateScript_StrictExhaustionSurfacesError(t *testing.T) {
	script := failing(stage.KindScript, stage.Transient(errors.New("llm overloaded")))
	f := newFixture(t, map[stage.Kind]stage.Adapter{
		stage.KindScript: script,
		stage.KindAudio:  succeeding(stage.KindAudio, "a.wav", 3),
		stage.KindVideo:  succeeding(stage.KindVideo, "v.mp4", 3),
	}, WithStrictProviders(true))

	_, err := f.orch.GenerateScript(context.Background(), request.Raw{SubjectID: "poster_01"})
	if !stage.IsTransient(err) {
		t.Fatalf("expected transient classification, got %v", err)
	}
	if script.callCount() != 3 {
		t.Errorf("expected 3 attempts, got %d", script.callCount())
	}
}
