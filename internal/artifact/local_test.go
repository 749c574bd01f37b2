package artifact

import (
	"context"
	"testing"
)

func TestLocalRecorder_RoundTrip(t *testing.T) {
	r, err := NewLocalRecorder(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = r.RecordVideo(context.Background(), "poster_01", "https://cdn.example.com/v.mp4", 6.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, err := r.Load("poster_01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.SubjectID != "poster_01" || rec.VideoURL != "https://cdn.example.com/v.mp4" || rec.Duration != 6.5 {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.RecordedAt.IsZero() {
		t.Error("expected RecordedAt to be set")
	}
}

func TestLocalRecorder_OverwritesPreviousVideo(t *testing.T) {
	r, _ := NewLocalRecorder(t.TempDir())
	ctx := context.Background()

	_ = r.RecordVideo(ctx, "poster_01", "https://cdn.example.com/old.mp4", 5)
	_ = r.RecordVideo(ctx, "poster_01", "https://cdn.example.com/new.mp4", 6)

	rec, err := r.Load("poster_01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.VideoURL != "https://cdn.example.com/new.mp4" {
		t.Errorf("expected latest video, got %s", rec.VideoURL)
	}
}

func TestLocalRecorder_SanitizesSubjectID(t *testing.T) {
	r, _ := NewLocalRecorder(t.TempDir())

	err := r.RecordVideo(context.Background(), "../evil/../../path", "https://cdn.example.com/v.mp4", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := r.Load("../evil/../../path"); err != nil {
		t.Errorf("sanitized record should load back: %v", err)
	}
}

func TestLocalRecorder_LoadMissing(t *testing.T) {
	r, _ := NewLocalRecorder(t.TempDir())

	if _, err := r.Load("absent"); err == nil {
		t.Error("expected error for missing record")
	}
}

func TestNopRecorder(t *testing.T) {
	if err := (NopRecorder{}).RecordVideo(context.Background(), "p", "v", 0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
