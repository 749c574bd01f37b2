package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalRecorder implements Recorder on the local filesystem. Each association
// is written as one JSON document named after the subject, so the latest
// video for a subject overwrites the previous one.
type LocalRecorder struct {
	dataDir string
}

// NewLocalRecorder creates a LocalRecorder rooted at dataDir.
// If dataDir is empty, a directory under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewLocalRecorder(dataDir string) (*LocalRecorder, error) {
	if dataDir == "" {
		dataDir = filepath.Join(os.TempDir(), "postervoice")
	}

	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	return &LocalRecorder{dataDir: dataDir}, nil
}

// DataDir returns the directory association records are written to.
func (r *LocalRecorder) DataDir() string {
	return r.dataDir
}

// RecordVideo writes the association document for a subject.
func (r *LocalRecorder) RecordVideo(ctx context.Context, subjectID, videoURL string, duration float64) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	rec := Record{
		SubjectID:  subjectID,
		VideoURL:   videoURL,
		Duration:   duration,
		RecordedAt: time.Now().UTC(),
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	path := filepath.Join(r.dataDir, sanitize(subjectID)+".json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Load reads the association document for a subject, if present.
func (r *LocalRecorder) Load(subjectID string) (Record, error) {
	path := filepath.Join(r.dataDir, sanitize(subjectID)+".json")
	data, err := os.ReadFile(path) // #nosec G304 - path is constructed internally
	if err != nil {
		return Record{}, fmt.Errorf("read record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("unmarshal record: %w", err)
	}
	return rec, nil
}

// sanitize keeps subject ids filesystem-safe.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

// Compile-time check that LocalRecorder implements Recorder.
var _ Recorder = (*LocalRecorder)(nil)
