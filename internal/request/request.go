// Package request provides input normalization and fingerprinting for
// generation requests. Normalization is a pure function: it validates the raw
// input against the supported enumerations, applies defaults, and never
// touches external state.
package request

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Entry identifies which pipeline entry point a request targets. The entry
// scopes both validation and the cache fingerprint, so a script-only cache
// entry never collides with a full-pipeline one.
type Entry string

const (
	// EntryFull runs script, audio and video from a poster subject.
	EntryFull Entry = "full"
	// EntryScript generates only the script text.
	EntryScript Entry = "script"
	// EntryAudio synthesizes audio from provided text.
	EntryAudio Entry = "audio"
	// EntryVideo lip-syncs provided audio onto an avatar.
	EntryVideo Entry = "video"
	// EntryAd runs the full stage chain from a text brief, without a subject.
	EntryAd Entry = "ad"
)

const (
	// DefaultLanguage is applied when the caller omits a language.
	DefaultLanguage = "en"
	// DefaultEmotion is applied when the caller omits an emotion.
	DefaultEmotion = "neutral"
	// MaxTextLength bounds caller-provided text.
	MaxTextLength = 5000
)

// Raw is the unvalidated caller input.
type Raw struct {
	Entry       Entry
	SubjectID   string
	Language    string
	Emotion     string
	Text        string
	AudioURL    string
	AvatarRef   string
	Metadata    map[string]string
	Preferences map[string]string
}

// GenerateRequest is the normalized, validated form of a Raw input.
// Treat it as immutable once returned by Normalize.
type GenerateRequest struct {
	Entry       Entry  `validate:"required,oneof=full script audio video ad"`
	SubjectID   string `validate:"max=256"`
	Language    string `validate:"required,oneof=en es fr de it pt ja"`
	Emotion     string `validate:"required,oneof=neutral happy sad excited serious calm"`
	Text        string `validate:"max=5000"`
	AudioURL    string `validate:"max=2048"`
	AvatarRef   string `validate:"max=256"`
	Metadata    map[string]string
	Preferences map[string]string
}

// ValidationError describes a rejected input. It is never retried and never
// reaches the pipeline.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var validate = validator.New()

// Normalize validates raw input for its entry point, applies defaults and
// returns the canonical request. It is pure and side-effect free.
func Normalize(raw Raw) (GenerateRequest, error) {
	req := GenerateRequest{
		Entry:       raw.Entry,
		SubjectID:   strings.TrimSpace(raw.SubjectID),
		Language:    strings.ToLower(strings.TrimSpace(raw.Language)),
		Emotion:     strings.ToLower(strings.TrimSpace(raw.Emotion)),
		Text:        strings.TrimSpace(raw.Text),
		AudioURL:    strings.TrimSpace(raw.AudioURL),
		AvatarRef:   strings.TrimSpace(raw.AvatarRef),
		Metadata:    raw.Metadata,
		Preferences: raw.Preferences,
	}

	if req.Entry == "" {
		req.Entry = EntryFull
	}
	if req.Language == "" {
		req.Language = DefaultLanguage
	}
	if req.Emotion == "" {
		req.Emotion = DefaultEmotion
	}

	if err := requireEntryFields(req); err != nil {
		return GenerateRequest{}, err
	}

	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return GenerateRequest{}, &ValidationError{
				Field:  strings.ToLower(verrs[0].Field()),
				Reason: fmt.Sprintf("failed %q constraint", verrs[0].Tag()),
			}
		}
		return GenerateRequest{}, &ValidationError{Field: "request", Reason: err.Error()}
	}

	return req, nil
}

// requireEntryFields checks the per-entry required fields.
func requireEntryFields(req GenerateRequest) error {
	switch req.Entry {
	case EntryFull, EntryScript:
		if req.SubjectID == "" {
			return &ValidationError{Field: "subject_id", Reason: "is required"}
		}
	case EntryAudio, EntryAd:
		if req.Text == "" {
			return &ValidationError{Field: "text", Reason: "is required"}
		}
	case EntryVideo:
		if req.AudioURL == "" {
			return &ValidationError{Field: "audio_url", Reason: "is required"}
		}
		if req.AvatarRef == "" {
			return &ValidationError{Field: "avatar_ref", Reason: "is required"}
		}
	}
	return nil
}

// sortedPairs serializes a map deterministically as k=v entries sorted by key.
func sortedPairs(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(m[k])
	}
	return b.String()
}
