package generator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/postervoice/talkinghead-api/internal/stage"
)

// wordsPerSecond is the speaking rate used to estimate mock audio duration.
const wordsPerSecond = 2.5

// shortHash returns a short deterministic hex digest of the given parts,
// used to build stable mock artifact URLs.
func shortHash(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:8])
}

// scriptOpeners maps emotion codes to the opening phrase of the mock script.
var scriptOpeners = map[string]string{
	"neutral": "Here is",
	"happy":   "Great news, meet",
	"sad":     "Take a quiet moment for",
	"excited": "You will not believe",
	"serious": "Pay close attention to",
	"calm":    "Relax and discover",
}

// MockScript synthesizes a short deterministic ad-style script.
type MockScript struct{}

// NewMockScript creates the mock script adapter.
func NewMockScript() *MockScript {
	return &MockScript{}
}

// Kind returns stage.KindScript.
func (m *MockScript) Kind() stage.Kind {
	return stage.KindScript
}

// Run builds a templated sentence from the subject and tone. Output stays
// under the 25-word ad-script bound.
func (m *MockScript) Run(_ context.Context, in stage.Input) (stage.Result, error) {
	opener, ok := scriptOpeners[in.Emotion]
	if !ok {
		opener = scriptOpeners["neutral"]
	}

	subject := in.SubjectID
	if title, ok := in.Metadata["title"]; ok && title != "" {
		subject = title
	}
	if subject == "" && in.Text != "" {
		subject = in.Text
	}

	text := fmt.Sprintf("%s %s, now speaking to you in %s. Do not miss it.",
		opener, subject, in.Language)

	return stage.Result{Value: text, Source: stage.SourceMock}, nil
}

// MockTTS synthesizes a deterministic audio reference with a duration
// estimated from word count.
type MockTTS struct{}

// NewMockTTS creates the mock TTS adapter.
func NewMockTTS() *MockTTS {
	return &MockTTS{}
}

// Kind returns stage.KindAudio.
func (m *MockTTS) Kind() stage.Kind {
	return stage.KindAudio
}

// Run returns a stable pseudo audio URL for the given text and voice settings.
func (m *MockTTS) Run(_ context.Context, in stage.Input) (stage.Result, error) {
	if strings.TrimSpace(in.Text) == "" {
		return stage.Result{}, stage.Permanent(fmt.Errorf("mock tts: empty text"))
	}

	words := len(strings.Fields(in.Text))
	duration := float64(words) / wordsPerSecond

	url := fmt.Sprintf("mock://audio/%s.wav", shortHash(in.Text, in.Language, in.Emotion))
	return stage.Result{Value: url, Duration: duration, Source: stage.SourceMock}, nil
}

// MockLipsync synthesizes a deterministic video reference.
type MockLipsync struct{}

// NewMockLipsync creates the mock lip-sync adapter.
func NewMockLipsync() *MockLipsync {
	return &MockLipsync{}
}

// Kind returns stage.KindVideo.
func (m *MockLipsync) Kind() stage.Kind {
	return stage.KindVideo
}

// Run returns a stable pseudo video URL. Video duration tracks the audio.
func (m *MockLipsync) Run(_ context.Context, in stage.Input) (stage.Result, error) {
	if in.AudioURL == "" {
		return stage.Result{}, stage.Permanent(fmt.Errorf("mock lipsync: audio reference is required"))
	}

	url := fmt.Sprintf("mock://video/%s.mp4", shortHash(in.AudioURL, in.AvatarRef, in.Emotion))
	return stage.Result{Value: url, Duration: in.AudioDuration, Source: stage.SourceMock}, nil
}

// Compile-time checks that all mocks implement stage.Adapter.
var (
	_ stage.Adapter = (*MockScript)(nil)
	_ stage.Adapter = (*MockTTS)(nil)
	_ stage.Adapter = (*MockLipsync)(nil)
)
