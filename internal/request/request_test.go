package request

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_Defaults(t *testing.T) {
	req, err := Normalize(Raw{Entry: EntryFull, SubjectID: "poster_01"})
	require.NoError(t, err)

	assert.Equal(t, "en", req.Language)
	assert.Equal(t, "neutral", req.Emotion)
}

func TestNormalize_DefaultEntryIsFull(t *testing.T) {
	req, err := Normalize(Raw{SubjectID: "poster_01"})
	require.NoError(t, err)
	assert.Equal(t, EntryFull, req.Entry)
}

func TestNormalize_CanonicalizesCase(t *testing.T) {
	req, err := Normalize(Raw{Entry: EntryFull, SubjectID: "poster_01", Language: "EN", Emotion: "Happy"})
	require.NoError(t, err)

	assert.Equal(t, "en", req.Language)
	assert.Equal(t, "happy", req.Emotion)
}

func TestNormalize_RequiredFieldsPerEntry(t *testing.T) {
	tests := []struct {
		name  string
		raw   Raw
		field string
	}{
		{"full without subject", Raw{Entry: EntryFull}, "subject_id"},
		{"script without subject", Raw{Entry: EntryScript}, "subject_id"},
		{"audio without text", Raw{Entry: EntryAudio}, "text"},
		{"audio with blank text", Raw{Entry: EntryAudio, Text: "   "}, "text"},
		{"ad without brief", Raw{Entry: EntryAd}, "text"},
		{"video without audio", Raw{Entry: EntryVideo, AvatarRef: "a"}, "audio_url"},
		{"video without avatar", Raw{Entry: EntryVideo, AudioURL: "u"}, "avatar_ref"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw)
			require.Error(t, err)
			require.True(t, IsValidation(err))

			ve := err.(*ValidationError)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestNormalize_RejectsUnsupportedCodes(t *testing.T) {
	_, err := Normalize(Raw{Entry: EntryFull, SubjectID: "p", Language: "xx"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	_, err = Normalize(Raw{Entry: EntryFull, SubjectID: "p", Emotion: "furious"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestNormalize_RejectsOversizedText(t *testing.T) {
	_, err := Normalize(Raw{Entry: EntryAudio, Text: strings.Repeat("a", MaxTextLength+1)})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestFingerprint_DeterministicAcrossMapOrder(t *testing.T) {
	// Maps have no iteration order; build two semantically identical requests.
	a, err := Normalize(Raw{
		Entry:       EntryFull,
		SubjectID:   "poster_01",
		Metadata:    map[string]string{"title": "Night Runner", "brand": "Acme"},
		Preferences: map[string]string{"style": "bold", "length": "short"},
	})
	require.NoError(t, err)

	b, err := Normalize(Raw{
		Entry:       EntryFull,
		SubjectID:   "poster_01",
		Metadata:    map[string]string{"brand": "Acme", "title": "Night Runner"},
		Preferences: map[string]string{"length": "short", "style": "bold"},
	})
	require.NoError(t, err)

	assert.Equal(t, FingerprintOf(a), FingerprintOf(b))
}

func TestFingerprint_DiffersBySemantics(t *testing.T) {
	base, _ := Normalize(Raw{Entry: EntryFull, SubjectID: "poster_01"})

	otherSubject, _ := Normalize(Raw{Entry: EntryFull, SubjectID: "poster_02"})
	otherEmotion, _ := Normalize(Raw{Entry: EntryFull, SubjectID: "poster_01", Emotion: "happy"})
	otherEntry, _ := Normalize(Raw{Entry: EntryScript, SubjectID: "poster_01"})
	otherMeta, _ := Normalize(Raw{Entry: EntryFull, SubjectID: "poster_01", Metadata: map[string]string{"title": "x"}})

	fp := FingerprintOf(base)
	assert.NotEqual(t, fp, FingerprintOf(otherSubject))
	assert.NotEqual(t, fp, FingerprintOf(otherEmotion))
	assert.NotEqual(t, fp, FingerprintOf(otherEntry))
	assert.NotEqual(t, fp, FingerprintOf(otherMeta))
}
