package request

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint is a deterministic key over the semantically relevant fields of
// a request, used for caching and in-flight deduplication.
type Fingerprint string

// FingerprintOf computes the fingerprint of a normalized request. Two requests
// that would produce the same output share a fingerprint; the entry scope is
// part of the key so partial-stage results never alias full-pipeline ones.
// The computation is pure and total.
func FingerprintOf(req GenerateRequest) Fingerprint {
	parts := []string{
		string(req.Entry),
		req.SubjectID,
		req.Language,
		req.Emotion,
		req.Text,
		req.AudioURL,
		req.AvatarRef,
		sortedPairs(req.Metadata),
		sortedPairs(req.Preferences),
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return Fingerprint(hex.EncodeToString(sum[:]))
}
