package annotation

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// SourceFingerprint returns the BLAKE3 hash of the bound source text as a
// hex string, or "" when no source text is bound. Two models over the same
// document have equal fingerprints; comparison callers can use this for an
// explicit compatibility check.
func (a *Annotations) SourceFingerprint() string {
	if !a.hasSource {
		return ""
	}
	h := blake3.Sum256([]byte(a.sourceText))
	return hex.EncodeToString(h[:])
}

// Fingerprint computes the BLAKE3 hash of arbitrary document text.
func Fingerprint(text string) string {
	h := blake3.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
