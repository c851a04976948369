// Package fingerprint computes content digests used for crawl change detection.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns the hex-encoded SHA-256 digest of the given text.
// The digest is computed over the exact normalized text, so any
// whitespace normalization must happen before hashing.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ShouldUpdate reports whether a document with the stored digest needs
// re-ingestion given a freshly computed digest. An empty stored digest
// means no prior record exists.
func ShouldUpdate(existing, latest string) bool {
	return existing == "" || existing != latest
}
