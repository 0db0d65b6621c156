// Package sha256 provides the content digests used to key stored
// documents.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher computes hex-encoded SHA-256 digests.
type Hasher struct{}

// New returns a Hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash digests data.
func (Hasher) Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashString digests a string.
func (h Hasher) HashString(s string) string {
	return h.Hash([]byte(s))
}

// Short digests data and returns the first 16 hex characters, enough for
// filenames.
func (h Hasher) Short(data []byte) string {
	return h.Hash(data)[:16]
}
