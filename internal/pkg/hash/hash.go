// Package hash provides hashing utilities used as cache keys.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256 computes the SHA256 hash of data and returns it as a hex string.
func SHA256(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SHA256String computes the SHA256 hash of a string.
func SHA256String(s string) string {
	return SHA256([]byte(s))
}

// SHA256Short returns the first n characters of a SHA256 hash.
func SHA256Short(data []byte, n int) string {
	h := SHA256(data)
	if n > len(h) {
		return h
	}
	return h[:n]
}

// EmbedCacheKey builds a deterministic cache key for an embedding request,
// scoped by embedder variant and query-vs-document role so the same text
// embedded in different roles never collides.
func EmbedCacheKey(variant, role, text string) string {
	return "embed:" + variant + ":" + role + ":" + SHA256Short([]byte(text), 32)
}
