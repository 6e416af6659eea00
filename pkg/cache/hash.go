package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// hashKey builds prefix:sha256(parts...). Parts are joined with a NUL byte so
// ("a", "bc") and ("ab", "c") never collide.
func hashKey(prefix string, parts ...string) string {
	return prefix + ":" + Hash([]byte(strings.Join(parts, "\x00")))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
