package security

import (
	"ImeiGuard/internal/core/ports"
	"crypto/sha256"
	"encoding/hex"
)

// sha256Hasher implements ports.Hasher with an unsalted hex SHA-256 digest,
// the format stored alongside registered devices.
type sha256Hasher struct{}

var _ ports.Hasher = sha256Hasher{}

// NewSHA256Hasher returns the national-ID hasher.
func NewSHA256Hasher() ports.Hasher {
	return sha256Hasher{}
}

func (sha256Hasher) Hash(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
