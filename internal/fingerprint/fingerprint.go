package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrEmptyMessage is returned when the input is empty or whitespace-only.
// Such input must be rejected before hashing, not fingerprinted.
var ErrEmptyMessage = errors.New("message is empty after normalization")

// Normalize canonicalizes a message for fingerprinting: trims leading and
// trailing whitespace, lowercases, and collapses interior whitespace runs
// (spaces, tabs, newlines) to a single space. Every call path that produces
// a fingerprint must go through this function.
func Normalize(text string) (string, error) {
	canonical := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	if canonical == "" {
		return "", ErrEmptyMessage
	}
	return canonical, nil
}

// Fingerprint returns the SHA-256 hex digest of the canonical text. It is
// pure: no clock, no randomness.
func Fingerprint(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
