package domain

import (
	"crypto/md5" //nolint:gosec // content addressing, not security
	"encoding/hex"
)

// Stored field bounds.
const (
	// MaxTextLength is the maximum passage length in runes. Text beyond it is
	// dropped before hashing and storage.
	MaxTextLength = 5000

	// MaxTitleLength bounds the stored title.
	MaxTitleLength = 200

	// MaxSourceLength bounds the stored source URL.
	MaxSourceLength = 200

	// FingerprintLength is the length of a hex fingerprint.
	FingerprintLength = 32
)

// Truncate returns s cut to at most n runes.
func Truncate(s string, n int) string {
	if n < 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// Fingerprint returns the 32 character hex MD5 digest of text truncated to
// MaxTextLength runes. Two texts sharing their first MaxTextLength runes
// produce the same fingerprint.
func Fingerprint(text string) string {
	sum := md5.Sum([]byte(Truncate(text, MaxTextLength))) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// IsFingerprint reports whether s looks like a fingerprint.
func IsFingerprint(s string) bool {
	if len(s) != FingerprintLength {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
