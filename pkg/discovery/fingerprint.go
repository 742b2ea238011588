package discovery

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint derives a gate's discovery fingerprint from its leaf
// certificate DER encoding.
//
// The fingerprint is the first 64 bits (16 hex chars) of
// SHA-256(certificate DER).
func Fingerprint(der []byte) string {
	hash := sha256.Sum256(der)
	return hex.EncodeToString(hash[:8])
}

// ValidateFingerprint checks if a string is a well-formed fingerprint
// (16 hex chars).
func ValidateFingerprint(s string) bool {
	if len(s) != FingerprintLength {
		return false
	}
	return isHexString(s)
}

// isHexString checks if a string contains only hex characters.
func isHexString(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
