package policy

import (
	"crypto/tls"
	"fmt"
	"strings"
)

// cipherSuiteID resolves a standard suite name to its IANA ID. Both the
// current and the deprecated stack lists are consulted: pinning a legacy
// suite is an explicit operator decision, not something to second-guess
// here.
func cipherSuiteID(name string) (uint16, bool) {
	for _, cs := range tls.CipherSuites() {
		if cs.Name == name {
			return cs.ID, true
		}
	}
	for _, cs := range tls.InsecureCipherSuites() {
		if cs.Name == name {
			return cs.ID, true
		}
	}
	return 0, false
}

// versionID resolves "1.2" and "TLSv1.2" style version names.
func versionID(name string) (uint16, bool) {
	switch strings.TrimPrefix(name, "TLSv") {
	case "1.0":
		return tls.VersionTLS10, true
	case "1.1":
		return tls.VersionTLS11, true
	case "1.2":
		return tls.VersionTLS12, true
	case "1.3":
		return tls.VersionTLS13, true
	}
	return 0, false
}

// versionName returns the display name for a TLS version ID.
func versionName(id uint16) string {
	switch id {
	case tls.VersionTLS10:
		return "TLSv1.0"
	case tls.VersionTLS11:
		return "TLSv1.1"
	case tls.VersionTLS12:
		return "TLSv1.2"
	case tls.VersionTLS13:
		return "TLSv1.3"
	default:
		return fmt.Sprintf("0x%04x", id)
	}
}

// versionRange maps a version list onto the contiguous [lo, hi] model
// crypto/tls implements. Discontiguous sets are rejected rather than
// silently widened. An empty list keeps the platform defaults (0, 0).
func versionRange(names []string) (lo, hi uint16, err error) {
	if len(names) == 0 {
		return 0, 0, nil
	}

	present := make(map[uint16]bool, len(names))
	for _, name := range names {
		id, ok := versionID(name)
		if !ok {
			return 0, 0, fmt.Errorf("%w: %q", ErrUnknownVersion, name)
		}
		present[id] = true
		if lo == 0 || id < lo {
			lo = id
		}
		if id > hi {
			hi = id
		}
	}

	// Version IDs are consecutive, so every ID between the bounds must
	// have been named.
	for v := lo; v <= hi; v++ {
		if !present[v] {
			return 0, 0, fmt.Errorf("%w: %s missing between %s and %s",
				ErrVersionGap, versionName(v), versionName(lo), versionName(hi))
		}
	}
	return lo, hi, nil
}
