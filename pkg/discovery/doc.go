// Package discovery implements mDNS/DNS-SD announcement and browse for
// gates.
//
// A gate announces one _streamgate._tcp instance per listener so probes
// and operators can find it on the LAN without fixed addressing. TXT
// records carry:
//
//   - fp: leaf certificate fingerprint, the first 64 bits of
//     SHA-256(certificate DER) as 16 hex chars (required)
//   - tv: announced TLS version bound (optional)
//   - ca: client auth mode (optional)
//
// Browsers aggregate entries by instance name across interfaces and
// match gates by fingerprint, so a probe can verify it reached the gate
// it discovered by comparing the fingerprint against the leaf
// certificate presented during the handshake.
package discovery
