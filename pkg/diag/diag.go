// Package diag builds an on-demand report of the TLS stack and the
// loaded trust material: supported protocol versions, known cipher
// suites, the effective policy, and certificate summaries. Reports
// carry no private keys and no store credentials.
package diag

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/streamgate-io/streamgate-go/pkg/policy"
	"github.com/streamgate-io/streamgate-go/pkg/trust"
)

// stackVersions lists every protocol version the TLS stack implements,
// oldest first.
var stackVersions = []uint16{
	tls.VersionTLS10,
	tls.VersionTLS11,
	tls.VersionTLS12,
	tls.VersionTLS13,
}

// SuiteInfo describes one cipher suite known to the TLS stack.
type SuiteInfo struct {
	// ID is the IANA suite identifier.
	ID uint16

	// Name is the standard suite name.
	Name string

	// Versions lists the protocol versions the suite applies to.
	Versions []string

	// Insecure marks suites the stack considers broken.
	Insecure bool

	// Selected marks suites pinned by the policy.
	Selected bool
}

// PolicyInfo summarizes the effective transport policy.
type PolicyInfo struct {
	Role       string
	ClientAuth string

	// MinVersion and MaxVersion are empty when the platform defaults
	// apply.
	MinVersion string
	MaxVersion string

	// PinnedSuites holds the names of policy-pinned cipher suites, in
	// pinning order. Empty means platform defaults.
	PinnedSuites []string

	// ServerName is the peer name verified in client-role handshakes.
	ServerName string
}

// CertInfo summarizes one certificate.
type CertInfo struct {
	Subject   string
	Issuer    string
	NotBefore time.Time
	NotAfter  time.Time

	// Fingerprint is the hex SHA-256 digest of the DER encoding.
	Fingerprint string
}

// Report is a point-in-time snapshot of the TLS stack and trust state.
type Report struct {
	// Versions lists the protocol versions the stack implements.
	Versions []string

	// Suites lists every suite the stack knows, secure list first.
	Suites []SuiteInfo

	// Policy is nil when no policy was supplied.
	Policy *PolicyInfo

	// Leaf is nil when no trust material was supplied.
	Leaf *CertInfo

	// Roots summarizes the trust anchors, in store order.
	Roots []CertInfo
}

// Collect assembles a report from the TLS stack tables, the policy, and
// the trust material. Either argument may be nil; the corresponding
// sections are left empty.
func Collect(m *trust.Material, p *policy.Policy) *Report {
	r := &Report{}
	for _, v := range stackVersions {
		r.Versions = append(r.Versions, tls.VersionName(v))
	}

	pinned := make(map[uint16]bool)
	if p != nil {
		info := &PolicyInfo{
			Role:       p.Role().String(),
			ClientAuth: p.ClientAuth().String(),
			ServerName: p.ServerName(),
		}
		for _, id := range p.CipherSuites() {
			pinned[id] = true
			info.PinnedSuites = append(info.PinnedSuites, tls.CipherSuiteName(id))
		}
		if lo, hi := p.VersionRange(); lo != 0 {
			info.MinVersion = tls.VersionName(lo)
			info.MaxVersion = tls.VersionName(hi)
		}
		r.Policy = info
	}

	for _, s := range tls.CipherSuites() {
		r.Suites = append(r.Suites, suiteInfo(s, pinned))
	}
	for _, s := range tls.InsecureCipherSuites() {
		r.Suites = append(r.Suites, suiteInfo(s, pinned))
	}

	if m != nil {
		leaf := certInfo(m.Leaf)
		r.Leaf = &leaf
		for _, root := range m.RootCerts {
			r.Roots = append(r.Roots, certInfo(root))
		}
	}
	return r
}

func suiteInfo(s *tls.CipherSuite, pinned map[uint16]bool) SuiteInfo {
	info := SuiteInfo{
		ID:       s.ID,
		Name:     s.Name,
		Insecure: s.Insecure,
		Selected: pinned[s.ID],
	}
	for _, v := range s.SupportedVersions {
		info.Versions = append(info.Versions, tls.VersionName(v))
	}
	return info
}

func certInfo(c *x509.Certificate) CertInfo {
	sum := sha256.Sum256(c.Raw)
	return CertInfo{
		Subject:     c.Subject.String(),
		Issuer:      c.Issuer.String(),
		NotBefore:   c.NotBefore,
		NotAfter:    c.NotAfter,
		Fingerprint: hex.EncodeToString(sum[:]),
	}
}

// Format writes the report as a human-readable listing.
func (r *Report) Format(w io.Writer) {
	fmt.Fprintln(w, "=== StreamGate TLS Diagnostics ===")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Protocol Versions:")
	for _, v := range r.Versions {
		fmt.Fprintf(w, "  %s\n", v)
	}
	fmt.Fprintln(w)

	if r.Policy != nil {
		fmt.Fprintln(w, "Policy:")
		fmt.Fprintf(w, "  %-12s %s\n", "Role:", r.Policy.Role)
		fmt.Fprintf(w, "  %-12s %s\n", "Client Auth:", r.Policy.ClientAuth)
		if r.Policy.MinVersion != "" {
			fmt.Fprintf(w, "  %-12s %s to %s\n", "Versions:", r.Policy.MinVersion, r.Policy.MaxVersion)
		}
		if r.Policy.ServerName != "" {
			fmt.Fprintf(w, "  %-12s %s\n", "Server Name:", r.Policy.ServerName)
		}
		for i, name := range r.Policy.PinnedSuites {
			label := ""
			if i == 0 {
				label = "Pinned:"
			}
			fmt.Fprintf(w, "  %-12s %s\n", label, name)
		}
	} else {
		fmt.Fprintln(w, "Policy: (none)")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Cipher Suites:")
	for _, s := range r.Suites {
		marks := ""
		if s.Selected {
			marks += " [selected]"
		}
		if s.Insecure {
			marks += " [insecure]"
		}
		fmt.Fprintf(w, "  0x%04x %-46s %s%s\n", s.ID, s.Name, strings.Join(s.Versions, ", "), marks)
	}
	fmt.Fprintln(w)

	if r.Leaf != nil {
		fmt.Fprintln(w, "Leaf Certificate:")
		fmt.Fprintf(w, "  %-12s %s\n", "Subject:", r.Leaf.Subject)
		fmt.Fprintf(w, "  %-12s %s\n", "Issuer:", r.Leaf.Issuer)
		fmt.Fprintf(w, "  %-12s %s to %s\n", "Valid:",
			r.Leaf.NotBefore.Format(time.RFC3339), r.Leaf.NotAfter.Format(time.RFC3339))
		fmt.Fprintf(w, "  %-12s %s\n", "Fingerprint:", r.Leaf.Fingerprint)
		fmt.Fprintln(w)

		fmt.Fprintf(w, "Trusted Roots: %d\n", len(r.Roots))
		for _, root := range r.Roots {
			fmt.Fprintf(w, "  %s\n", root.Subject)
			fmt.Fprintf(w, "    %s\n", root.Fingerprint)
		}
	} else {
		fmt.Fprintln(w, "Trust Material: (not loaded)")
	}
}
