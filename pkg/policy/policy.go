// Package policy defines the immutable TLS transport policy of a gate:
// handshake role, client authentication mode, and optional cipher suite
// and protocol version pinning. A policy is validated and resolved once
// at construction; handshakes never see an invalid policy.
package policy

import (
	"errors"
	"fmt"
)

// Policy errors, all raised at validation time.
var (
	// ErrClientAuthConflict indicates both want and need client auth set.
	ErrClientAuthConflict = errors.New("want and need client auth are mutually exclusive")

	// ErrInvalidRole indicates an unknown handshake role value.
	ErrInvalidRole = errors.New("invalid handshake role")

	// ErrUnknownCipherSuite indicates a cipher suite name that resolves
	// to nothing in the TLS stack.
	ErrUnknownCipherSuite = errors.New("unknown cipher suite")

	// ErrUnknownVersion indicates an unrecognized protocol version name.
	ErrUnknownVersion = errors.New("unknown protocol version")

	// ErrVersionGap indicates a discontiguous protocol version set,
	// which the TLS stack's [min, max] model cannot express.
	ErrVersionGap = errors.New("protocol versions must be contiguous")
)

// HandshakeRole selects which side of the TLS handshake a session plays.
type HandshakeRole uint8

const (
	// RoleServer terminates TLS in front of the media handler.
	RoleServer HandshakeRole = iota

	// RoleClient originates TLS toward a remote gate.
	RoleClient
)

// String returns the role name.
func (r HandshakeRole) String() string {
	switch r {
	case RoleServer:
		return "SERVER"
	case RoleClient:
		return "CLIENT"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(r))
	}
}

// ClientAuth is the resolved client certificate requirement.
type ClientAuth uint8

const (
	// ClientAuthNone ignores client certificates.
	ClientAuthNone ClientAuth = iota

	// ClientAuthWant requests a client certificate and verifies one if
	// presented, but tolerates absence.
	ClientAuthWant

	// ClientAuthNeed requires and verifies a client certificate.
	ClientAuthNeed
)

// String returns the client auth mode name.
func (a ClientAuth) String() string {
	switch a {
	case ClientAuthNone:
		return "NONE"
	case ClientAuthWant:
		return "WANT"
	case ClientAuthNeed:
		return "NEED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(a))
	}
}

// Config is the construction surface for a Policy.
//
// Want and need client auth are separate fields so a conflicting request
// is visible and rejected at validation instead of silently resolved.
type Config struct {
	// Role selects the handshake side.
	Role HandshakeRole

	// WantClientAuth requests a client certificate without requiring one.
	WantClientAuth bool

	// NeedClientAuth requires and verifies a client certificate.
	NeedClientAuth bool

	// CipherSuites optionally pins the enabled suites by their standard
	// names (e.g. "TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256"). Empty
	// keeps the platform defaults. TLS 1.3 suites are fixed by the
	// stack and not affected by pinning.
	CipherSuites []string

	// ProtocolVersions optionally pins the enabled TLS versions by name
	// ("1.2", "TLSv1.3"). The set must be contiguous. Empty keeps the
	// platform defaults.
	ProtocolVersions []string

	// ServerName is the peer name verified in client-role handshakes.
	ServerName string
}

// Validate checks the config without resolving it.
func (c Config) Validate() error {
	if c.Role != RoleServer && c.Role != RoleClient {
		return fmt.Errorf("%w: %d", ErrInvalidRole, c.Role)
	}
	if c.WantClientAuth && c.NeedClientAuth {
		return ErrClientAuthConflict
	}
	for _, name := range c.CipherSuites {
		if _, ok := cipherSuiteID(name); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownCipherSuite, name)
		}
	}
	if _, _, err := versionRange(c.ProtocolVersions); err != nil {
		return err
	}
	return nil
}

// Policy is a finalized transport policy. Policies are immutable; a
// Policy in hand passed validation.
type Policy struct {
	role       HandshakeRole
	clientAuth ClientAuth
	suites     []uint16
	minVersion uint16 // 0 keeps the platform default
	maxVersion uint16
	serverName string
}

// New validates and resolves cfg into an immutable Policy.
func New(cfg Config) (*Policy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Policy{
		role:       cfg.Role,
		serverName: cfg.ServerName,
	}

	switch {
	case cfg.NeedClientAuth:
		p.clientAuth = ClientAuthNeed
	case cfg.WantClientAuth:
		p.clientAuth = ClientAuthWant
	default:
		p.clientAuth = ClientAuthNone
	}

	for _, name := range cfg.CipherSuites {
		id, _ := cipherSuiteID(name)
		p.suites = append(p.suites, id)
	}
	p.minVersion, p.maxVersion, _ = versionRange(cfg.ProtocolVersions)

	return p, nil
}

// Role returns the handshake role.
func (p *Policy) Role() HandshakeRole {
	return p.role
}

// ClientAuth returns the resolved client auth mode.
func (p *Policy) ClientAuth() ClientAuth {
	return p.clientAuth
}

// CipherSuites returns the pinned suite IDs, or nil for platform defaults.
func (p *Policy) CipherSuites() []uint16 {
	if p.suites == nil {
		return nil
	}
	out := make([]uint16, len(p.suites))
	copy(out, p.suites)
	return out
}

// VersionRange returns the pinned [min, max] protocol versions.
// Both are zero when the platform defaults apply.
func (p *Policy) VersionRange() (lo, hi uint16) {
	return p.minVersion, p.maxVersion
}

// ServerName returns the expected peer name for client-role handshakes.
func (p *Policy) ServerName() string {
	return p.serverName
}
