package discovery

import (
	"errors"
	"fmt"
	"time"
)

// Service constants for mDNS.
const (
	// ServiceType is the DNS-SD service type gates announce.
	ServiceType = "_streamgate._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the default gate listener port.
	DefaultPort = 8443
)

// TXT record key constants.
const (
	// TXTKeyFingerprint carries the leaf certificate fingerprint.
	TXTKeyFingerprint = "fp"

	// TXTKeyTLSVersion carries the announced TLS version bound (optional).
	TXTKeyTLSVersion = "tv"

	// TXTKeyClientAuth carries the client auth mode (optional).
	TXTKeyClientAuth = "ca"
)

// Timing constants.
const (
	// DefaultTTL is the default DNS record TTL.
	DefaultTTL = 120 * time.Second

	// BrowseTimeout is the suggested timeout for one browse pass.
	BrowseTimeout = 10 * time.Second
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// FingerprintLength is the length of a gate fingerprint
	// (16 hex chars = first 64 bits of SHA-256).
	FingerprintLength = 16
)

// Discovery errors.
var (
	ErrMissingRequired     = errors.New("missing required field")
	ErrInvalidFingerprint  = errors.New("invalid fingerprint")
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrNotFound            = errors.New("service not found")
	ErrNotAdvertising      = errors.New("no announcement active")
)

// Info describes one gate announcement.
type Info struct {
	// InstanceName is the mDNS instance name (e.g. "streamgate-a1b2c3d4").
	InstanceName string

	// Port is the gate listener port. Zero means DefaultPort.
	Port uint16

	// Fingerprint identifies the gate's leaf certificate
	// (TXT "fp", 16 hex chars).
	Fingerprint string

	// TLSVersion is the optional announced TLS version bound (TXT "tv").
	TLSVersion string

	// ClientAuth is the optional client auth mode (TXT "ca").
	ClientAuth string
}

// Validate checks the announcement fields.
func (i *Info) Validate() error {
	if err := ValidateInstanceName(i.InstanceName); err != nil {
		return err
	}
	if !ValidateFingerprint(i.Fingerprint) {
		return fmt.Errorf("%w: %q", ErrInvalidFingerprint, i.Fingerprint)
	}
	return nil
}

// Gate is a gate discovered on the local network.
type Gate struct {
	// InstanceName is the mDNS instance name.
	InstanceName string

	// Host is the announced hostname (e.g. "gate-01.local.").
	Host string

	// Port is the gate listener port.
	Port uint16

	// Addresses contains the resolved IP addresses.
	Addresses []string

	// Fingerprint is the leaf certificate fingerprint (from TXT "fp").
	Fingerprint string

	// TLSVersion is the announced TLS version bound (from TXT "tv").
	TLSVersion string

	// ClientAuth is the announced client auth mode (from TXT "ca").
	ClientAuth string
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: instance name", ErrMissingRequired)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
