package trust

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
)

// Material is the ready-to-use trust material built from the stores:
// the gate's own certificate chain with its private key, plus the CA
// set presented peers are verified against. Material is immutable after
// build and safe for concurrent use by any number of sessions.
type Material struct {
	// Certificate is the gate's chain and private key, ready for
	// tls.Config.Certificates.
	Certificate tls.Certificate

	// Leaf is the parsed end-entity certificate.
	Leaf *x509.Certificate

	// Roots holds the trusted CA set from the truststore.
	Roots *x509.CertPool

	// RootCerts are the individual trusted certificates, kept for
	// diagnostics and discovery fingerprints.
	RootCerts []*x509.Certificate
}

// LeafFingerprint returns the hex SHA-256 digest of the leaf certificate.
func (m *Material) LeafFingerprint() string {
	sum := sha256.Sum256(m.Leaf.Raw)
	return hex.EncodeToString(sum[:])
}
