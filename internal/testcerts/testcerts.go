// Package testcerts fabricates throwaway certificate authorities, leaf
// certificates, and PKCS#12 store files for tests. Nothing here is safe
// for production use: keys are ephemeral and validity is 24 hours.
package testcerts

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	pkcs12 "software.sslmate.com/src/go-pkcs12"

	"github.com/streamgate-io/streamgate-go/pkg/trust"
)

// Password protects every store file written by this package.
const Password = "changeit"

// Store file names used by ServerStores and ClientStores.
const (
	KeystoreFile   = "keystore.p12"
	TruststoreFile = "truststore.p12"
)

// Authority is a throwaway CA that signs test leaf certificates.
type Authority struct {
	Cert *x509.Certificate
	Key  *ecdsa.PrivateKey
}

// NewAuthority generates a self-signed test CA.
func NewAuthority(t *testing.T, commonName string) *Authority {
	t.Helper()

	key := genKey(t)
	template := &x509.Certificate{
		SerialNumber: genSerial(t),
		Subject: pkix.Name{
			CommonName:   commonName,
			Organization: []string{"StreamGate Test"},
		},
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            1,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create CA certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse CA certificate: %v", err)
	}
	return &Authority{Cert: cert, Key: key}
}

// IssueServer signs a leaf for a loopback TLS server. The certificate
// also carries the client-auth EKU so loopback tests can reuse it for
// either handshake role.
func (a *Authority) IssueServer(t *testing.T, commonName string) (*x509.Certificate, *ecdsa.PrivateKey) {
	t.Helper()
	return a.issue(t, &x509.Certificate{
		SerialNumber: genSerial(t),
		Subject: pkix.Name{
			CommonName:   commonName,
			Organization: []string{"StreamGate Test"},
		},
		NotBefore:   time.Now().Add(-1 * time.Hour),
		NotAfter:    time.Now().Add(24 * time.Hour),
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		IPAddresses: []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		DNSNames:    []string{"localhost"},
	})
}

// IssueClient signs a client-auth leaf.
func (a *Authority) IssueClient(t *testing.T, commonName string) (*x509.Certificate, *ecdsa.PrivateKey) {
	t.Helper()
	return a.issue(t, &x509.Certificate{
		SerialNumber: genSerial(t),
		Subject: pkix.Name{
			CommonName:   commonName,
			Organization: []string{"StreamGate Test"},
		},
		NotBefore:   time.Now().Add(-1 * time.Hour),
		NotAfter:    time.Now().Add(24 * time.Hour),
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	})
}

func (a *Authority) issue(t *testing.T, template *x509.Certificate) (*x509.Certificate, *ecdsa.PrivateKey) {
	t.Helper()

	key := genKey(t)
	der, err := x509.CreateCertificate(rand.Reader, template, a.Cert, &key.PublicKey, a.Key)
	if err != nil {
		t.Fatalf("create leaf certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse leaf certificate: %v", err)
	}
	return cert, key
}

// WriteKeystore writes a PKCS#12 keystore holding the leaf, its private
// key, and the given chain certificates.
func WriteKeystore(t *testing.T, path, password string, leaf *x509.Certificate, key *ecdsa.PrivateKey, chain ...*x509.Certificate) {
	t.Helper()

	data, err := pkcs12.Modern2023.Encode(key, leaf, chain, password)
	if err != nil {
		t.Fatalf("encode keystore: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write keystore: %v", err)
	}
}

// WriteTruststore writes a PKCS#12 truststore holding the given CA set.
func WriteTruststore(t *testing.T, path, password string, certs ...*x509.Certificate) {
	t.Helper()

	data, err := pkcs12.Modern2023.EncodeTrustStore(certs, password)
	if err != nil {
		t.Fatalf("encode truststore: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write truststore: %v", err)
	}
}

// ServerStores writes a complete keystore/truststore pair for a loopback
// TLS server under dir and returns the matching trust configuration.
// The truststore holds the CA certificates of trusts, defaulting to the
// issuing authority itself.
func ServerStores(t *testing.T, dir string, auth *Authority, trusts ...*Authority) trust.Config {
	t.Helper()
	leaf, key := auth.IssueServer(t, "gate.test")
	return writeStores(t, dir, auth, leaf, key, trusts)
}

// ClientStores is ServerStores for a connecting client.
func ClientStores(t *testing.T, dir string, auth *Authority, trusts ...*Authority) trust.Config {
	t.Helper()
	leaf, key := auth.IssueClient(t, "probe.test")
	return writeStores(t, dir, auth, leaf, key, trusts)
}

func writeStores(t *testing.T, dir string, auth *Authority, leaf *x509.Certificate, key *ecdsa.PrivateKey, trusts []*Authority) trust.Config {
	t.Helper()

	keystorePath := filepath.Join(dir, KeystoreFile)
	WriteKeystore(t, keystorePath, Password, leaf, key, auth.Cert)

	if len(trusts) == 0 {
		trusts = []*Authority{auth}
	}
	trusted := make([]*x509.Certificate, len(trusts))
	for i, a := range trusts {
		trusted[i] = a.Cert
	}
	truststorePath := filepath.Join(dir, TruststoreFile)
	WriteTruststore(t, truststorePath, Password, trusted...)

	return trust.Config{
		KeystorePath:       keystorePath,
		KeystorePassword:   Password,
		TruststorePath:     truststorePath,
		TruststorePassword: Password,
	}
}

func genKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func genSerial(t *testing.T) *big.Int {
	t.Helper()
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		t.Fatalf("generate serial: %v", err)
	}
	return serial
}
