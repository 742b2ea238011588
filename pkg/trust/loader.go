package trust

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"sync"

	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

// Loader errors. Messages may carry a store path, never a password.
var (
	// ErrNotConfigured indicates a build was attempted without both
	// store paths set.
	ErrNotConfigured = errors.New("trust stores not configured")

	// ErrMissingFile indicates a configured store file does not exist.
	ErrMissingFile = errors.New("trust store file missing")

	// ErrLoadFailed indicates a store exists but could not be decoded
	// or its key material is unusable.
	ErrLoadFailed = errors.New("trust store load failed")
)

// Loader builds Material from a Config on first use and caches the
// successful result for the lifetime of the process. Failures are not
// cached, so a later session attempt retries the build after the
// operator fixes the store. Safe for concurrent use: callers racing on
// the first build serialize and share one Material.
type Loader struct {
	config Config

	mu       sync.Mutex
	material *Material
}

// NewLoader returns a loader over the given store configuration.
func NewLoader(cfg Config) *Loader {
	return &Loader{config: cfg}
}

// Config returns the store configuration.
func (l *Loader) Config() Config {
	return l.config
}

// Configured reports whether both store paths are set.
func (l *Loader) Configured() bool {
	return l.config.Configured()
}

// Material returns the trust material, building it on first use.
// Returns ErrNotConfigured when a path is unset, ErrMissingFile when a
// store file is absent, and ErrLoadFailed when decoding fails. Either
// both stores load or neither does.
func (l *Loader) Material() (*Material, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.material != nil {
		return l.material, nil
	}

	m, err := build(l.config)
	if err != nil {
		return nil, err
	}
	l.material = m
	return m, nil
}

func build(cfg Config) (*Material, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}

	// Both stores must exist before either is decoded.
	for _, path := range []string{cfg.KeystorePath, cfg.TruststorePath} {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrMissingFile, path)
			}
			return nil, fmt.Errorf("%w: stat %s: %v", ErrLoadFailed, path, err)
		}
	}

	cert, leaf, err := loadKeystore(cfg.KeystorePath, cfg.KeystorePassword)
	if err != nil {
		return nil, err
	}

	roots, rootCerts, err := loadTruststore(cfg.TruststorePath, cfg.TruststorePassword)
	if err != nil {
		return nil, err
	}

	return &Material{
		Certificate: cert,
		Leaf:        leaf,
		Roots:       roots,
		RootCerts:   rootCerts,
	}, nil
}

func loadKeystore(path, password string) (tls.Certificate, *x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, path, err)
	}

	key, leaf, caCerts, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return tls.Certificate{}, nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, path, err)
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return tls.Certificate{}, nil, fmt.Errorf("%w: %s: private key cannot sign", ErrLoadFailed, path)
	}

	chain := make([][]byte, 0, 1+len(caCerts))
	chain = append(chain, leaf.Raw)
	for _, ca := range caCerts {
		chain = append(chain, ca.Raw)
	}

	cert := tls.Certificate{
		Certificate: chain,
		PrivateKey:  signer,
		Leaf:        leaf,
	}
	return cert, leaf, nil
}

func loadTruststore(path, password string) (*x509.CertPool, []*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, path, err)
	}

	certs, err := pkcs12.DecodeTrustStore(data, password)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, path, err)
	}
	if len(certs) == 0 {
		return nil, nil, fmt.Errorf("%w: %s: no trusted certificates", ErrLoadFailed, path)
	}

	pool := x509.NewCertPool()
	for _, c := range certs {
		pool.AddCert(c)
	}
	return pool, certs, nil
}
