package policy

import (
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/streamgate-io/streamgate-go/pkg/trust"
)

// Builder errors.
var (
	// ErrRoleMismatch indicates a config build for the wrong role.
	ErrRoleMismatch = errors.New("policy role mismatch")

	// ErrNoMaterial indicates a build without trust material.
	ErrNoMaterial = errors.New("trust material required")
)

// ServerTLSConfig builds the TLS configuration for a server-role
// session from the policy and the loaded trust material. The returned
// config is fresh per call; the material is shared.
func (p *Policy) ServerTLSConfig(m *trust.Material) (*tls.Config, error) {
	if p.role != RoleServer {
		return nil, fmt.Errorf("%w: policy role is %s", ErrRoleMismatch, p.role)
	}
	if m == nil {
		return nil, ErrNoMaterial
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{m.Certificate},
		CipherSuites: p.CipherSuites(),
		MinVersion:   p.minVersion,
		MaxVersion:   p.maxVersion,
	}

	switch p.clientAuth {
	case ClientAuthWant:
		cfg.ClientAuth = tls.VerifyClientCertIfGiven
		cfg.ClientCAs = m.Roots
	case ClientAuthNeed:
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
		cfg.ClientCAs = m.Roots
	default:
		cfg.ClientAuth = tls.NoClientCert
	}

	return cfg, nil
}

// ClientTLSConfig builds the TLS configuration for a client-role
// session. The gate's certificate is presented for mutual TLS and the
// truststore verifies the server.
func (p *Policy) ClientTLSConfig(m *trust.Material) (*tls.Config, error) {
	if p.role != RoleClient {
		return nil, fmt.Errorf("%w: policy role is %s", ErrRoleMismatch, p.role)
	}
	if m == nil {
		return nil, ErrNoMaterial
	}

	return &tls.Config{
		Certificates: []tls.Certificate{m.Certificate},
		RootCAs:      m.Roots,
		ServerName:   p.serverName,
		CipherSuites: p.CipherSuites(),
		MinVersion:   p.minVersion,
		MaxVersion:   p.maxVersion,
	}, nil
}
