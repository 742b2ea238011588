package gate

import (
	"crypto/tls"
	"fmt"
	"net"

	"github.com/streamgate-io/streamgate-go/pkg/pipeline"
	"github.com/streamgate-io/streamgate-go/pkg/policy"
	"github.com/streamgate-io/streamgate-go/pkg/trust"
)

// StageName is the pipeline name of the secure stage.
const StageName = "secure"

// secureStage wraps a connection in TLS. The handshake side comes from
// the policy role; the TLS configuration is built once per session.
type secureStage struct {
	config *tls.Config
	server bool
}

var _ pipeline.Stage = (*secureStage)(nil)

func newSecureStage(p *policy.Policy, m *trust.Material) (*secureStage, error) {
	switch p.Role() {
	case policy.RoleServer:
		cfg, err := p.ServerTLSConfig(m)
		if err != nil {
			return nil, err
		}
		return &secureStage{config: cfg, server: true}, nil
	case policy.RoleClient:
		cfg, err := p.ClientTLSConfig(m)
		if err != nil {
			return nil, err
		}
		return &secureStage{config: cfg}, nil
	default:
		return nil, fmt.Errorf("%w: %d", policy.ErrInvalidRole, p.Role())
	}
}

// Name implements pipeline.Stage.
func (s *secureStage) Name() string {
	return StageName
}

// Wrap implements pipeline.Stage. The returned conn performs its
// handshake when the pipeline's handshake walk reaches it.
func (s *secureStage) Wrap(c net.Conn) (net.Conn, error) {
	if s.server {
		return tls.Server(c, s.config), nil
	}
	return tls.Client(c, s.config), nil
}
