package gate

import (
	"fmt"
	"time"

	"github.com/streamgate-io/streamgate-go/pkg/log"
	"github.com/streamgate-io/streamgate-go/pkg/obfs"
	"github.com/streamgate-io/streamgate-go/pkg/policy"
	"github.com/streamgate-io/streamgate-go/pkg/session"
	"github.com/streamgate-io/streamgate-go/pkg/trust"
)

// AppHandler is the application-facing contract. The gate delivers
// sessions whose secure stage is already in place; the application
// never sees plaintext transport details.
type AppHandler interface {
	// OnSessionOpen is called once per session after bootstrap. A
	// non-nil error refuses the session before any handshake runs.
	OnSessionOpen(sess *session.Session) error

	// OnSessionMessage delivers one application payload. Payloads
	// arrive in wire order on the transport's read goroutine.
	OnSessionMessage(sess *session.Session, payload []byte)

	// OnSessionClose is called once when the session ends. err is nil
	// on orderly shutdown.
	OnSessionClose(sess *session.Session, err error)
}

// Config assembles a Gate.
type Config struct {
	// Trust loads the keystore/truststore pair. Required.
	Trust *trust.Loader

	// Policy is the finalized transport policy. Required.
	Policy *policy.Policy

	// App receives the bootstrapped sessions. Required.
	App AppHandler

	// InsertBefore names the pipeline stage the secure stage is placed
	// in front of. Empty selects obfs.StageName. A session whose
	// pipeline lacks the named stage fails to open.
	InsertBefore string

	// PushFront places the secure stage at the network end of the
	// pipeline instead of in front of a named stage, for deployments
	// without a masking stage.
	PushFront bool

	// Logger records bootstrap failures and consumed control notices.
	// Defaults to NoopLogger.
	Logger log.Logger
}

// Gate bootstraps the secure stage onto every session and routes
// session events to the application handler. It implements
// session.Handler; wire it as the transport's handler.
type Gate struct {
	trust  *trust.Loader
	policy *policy.Policy
	app    AppHandler
	target string
	front  bool
	logger log.Logger
}

var _ session.Handler = (*Gate)(nil)

// New validates the configuration and returns a Gate.
func New(cfg Config) (*Gate, error) {
	if cfg.Trust == nil {
		return nil, fmt.Errorf("trust loader is required")
	}
	if cfg.Policy == nil {
		return nil, fmt.Errorf("policy is required")
	}
	if cfg.App == nil {
		return nil, fmt.Errorf("app handler is required")
	}

	target := cfg.InsertBefore
	if target == "" {
		target = obfs.StageName
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NoopLogger{}
	}

	return &Gate{
		trust:  cfg.Trust,
		policy: cfg.Policy,
		app:    cfg.App,
		target: target,
		front:  cfg.PushFront,
		logger: logger,
	}, nil
}

// OnConnectionEstablished bootstraps the session: it inserts the secure
// stage into the pipeline and delegates to the application. Any failure
// is returned to the transport, which refuses the session. The gate
// never falls back to plaintext.
func (g *Gate) OnConnectionEstablished(sess *session.Session) error {
	if !g.trust.Configured() {
		g.logBootstrapError(sess, trust.ErrNotConfigured)
		return trust.ErrNotConfigured
	}

	material, err := g.trust.Material()
	if err != nil {
		g.logBootstrapError(sess, err)
		return fmt.Errorf("loading trust material: %w", err)
	}

	stage, err := newSecureStage(g.policy, material)
	if err != nil {
		g.logBootstrapError(sess, err)
		return fmt.Errorf("building secure stage: %w", err)
	}

	p := sess.Pipeline()
	if g.front {
		err = p.PushFront(stage)
	} else {
		err = p.InsertBefore(g.target, stage)
	}
	if err != nil {
		g.logBootstrapError(sess, err)
		return fmt.Errorf("inserting secure stage: %w", err)
	}

	sess.RequestHandshakeNotice()

	return g.app.OnSessionOpen(sess)
}

// OnMessage routes one session event. Control events are consumed and
// recorded; they never reach the application. Data events are forwarded
// unchanged, in arrival order.
func (g *Gate) OnMessage(sess *session.Session, event session.Event) {
	switch e := event.(type) {
	case session.ControlEvent:
		g.logEvent(sess, log.Event{
			Layer:    log.LayerSession,
			Category: log.CategoryControl,
			Notice: &log.NoticeEvent{
				Kind:   noticeKind(e.Kind),
				Detail: e.Detail,
			},
		})
	case session.DataEvent:
		if sess.State() != session.StateEstablished {
			g.logEvent(sess, log.Event{
				Layer:    log.LayerSession,
				Category: log.CategoryError,
				Error: &log.ErrorEventData{
					Layer:   log.LayerSession,
					Message: "payload outside established session dropped",
					Context: fmt.Sprintf("state %s", sess.State()),
				},
			})
			return
		}
		g.app.OnSessionMessage(sess, e.Payload)
	}
}

// OnConnectionClosed delegates the close to the application.
func (g *Gate) OnConnectionClosed(sess *session.Session, err error) {
	g.app.OnSessionClose(sess, err)
}

func (g *Gate) logBootstrapError(sess *session.Session, err error) {
	g.logEvent(sess, log.Event{
		Layer:    log.LayerSecure,
		Category: log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerSecure,
			Message: err.Error(),
			Context: "bootstrap",
		},
	})
}

// logEvent stamps the session identity onto e before recording it.
func (g *Gate) logEvent(sess *session.Session, e log.Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	e.ConnectionID = sess.ID()
	e.LocalRole = sess.Role()
	if addr := sess.RemoteAddr(); addr != nil {
		e.RemoteAddr = addr.String()
	}
	g.logger.Log(e)
}

func noticeKind(kind session.ControlKind) log.NoticeKind {
	switch kind {
	case session.ControlHandshakeDone:
		return log.NoticeHandshakeDone
	case session.ControlClosing:
		return log.NoticeClosing
	default:
		return log.NoticeKind(kind)
	}
}
