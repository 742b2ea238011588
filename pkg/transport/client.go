package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/streamgate-io/streamgate-go/pkg/log"
	"github.com/streamgate-io/streamgate-go/pkg/pipeline"
	"github.com/streamgate-io/streamgate-go/pkg/session"
)

// DefaultConnectTimeout bounds dial plus handshake on the client side.
const DefaultConnectTimeout = 30 * time.Second

// ClientConfig configures a StreamGate client.
type ClientConfig struct {
	// Handler receives session lifecycle callbacks. Required.
	Handler session.Handler

	// BaseStages seeds every dialed session's pipeline, network side
	// first.
	BaseStages []pipeline.Stage

	// MaxMessageSize is the maximum framed message size (default 64KB).
	MaxMessageSize uint32

	// ConnectTimeout bounds dial plus handshake (default 30s). Ignored
	// when the Connect context already carries a deadline.
	ConnectTimeout time.Duration

	// Logger receives protocol events (optional).
	Logger log.Logger
}

// Client dials StreamGate servers and runs each connection through the
// same bootstrap sequence as the server side.
type Client struct {
	config ClientConfig
}

// NewClient creates a client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.Handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if config.Logger == nil {
		config.Logger = log.NoopLogger{}
	}

	if _, err := pipeline.New(config.BaseStages...); err != nil {
		return nil, fmt.Errorf("base stages: %w", err)
	}

	return &Client{config: config}, nil
}

// Connect dials the address, bootstraps and establishes the session,
// and starts its read loop. The returned session is ESTABLISHED and
// ready for Send.
func (c *Client) Connect(ctx context.Context, address string) (*session.Session, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ConnectTimeout)
		defer cancel()
	}

	dialer := &net.Dialer{}
	raw, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	p, err := pipeline.New(c.config.BaseStages...)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("base stages: %w", err)
	}

	sess := session.New(raw, session.Config{
		Role:     log.RoleClient,
		Pipeline: p,
		Logger:   c.config.Logger,
	})

	if err := c.config.Handler.OnConnectionEstablished(sess); err != nil {
		sess.ObserveState(session.StateFailed, "session open refused")
		logSessionError(sess, err, "OnConnectionEstablished")
		raw.Close()
		return nil, err
	}

	if err := sess.Establish(ctx); err != nil {
		logSessionError(sess, err, "Establish")
		sess.Close()
		c.config.Handler.OnConnectionClosed(sess, err)
		return nil, err
	}

	framer := NewFramer(sess.Conn(), c.config.MaxMessageSize)
	framer.SetLogger(c.config.Logger, sess.ID())
	sess.AttachWriter(framer)

	if sess.HandshakeNoticeRequested() {
		c.config.Handler.OnMessage(sess, session.ControlEvent{
			Kind:   session.ControlHandshakeDone,
			Detail: handshakeDetail(sess),
		})
	}

	go c.readLoop(sess, framer)

	return sess, nil
}

// readLoop mirrors the server side: data events in arrival order, a
// closing notice on EOF or local close.
func (c *Client) readLoop(sess *session.Session, framer *Framer) {
	for {
		data, err := framer.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) || sess.State() == session.StateClosing {
				c.config.Handler.OnMessage(sess, session.ControlEvent{Kind: session.ControlClosing})
				sess.Close()
				c.config.Handler.OnConnectionClosed(sess, nil)
				return
			}

			sess.ObserveState(session.StateFailed, "read error")
			logSessionError(sess, err, "read")
			sess.Close()
			c.config.Handler.OnConnectionClosed(sess, err)
			return
		}

		c.config.Handler.OnMessage(sess, session.DataEvent{Payload: data})
	}
}
