package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/streamgate-io/streamgate-go/pkg/log"
	"github.com/streamgate-io/streamgate-go/pkg/pipeline"
	"github.com/streamgate-io/streamgate-go/pkg/session"
)

// DefaultPort is the port used when the listen address carries none.
const DefaultPort = 8443

// DefaultHandshakeTimeout bounds pipeline establishment per session.
const DefaultHandshakeTimeout = 10 * time.Second

// ServerConfig configures a StreamGate server.
type ServerConfig struct {
	// Address to listen on (e.g. ":8443" or "127.0.0.1:8443").
	Address string

	// Handler receives session lifecycle callbacks. Required.
	Handler session.Handler

	// BaseStages seeds every accepted session's pipeline, network side
	// first (e.g. the legacy obfuscation stage). Stage instances are
	// shared across sessions; Wrap runs per connection.
	BaseStages []pipeline.Stage

	// MaxMessageSize is the maximum framed message size (default 64KB).
	MaxMessageSize uint32

	// HandshakeTimeout bounds pipeline establishment (default 10s).
	HandshakeTimeout time.Duration

	// ReadIdleTimeout fails sessions with no inbound traffic for the
	// given duration (0 = no timeout).
	ReadIdleTimeout time.Duration

	// Logger receives protocol events (optional).
	Logger log.Logger

	// OnError is called for accept and session errors (optional). The
	// session is nil for listener-level errors.
	OnError func(s *session.Session, err error)
}

// Server accepts TCP connections and runs each one through the session
// bootstrap sequence before entering its read loop.
type Server struct {
	config   ServerConfig
	listener net.Listener

	sessions   map[*session.Session]struct{}
	sessionsMu sync.RWMutex

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a server.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.HandshakeTimeout == 0 {
		config.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if config.Logger == nil {
		config.Logger = log.NoopLogger{}
	}

	// Reject duplicate stage names up front rather than per connection.
	if _, err := pipeline.New(config.BaseStages...); err != nil {
		return nil, fmt.Errorf("base stages: %w", err)
	}

	return &Server{
		config:   config,
		sessions: make(map[*session.Session]struct{}),
	}, nil
}

// Start starts the server and begins accepting connections.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return fmt.Errorf("server already running")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener

	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop closes the listener and every live session, then waits for the
// per-connection goroutines.
func (s *Server) Stop() error {
	if !s.running.Load() {
		return nil
	}

	s.running.Store(false)
	s.cancel()

	if s.listener != nil {
		s.listener.Close()
	}

	s.sessionsMu.Lock()
	for sess := range s.sessions {
		sess.Close()
	}
	s.sessionsMu.Unlock()

	s.wg.Wait()

	return nil
}

// Addr returns the server's listen address.
func (s *Server) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	return len(s.sessions)
}

// acceptLoop accepts incoming connections.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.running.Load() {
				s.reportError(nil, fmt.Errorf("accept error: %w", err))
			}
			continue
		}

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// handleConn runs one connection from bootstrap to teardown.
func (s *Server) handleConn(raw net.Conn) {
	defer s.wg.Done()

	p, err := pipeline.New(s.config.BaseStages...)
	if err != nil {
		raw.Close()
		s.reportError(nil, fmt.Errorf("base stages: %w", err))
		return
	}

	sess := session.New(raw, session.Config{
		Role:     log.RoleServer,
		Pipeline: p,
		Logger:   s.config.Logger,
	})

	// Bootstrap before any read. An error here means no session: the
	// raw conn is closed without a handshake and without a closed
	// callback.
	if err := s.config.Handler.OnConnectionEstablished(sess); err != nil {
		sess.ObserveState(session.StateFailed, "session open refused")
		logSessionError(sess, err, "OnConnectionEstablished")
		raw.Close()
		s.reportError(sess, err)
		return
	}

	hsCtx, cancel := context.WithTimeout(s.ctx, s.config.HandshakeTimeout)
	err = sess.Establish(hsCtx)
	cancel()
	if err != nil {
		logSessionError(sess, err, "Establish")
		sess.Close()
		s.reportError(sess, err)
		s.config.Handler.OnConnectionClosed(sess, err)
		return
	}

	framer := NewFramer(sess.Conn(), s.config.MaxMessageSize)
	framer.SetLogger(s.config.Logger, sess.ID())
	sess.AttachWriter(framer)

	s.addSession(sess)
	defer s.removeSession(sess)

	if sess.HandshakeNoticeRequested() {
		s.config.Handler.OnMessage(sess, session.ControlEvent{
			Kind:   session.ControlHandshakeDone,
			Detail: handshakeDetail(sess),
		})
	}

	err = s.readLoop(sess, framer)
	if err == nil {
		s.config.Handler.OnMessage(sess, session.ControlEvent{Kind: session.ControlClosing})
		sess.Close()
		s.config.Handler.OnConnectionClosed(sess, nil)
		return
	}

	sess.ObserveState(session.StateFailed, "read error")
	logSessionError(sess, err, "read")
	sess.Close()
	s.reportError(sess, err)
	s.config.Handler.OnConnectionClosed(sess, err)
}

// readLoop delivers inbound frames until the peer goes away. A nil
// return is an orderly shutdown.
func (s *Server) readLoop(sess *session.Session, framer *Framer) error {
	for {
		if s.config.ReadIdleTimeout > 0 {
			sess.Conn().SetReadDeadline(time.Now().Add(s.config.ReadIdleTimeout))
		}

		data, err := framer.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) || sess.State() == session.StateClosing || !s.running.Load() {
				return nil
			}
			return err
		}

		s.config.Handler.OnMessage(sess, session.DataEvent{Payload: data})
	}
}

func (s *Server) addSession(sess *session.Session) {
	s.sessionsMu.Lock()
	s.sessions[sess] = struct{}{}
	s.sessionsMu.Unlock()
}

func (s *Server) removeSession(sess *session.Session) {
	s.sessionsMu.Lock()
	delete(s.sessions, sess)
	s.sessionsMu.Unlock()
}

func (s *Server) reportError(sess *session.Session, err error) {
	if s.config.OnError != nil {
		s.config.OnError(sess, err)
	}
}

// handshakeDetail summarizes the negotiated parameters for the
// handshake notice.
func handshakeDetail(sess *session.Session) string {
	cs, ok := sess.TLSState()
	if !ok {
		return ""
	}
	return tls.VersionName(cs.Version) + " " + tls.CipherSuiteName(cs.CipherSuite)
}

// logSessionError records an error event on the session's protocol log.
func logSessionError(sess *session.Session, err error, where string) {
	sess.Log(log.Event{
		Direction: log.DirectionIn,
		Layer:     log.LayerTransport,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerTransport,
			Message: err.Error(),
			Context: where,
		},
	})
}
