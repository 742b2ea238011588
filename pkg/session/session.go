package session

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/streamgate-io/streamgate-go/pkg/log"
	"github.com/streamgate-io/streamgate-go/pkg/pipeline"
)

// Session errors.
var (
	// ErrHandshakeFailed indicates a stage handshake did not complete.
	ErrHandshakeFailed = errors.New("handshake failed")

	// ErrNotEstablished indicates an operation that requires an
	// established session.
	ErrNotEstablished = errors.New("session not established")

	// ErrAlreadyEstablished indicates a repeated Establish call.
	ErrAlreadyEstablished = errors.New("session already established")
)

// FrameWriter writes one framed message to the peer. The transport
// attaches its framer once the pipeline is established.
type FrameWriter interface {
	WriteFrame(data []byte) error
}

// Config configures a session.
type Config struct {
	// ID identifies the connection in protocol logs. A random UUID is
	// generated when empty.
	ID string

	// Role is the local side of the connection.
	Role log.Role

	// Pipeline holds the connection stages built on Establish.
	Pipeline *pipeline.Pipeline

	// Logger receives protocol events (default: NoopLogger).
	Logger log.Logger
}

// Session is one accepted or dialed connection: the raw conn, the
// stage pipeline on top of it, and the observed state machine.
type Session struct {
	id       string
	role     log.Role
	pipeline *pipeline.Pipeline
	logger   log.Logger

	raw net.Conn

	mu     sync.RWMutex
	conn   net.Conn
	state  State
	notice bool
	writer FrameWriter

	closeOnce sync.Once
}

// New creates a session over a raw connection. The pipeline is not
// built until Establish.
func New(raw net.Conn, config Config) *Session {
	if config.ID == "" {
		config.ID = uuid.NewString()
	}
	if config.Pipeline == nil {
		config.Pipeline, _ = pipeline.New()
	}
	if config.Logger == nil {
		config.Logger = log.NoopLogger{}
	}

	return &Session{
		id:       config.ID,
		role:     config.Role,
		pipeline: config.Pipeline,
		logger:   config.Logger,
		raw:      raw,
		state:    StateUninitialized,
	}
}

// ID returns the connection identifier.
func (s *Session) ID() string {
	return s.id
}

// Role returns the local side of the connection.
func (s *Session) Role() log.Role {
	return s.role
}

// Pipeline returns the session's stage pipeline. Stages may be added
// until Establish builds and seals it.
func (s *Session) Pipeline() *pipeline.Pipeline {
	return s.pipeline
}

// State returns the observed session state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Conn returns the outermost stage conn, or nil before Establish.
func (s *Session) Conn() net.Conn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn
}

// RemoteAddr returns the peer's network address.
func (s *Session) RemoteAddr() net.Addr {
	if s.raw != nil {
		return s.raw.RemoteAddr()
	}
	return nil
}

// LocalAddr returns the local network address.
func (s *Session) LocalAddr() net.Addr {
	if s.raw != nil {
		return s.raw.LocalAddr()
	}
	return nil
}

// ObserveState records a lifecycle transition reported by the
// transport. The session never drives the underlying stages; it only
// tracks what they did. Illegal transitions are ignored and reported
// as false.
func (s *Session) ObserveState(next State, reason string) bool {
	s.mu.Lock()
	prev := s.state
	if !legal(prev, next) {
		s.mu.Unlock()
		return false
	}
	s.state = next
	s.mu.Unlock()

	s.Log(log.Event{
		Layer:    log.LayerSession,
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			OldState: prev.String(),
			NewState: next.String(),
			Reason:   reason,
		},
	})

	return true
}

// Establish builds the stage pipeline over the raw conn and runs the
// stage handshakes, network side first. It may be called once per
// session; failure is terminal and no application data flows.
func (s *Session) Establish(ctx context.Context) error {
	if !s.ObserveState(StateHandshaking, "pipeline setup") {
		return ErrAlreadyEstablished
	}

	conn, err := s.pipeline.Build(s.raw)
	if err != nil {
		s.ObserveState(StateFailed, "pipeline build failed")
		return fmt.Errorf("building pipeline: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	if err := s.pipeline.Handshake(ctx); err != nil {
		s.ObserveState(StateFailed, "handshake failed")
		return fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}

	s.ObserveState(StateEstablished, "handshake complete")
	s.logHandshake()

	return nil
}

// AttachWriter hands the session the transport's frame writer. Send
// fails until one is attached.
func (s *Session) AttachWriter(w FrameWriter) {
	s.mu.Lock()
	s.writer = w
	s.mu.Unlock()
}

// Send writes one framed message to the peer. The session must be
// established.
func (s *Session) Send(data []byte) error {
	s.mu.RLock()
	state := s.state
	w := s.writer
	s.mu.RUnlock()

	if state != StateEstablished || w == nil {
		return ErrNotEstablished
	}

	return w.WriteFrame(data)
}

// RequestHandshakeNotice asks the transport to deliver a control event
// on this session once the secure handshake completes.
func (s *Session) RequestHandshakeNotice() {
	s.mu.Lock()
	s.notice = true
	s.mu.Unlock()
}

// HandshakeNoticeRequested reports whether a handshake notice was
// requested.
func (s *Session) HandshakeNoticeRequested() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notice
}

// TLSState reports the TLS connection state when the built pipeline
// contains a secure stage.
func (s *Session) TLSState() (tls.ConnectionState, bool) {
	for _, name := range s.pipeline.Names() {
		conn, ok := s.pipeline.Conn(name)
		if !ok {
			continue
		}
		if tc, ok := conn.(interface{ ConnectionState() tls.ConnectionState }); ok {
			return tc.ConnectionState(), true
		}
	}
	return tls.ConnectionState{}, false
}

// Close shuts the connection down. Closing the outermost stage conn
// tears down the whole chain.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.ObserveState(StateClosing, "session closed")

		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()

		if conn == nil {
			conn = s.raw
		}
		if conn != nil {
			err = conn.Close()
		}
	})
	return err
}

// Log stamps the session's identity onto a protocol event and records
// it.
func (s *Session) Log(e log.Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	e.ConnectionID = s.id
	e.LocalRole = s.role
	if addr := s.RemoteAddr(); addr != nil {
		e.RemoteAddr = addr.String()
	}
	s.logger.Log(e)
}

// logHandshake records the negotiated TLS parameters. Certificates and
// key material never reach the log, only the peer subject.
func (s *Session) logHandshake() {
	cs, ok := s.TLSState()
	if !ok {
		return
	}

	hs := &log.HandshakeEvent{
		Version:     tls.VersionName(cs.Version),
		CipherSuite: tls.CipherSuiteName(cs.CipherSuite),
		Resumed:     cs.DidResume,
	}
	if len(cs.PeerCertificates) > 0 {
		hs.PeerSubject = cs.PeerCertificates[0].Subject.String()
	}

	s.Log(log.Event{
		Layer:     log.LayerSecure,
		Category:  log.CategoryState,
		Handshake: hs,
	})
}
