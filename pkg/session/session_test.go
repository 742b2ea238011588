package session

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"sync"
	"testing"

	"github.com/streamgate-io/streamgate-go/pkg/log"
	"github.com/streamgate-io/streamgate-go/pkg/pipeline"
)

// stubStage wraps conns whose handshake outcome is scripted.
type stubStage struct {
	name  string
	hsErr error
	tls   bool
}

func (s *stubStage) Name() string { return s.name }

func (s *stubStage) Wrap(c net.Conn) (net.Conn, error) {
	if s.tls {
		return &stubTLSConn{stubConn{Conn: c, hsErr: s.hsErr}}, nil
	}
	return &stubConn{Conn: c, hsErr: s.hsErr}, nil
}

type stubConn struct {
	net.Conn
	hsErr error
}

func (c *stubConn) HandshakeContext(ctx context.Context) error { return c.hsErr }

type stubTLSConn struct{ stubConn }

func (c *stubTLSConn) ConnectionState() tls.ConnectionState {
	return tls.ConnectionState{
		Version:     tls.VersionTLS13,
		CipherSuite: tls.TLS_AES_128_GCM_SHA256,
	}
}

// memLogger records protocol events for assertions.
type memLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (m *memLogger) Log(e log.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

func (m *memLogger) all() []log.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]log.Event(nil), m.events...)
}

// memWriter records frames written through the session.
type memWriter struct {
	frames [][]byte
	err    error
}

func (w *memWriter) WriteFrame(data []byte) error {
	if w.err != nil {
		return w.err
	}
	w.frames = append(w.frames, append([]byte(nil), data...))
	return nil
}

func rawConn(t *testing.T) net.Conn {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a
}

func newTestSession(t *testing.T, logger log.Logger, stages ...pipeline.Stage) *Session {
	t.Helper()
	p, err := pipeline.New(stages...)
	if err != nil {
		t.Fatalf("pipeline.New failed: %v", err)
	}
	return New(rawConn(t), Config{
		ID:       "sess-test",
		Role:     log.RoleServer,
		Pipeline: p,
		Logger:   logger,
	})
}

func TestNewGeneratesID(t *testing.T) {
	s := New(rawConn(t), Config{})
	if s.ID() == "" {
		t.Error("expected generated ID, got empty string")
	}
	if s.State() != StateUninitialized {
		t.Errorf("initial state = %v, want %v", s.State(), StateUninitialized)
	}
}

func TestObserveState(t *testing.T) {
	logger := &memLogger{}
	s := newTestSession(t, logger)

	if !s.ObserveState(StateHandshaking, "test") {
		t.Fatal("uninitialized -> handshaking rejected")
	}
	if s.State() != StateHandshaking {
		t.Errorf("state = %v, want %v", s.State(), StateHandshaking)
	}

	// Illegal transition leaves the state untouched.
	if s.ObserveState(StateClosing, "test") {
		t.Error("handshaking -> closing accepted, want rejected")
	}
	if s.State() != StateHandshaking {
		t.Errorf("state after illegal transition = %v, want %v", s.State(), StateHandshaking)
	}

	if !s.ObserveState(StateEstablished, "test") {
		t.Fatal("handshaking -> established rejected")
	}

	// One event per accepted transition, none for the rejected one.
	events := logger.all()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	for _, e := range events {
		if e.ConnectionID != "sess-test" {
			t.Errorf("event ConnectionID = %q, want %q", e.ConnectionID, "sess-test")
		}
		if e.Layer != log.LayerSession || e.Category != log.CategoryState {
			t.Errorf("event layer/category = %v/%v, want %v/%v",
				e.Layer, e.Category, log.LayerSession, log.CategoryState)
		}
		if e.StateChange == nil {
			t.Fatal("event StateChange is nil")
		}
	}
	if events[0].StateChange.NewState != "HANDSHAKING" {
		t.Errorf("first transition = %q, want %q", events[0].StateChange.NewState, "HANDSHAKING")
	}
	if events[1].StateChange.NewState != "ESTABLISHED" {
		t.Errorf("second transition = %q, want %q", events[1].StateChange.NewState, "ESTABLISHED")
	}
}

func TestEstablish(t *testing.T) {
	logger := &memLogger{}
	s := newTestSession(t, logger, &stubStage{name: "secure", tls: true})

	if err := s.Establish(context.Background()); err != nil {
		t.Fatalf("Establish failed: %v", err)
	}

	if s.State() != StateEstablished {
		t.Errorf("state = %v, want %v", s.State(), StateEstablished)
	}
	if s.Conn() == nil {
		t.Error("Conn is nil after Establish")
	}
	if !s.Pipeline().Sealed() {
		t.Error("pipeline not sealed after Establish")
	}

	// The negotiated TLS parameters are recorded.
	var sawHandshake bool
	for _, e := range logger.all() {
		if e.Handshake != nil {
			sawHandshake = true
			if e.Handshake.Version != "TLS 1.3" {
				t.Errorf("Handshake.Version = %q, want %q", e.Handshake.Version, "TLS 1.3")
			}
		}
	}
	if !sawHandshake {
		t.Error("no handshake event recorded")
	}
}

func TestEstablishHandshakeFailure(t *testing.T) {
	boom := errors.New("boom")
	s := newTestSession(t, &memLogger{}, &stubStage{name: "secure", hsErr: boom})

	err := s.Establish(context.Background())
	if !errors.Is(err, ErrHandshakeFailed) {
		t.Fatalf("Establish error = %v, want ErrHandshakeFailed", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("Establish error does not wrap the stage error: %v", err)
	}
	if s.State() != StateFailed {
		t.Errorf("state = %v, want %v", s.State(), StateFailed)
	}

	// No data crosses a failed session.
	s.AttachWriter(&memWriter{})
	if err := s.Send([]byte("data")); !errors.Is(err, ErrNotEstablished) {
		t.Errorf("Send after failed handshake = %v, want ErrNotEstablished", err)
	}
}

func TestEstablishTwice(t *testing.T) {
	s := newTestSession(t, &memLogger{}, &stubStage{name: "secure"})

	if err := s.Establish(context.Background()); err != nil {
		t.Fatalf("first Establish failed: %v", err)
	}
	if err := s.Establish(context.Background()); !errors.Is(err, ErrAlreadyEstablished) {
		t.Errorf("second Establish = %v, want ErrAlreadyEstablished", err)
	}
}

func TestSend(t *testing.T) {
	s := newTestSession(t, &memLogger{}, &stubStage{name: "secure"})

	// Established gate: reject before and during setup.
	if err := s.Send([]byte("early")); !errors.Is(err, ErrNotEstablished) {
		t.Errorf("Send before Establish = %v, want ErrNotEstablished", err)
	}

	if err := s.Establish(context.Background()); err != nil {
		t.Fatalf("Establish failed: %v", err)
	}

	// No writer attached yet.
	if err := s.Send([]byte("no writer")); !errors.Is(err, ErrNotEstablished) {
		t.Errorf("Send without writer = %v, want ErrNotEstablished", err)
	}

	w := &memWriter{}
	s.AttachWriter(w)
	if err := s.Send([]byte("hello")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(w.frames) != 1 || string(w.frames[0]) != "hello" {
		t.Errorf("written frames = %q, want [hello]", w.frames)
	}
}

func TestHandshakeNotice(t *testing.T) {
	s := newTestSession(t, &memLogger{})

	if s.HandshakeNoticeRequested() {
		t.Error("notice requested on a fresh session")
	}
	s.RequestHandshakeNotice()
	if !s.HandshakeNoticeRequested() {
		t.Error("notice not recorded")
	}
}

func TestTLSState(t *testing.T) {
	withTLS := newTestSession(t, &memLogger{}, &stubStage{name: "secure", tls: true}, &stubStage{name: "obfs"})
	if err := withTLS.Establish(context.Background()); err != nil {
		t.Fatalf("Establish failed: %v", err)
	}
	cs, ok := withTLS.TLSState()
	if !ok {
		t.Fatal("TLSState not available on a pipeline with a secure stage")
	}
	if cs.Version != tls.VersionTLS13 {
		t.Errorf("Version = %x, want %x", cs.Version, tls.VersionTLS13)
	}

	withoutTLS := newTestSession(t, &memLogger{}, &stubStage{name: "obfs"})
	if err := withoutTLS.Establish(context.Background()); err != nil {
		t.Fatalf("Establish failed: %v", err)
	}
	if _, ok := withoutTLS.TLSState(); ok {
		t.Error("TLSState reported for a pipeline without a secure stage")
	}
}

func TestClose(t *testing.T) {
	logger := &memLogger{}
	s := newTestSession(t, logger, &stubStage{name: "secure"})

	if err := s.Establish(context.Background()); err != nil {
		t.Fatalf("Establish failed: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if s.State() != StateClosing {
		t.Errorf("state = %v, want %v", s.State(), StateClosing)
	}

	// Idempotent.
	if err := s.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestCloseFailedSessionKeepsFailedState(t *testing.T) {
	s := newTestSession(t, &memLogger{}, &stubStage{name: "secure", hsErr: errors.New("boom")})

	if err := s.Establish(context.Background()); err == nil {
		t.Fatal("Establish should have failed")
	}
	s.Close()
	if s.State() != StateFailed {
		t.Errorf("state after Close = %v, want %v", s.State(), StateFailed)
	}
}
