package gate_test

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamgate-io/streamgate-go/internal/testcerts"
	"github.com/streamgate-io/streamgate-go/pkg/gate"
	"github.com/streamgate-io/streamgate-go/pkg/log"
	"github.com/streamgate-io/streamgate-go/pkg/obfs"
	"github.com/streamgate-io/streamgate-go/pkg/pipeline"
	"github.com/streamgate-io/streamgate-go/pkg/policy"
	"github.com/streamgate-io/streamgate-go/pkg/session"
	"github.com/streamgate-io/streamgate-go/pkg/trust"
)

// recordingApp captures app handler callbacks. The gate drives them
// synchronously, so no locking is needed.
type recordingApp struct {
	openErr error

	opened   []*session.Session
	payloads [][]byte
	closed   []error

	// Captured at open time, to verify bootstrap ordering.
	openPipeline []string
	openNotice   bool
}

func (a *recordingApp) OnSessionOpen(sess *session.Session) error {
	a.opened = append(a.opened, sess)
	a.openPipeline = sess.Pipeline().Names()
	a.openNotice = sess.HandshakeNoticeRequested()
	return a.openErr
}

func (a *recordingApp) OnSessionMessage(_ *session.Session, payload []byte) {
	a.payloads = append(a.payloads, append([]byte(nil), payload...))
}

func (a *recordingApp) OnSessionClose(_ *session.Session, err error) {
	a.closed = append(a.closed, err)
}

// captureLog collects protocol events for inspection.
type captureLog struct {
	mu     sync.Mutex
	events []log.Event
}

func (l *captureLog) Log(e log.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *captureLog) byCategory(c log.Category) []log.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []log.Event
	for _, e := range l.events {
		if e.Category == c {
			out = append(out, e)
		}
	}
	return out
}

// newSession builds an unestablished server-role session over a pipe.
func newSession(t *testing.T, stages ...pipeline.Stage) *session.Session {
	t.Helper()

	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})

	p, err := pipeline.New(stages...)
	require.NoError(t, err)

	return session.New(server, session.Config{
		ID:       "sess-gate-test",
		Role:     log.RoleServer,
		Pipeline: p,
	})
}

func obfsStage(t *testing.T, mode obfs.Mode) *obfs.Stage {
	t.Helper()
	stage, err := obfs.NewStage([]byte("0123456789abcdef"), mode)
	require.NoError(t, err)
	return stage
}

func serverPolicy(t *testing.T) *policy.Policy {
	t.Helper()
	p, err := policy.New(policy.Config{Role: policy.RoleServer})
	require.NoError(t, err)
	return p
}

// configuredGate builds a gate whose trust stores exist on disk.
func configuredGate(t *testing.T, app gate.AppHandler, logger log.Logger) *gate.Gate {
	t.Helper()

	auth := testcerts.NewAuthority(t, "Gate Test CA")
	cfg := testcerts.ServerStores(t, t.TempDir(), auth)

	g, err := gate.New(gate.Config{
		Trust:  trust.NewLoader(cfg),
		Policy: serverPolicy(t),
		App:    app,
		Logger: logger,
	})
	require.NoError(t, err)
	return g
}

func TestNewValidation(t *testing.T) {
	auth := testcerts.NewAuthority(t, "Gate Test CA")
	cfg := testcerts.ServerStores(t, t.TempDir(), auth)
	loader := trust.NewLoader(cfg)
	pol := serverPolicy(t)
	app := &recordingApp{}

	tests := []struct {
		name string
		cfg  gate.Config
	}{
		{
			name: "missing trust",
			cfg:  gate.Config{Policy: pol, App: app},
		},
		{
			name: "missing policy",
			cfg:  gate.Config{Trust: loader, App: app},
		},
		{
			name: "missing app",
			cfg:  gate.Config{Trust: loader, Policy: pol},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gate.New(tt.cfg)
			assert.Error(t, err)
		})
	}

	g, err := gate.New(gate.Config{Trust: loader, Policy: pol, App: app})
	require.NoError(t, err)
	assert.NotNil(t, g)
}

// TestBootstrapInsertsSecureStage verifies the full bootstrap order:
// trust load, stage insertion in front of the masking stage, notice
// mark, then app open.
func TestBootstrapInsertsSecureStage(t *testing.T) {
	app := &recordingApp{}
	g := configuredGate(t, app, nil)
	sess := newSession(t, obfsStage(t, obfs.ModeServer))

	err := g.OnConnectionEstablished(sess)
	require.NoError(t, err)

	// The app saw the session exactly once, with the pipeline and the
	// notice mark already in place.
	require.Len(t, app.opened, 1)
	assert.Same(t, sess, app.opened[0])
	assert.Equal(t, []string{gate.StageName, obfs.StageName}, app.openPipeline)
	assert.True(t, app.openNotice)
}

func TestBootstrapUnconfiguredTrust(t *testing.T) {
	app := &recordingApp{}
	logger := &captureLog{}

	g, err := gate.New(gate.Config{
		Trust:  trust.NewLoader(trust.Config{}),
		Policy: serverPolicy(t),
		App:    app,
		Logger: logger,
	})
	require.NoError(t, err)

	sess := newSession(t, obfsStage(t, obfs.ModeServer))
	err = g.OnConnectionEstablished(sess)
	require.ErrorIs(t, err, trust.ErrNotConfigured)

	// No insecure fallback: the app never sees the session and the
	// pipeline gained no stage.
	assert.Empty(t, app.opened)
	assert.False(t, sess.Pipeline().Contains(gate.StageName))

	// The refusal is recorded.
	errs := logger.byCategory(log.CategoryError)
	require.Len(t, errs, 1)
	assert.Equal(t, "sess-gate-test", errs[0].ConnectionID)
}

func TestBootstrapMissingStoreFile(t *testing.T) {
	app := &recordingApp{}
	dir := t.TempDir()

	missing := filepath.Join(dir, "keystore.p12")
	g, err := gate.New(gate.Config{
		Trust: trust.NewLoader(trust.Config{
			KeystorePath:       missing,
			KeystorePassword:   testcerts.Password,
			TruststorePath:     filepath.Join(dir, "truststore.p12"),
			TruststorePassword: testcerts.Password,
		}),
		Policy: serverPolicy(t),
		App:    app,
	})
	require.NoError(t, err)

	sess := newSession(t, obfsStage(t, obfs.ModeServer))
	err = g.OnConnectionEstablished(sess)
	require.ErrorIs(t, err, trust.ErrMissingFile)

	// The error names the offending path and never the password.
	assert.Contains(t, err.Error(), missing)
	assert.NotContains(t, err.Error(), testcerts.Password)
	assert.Empty(t, app.opened)
}

func TestBootstrapMissingTargetStage(t *testing.T) {
	app := &recordingApp{}
	g := configuredGate(t, app, nil)

	// Pipeline without the masking stage the gate expects.
	sess := newSession(t)

	err := g.OnConnectionEstablished(sess)
	require.ErrorIs(t, err, pipeline.ErrStageNotFound)
	assert.Empty(t, app.opened)
}

func TestBootstrapPushFront(t *testing.T) {
	app := &recordingApp{}

	auth := testcerts.NewAuthority(t, "Gate Test CA")
	cfg := testcerts.ServerStores(t, t.TempDir(), auth)

	g, err := gate.New(gate.Config{
		Trust:     trust.NewLoader(cfg),
		Policy:    serverPolicy(t),
		App:       app,
		PushFront: true,
	})
	require.NoError(t, err)

	sess := newSession(t)
	err = g.OnConnectionEstablished(sess)
	require.NoError(t, err)
	assert.Equal(t, []string{gate.StageName}, app.openPipeline)
}

func TestBootstrapAppRefusal(t *testing.T) {
	app := &recordingApp{openErr: errors.New("session table full")}
	g := configuredGate(t, app, nil)
	sess := newSession(t, obfsStage(t, obfs.ModeServer))

	err := g.OnConnectionEstablished(sess)
	require.ErrorIs(t, err, app.openErr)

	// Bootstrap itself succeeded; only the app refused.
	assert.True(t, sess.Pipeline().Contains(gate.StageName))
}

// TestBootstrapSharedMaterial verifies two sessions share one Material
// build.
func TestBootstrapSharedMaterial(t *testing.T) {
	app := &recordingApp{}

	auth := testcerts.NewAuthority(t, "Gate Test CA")
	cfg := testcerts.ServerStores(t, t.TempDir(), auth)
	loader := trust.NewLoader(cfg)

	g, err := gate.New(gate.Config{
		Trust:  loader,
		Policy: serverPolicy(t),
		App:    app,
	})
	require.NoError(t, err)

	first := newSession(t, obfsStage(t, obfs.ModeServer))
	second := newSession(t, obfsStage(t, obfs.ModeServer))
	require.NoError(t, g.OnConnectionEstablished(first))
	require.NoError(t, g.OnConnectionEstablished(second))

	m1, err := loader.Material()
	require.NoError(t, err)
	m2, err := loader.Material()
	require.NoError(t, err)
	assert.Same(t, m1, m2)
}

// TestRouterControlNotForwarded verifies control events are consumed
// and recorded while data passes through in order.
func TestRouterControlNotForwarded(t *testing.T) {
	app := &recordingApp{}
	logger := &captureLog{}
	g := configuredGate(t, app, logger)

	sess := newSession(t)
	require.NoError(t, sess.Establish(context.Background()))

	g.OnMessage(sess, session.ControlEvent{Kind: session.ControlHandshakeDone, Detail: "TLS 1.3"})
	g.OnMessage(sess, session.DataEvent{Payload: []byte("one")})
	g.OnMessage(sess, session.DataEvent{Payload: []byte("two")})
	g.OnMessage(sess, session.DataEvent{Payload: []byte("three")})

	// The app saw exactly the three payloads, in order.
	require.Len(t, app.payloads, 3)
	assert.Equal(t, "one", string(app.payloads[0]))
	assert.Equal(t, "two", string(app.payloads[1]))
	assert.Equal(t, "three", string(app.payloads[2]))

	// The control event left a notice record.
	notices := logger.byCategory(log.CategoryControl)
	require.Len(t, notices, 1)
	require.NotNil(t, notices[0].Notice)
	assert.Equal(t, log.NoticeHandshakeDone, notices[0].Notice.Kind)
	assert.Equal(t, "TLS 1.3", notices[0].Notice.Detail)
}

func TestRouterClosingNoticeRecorded(t *testing.T) {
	app := &recordingApp{}
	logger := &captureLog{}
	g := configuredGate(t, app, logger)

	sess := newSession(t)
	require.NoError(t, sess.Establish(context.Background()))

	g.OnMessage(sess, session.ControlEvent{Kind: session.ControlClosing})

	assert.Empty(t, app.payloads)
	notices := logger.byCategory(log.CategoryControl)
	require.Len(t, notices, 1)
	assert.Equal(t, log.NoticeClosing, notices[0].Notice.Kind)
}

// TestRouterDataOutsideEstablished verifies data on an unestablished
// session is dropped and recorded, never forwarded.
func TestRouterDataOutsideEstablished(t *testing.T) {
	app := &recordingApp{}
	logger := &captureLog{}
	g := configuredGate(t, app, logger)

	sess := newSession(t)

	g.OnMessage(sess, session.DataEvent{Payload: []byte("early")})

	assert.Empty(t, app.payloads)
	errs := logger.byCategory(log.CategoryError)
	require.Len(t, errs, 1)
	require.NotNil(t, errs[0].Error)
	assert.Contains(t, errs[0].Error.Context, session.StateUninitialized.String())
}

func TestOnConnectionClosedDelegates(t *testing.T) {
	app := &recordingApp{}
	g := configuredGate(t, app, nil)
	sess := newSession(t)

	cause := errors.New("broken pipe")
	g.OnConnectionClosed(sess, cause)
	g.OnConnectionClosed(sess, nil)

	require.Len(t, app.closed, 2)
	assert.ErrorIs(t, app.closed[0], cause)
	assert.NoError(t, app.closed[1])
}
