package examples

import (
	"sync"

	"github.com/streamgate-io/streamgate-go/pkg/gate"
	"github.com/streamgate-io/streamgate-go/pkg/session"
)

// Echo is a reference handler that returns every payload to its
// sender. The daemon uses it as the default application.
type Echo struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
}

// NewEcho creates an echo handler.
func NewEcho() *Echo {
	return &Echo{sessions: make(map[string]*session.Session)}
}

// OnSessionOpen admits every session.
func (e *Echo) OnSessionOpen(sess *session.Session) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessions[sess.ID()] = sess
	return nil
}

// OnSessionMessage writes the payload back on the same session. Write
// failures surface through the transport's close path, not here.
func (e *Echo) OnSessionMessage(sess *session.Session, payload []byte) {
	_ = sess.Send(payload)
}

// OnSessionClose forgets the session.
func (e *Echo) OnSessionClose(sess *session.Session, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sessions, sess.ID())
}

// SessionCount returns the number of open sessions.
func (e *Echo) SessionCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

var _ gate.AppHandler = (*Echo)(nil)
