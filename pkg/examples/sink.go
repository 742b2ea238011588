package examples

import (
	"sync/atomic"

	"github.com/streamgate-io/streamgate-go/pkg/gate"
	"github.com/streamgate-io/streamgate-go/pkg/session"
)

// Sink discards every payload, counting messages and bytes. Useful for
// throughput probes and as the minimal handler skeleton.
type Sink struct {
	messages atomic.Uint64
	bytes    atomic.Uint64
}

// NewSink creates a sink handler.
func NewSink() *Sink {
	return &Sink{}
}

// OnSessionOpen admits every session.
func (s *Sink) OnSessionOpen(sess *session.Session) error {
	return nil
}

// OnSessionMessage counts the payload and drops it.
func (s *Sink) OnSessionMessage(sess *session.Session, payload []byte) {
	s.messages.Add(1)
	s.bytes.Add(uint64(len(payload)))
}

// OnSessionClose is a no-op.
func (s *Sink) OnSessionClose(sess *session.Session, err error) {}

// Messages returns the number of payloads received.
func (s *Sink) Messages() uint64 {
	return s.messages.Load()
}

// Bytes returns the total payload bytes received.
func (s *Sink) Bytes() uint64 {
	return s.bytes.Load()
}

var _ gate.AppHandler = (*Sink)(nil)
