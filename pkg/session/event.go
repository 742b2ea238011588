package session

// ControlKind identifies transport control traffic. Control events are
// consumed by the session handler and never reach application code.
type ControlKind uint8

const (
	// ControlHandshakeDone signals that the secure handshake completed
	// on a session that asked for the notification.
	ControlHandshakeDone ControlKind = iota

	// ControlClosing signals an orderly shutdown.
	ControlClosing
)

// String returns the control kind name.
func (k ControlKind) String() string {
	switch k {
	case ControlHandshakeDone:
		return "HANDSHAKE_DONE"
	case ControlClosing:
		return "CLOSING"
	default:
		return "UNKNOWN"
	}
}

// Event is one unit of inbound traffic handed to a Handler.
type Event interface {
	isEvent()
}

// ControlEvent is transport control traffic.
type ControlEvent struct {
	Kind   ControlKind
	Detail string
}

func (ControlEvent) isEvent() {}

// DataEvent is an opaque application message.
type DataEvent struct {
	Payload []byte
}

func (DataEvent) isEvent() {}

// Handler receives session lifecycle callbacks from the transport. The
// transport owns the goroutines; all callbacks for one session run on
// that session's goroutine.
type Handler interface {
	// OnConnectionEstablished is called exactly once per connection,
	// before the handshake runs and before any read. A non-nil error
	// aborts the session.
	OnConnectionEstablished(s *Session) error

	// OnMessage is called for every inbound event, in arrival order.
	OnMessage(s *Session, event Event)

	// OnConnectionClosed is called exactly once when the session ends.
	// err is nil for an orderly shutdown.
	OnConnectionClosed(s *Session, err error)
}
