package log

import (
	"time"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the session (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// LocalRole indicates which handshake side captured the event.
	LocalRole Role `cbor:"6,keyasint,omitempty"`

	// RemoteAddr is the peer address (IP:port).
	RemoteAddr string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (exactly one of these is set).
	Frame       *FrameEvent       `cbor:"8,keyasint,omitempty"`  // Transport layer frames
	Handshake   *HandshakeEvent   `cbor:"9,keyasint,omitempty"`  // Secure layer handshakes
	StateChange *StateChangeEvent `cbor:"10,keyasint,omitempty"` // Session lifecycle
	Notice      *NoticeEvent      `cbor:"11,keyasint,omitempty"` // Consumed control notices
	Error       *ErrorEventData   `cbor:"12,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw frames on the built chain).
	LayerTransport Layer = 0
	// LayerSecure is the TLS stage.
	LayerSecure Layer = 1
	// LayerSession is the session lifecycle and routing layer.
	LayerSession Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerSecure:
		return "SECURE"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates an application payload.
	CategoryMessage Category = 0
	// CategoryControl indicates transport control traffic (handshake
	// completion, closing notices).
	CategoryControl Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryControl:
		return "CONTROL"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Role indicates which handshake side the local endpoint plays.
type Role uint8

const (
	// RoleServer indicates the terminating side.
	RoleServer Role = 0
	// RoleClient indicates the originating side.
	RoleClient Role = 1
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleServer:
		return "SERVER"
	case RoleClient:
		return "CLIENT"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes (including length prefix).
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// HandshakeEvent captures the parameters of a completed TLS handshake.
// It never carries key material or store credentials.
type HandshakeEvent struct {
	// Version is the negotiated protocol version name.
	Version string `cbor:"1,keyasint"`

	// CipherSuite is the negotiated suite name.
	CipherSuite string `cbor:"2,keyasint"`

	// PeerSubject is the subject of the peer's leaf certificate, when
	// one was presented.
	PeerSubject string `cbor:"3,keyasint,omitempty"`

	// Resumed indicates a resumed TLS session.
	Resumed bool `cbor:"4,keyasint,omitempty"`
}

// StateChangeEvent captures session lifecycle transitions.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// NoticeEvent records a control notice the router consumed. Notices are
// never forwarded to the application handler; this event is their only
// trace.
type NoticeEvent struct {
	// Kind of notice.
	Kind NoticeKind `cbor:"1,keyasint"`

	// Detail carries optional free-form context.
	Detail string `cbor:"2,keyasint,omitempty"`
}

// NoticeKind indicates the type of consumed control notice.
type NoticeKind uint8

const (
	// NoticeHandshakeDone indicates a completed secure handshake.
	NoticeHandshakeDone NoticeKind = 0
	// NoticeClosing indicates an orderly session close.
	NoticeClosing NoticeKind = 1
)

// String returns the notice kind name.
func (k NoticeKind) String() string {
	switch k {
	case NoticeHandshakeDone:
		return "HANDSHAKE_DONE"
	case NoticeClosing:
		return "CLOSING"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
