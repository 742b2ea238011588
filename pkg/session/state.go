package session

// State is the observed lifecycle position of a session.
type State uint8

const (
	// StateUninitialized is a session whose pipeline has not been built.
	StateUninitialized State = iota

	// StateHandshaking means the pipeline is being built and the stage
	// handshakes are running.
	StateHandshaking

	// StateEstablished means every stage handshake completed and
	// application data may flow.
	StateEstablished

	// StateClosing means an orderly shutdown is in progress.
	StateClosing

	// StateFailed means the session died during setup, handshake, or
	// from a transport error.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateHandshaking:
		return "HANDSHAKING"
	case StateEstablished:
		return "ESTABLISHED"
	case StateClosing:
		return "CLOSING"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// legal reports whether from -> to is part of the session lifecycle.
func legal(from, to State) bool {
	switch from {
	case StateUninitialized:
		return to == StateHandshaking || to == StateFailed
	case StateHandshaking:
		return to == StateEstablished || to == StateFailed
	case StateEstablished:
		return to == StateClosing || to == StateFailed
	default:
		// CLOSING and FAILED are terminal.
		return false
	}
}
