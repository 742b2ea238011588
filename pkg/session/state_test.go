package session

import "testing"

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateUninitialized, "UNINITIALIZED"},
		{StateHandshaking, "HANDSHAKING"},
		{StateEstablished, "ESTABLISHED"},
		{StateClosing, "CLOSING"},
		{StateFailed, "FAILED"},
		{State(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		got := tt.state.String()
		if got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestLegalTransitions(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
		want bool
	}{
		{"uninitialized to handshaking", StateUninitialized, StateHandshaking, true},
		{"uninitialized to failed", StateUninitialized, StateFailed, true},
		{"uninitialized to established", StateUninitialized, StateEstablished, false},
		{"uninitialized to closing", StateUninitialized, StateClosing, false},
		{"handshaking to established", StateHandshaking, StateEstablished, true},
		{"handshaking to failed", StateHandshaking, StateFailed, true},
		{"handshaking to closing", StateHandshaking, StateClosing, false},
		{"established to closing", StateEstablished, StateClosing, true},
		{"established to failed", StateEstablished, StateFailed, true},
		{"established to handshaking", StateEstablished, StateHandshaking, false},
		{"closing is terminal", StateClosing, StateEstablished, false},
		{"failed is terminal", StateFailed, StateHandshaking, false},
		{"failed stays failed", StateFailed, StateClosing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := legal(tt.from, tt.to); got != tt.want {
				t.Errorf("legal(%v, %v) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestControlKindString(t *testing.T) {
	tests := []struct {
		kind ControlKind
		want string
	}{
		{ControlHandshakeDone, "HANDSHAKE_DONE"},
		{ControlClosing, "CLOSING"},
		{ControlKind(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		got := tt.kind.String()
		if got != tt.want {
			t.Errorf("ControlKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
