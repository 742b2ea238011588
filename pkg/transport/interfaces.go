package transport

import "github.com/streamgate-io/streamgate-go/pkg/session"

// FrameReadWriter provides length-prefixed frame I/O.
// Implemented by Framer.
type FrameReadWriter interface {
	// ReadFrame reads a length-prefixed frame.
	ReadFrame() ([]byte, error)

	// WriteFrame writes a length-prefixed frame.
	WriteFrame(data []byte) error
}

// Compile-time interface satisfaction checks.
var (
	_ FrameReadWriter     = (*Framer)(nil)
	_ session.FrameWriter = (*Framer)(nil)
	_ session.FrameWriter = (*FrameWriter)(nil)
)
