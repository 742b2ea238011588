// Package log provides structured protocol logging for the gate.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at multiple layers (transport, secure, session).
// It is separate from operational logging (slog) - protocol capture provides
// a complete machine-readable event trace for debugging and analysis.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.Logger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.Logger, _ = log.NewFileLogger("/var/log/streamgate/gate.sglog")
//
//	// Both: use MultiLogger
//	cfg.Logger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    log.NewFileLogger("/var/log/streamgate/gate.sglog"),
//	)
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Transport: Raw frame bytes (FrameEvent)
//   - Secure: Completed handshakes (HandshakeEvent)
//   - Session: State changes (StateChangeEvent) and consumed control
//     notices (NoticeEvent)
//
// Errors at any layer use a dedicated event type. Handshake events carry
// negotiated parameters only; credentials never reach the log.
//
// # File Format
//
// Log files use CBOR encoding with .sglog extension. The streamgate-log
// CLI tool provides viewing, filtering, and export capabilities.
package log
