// Package transport provides StreamGate's framed TCP transport.
//
// The transport layer handles:
//   - The accept loop and per-connection goroutines
//   - Pipeline establishment (session bootstrap, then stage handshakes)
//   - Length-prefixed message framing
//   - The read loops that feed session handlers
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│      Application Messages      │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	├────────────────────────────────┤
//	│     Stage Pipeline (TLS,       │
//	│     legacy obfuscation)        │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// The transport owns every goroutine. Handlers are invoked on the
// session's goroutine, one event at a time, in arrival order; handler
// code never needs its own synchronization for per-session state.
//
// # Lifecycle
//
// For every accepted or dialed connection, in order:
//   - Handler.OnConnectionEstablished, exactly once, before any read.
//     A non-nil error closes the raw conn; no session exists and no
//     further callbacks fire.
//   - Session.Establish: the stage pipeline is built and handshakes
//     run, network side first. Failure tears the connection down.
//   - The handshake notice (a control event) when the bootstrap
//     requested one.
//   - The framed read loop. Each frame becomes a data event.
//   - Handler.OnConnectionClosed, exactly once, with nil on orderly
//     shutdown.
package transport
