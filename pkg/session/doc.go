// Package session models one accepted or dialed connection: the stage
// pipeline built over the raw conn, the framed messages flowing through
// it, and the observed lifecycle state machine.
//
// The state machine is observed, not driven. The secure stage inside
// the pipeline performs the actual handshake; the session only records
// where the connection is, so handlers and protocol logs see one
// consistent lifecycle:
//
//	UNINITIALIZED ──> HANDSHAKING ──> ESTABLISHED ──> CLOSING
//	      │                │               │
//	      └────────────────┴───────────────┴────────> FAILED
//
// CLOSING and FAILED are terminal. No application data crosses a
// session that is not ESTABLISHED.
package session
