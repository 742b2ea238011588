// Package pipeline implements the per-connection stage chain.
//
// A stage wraps a net.Conn with one protocol layer. Stages are ordered,
// network side first, and applied in order by Build:
//
//	┌────────────────────────────────┐
//	│        Application             │
//	├────────────────────────────────┤
//	│   obfs (legacy masking)        │
//	├────────────────────────────────┤
//	│   secure (TLS)                 │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// Inbound bytes pass through the network-most stage first, so with the
// chain [secure, obfs] data is TLS-decrypted before it is de-masked.
// Outbound writes traverse the chain in reverse.
//
// A pipeline is mutable (Append, PushFront, InsertBefore) until Build
// runs; Build seals it. Mutation happens on the accepting goroutine
// before any I/O starts, so the pipeline itself carries no locks.
package pipeline
