// Package gate implements the secure session front-end: a session
// bootstrapper and a message router wrapped around an application
// handler.
//
// The gate sits between the transport and the application. For every
// accepted connection the transport calls the gate exactly once, before
// any read, and the gate prepares the session's stage pipeline:
//
//	Application (AppHandler)
//	      |
//	   [ gate ]  bootstrap + routing
//	      |
//	  secure (TLS)   <- inserted by the gate
//	      |
//	  obfs (legacy masking)
//	      |
//	     TCP
//
// Bootstrap runs these steps in order, and any failure prevents the
// session from opening:
//
//  1. Refuse unconfigured trust stores. There is no plaintext fallback;
//     a gate without trust material accepts no sessions.
//  2. Load the trust material (cached after the first success).
//  3. Build the secure stage from the policy and the material.
//  4. Insert the secure stage immediately on the network side of the
//     configured masking stage, so inbound bytes are decrypted before
//     the legacy stage sees them.
//  5. Mark the session for handshake-completion notification.
//  6. Hand the session to the application's OnSessionOpen.
//
// After establishment the gate routes events: control notices are
// consumed and recorded in the protocol log, never forwarded; data
// payloads are forwarded to the application unchanged, synchronously,
// in arrival order.
package gate
