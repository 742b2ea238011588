// Package obfs implements the legacy payload-masking stage.
//
// Legacy streaming clients mask every payload byte with a symmetric
// keystream negotiated out of band (a shared key in the gate's config).
// The gate keeps this stage in every session's pipeline, downstream of
// TLS, so legacy endpoints interoperate unchanged:
//
//	network → secure (TLS) → obfs → application
//
// Masking uses AES-CTR keystreams derived from the shared key with
// HKDF-SHA256, one keystream per direction ("c2s", "s2c"). The server
// role reads the c2s stream and writes the s2c stream; the client role
// mirrors. There are no negotiation round-trips, no per-connection
// salt, and no nonces: every connection under a given key replays the
// exact same two keystreams. That makes this stage compatibility
// masking, not a security layer; it provides no confidentiality on its
// own. Confidentiality and integrity come from the TLS stage on the
// network side of the chain.
package obfs
