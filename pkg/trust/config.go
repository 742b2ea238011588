package trust

// Config locates the PKCS#12 stores the gate authenticates with.
// A Config is immutable once handed to a Loader.
type Config struct {
	// KeystorePath is the PKCS#12 file holding the gate's certificate
	// chain and private key.
	KeystorePath string

	// KeystorePassword decrypts the keystore. It never appears in
	// errors or log events.
	KeystorePassword string

	// TruststorePath is the PKCS#12 file holding the trusted CA set.
	TruststorePath string

	// TruststorePassword decrypts the truststore. It never appears in
	// errors or log events.
	TruststorePassword string
}

// Configured reports whether both store paths are set. An unconfigured
// gate refuses sessions; there is no plaintext fallback.
func (c Config) Configured() bool {
	return c.KeystorePath != "" && c.TruststorePath != ""
}
