// Package config loads the daemon configuration file.
//
// The file is YAML. Parsing is strict: unknown keys fail the load, as
// do unknown policy role, cipher suite, or protocol version names. A
// Config in hand passed validation.
package config

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/streamgate-io/streamgate-go/pkg/discovery"
	"github.com/streamgate-io/streamgate-go/pkg/obfs"
	"github.com/streamgate-io/streamgate-go/pkg/policy"
	"github.com/streamgate-io/streamgate-go/pkg/transport"
	"github.com/streamgate-io/streamgate-go/pkg/trust"
)

// Config errors.
var (
	// ErrUnknownRole indicates a policy role name that is neither
	// "server" nor "client".
	ErrUnknownRole = errors.New("unknown policy role")

	// ErrInvalidKey indicates a malformed or too-short obfuscation key.
	ErrInvalidKey = errors.New("invalid obfuscation key")

	// ErrPartialTrust indicates only one of the two store paths is set.
	ErrPartialTrust = errors.New("keystore and truststore must be configured together")
)

// Config holds the daemon configuration.
type Config struct {
	// Listen is the TCP listen address. Default ":8443".
	Listen string `yaml:"listen"`

	// MaxMessageSize bounds framed payloads in bytes. Zero keeps the
	// transport default (64 KB).
	MaxMessageSize uint32 `yaml:"max_message_size"`

	Trust       TrustConfig       `yaml:"trust"`
	Policy      PolicyConfig      `yaml:"policy"`
	Obfuscation ObfuscationConfig `yaml:"obfuscation"`
	Log         LogConfig         `yaml:"log"`
	Discovery   DiscoveryConfig   `yaml:"discovery"`
}

// TrustConfig locates the PKCS#12 stores.
type TrustConfig struct {
	Keystore           string `yaml:"keystore"`
	KeystorePassword   string `yaml:"keystore_password"`
	Truststore         string `yaml:"truststore"`
	TruststorePassword string `yaml:"truststore_password"`
}

// PolicyConfig is the file form of the transport policy.
type PolicyConfig struct {
	// Role is "server" (default) or "client".
	Role string `yaml:"role"`

	WantClientAuth bool `yaml:"want_client_auth"`
	NeedClientAuth bool `yaml:"need_client_auth"`

	// CipherSuites pins suites by their standard names. Empty keeps
	// the platform defaults.
	CipherSuites []string `yaml:"cipher_suites"`

	// ProtocolVersions pins TLS versions by name ("1.2", "TLSv1.3").
	ProtocolVersions []string `yaml:"protocol_versions"`

	// ServerName is the peer name verified in client-role handshakes.
	ServerName string `yaml:"server_name"`
}

// ObfuscationConfig controls the masking stage.
type ObfuscationConfig struct {
	Enabled bool `yaml:"enabled"`

	// Key is the hex-encoded obfuscation key, at least 16 bytes
	// (32 hex chars) when enabled.
	Key string `yaml:"key"`
}

// LogConfig controls protocol logging.
type LogConfig struct {
	// Path is the protocol log file. Empty disables file logging.
	Path string `yaml:"path"`

	// Debug additionally mirrors events to stderr.
	Debug bool `yaml:"debug"`
}

// DiscoveryConfig controls mDNS announcement.
type DiscoveryConfig struct {
	Enabled bool `yaml:"enabled"`

	// InstanceName overrides the default "streamgate-<fingerprint>"
	// announcement name.
	InstanceName string `yaml:"instance_name"`

	// Interface restricts announcement to one network interface.
	Interface string `yaml:"interface"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Listen: fmt.Sprintf(":%d", transport.DefaultPort),
	}
}

// Load reads and parses the configuration file, then validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse parses configuration bytes over the defaults and validates the
// result. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}
	if cfg.Listen == "" {
		cfg.Listen = Default().Listen
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every block, delegating to the trust and policy
// packages for their own rules.
func (c *Config) Validate() error {
	if (c.Trust.Keystore == "") != (c.Trust.Truststore == "") {
		return ErrPartialTrust
	}

	pcfg, err := c.PolicyConfig()
	if err != nil {
		return err
	}
	if err := pcfg.Validate(); err != nil {
		return err
	}

	if c.Obfuscation.Enabled {
		if _, err := c.ObfuscationKey(); err != nil {
			return err
		}
	}

	if c.Discovery.Enabled && c.Discovery.InstanceName != "" {
		if err := discovery.ValidateInstanceName(c.Discovery.InstanceName); err != nil {
			return err
		}
	}

	return nil
}

// TrustConfig converts the trust block.
func (c *Config) TrustConfig() trust.Config {
	return trust.Config{
		KeystorePath:       c.Trust.Keystore,
		KeystorePassword:   c.Trust.KeystorePassword,
		TruststorePath:     c.Trust.Truststore,
		TruststorePassword: c.Trust.TruststorePassword,
	}
}

// PolicyConfig converts the policy block.
func (c *Config) PolicyConfig() (policy.Config, error) {
	role, err := parseRole(c.Policy.Role)
	if err != nil {
		return policy.Config{}, err
	}

	return policy.Config{
		Role:             role,
		WantClientAuth:   c.Policy.WantClientAuth,
		NeedClientAuth:   c.Policy.NeedClientAuth,
		CipherSuites:     c.Policy.CipherSuites,
		ProtocolVersions: c.Policy.ProtocolVersions,
		ServerName:       c.Policy.ServerName,
	}, nil
}

// ObfuscationKey decodes the hex key from the obfuscation block.
// Returns nil when obfuscation is disabled.
func (c *Config) ObfuscationKey() ([]byte, error) {
	if !c.Obfuscation.Enabled {
		return nil, nil
	}

	key, err := hex.DecodeString(c.Obfuscation.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: not hex encoded", ErrInvalidKey)
	}
	if len(key) < obfs.MinKeySize {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrInvalidKey, obfs.MinKeySize, len(key))
	}
	return key, nil
}

func parseRole(name string) (policy.HandshakeRole, error) {
	switch strings.ToLower(name) {
	case "", "server":
		return policy.RoleServer, nil
	case "client":
		return policy.RoleClient, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownRole, name)
	}
}
