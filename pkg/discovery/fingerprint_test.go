package discovery_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamgate-io/streamgate-go/internal/testcerts"
	"github.com/streamgate-io/streamgate-go/pkg/discovery"
	"github.com/streamgate-io/streamgate-go/pkg/trust"
)

func TestFingerprint(t *testing.T) {
	fp := discovery.Fingerprint([]byte("certificate der bytes"))

	assert.Len(t, fp, discovery.FingerprintLength)
	assert.True(t, discovery.ValidateFingerprint(fp))

	// Deterministic
	assert.Equal(t, fp, discovery.Fingerprint([]byte("certificate der bytes")))

	// Different input, different fingerprint
	assert.NotEqual(t, fp, discovery.Fingerprint([]byte("other der bytes")))
}

// The discovery fingerprint must be a prefix of the full trust material
// fingerprint so probes can match a browsed gate against the leaf
// certificate presented during the handshake.
func TestFingerprintMatchesTrustMaterial(t *testing.T) {
	auth := testcerts.NewAuthority(t, "Discovery Test CA")
	loader := trust.NewLoader(testcerts.ServerStores(t, t.TempDir(), auth))

	material, err := loader.Material()
	require.NoError(t, err)

	fp := discovery.Fingerprint(material.Leaf.Raw)
	assert.Equal(t, material.LeafFingerprint()[:discovery.FingerprintLength], fp)
}

func TestValidateFingerprint(t *testing.T) {
	tests := []struct {
		name string
		fp   string
		want bool
	}{
		{"valid lowercase", "a1b2c3d4e5f6a7b8", true},
		{"valid uppercase", "A1B2C3D4E5F6A7B8", true},
		{"valid digits", "0123456789012345", true},
		{"too short", "a1b2c3d4", false},
		{"too long", "a1b2c3d4e5f6a7b8c9d0", false},
		{"non-hex chars", "g1b2c3d4e5f6a7b8", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, discovery.ValidateFingerprint(tt.fp))
		})
	}
}
