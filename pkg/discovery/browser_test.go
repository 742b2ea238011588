package discovery_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamgate-io/streamgate-go/pkg/discovery"
)

func TestServiceEntryToGate(t *testing.T) {
	entry := &discovery.ServiceEntry{
		Instance: "streamgate-a1b2c3d4",
		Host:     "gate-01.local.",
		Port:     8443,
		Text:     []string{"fp=a1b2c3d4e5f6a7b8", "tv=TLSv1.3", "ca=NONE"},
		Addrs:    []string{"192.168.1.10", "fe80::1"},
	}

	gate, err := entry.ToGate()
	require.NoError(t, err)

	assert.Equal(t, "streamgate-a1b2c3d4", gate.InstanceName)
	assert.Equal(t, "gate-01.local.", gate.Host)
	assert.Equal(t, uint16(8443), gate.Port)
	assert.Equal(t, []string{"192.168.1.10", "fe80::1"}, gate.Addresses)
	assert.Equal(t, "a1b2c3d4e5f6a7b8", gate.Fingerprint)
	assert.Equal(t, "TLSv1.3", gate.TLSVersion)
	assert.Equal(t, "NONE", gate.ClientAuth)
}

func TestServiceEntryToGateRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		text []string
		want error
	}{
		{"no fingerprint", []string{"tv=TLSv1.3"}, discovery.ErrMissingRequired},
		{"bad fingerprint", []string{"fp=nothex!"}, discovery.ErrInvalidFingerprint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &discovery.ServiceEntry{
				Instance: "streamgate-bad",
				Host:     "gate-02.local.",
				Port:     8443,
				Text:     tt.text,
			}

			_, err := entry.ToGate()
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
