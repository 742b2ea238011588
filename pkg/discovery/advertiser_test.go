package discovery_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/streamgate-io/streamgate-go/pkg/discovery"
)

func TestInfoValidate(t *testing.T) {
	tests := []struct {
		name string
		info discovery.Info
		want error
	}{
		{
			name: "valid",
			info: discovery.Info{InstanceName: "streamgate-a1b2c3d4", Fingerprint: "a1b2c3d4e5f6a7b8"},
			want: nil,
		},
		{
			name: "missing instance name",
			info: discovery.Info{Fingerprint: "a1b2c3d4e5f6a7b8"},
			want: discovery.ErrMissingRequired,
		},
		{
			name: "instance name too long",
			info: discovery.Info{
				InstanceName: "streamgate-0123456789012345678901234567890123456789012345678901234567890123456789",
				Fingerprint:  "a1b2c3d4e5f6a7b8",
			},
			want: discovery.ErrInstanceNameTooLong,
		},
		{
			name: "missing fingerprint",
			info: discovery.Info{InstanceName: "streamgate-a1b2c3d4"},
			want: discovery.ErrInvalidFingerprint,
		},
		{
			name: "malformed fingerprint",
			info: discovery.Info{InstanceName: "streamgate-a1b2c3d4", Fingerprint: "short"},
			want: discovery.ErrInvalidFingerprint,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.info.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestDefaultAdvertiserConfig(t *testing.T) {
	config := discovery.DefaultAdvertiserConfig()

	assert.Equal(t, 120*time.Second, config.TTL)
	assert.Empty(t, config.Interface)
}

func TestAdvertiseRejectsInvalidInfo(t *testing.T) {
	adv := discovery.NewAdvertiser(discovery.DefaultAdvertiserConfig())
	defer adv.Shutdown()

	err := adv.Advertise(&discovery.Info{InstanceName: "streamgate-x"})
	assert.ErrorIs(t, err, discovery.ErrInvalidFingerprint)
	assert.Empty(t, adv.InstanceName())
}

func TestUpdateWithoutAnnouncement(t *testing.T) {
	adv := discovery.NewAdvertiser(discovery.DefaultAdvertiserConfig())
	defer adv.Shutdown()

	err := adv.Update(&discovery.Info{
		InstanceName: "streamgate-a1b2c3d4",
		Fingerprint:  "a1b2c3d4e5f6a7b8",
	})
	assert.ErrorIs(t, err, discovery.ErrNotAdvertising)
}

func TestShutdownWithoutAnnouncement(t *testing.T) {
	adv := discovery.NewAdvertiser(discovery.DefaultAdvertiserConfig())

	// Repeated shutdown must not panic
	adv.Shutdown()
	adv.Shutdown()
}
