package interactive

import (
	"strings"
	"testing"
)

func TestRenderPayloadPrintable(t *testing.T) {
	got := renderPayload([]byte("hello gate"))
	if got != "hello gate" {
		t.Errorf("expected text rendering, got %q", got)
	}
}

func TestRenderPayloadBinary(t *testing.T) {
	got := renderPayload([]byte{0x00, 0x01, 0xff})
	if !strings.Contains(got, "00 01 ff") {
		t.Errorf("expected hex rendering, got %q", got)
	}
	if !strings.Contains(got, "3 bytes") {
		t.Errorf("expected byte count, got %q", got)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("abcdefgh-1234"); got != "abcdefgh" {
		t.Errorf("shortID = %q", got)
	}
	if got := shortID("ab"); got != "ab" {
		t.Errorf("shortID on short input = %q", got)
	}
}
