// ABOUTME: Tests for raw PCM decoder
// ABOUTME: Verifies little-endian 16-bit decoding and odd-length input
package decode

import (
	"testing"
)

func TestPCMDecoder(t *testing.T) {
	dec, err := NewPCM(48000)
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	buf, err := dec.Decode([]byte{0x00, 0x00, 0xFF, 0x7F, 0x00, 0x80, 0x01, 0x00})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	want := []int16{0, 32767, -32768, 1}
	if len(buf.Samples) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(buf.Samples))
	}
	for i := range want {
		if buf.Samples[i] != want[i] {
			t.Errorf("sample %d: expected %d, got %d", i, want[i], buf.Samples[i])
		}
	}
	if buf.Format.SampleRate != 48000 {
		t.Errorf("sample rate = %d, want 48000", buf.Format.SampleRate)
	}
}

func TestPCMDecoderOddTrailingByte(t *testing.T) {
	samples := PCM16LE([]byte{0x10, 0x00, 0x20})
	if len(samples) != 1 || samples[0] != 16 {
		t.Errorf("expected [16], got %v", samples)
	}
}

func TestPCMDecoderEmpty(t *testing.T) {
	if samples := PCM16LE(nil); len(samples) != 0 {
		t.Errorf("expected no samples, got %d", len(samples))
	}
	if samples := PCM16LE([]byte{0x01}); len(samples) != 0 {
		t.Errorf("single byte should yield no samples, got %d", len(samples))
	}
}

func TestNewPCMInvalidRate(t *testing.T) {
	if _, err := NewPCM(0); err == nil {
		t.Error("expected error for zero sample rate")
	}
}
