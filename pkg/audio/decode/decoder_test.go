// ABOUTME: Container decoder tests
// ABOUTME: Tests sniffing, WAV decoding, raw PCM and failure paths
package decode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// buildWAV returns a canonical PCM WAV file
func buildWAV(sampleRate, channels, bitDepth int, data []byte) []byte {
	var b bytes.Buffer
	blockAlign := channels * bitDepth / 8

	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+len(data)))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1))
	binary.Write(&b, binary.LittleEndian, uint16(channels))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate*blockAlign))
	binary.Write(&b, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&b, binary.LittleEndian, uint16(bitDepth))
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(len(data)))
	b.Write(data)
	return b.Bytes()
}

func pcmBytes(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"wav", buildWAV(16000, 1, 16, nil), "wav"},
		{"riff without wave", []byte("RIFF\x00\x00\x00\x00AVI "), ""},
		{"flac", []byte("fLaC\x00\x00\x00\x22"), "flac"},
		{"ogg opus", append([]byte("OggS\x00\x02"), []byte("....OpusHead")...), "opus"},
		{"ogg vorbis", append([]byte("OggS\x00\x02"), []byte("\x01vorbis")...), ""},
		{"id3", []byte("ID3\x04\x00"), "mp3"},
		{"mpeg sync", []byte{0xFF, 0xFB, 0x90, 0x00}, "mp3"},
		{"raw pcm", pcmBytes(100, -100, 200), ""},
		{"empty", nil, ""},
		{"short", []byte("RI"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sniff(tt.data); got != tt.want {
				t.Errorf("Sniff() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContainerWAV16(t *testing.T) {
	samples := []int16{0, 1000, -1000, 32767, -32768}
	data := buildWAV(22050, 1, 16, pcmBytes(samples...))

	buf, err := Container(data)
	if err != nil {
		t.Fatalf("Container failed: %v", err)
	}
	if buf.Format.Codec != "wav" {
		t.Errorf("codec = %q, want wav", buf.Format.Codec)
	}
	if buf.Format.SampleRate != 22050 {
		t.Errorf("sample rate = %d, want 22050", buf.Format.SampleRate)
	}
	if len(buf.Samples) != len(samples) {
		t.Fatalf("got %d samples, want %d", len(buf.Samples), len(samples))
	}
	for i := range samples {
		if buf.Samples[i] != samples[i] {
			t.Errorf("sample %d = %d, want %d", i, buf.Samples[i], samples[i])
		}
	}
}

func TestContainerWAVStereoDownmix(t *testing.T) {
	// L/R pairs
	data := buildWAV(44100, 2, 16, pcmBytes(1000, 3000, -2000, -4000))

	buf, err := Container(data)
	if err != nil {
		t.Fatalf("Container failed: %v", err)
	}
	want := []int16{2000, -3000}
	if len(buf.Samples) != len(want) {
		t.Fatalf("got %d samples, want %d", len(buf.Samples), len(want))
	}
	for i := range want {
		if buf.Samples[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, buf.Samples[i], want[i])
		}
	}
}

func TestContainerUnknown(t *testing.T) {
	_, err := Container(pcmBytes(1, 2, 3, 4))
	if !errors.Is(err, ErrUnknownContainer) {
		t.Fatalf("expected ErrUnknownContainer, got %v", err)
	}
}

func TestContainerCorrupt(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"truncated flac", []byte("fLaC")},
		{"truncated id3", []byte("ID3\x03")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Container(tt.data); err == nil {
				t.Error("expected decode error for corrupt container")
			}
		})
	}
}

func TestForContainer(t *testing.T) {
	dec, err := ForContainer(buildWAV(16000, 1, 16, nil))
	if err != nil {
		t.Fatalf("ForContainer failed: %v", err)
	}
	if _, ok := dec.(*WAVDecoder); !ok {
		t.Errorf("expected *WAVDecoder, got %T", dec)
	}
}

func TestDecodersImplementDecoder(t *testing.T) {
	var _ Decoder = (*WAVDecoder)(nil)
	var _ Decoder = (*MP3Decoder)(nil)
	var _ Decoder = (*FLACDecoder)(nil)
	var _ Decoder = (*OpusDecoder)(nil)
	var _ Decoder = (*PCMDecoder)(nil)
}
