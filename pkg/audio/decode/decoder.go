// ABOUTME: Decoder interface and container sniffing
// ABOUTME: Picks a container decoder from a payload's magic bytes
package decode

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/harperreed/wavstream/pkg/audio"
)

// ErrUnknownContainer is returned when a payload has no recognizable container header
var ErrUnknownContainer = errors.New("unrecognized audio container")

// Decoder decodes a complete encoded payload to mono 16-bit PCM
type Decoder interface {
	// Decode converts encoded audio data to PCM samples and reports their format
	Decode(data []byte) (audio.Buffer, error)
}

// Sniff returns the codec name implied by the payload's leading bytes, or "" if unknown
func Sniff(data []byte) string {
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return "wav"
	case len(data) >= 4 && bytes.Equal(data[0:4], []byte("fLaC")):
		return "flac"
	case len(data) >= 4 && bytes.Equal(data[0:4], []byte("OggS")):
		// Only Ogg Opus is supported; Vorbis pages are left to the raw fallback
		if bytes.Contains(data[:min(len(data), 128)], []byte("OpusHead")) {
			return "opus"
		}
		return ""
	case len(data) >= 3 && bytes.Equal(data[0:3], []byte("ID3")):
		return "mp3"
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		// MPEG frame sync
		return "mp3"
	default:
		return ""
	}
}

// ForContainer creates a decoder for the payload's container
func ForContainer(data []byte) (Decoder, error) {
	switch codec := Sniff(data); codec {
	case "wav":
		return NewWAV(), nil
	case "mp3":
		return NewMP3(), nil
	case "flac":
		return NewFLAC(), nil
	case "opus":
		return NewOpus(), nil
	default:
		return nil, ErrUnknownContainer
	}
}

// Container decodes a self-describing payload, reading the sample rate from its header
func Container(data []byte) (audio.Buffer, error) {
	dec, err := ForContainer(data)
	if err != nil {
		return audio.Buffer{}, err
	}

	buf, err := dec.Decode(data)
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("%s decode failed: %w", Sniff(data), err)
	}
	if buf.Format.SampleRate <= 0 {
		return audio.Buffer{}, fmt.Errorf("%s container reported no sample rate", buf.Format.Codec)
	}

	return buf, nil
}
