// ABOUTME: Ogg Opus audio decoder
// ABOUTME: Decodes Ogg-encapsulated Opus payloads to int16 samples
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/harperreed/wavstream/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// opusfile always decodes at 48kHz
const opusSampleRate = 48000

// OpusDecoder decodes Ogg Opus audio
type OpusDecoder struct{}

// NewOpus creates a new Opus decoder
func NewOpus() *OpusDecoder {
	return &OpusDecoder{}
}

// Decode converts Ogg Opus bytes to int16 samples.
// Speech streams are mono; each read returns samples for the single channel.
func (d *OpusDecoder) Decode(data []byte) (audio.Buffer, error) {
	stream, err := opus.NewStream(bytes.NewReader(data))
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("failed to open opus stream: %w", err)
	}
	defer stream.Close()

	// Max frame size (120ms at 48kHz)
	pcm16 := make([]int16, 5760)
	var samples []int16
	for {
		n, err := stream.Read(pcm16)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return audio.Buffer{}, fmt.Errorf("opus decode failed: %w", err)
		}
		samples = append(samples, pcm16[:n]...)
	}

	return audio.Buffer{
		Samples: samples,
		Format: audio.Format{
			Codec:      "opus",
			SampleRate: opusSampleRate,
			Channels:   1,
			BitDepth:   16,
		},
	}, nil
}
