// ABOUTME: Raw PCM audio decoder
// ABOUTME: Decodes headerless little-endian 16-bit PCM at a caller-supplied rate
package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/harperreed/wavstream/pkg/audio"
)

// PCMDecoder decodes headerless PCM
type PCMDecoder struct {
	sampleRate int
}

// NewPCM creates a new PCM decoder for the given rate
func NewPCM(sampleRate int) (*PCMDecoder, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate for PCM decoder: %d", sampleRate)
	}

	return &PCMDecoder{
		sampleRate: sampleRate,
	}, nil
}

// Decode converts PCM bytes to int16 samples; a trailing odd byte is ignored
func (d *PCMDecoder) Decode(data []byte) (audio.Buffer, error) {
	return audio.Buffer{
		Samples: PCM16LE(data),
		Format: audio.Format{
			Codec:      "pcm",
			SampleRate: d.sampleRate,
			Channels:   1,
			BitDepth:   16,
		},
	}, nil
}

// PCM16LE reinterprets little-endian bytes as 16-bit samples
func PCM16LE(data []byte) []int16 {
	numSamples := len(data) / 2
	samples := make([]int16, numSamples)
	for i := 0; i < numSamples; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}
