// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes FLAC payloads frame by frame to mono int16 samples
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/harperreed/wavstream/pkg/audio"
	"github.com/mewkiz/flac"
)

// FLACDecoder decodes FLAC audio
type FLACDecoder struct{}

// NewFLAC creates a new FLAC decoder
func NewFLAC() *FLACDecoder {
	return &FLACDecoder{}
}

// Decode converts FLAC bytes to mono int16 samples
func (d *FLACDecoder) Decode(data []byte) (audio.Buffer, error) {
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("failed to open flac stream: %w", err)
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	bitDepth := int(stream.Info.BitsPerSample)
	if channels <= 0 {
		return audio.Buffer{}, errors.New("flac stream has no channels")
	}

	var samples []int16
	for {
		frame, err := stream.ParseNext()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return audio.Buffer{}, fmt.Errorf("flac frame decode failed: %w", err)
		}

		for i := 0; i < int(frame.BlockSize); i++ {
			var sum int64
			for ch := 0; ch < channels; ch++ {
				sum += int64(frame.Subframes[ch].Samples[i])
			}
			samples = append(samples, audio.SampleFromWide(int32(sum/int64(channels)), bitDepth))
		}
	}

	return audio.Buffer{
		Samples: samples,
		Format: audio.Format{
			Codec:      "flac",
			SampleRate: int(stream.Info.SampleRate),
			Channels:   channels,
			BitDepth:   bitDepth,
		},
	}, nil
}
