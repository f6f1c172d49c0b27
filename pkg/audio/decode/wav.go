// ABOUTME: WAV audio decoder
// ABOUTME: Decodes RIFF/WAVE payloads to mono int16 samples using go-audio/wav
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	"github.com/harperreed/wavstream/pkg/audio"
)

// WAVDecoder decodes WAV audio
type WAVDecoder struct{}

// NewWAV creates a new WAV decoder
func NewWAV() *WAVDecoder {
	return &WAVDecoder{}
}

// Decode converts WAV bytes to mono int16 samples
func (d *WAVDecoder) Decode(data []byte) (audio.Buffer, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return audio.Buffer{}, errors.New("invalid wav file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil && !errors.Is(err, io.EOF) {
		return audio.Buffer{}, fmt.Errorf("failed to read wav samples: %w", err)
	}
	if buf == nil {
		return audio.Buffer{}, errors.New("empty wav buffer")
	}

	channels := int(dec.NumChans)
	if buf.Format != nil && buf.Format.NumChannels > 0 {
		channels = buf.Format.NumChannels
	}
	if channels <= 0 {
		channels = 1
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = int(dec.BitDepth)
	}

	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		if bitDepth == 8 {
			// 8-bit WAV is unsigned
			v -= 128
		}
		samples[i] = audio.SampleFromWide(int32(v), bitDepth)
	}

	sampleRate := int(dec.SampleRate)
	if sampleRate == 0 && buf.Format != nil {
		sampleRate = buf.Format.SampleRate
	}

	return audio.Buffer{
		Samples: audio.Downmix(samples, channels),
		Format: audio.Format{
			Codec:      "wav",
			SampleRate: sampleRate,
			Channels:   channels,
			BitDepth:   bitDepth,
		},
	}, nil
}
