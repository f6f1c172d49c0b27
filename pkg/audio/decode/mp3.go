// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes MP3 payloads to mono int16 samples
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
	"github.com/harperreed/wavstream/pkg/audio"
)

// MP3Decoder decodes MP3 audio
type MP3Decoder struct{}

// NewMP3 creates a new MP3 decoder
func NewMP3() *MP3Decoder {
	return &MP3Decoder{}
}

// Decode converts MP3 bytes to mono int16 samples
func (d *MP3Decoder) Decode(data []byte) (audio.Buffer, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	// go-mp3 always yields 16-bit little-endian stereo
	pcm, err := io.ReadAll(decoder)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return audio.Buffer{}, fmt.Errorf("mp3 decode error: %w", err)
	}
	if len(pcm) == 0 {
		return audio.Buffer{}, errors.New("mp3 stream contained no audio")
	}

	return audio.Buffer{
		Samples: audio.Downmix(PCM16LE(pcm), 2),
		Format: audio.Format{
			Codec:      "mp3",
			SampleRate: decoder.SampleRate(),
			Channels:   2,
			BitDepth:   16,
		},
	}, nil
}
