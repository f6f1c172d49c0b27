//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform callback output using PortAudio
package output

import (
	"errors"
	"fmt"
	"log"

	"github.com/gordonklaus/portaudio"
)

// PortAudio output implementation
type PortAudio struct {
	stream *portaudio.Stream
}

// NewPortAudio creates a new PortAudio output
func NewPortAudio() Device {
	return &PortAudio{}
}

// Name identifies the backend
func (p *PortAudio) Name() string {
	return "portaudio"
}

// Open initializes PortAudio and starts a mono stream
func (p *PortAudio) Open(config Config, render RenderFunc) (int, error) {
	if err := config.validate(); err != nil {
		return 0, err
	}
	if p.stream != nil {
		return 0, errors.New("portaudio stream already open")
	}

	if err := portaudio.Initialize(); err != nil {
		return 0, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	period := NewPeriod(config.FramesPerBuffer, render)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(config.SampleRate), config.FramesPerBuffer, func(out []int16) {
		period.Fill(out)
	})
	if err != nil {
		portaudio.Terminate()
		return 0, fmt.Errorf("failed to open stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return 0, fmt.Errorf("failed to start stream: %w", err)
	}
	p.stream = stream

	granted := config.SampleRate
	if info := stream.Info(); info != nil && info.SampleRate > 0 {
		granted = int(info.SampleRate)
	}

	log.Printf("Audio output initialized: requested %dHz, running at %dHz, mono (portaudio)",
		config.SampleRate, granted)

	return granted, nil
}

// Close releases resources
func (p *PortAudio) Close() error {
	if p.stream == nil {
		return nil
	}
	if err := p.stream.Stop(); err != nil {
		return err
	}
	if err := p.stream.Close(); err != nil {
		return err
	}
	p.stream = nil
	return portaudio.Terminate()
}
