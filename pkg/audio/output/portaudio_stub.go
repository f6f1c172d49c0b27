//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"errors"
)

var errPortAudioDisabled = errors.New("PortAudio support not enabled (build with -tags portaudio)")

// PortAudio output implementation (stub)
type PortAudio struct{}

// NewPortAudio creates a new PortAudio output
func NewPortAudio() Device {
	return &PortAudio{}
}

// Name identifies the backend
func (p *PortAudio) Name() string {
	return "portaudio"
}

// Open always fails without the portaudio build tag
func (p *PortAudio) Open(config Config, render RenderFunc) (int, error) {
	return 0, errPortAudioDisabled
}

// Close releases resources
func (p *PortAudio) Close() error {
	return nil
}
