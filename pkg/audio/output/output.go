// ABOUTME: Audio output device interface definition
// ABOUTME: Callback-driven devices that pull fixed periods from a render function
package output

import (
	"fmt"
)

// RenderFunc fills out with the next block of mono samples.
// It runs on the device's callback thread and must not block.
type RenderFunc func(out []int16)

// Config describes the stream a caller asks a device to open
type Config struct {
	// SampleRate is the requested rate; the device may grant another
	SampleRate int

	// FramesPerBuffer is the period the render function is called with
	FramesPerBuffer int

	// OnStop is called when the device stops without Close being called
	OnStop func(error)
}

// Device represents a playback device that owns the output clock
type Device interface {
	// Open starts playback and returns the sample rate the device actually runs at
	Open(config Config, render RenderFunc) (int, error)

	// Close stops playback and releases device resources
	Close() error

	// Name identifies the backend in logs
	Name() string
}

// Leveler is implemented by devices that apply software volume
type Leveler interface {
	SetVolume(volume int)
	SetMuted(muted bool)
}

// New creates a device for the named backend
func New(name string) (Device, error) {
	switch name {
	case "", "malgo":
		return NewMalgo(), nil
	case "oto":
		return NewOto(), nil
	case "portaudio":
		return NewPortAudio(), nil
	case "null", "headless":
		return NewHeadless(), nil
	default:
		return nil, fmt.Errorf("unknown output backend: %s", name)
	}
}

func (c Config) validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", c.SampleRate)
	}
	if c.FramesPerBuffer <= 0 {
		return fmt.Errorf("invalid frames per buffer: %d", c.FramesPerBuffer)
	}
	return nil
}
