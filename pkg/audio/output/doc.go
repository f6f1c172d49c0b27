// ABOUTME: Audio output package for callback-driven playback
// ABOUTME: Provides Device interface with malgo, oto, PortAudio, headless and manual backends
// Package output provides callback-driven audio playback devices.
//
// A device owns the output clock: once opened it calls the render function with
// exactly FramesPerBuffer mono samples per period, regardless of the callback
// size the underlying API uses. Open reports the sample rate the device actually
// runs at, which may differ from the one requested.
//
// Backends: malgo (default), oto, PortAudio (build with -tags portaudio),
// headless ("null") and a manually clocked device for tests.
//
// Example:
//
//	dev := output.NewMalgo()
//	rate, err := dev.Open(output.Config{SampleRate: 44100, FramesPerBuffer: 4096}, render)
//	defer dev.Close()
package output
