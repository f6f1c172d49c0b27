// ABOUTME: Sentinel errors for the streaming engine
// ABOUTME: Callers match these with errors.Is
package wavstream

import "errors"

var (
	// ErrDevice is returned when the output device cannot be opened or has stopped
	ErrDevice = errors.New("audio device error")

	// ErrReplyTimeout is returned when the render side does not answer in time
	ErrReplyTimeout = errors.New("timed out waiting for render reply")

	// ErrNotConnected is returned by operations that need an open device
	ErrNotConnected = errors.New("engine not connected")

	// ErrAlreadyConnected is returned by a second Connect
	ErrAlreadyConnected = errors.New("engine already connected")

	// ErrClosed is returned once the engine has been closed
	ErrClosed = errors.New("engine closed")

	// ErrUnknownAnalysis is returned for an unsupported spectrum kind
	ErrUnknownAnalysis = errors.New("unknown analysis kind")
)
