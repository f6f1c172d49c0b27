// ABOUTME: Engine configuration, defaults and reported values
// ABOUTME: Defines Config, InterruptPolicy, Offset and Stats
package wavstream

import (
	"fmt"
	"time"

	"github.com/harperreed/wavstream/pkg/audio/output"
)

const (
	// DefaultSampleRate is the rate requested from the device
	DefaultSampleRate = 44100

	// DefaultFrameSize is the samples per frame and per device period
	DefaultFrameSize = 4096

	// DefaultRawPCMRate is the rate assumed for headerless PCM payloads
	DefaultRawPCMRate = 48000

	// DefaultReplyTimeout bounds offset and interrupt requests
	DefaultReplyTimeout = 2 * time.Second

	// DefaultAnalyserSize is the FFT size of the analysis tap
	DefaultAnalyserSize = 8192

	// DefaultSmoothing is the spectrum smoothing constant
	DefaultSmoothing = 0.1

	inboxSize   = 1024
	replySize   = 64
	recycleSize = 32
)

// InterruptPolicy selects what happens to frames already queued for an interrupted track
type InterruptPolicy int

const (
	// DrainQueued plays out frames that were queued before the interrupt
	DrainQueued InterruptPolicy = iota

	// FlushQueued drops the interrupted track's queued frames and partial frame
	FlushQueued
)

// String returns the policy name used in config files
func (p InterruptPolicy) String() string {
	switch p {
	case DrainQueued:
		return "drain"
	case FlushQueued:
		return "flush"
	default:
		return fmt.Sprintf("InterruptPolicy(%d)", int(p))
	}
}

// ParseInterruptPolicy parses "drain" or "flush"
func ParseInterruptPolicy(s string) (InterruptPolicy, error) {
	switch s {
	case "", "drain":
		return DrainQueued, nil
	case "flush":
		return FlushQueued, nil
	default:
		return DrainQueued, fmt.Errorf("unknown interrupt policy: %q", s)
	}
}

// Config configures an Engine. Zero fields take their defaults.
type Config struct {
	// SampleRate requested from the device; the device may grant another
	SampleRate int

	// FrameSize is the samples per frame and per render tick
	FrameSize int

	// RawPCMRate is the rate assumed for payloads that are not a known container
	RawPCMRate int

	// ReplyTimeout bounds QueryOffset and Interrupt
	ReplyTimeout time.Duration

	// IdleFlush pushes a partial frame after this long without writes.
	// Zero means one frame duration; negative disables it.
	IdleFlush time.Duration

	// InterruptPolicy decides the fate of queued frames on Interrupt
	InterruptPolicy InterruptPolicy

	// AnalyserSize is the FFT size of the spectrum tap
	AnalyserSize int

	// Smoothing is the spectrum time constant in [0, 1)
	Smoothing float64

	// Device is the output device (default: malgo)
	Device output.Device
}

func (c Config) withDefaults() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.FrameSize <= 0 {
		c.FrameSize = DefaultFrameSize
	}
	if c.RawPCMRate <= 0 {
		c.RawPCMRate = DefaultRawPCMRate
	}
	if c.ReplyTimeout <= 0 {
		c.ReplyTimeout = DefaultReplyTimeout
	}
	if c.IdleFlush == 0 {
		c.IdleFlush = time.Duration(c.FrameSize) * time.Second / time.Duration(c.SampleRate)
	}
	if c.AnalyserSize <= 0 {
		c.AnalyserSize = DefaultAnalyserSize
	}
	if c.Smoothing < 0 || c.Smoothing >= 1 {
		c.Smoothing = DefaultSmoothing
	}
	if c.Device == nil {
		c.Device = output.NewMalgo()
	}
	return c
}

// Offset reports a track's playback position
type Offset struct {
	TrackID      string
	SampleOffset int64
	// Time is SampleOffset divided by the actual device rate, in seconds
	Time float64
}

// Stats is a snapshot of engine counters
type Stats struct {
	SampleRate     int
	QueuedFrames   int64
	RenderedFrames int64
	Underruns      int64
	Dropped        int64
	Tracks         int
	DeviceLost     bool
}
