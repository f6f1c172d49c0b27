// ABOUTME: Period adapter between device callbacks and fixed-size render ticks
// ABOUTME: Serves variable callback sizes from whole render periods with software volume
package output

import (
	"sync/atomic"
)

// Period adapts a device callback of any size to render calls of exactly one period
type Period struct {
	render  RenderFunc
	staging []int16
	pos     int
	volume  atomic.Int32
	muted   atomic.Bool
}

// NewPeriod creates an adapter that calls render with frames samples at a time
func NewPeriod(frames int, render RenderFunc) *Period {
	p := &Period{
		render:  render,
		staging: make([]int16, frames),
		pos:     frames, // empty until the first fill
	}
	p.volume.Store(100)
	return p
}

// Fill writes len(out) samples, rendering new periods as the staging buffer empties
func (p *Period) Fill(out []int16) {
	written := 0
	for written < len(out) {
		if p.pos >= len(p.staging) {
			p.render(p.staging)
			p.pos = 0
		}
		n := copy(out[written:], p.staging[p.pos:])
		p.pos += n
		written += n
	}

	applyVolume(out, int(p.volume.Load()), p.muted.Load())
}

// SetVolume sets the volume (0-100)
func (p *Period) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	p.volume.Store(int32(volume))
}

// SetMuted sets mute state
func (p *Period) SetMuted(muted bool) {
	p.muted.Store(muted)
}

// Volume returns current volume
func (p *Period) Volume() int {
	return int(p.volume.Load())
}

// applyVolume scales samples in place
func applyVolume(samples []int16, volume int, muted bool) {
	if muted {
		clear(samples)
		return
	}
	if volume >= 100 {
		return
	}
	for i, s := range samples {
		samples[i] = int16(int32(s) * int32(volume) / 100)
	}
}
