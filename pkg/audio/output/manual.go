// ABOUTME: Manually clocked output device
// ABOUTME: The caller drives render ticks, for tests and offline rendering
package output

import (
	"errors"
	"sync"
)

// Manual is a device whose clock is driven by calls to Tick
type Manual struct {
	grantRate int
	openErr   error

	mu      sync.Mutex
	render  RenderFunc
	period  *Period
	frames  int
	onStop  func(error)
	opened  bool
	stopped bool
}

// NewManual creates a manual device that grants grantRate, or the requested rate if 0
func NewManual(grantRate int) *Manual {
	return &Manual{grantRate: grantRate}
}

// FailWith makes the next Open fail with err
func (m *Manual) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErr = err
}

// Name identifies the backend
func (m *Manual) Name() string {
	return "manual"
}

// Open records the render function and returns the granted rate
func (m *Manual) Open(config Config, render RenderFunc) (int, error) {
	if err := config.validate(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.openErr != nil {
		return 0, m.openErr
	}
	if m.opened {
		return 0, errors.New("manual device already open")
	}

	m.render = render
	m.period = NewPeriod(config.FramesPerBuffer, render)
	m.frames = config.FramesPerBuffer
	m.onStop = config.OnStop
	m.opened = true
	m.stopped = false

	if m.grantRate > 0 {
		return m.grantRate, nil
	}
	return config.SampleRate, nil
}

// Tick runs one render period and returns the rendered samples.
// It returns nil if the device is not running.
func (m *Manual) Tick() []int16 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.opened || m.stopped {
		return nil
	}
	out := make([]int16, m.frames)
	m.render(out)
	return out
}

// Pull simulates a device callback asking for n samples
func (m *Manual) Pull(n int) []int16 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.opened || m.stopped {
		return nil
	}
	out := make([]int16, n)
	m.period.Fill(out)
	return out
}

// Stop simulates the device going away underneath its owner
func (m *Manual) Stop(err error) {
	m.mu.Lock()
	if !m.opened || m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	onStop := m.onStop
	m.mu.Unlock()

	if onStop != nil {
		onStop(err)
	}
}

// Close stops the device
func (m *Manual) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = false
	m.stopped = true
	return nil
}
