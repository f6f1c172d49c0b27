// ABOUTME: Headless output device
// ABOUTME: Renders on a wall-clock ticker and discards the samples
package output

import (
	"errors"
	"log"
	"sync"
	"time"
)

// Headless consumes audio in real time without a sound card
type Headless struct {
	mu     sync.Mutex
	stop   chan struct{}
	done   chan struct{}
	ticker *time.Ticker
}

// NewHeadless creates a new headless output
func NewHeadless() *Headless {
	return &Headless{}
}

// Name identifies the backend
func (h *Headless) Name() string {
	return "null"
}

// Open starts the render ticker at the requested rate
func (h *Headless) Open(config Config, render RenderFunc) (int, error) {
	if err := config.validate(); err != nil {
		return 0, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stop != nil {
		return 0, errors.New("headless output already open")
	}

	period := time.Duration(config.FramesPerBuffer) * time.Second / time.Duration(config.SampleRate)
	h.stop = make(chan struct{})
	h.done = make(chan struct{})
	h.ticker = time.NewTicker(period)

	go func(stop <-chan struct{}, done chan<- struct{}, ticker *time.Ticker) {
		defer close(done)
		buf := make([]int16, config.FramesPerBuffer)
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				render(buf)
			}
		}
	}(h.stop, h.done, h.ticker)

	log.Printf("Audio output initialized: %dHz, period %v (headless)", config.SampleRate, period)

	return config.SampleRate, nil
}

// Close stops the ticker and waits for the last tick to finish
func (h *Headless) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stop == nil {
		return nil
	}
	h.ticker.Stop()
	close(h.stop)
	<-h.done
	h.stop = nil
	h.done = nil
	return nil
}
