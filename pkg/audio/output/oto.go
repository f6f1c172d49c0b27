// ABOUTME: Oto-based audio output implementation
// ABOUTME: Feeds an oto player from a reader that pulls render periods
package output

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process
var (
	otoOnce    sync.Once
	otoCtx     *oto.Context
	otoCtxRate int
	otoErr     error
)

// Oto output implementation using oto library
type Oto struct {
	player *oto.Player
	period *Period
	mu     sync.Mutex
}

// NewOto creates a new Oto output
func NewOto() *Oto {
	return &Oto{}
}

// Name identifies the backend
func (o *Oto) Name() string {
	return "oto"
}

// Open initializes the oto context (once per process) and starts a player
func (o *Oto) Open(config Config, render RenderFunc) (int, error) {
	if err := config.validate(); err != nil {
		return 0, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		return 0, errors.New("oto output already open")
	}

	otoOnce.Do(func() {
		periodDuration := time.Duration(config.FramesPerBuffer) * time.Second / time.Duration(config.SampleRate)
		op := &oto.NewContextOptions{
			SampleRate:   config.SampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   periodDuration,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-readyChan
		otoCtx = ctx
		otoCtxRate = config.SampleRate
	})
	if otoErr != nil {
		return 0, otoErr
	}

	if otoCtxRate != config.SampleRate {
		log.Printf("Warning: oto context already running at %dHz, ignoring requested %dHz",
			otoCtxRate, config.SampleRate)
	}

	o.period = NewPeriod(config.FramesPerBuffer, render)
	o.player = otoCtx.NewPlayer(&periodReader{period: o.period})
	o.player.Play()

	log.Printf("Audio output initialized: %dHz, mono (oto)", otoCtxRate)

	return otoCtxRate, nil
}

// SetVolume sets the software volume (0-100)
func (o *Oto) SetVolume(volume int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.period != nil {
		o.period.SetVolume(volume)
	}
}

// SetMuted silences output without losing the volume setting
func (o *Oto) SetMuted(muted bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.period != nil {
		o.period.SetMuted(muted)
	}
}

// Close releases output resources
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return nil
	}
	o.player.Pause()
	err := o.player.Close()
	o.player = nil
	return err
}

// periodReader exposes the render periods as little-endian bytes
type periodReader struct {
	period  *Period
	scratch []int16
}

func (r *periodReader) Read(p []byte) (int, error) {
	n := len(p) / 2
	if n == 0 {
		return 0, nil
	}
	if cap(r.scratch) < n {
		r.scratch = make([]int16, n)
	}
	samples := r.scratch[:n]
	r.period.Fill(samples)

	for i, s := range samples {
		binary.LittleEndian.PutUint16(p[i*2:], uint16(s))
	}
	return n * 2, nil
}
