// ABOUTME: Malgo-based audio output implementation
// ABOUTME: Uses miniaudio via malgo; the device callback pulls periods from the renderer
package output

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/gen2brain/malgo"
)

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	period   *Period
	scratch  []int16
	closing  bool
	mu       sync.Mutex
}

// NewMalgo creates a new Malgo output
func NewMalgo() *Malgo {
	return &Malgo{}
}

// Name identifies the backend
func (m *Malgo) Name() string {
	return "malgo"
}

// Open initializes a mono 16-bit playback device and starts it
func (m *Malgo) Open(config Config, render RenderFunc) (int, error) {
	if err := config.validate(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		return 0, errors.New("malgo device already open")
	}

	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return 0, fmt.Errorf("failed to initialize malgo context: %w", err)
		}
		m.malgoCtx = ctx
	}

	m.period = NewPeriod(config.FramesPerBuffer, render)
	m.scratch = make([]int16, config.FramesPerBuffer)
	m.closing = false

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = uint32(config.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(config.FramesPerBuffer)
	deviceConfig.Alsa.NoMMap = 1

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(pOutput, pInput []byte, frameCount uint32) {
			m.dataCallback(pOutput, frameCount)
		},
		Stop: func() {
			m.mu.Lock()
			closing := m.closing
			m.mu.Unlock()
			if !closing && config.OnStop != nil {
				config.OnStop(errors.New("malgo device stopped"))
			}
		},
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		return 0, fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return 0, fmt.Errorf("failed to start device: %w", err)
	}

	m.device = device

	granted := int(device.SampleRate())
	if granted <= 0 {
		granted = config.SampleRate
	}

	log.Printf("Audio output initialized: requested %dHz, running at %dHz, mono S16 (malgo)",
		config.SampleRate, granted)

	return granted, nil
}

// dataCallback is called by malgo to fill the audio output buffer
func (m *Malgo) dataCallback(pOutput []byte, frameCount uint32) {
	n := int(frameCount)
	if cap(m.scratch) < n {
		m.scratch = make([]int16, n)
	}
	samples := m.scratch[:n]

	m.period.Fill(samples)

	for i, s := range samples {
		binary.LittleEndian.PutUint16(pOutput[i*2:], uint16(s))
	}
}

// SetVolume sets the software volume (0-100)
func (m *Malgo) SetVolume(volume int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.period != nil {
		m.period.SetVolume(volume)
		log.Printf("Volume set to %d", volume)
	}
}

// SetMuted silences output without losing the volume setting
func (m *Malgo) SetMuted(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.period != nil {
		m.period.SetMuted(muted)
		log.Printf("Muted: %v", muted)
	}
}

// Close releases output resources
func (m *Malgo) Close() error {
	m.mu.Lock()
	m.closing = true
	device := m.device
	m.device = nil
	m.mu.Unlock()

	// Stop waits for the callback to return, so it must not hold m.mu
	if device != nil {
		if err := device.Stop(); err != nil {
			log.Printf("Warning: device stop error: %v", err)
		}
		device.Uninit()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			log.Printf("Warning: malgo context uninit error: %v", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}

	return nil
}
