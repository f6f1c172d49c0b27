// ABOUTME: Streaming engine: control side of the playback pipeline
// ABOUTME: Decodes, resamples and frames audio, and correlates render replies
package wavstream

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/wavstream/pkg/audio/decode"
	"github.com/harperreed/wavstream/pkg/audio/output"
	"github.com/harperreed/wavstream/pkg/audio/resample"
)

// track is the control-side view of a track
type track struct {
	interrupted bool
}

// Engine accepts audio chunks from any goroutine and plays them through a device
type Engine struct {
	config Config

	// mu guards the write side: active frame, tracks and connection state
	mu          sync.Mutex
	connected   bool
	proc        *processor
	analyser    *Analyser
	active      *frame
	activeTrack string
	tracks      map[string]*track
	idle        *time.Timer

	inbox   chan message
	replies chan reply
	recycle chan *frame

	pendingMu sync.Mutex
	pending   map[string]chan reply

	rate    atomic.Int64
	rawRate atomic.Int64
	queued  atomic.Int64
	dropped atomic.Int64
	lost    atomic.Bool

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewEngine creates an engine; call Connect to open the device
func NewEngine(config Config) *Engine {
	config = config.withDefaults()

	e := &Engine{
		config:  config,
		tracks:  make(map[string]*track),
		pending: make(map[string]chan reply),
		done:    make(chan struct{}),
	}
	e.rawRate.Store(int64(config.RawPCMRate))
	return e
}

// Connect opens the device at the requested rate and adopts the rate it grants
func (e *Engine) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isClosed() {
		return ErrClosed
	}
	if e.connected {
		return ErrAlreadyConnected
	}

	e.inbox = make(chan message, inboxSize)
	e.replies = make(chan reply, replySize)
	e.recycle = make(chan *frame, recycleSize)
	// The analyser learns the real rate once the device has opened
	e.analyser = newAnalyser(e.config.AnalyserSize, e.config.SampleRate, e.config.Smoothing)
	e.proc = newProcessor(e.inbox, e.replies, e.recycle, e.config.InterruptPolicy, e.analyser, &e.queued)

	rate, err := e.config.Device.Open(output.Config{
		SampleRate:      e.config.SampleRate,
		FramesPerBuffer: e.config.FrameSize,
		OnStop:          e.deviceStopped,
	}, e.proc.Render)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDevice, e.config.Device.Name(), err)
	}

	e.analyser.mu.Lock()
	e.analyser.rate = rate
	e.analyser.mu.Unlock()

	e.rate.Store(int64(rate))
	e.active = newFrame(e.config.FrameSize)
	e.connected = true

	if e.config.IdleFlush > 0 {
		e.idle = time.AfterFunc(e.config.IdleFlush, e.idleFlush)
		e.idle.Stop()
	}

	e.wg.Add(1)
	go e.dispatchReplies()

	if rate != e.config.SampleRate {
		log.Printf("Device granted %dHz instead of requested %dHz, resampling to device rate", rate, e.config.SampleRate)
	}
	log.Printf("Streaming engine connected: %dHz, frame size %d, interrupt policy %s",
		rate, e.config.FrameSize, e.config.InterruptPolicy)

	return nil
}

func (e *Engine) deviceStopped(err error) {
	e.lost.Store(true)
	log.Printf("Audio device stopped: %v", err)
}

// SampleRate returns the actual device rate, or 0 before Connect
func (e *Engine) SampleRate() int {
	return int(e.rate.Load())
}

// SetRawPCMRate sets the rate assumed for headerless PCM payloads
func (e *Engine) SetRawPCMRate(rate int) {
	if rate <= 0 {
		return
	}
	if old := e.rawRate.Swap(int64(rate)); old != int64(rate) {
		log.Printf("Raw PCM rate set to %dHz", rate)
	}
}

// RawPCMRate returns the rate assumed for headerless PCM payloads
func (e *Engine) RawPCMRate() int {
	return int(e.rawRate.Load())
}

// EnqueueBase64 decodes a base64 payload and enqueues it
func (e *Engine) EnqueueBase64(ctx context.Context, b64 string, trackID string) (string, error) {
	payload, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return trackID, fmt.Errorf("invalid base64 audio payload: %w", err)
	}
	return e.EnqueueAudio(ctx, payload, trackID)
}

// EnqueueAudio decodes a payload and appends it to a track, generating the
// track id when empty. Payloads for interrupted tracks are dropped silently.
func (e *Engine) EnqueueAudio(ctx context.Context, payload []byte, trackID string) (string, error) {
	if trackID == "" {
		trackID = uuid.NewString()
	}

	if err := e.writable(); err != nil || e.isInterrupted(trackID) {
		return trackID, err
	}

	var (
		samples []int16
		rate    int
	)
	buf, err := decode.Container(payload)
	if err == nil {
		samples, rate = buf.Samples, buf.Format.SampleRate
	} else {
		samples, rate = decode.PCM16LE(payload), e.RawPCMRate()
	}

	return trackID, e.enqueue(ctx, samples, rate, trackID)
}

// EnqueuePCM appends mono samples recorded at rate to a track
func (e *Engine) EnqueuePCM(ctx context.Context, samples []int16, rate int, trackID string) (string, error) {
	if trackID == "" {
		trackID = uuid.NewString()
	}
	if rate <= 0 {
		return trackID, fmt.Errorf("invalid sample rate: %d", rate)
	}
	if err := e.writable(); err != nil {
		return trackID, err
	}
	return trackID, e.enqueue(ctx, samples, rate, trackID)
}

func (e *Engine) enqueue(ctx context.Context, samples []int16, rate int, trackID string) error {
	if len(samples) == 0 {
		e.dropped.Add(1)
		return nil
	}

	// Resampling happens here, off the render path
	samples = resample.Resample(samples, rate, e.SampleRate())
	if len(samples) == 0 {
		e.dropped.Add(1)
		return nil
	}

	return e.write(ctx, samples, trackID)
}

// writable reports whether enqueues can proceed at all
func (e *Engine) writable() error {
	if e.isClosed() {
		return ErrClosed
	}
	if e.lost.Load() {
		return fmt.Errorf("%w: device stopped", ErrDevice)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected {
		return ErrNotConnected
	}
	return nil
}

func (e *Engine) isInterrupted(trackID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.tracks[trackID]
	return t != nil && t.interrupted
}

// write appends samples to the active frame, rotating full frames into the inbox
func (e *Engine) write(ctx context.Context, samples []int16, trackID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.connected {
		return ErrNotConnected
	}

	// Interrupt may have landed while the payload was decoding
	t := e.tracks[trackID]
	if t == nil {
		t = &track{}
		e.tracks[trackID] = t
	}
	if t.interrupted {
		return nil
	}

	if e.active.trackID != trackID {
		if e.active.n > 0 {
			if err := e.rotate(ctx); err != nil {
				return err
			}
		}
		e.active.reset(trackID)
	}
	e.activeTrack = trackID

	for len(samples) > 0 {
		n := e.active.write(samples)
		samples = samples[n:]
		if e.active.full() {
			if err := e.rotate(ctx); err != nil {
				return err
			}
		}
	}

	if e.idle != nil {
		e.idle.Reset(e.config.IdleFlush)
	}
	return nil
}

// rotate hands the active frame to the render side and takes a fresh one (must hold e.mu)
func (e *Engine) rotate(ctx context.Context) error {
	f := e.active
	e.queued.Add(1)
	if err := e.send(ctx, message{kind: msgFrame, frame: f}); err != nil {
		e.queued.Add(-1)
		return err
	}

	var next *frame
	select {
	case next = <-e.recycle:
	default:
		next = newFrame(e.config.FrameSize)
	}
	next.reset(f.trackID)
	e.active = next
	return nil
}

// send blocks while the inbox is full, bounded by ctx
func (e *Engine) send(ctx context.Context, msg message) error {
	select {
	case e.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrClosed
	}
}

// Flush pushes the partially filled active frame into the queue
func (e *Engine) Flush() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.connected || e.active.n == 0 {
		return
	}
	if err := e.rotate(context.Background()); err != nil {
		log.Printf("Flush failed: %v", err)
	}
}

// idleFlush pushes the partial frame once the render side has run dry. While
// frames are still queued the partial frame is not the end of the stream, so
// the timer re-arms instead.
func (e *Engine) idleFlush() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.connected || e.active.n == 0 {
		return
	}
	if e.queued.Load() > 0 {
		e.idle.Reset(e.config.IdleFlush)
		return
	}
	if err := e.rotate(context.Background()); err != nil {
		log.Printf("Idle flush failed: %v", err)
	}
}

// QueryOffset asks the render side for a track's position. An empty id means
// the active track; an unknown track, or no track at all, yields nil.
func (e *Engine) QueryOffset(ctx context.Context, trackID string) (*Offset, error) {
	e.mu.Lock()
	if !e.connected {
		e.mu.Unlock()
		return nil, e.notConnectedErr()
	}
	if trackID == "" {
		trackID = e.activeTrack
	}
	if trackID == "" || e.tracks[trackID] == nil {
		e.mu.Unlock()
		return nil, nil
	}

	requestID, ch := e.register()
	err := e.send(ctx, message{kind: msgQuery, requestID: requestID, trackID: trackID})
	e.mu.Unlock()
	if err != nil {
		e.unregister(requestID)
		return nil, err
	}

	return e.await(ctx, requestID, ch)
}

// Interrupt stops the active track from accepting audio and returns its position
func (e *Engine) Interrupt(ctx context.Context) (*Offset, error) {
	e.mu.Lock()
	if !e.connected {
		e.mu.Unlock()
		return nil, e.notConnectedErr()
	}
	trackID := e.activeTrack
	if trackID == "" {
		e.mu.Unlock()
		return nil, nil
	}

	e.tracks[trackID].interrupted = true
	if e.active.trackID == trackID && e.active.n > 0 {
		if e.config.InterruptPolicy == FlushQueued {
			e.active.reset(trackID)
		} else if err := e.rotate(ctx); err != nil {
			e.mu.Unlock()
			return nil, err
		}
	}

	requestID, ch := e.register()
	err := e.send(ctx, message{kind: msgInterrupt, requestID: requestID, trackID: trackID})
	e.mu.Unlock()
	if err != nil {
		e.unregister(requestID)
		return nil, err
	}

	log.Printf("Interrupted track %s", trackID)
	return e.await(ctx, requestID, ch)
}

func (e *Engine) notConnectedErr() error {
	if e.isClosed() {
		return ErrClosed
	}
	return ErrNotConnected
}

func (e *Engine) register() (string, chan reply) {
	requestID := uuid.NewString()
	ch := make(chan reply, 1)

	e.pendingMu.Lock()
	e.pending[requestID] = ch
	e.pendingMu.Unlock()

	return requestID, ch
}

func (e *Engine) unregister(requestID string) {
	e.pendingMu.Lock()
	delete(e.pending, requestID)
	e.pendingMu.Unlock()
}

func (e *Engine) await(ctx context.Context, requestID string, ch <-chan reply) (*Offset, error) {
	timer := time.NewTimer(e.config.ReplyTimeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		return &Offset{
			TrackID:      r.trackID,
			SampleOffset: r.offset,
			Time:         float64(r.offset) / float64(e.SampleRate()),
		}, nil
	case <-timer.C:
		e.unregister(requestID)
		return nil, ErrReplyTimeout
	case <-ctx.Done():
		e.unregister(requestID)
		return nil, ctx.Err()
	case <-e.done:
		e.unregister(requestID)
		return nil, ErrClosed
	}
}

// dispatchReplies routes render replies to the waiting request
func (e *Engine) dispatchReplies() {
	defer e.wg.Done()

	for {
		select {
		case r := <-e.replies:
			e.pendingMu.Lock()
			ch, ok := e.pending[r.requestID]
			delete(e.pending, r.requestID)
			e.pendingMu.Unlock()
			if ok {
				ch <- r
			}
		case <-e.done:
			return
		}
	}
}

// GetFrequencies returns a normalized spectrum of the most recent output
func (e *Engine) GetFrequencies(kind AnalysisKind, minDb, maxDb float64) (*Spectrum, error) {
	e.mu.Lock()
	analyser := e.analyser
	connected := e.connected
	e.mu.Unlock()

	if !connected || analyser == nil {
		return nil, e.notConnectedErr()
	}
	return analyser.Frequencies(kind, minDb, maxDb)
}

// Stats returns a snapshot of the engine counters
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	tracks := len(e.tracks)
	proc := e.proc
	e.mu.Unlock()

	stats := Stats{
		SampleRate:   e.SampleRate(),
		QueuedFrames: e.queued.Load(),
		Dropped:      e.dropped.Load(),
		Tracks:       tracks,
		DeviceLost:   e.lost.Load(),
	}
	if proc != nil {
		stats.RenderedFrames = proc.rendered.Load()
		stats.Underruns = proc.underruns.Load()
	}
	return stats
}

func (e *Engine) isClosed() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// Close stops the device and fails pending requests with ErrClosed
func (e *Engine) Close() error {
	// Closing done first releases writers blocked on a full inbox while holding mu
	e.closeOnce.Do(func() { close(e.done) })

	e.mu.Lock()
	if !e.connected {
		e.mu.Unlock()
		return nil
	}
	e.connected = false
	if e.idle != nil {
		e.idle.Stop()
	}
	device := e.config.Device
	e.mu.Unlock()

	err := device.Close()
	e.wg.Wait()

	log.Printf("Streaming engine closed")
	if err != nil {
		return fmt.Errorf("failed to close device: %w", err)
	}
	return nil
}
