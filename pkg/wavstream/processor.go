// ABOUTME: Render processor executed on the device callback
// ABOUTME: Owns the frame queue and per-track counters; never blocks
package wavstream

import (
	"sync/atomic"
)

// processor is the render domain. Every field except the atomics is touched
// only from Render, which the device calls from a single thread.
type processor struct {
	inbox   <-chan message
	replies chan<- reply
	recycle chan<- *frame
	policy  InterruptPolicy
	tap     *Analyser

	queue       []*frame
	counters    map[string]int64
	interrupted map[string]bool

	// queued is shared with the engine: incremented on send, decremented here
	queued    *atomic.Int64
	rendered  atomic.Int64
	underruns atomic.Int64
}

func newProcessor(inbox <-chan message, replies chan<- reply, recycle chan<- *frame, policy InterruptPolicy, tap *Analyser, queued *atomic.Int64) *processor {
	return &processor{
		inbox:       inbox,
		replies:     replies,
		recycle:     recycle,
		policy:      policy,
		tap:         tap,
		counters:    make(map[string]int64),
		interrupted: make(map[string]bool),
		queued:      queued,
	}
}

// Render produces one period of output
func (p *processor) Render(out []int16) {
	p.drainInbox()

	if len(p.queue) == 0 {
		clear(out)
		p.underruns.Add(1)
	} else {
		f := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]

		n := copy(out, f.samples[:f.n])
		clear(out[n:])
		p.counters[f.trackID] += int64(n)
		p.rendered.Add(1)
		p.release(f)
	}

	if p.tap != nil {
		p.tap.write(out)
	}
}

func (p *processor) drainInbox() {
	for {
		select {
		case msg := <-p.inbox:
			p.handle(msg)
		default:
			return
		}
	}
}

func (p *processor) handle(msg message) {
	switch msg.kind {
	case msgFrame:
		// A frame that raced its track's interrupt never plays
		if p.interrupted[msg.frame.trackID] {
			p.release(msg.frame)
			return
		}
		p.queue = append(p.queue, msg.frame)
	case msgQuery:
		p.reply(msg.requestID, msg.trackID)
	case msgInterrupt:
		p.interrupted[msg.trackID] = true
		if p.policy == FlushQueued {
			p.dropTrack(msg.trackID)
		}
		p.reply(msg.requestID, msg.trackID)
	}
}

// dropTrack removes a track's queued frames, keeping the order of the rest
func (p *processor) dropTrack(trackID string) {
	kept := p.queue[:0]
	for _, f := range p.queue {
		if f.trackID == trackID {
			p.release(f)
			continue
		}
		kept = append(kept, f)
	}
	clear(p.queue[len(kept):])
	p.queue = kept
}

func (p *processor) release(f *frame) {
	p.queued.Add(-1)
	select {
	case p.recycle <- f:
	default:
	}
}

func (p *processor) reply(requestID, trackID string) {
	select {
	case p.replies <- reply{requestID: requestID, trackID: trackID, offset: p.counters[trackID]}:
	default:
		// Reply channel full; the caller times out
	}
}
