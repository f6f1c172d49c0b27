// ABOUTME: Tests for the render processor
// ABOUTME: Exercises queue order, counters, interrupt handling and replies directly
package wavstream

import (
	"sync/atomic"
	"testing"
)

type processorHarness struct {
	proc    *processor
	inbox   chan message
	replies chan reply
	recycle chan *frame
	queued  *atomic.Int64
}

func newHarness(policy InterruptPolicy, replyCap int) *processorHarness {
	h := &processorHarness{
		inbox:   make(chan message, 16),
		replies: make(chan reply, replyCap),
		recycle: make(chan *frame, 16),
		queued:  &atomic.Int64{},
	}
	h.proc = newProcessor(h.inbox, h.replies, h.recycle, policy, nil, h.queued)
	return h
}

func (h *processorHarness) push(trackID string, samples ...int16) {
	f := newFrame(4)
	f.reset(trackID)
	f.write(samples)
	h.queued.Add(1)
	h.inbox <- message{kind: msgFrame, frame: f}
}

func TestProcessorFIFO(t *testing.T) {
	h := newHarness(DrainQueued, 4)
	h.push("a", 1, 2, 3, 4)
	h.push("b", 5, 6)
	h.push("a", 7)

	want := [][]int16{
		{1, 2, 3, 4},
		{5, 6, 0, 0},
		{7, 0, 0, 0},
		{0, 0, 0, 0},
	}
	for i, w := range want {
		out := []int16{9, 9, 9, 9}
		h.proc.Render(out)
		for j := range w {
			if out[j] != w[j] {
				t.Fatalf("tick %d rendered %v, want %v", i, out, w)
			}
		}
	}

	if got := h.proc.counters["a"]; got != 5 {
		t.Errorf("counter a = %d, want 5", got)
	}
	if got := h.proc.counters["b"]; got != 2 {
		t.Errorf("counter b = %d, want 2", got)
	}
	if h.queued.Load() != 0 {
		t.Errorf("queued = %d, want 0", h.queued.Load())
	}
	if h.proc.underruns.Load() != 1 {
		t.Errorf("underruns = %d, want 1", h.proc.underruns.Load())
	}
	if len(h.recycle) != 3 {
		t.Errorf("expected 3 recycled frames, got %d", len(h.recycle))
	}
}

func TestProcessorQueryReply(t *testing.T) {
	h := newHarness(DrainQueued, 4)
	h.push("a", 1, 2, 3)
	h.proc.Render(make([]int16, 4))

	h.inbox <- message{kind: msgQuery, requestID: "req-1", trackID: "a"}
	h.proc.Render(make([]int16, 4))

	r := <-h.replies
	if r.requestID != "req-1" || r.trackID != "a" || r.offset != 3 {
		t.Errorf("reply = %+v, want req-1/a/3", r)
	}
}

func TestProcessorInterruptDrain(t *testing.T) {
	h := newHarness(DrainQueued, 4)
	h.push("a", 1, 2, 3, 4)
	h.push("a", 5, 6, 7, 8)
	h.inbox <- message{kind: msgInterrupt, requestID: "req", trackID: "a"}

	h.proc.Render(make([]int16, 4))
	h.proc.Render(make([]int16, 4))

	if !h.proc.interrupted["a"] {
		t.Error("expected track a latched as interrupted")
	}
	if got := h.proc.counters["a"]; got != 8 {
		t.Errorf("queued frames should still play under drain, counter = %d", got)
	}
	if r := <-h.replies; r.offset != 0 {
		t.Errorf("interrupt reply offset = %d, want 0", r.offset)
	}
}

func TestProcessorInterruptFlushKeepsOtherTracks(t *testing.T) {
	h := newHarness(FlushQueued, 4)
	h.push("a", 1)
	h.push("b", 2)
	h.push("a", 3)
	h.push("c", 4)
	h.inbox <- message{kind: msgInterrupt, requestID: "req", trackID: "a"}

	var first []int16
	for i := 0; i < 3; i++ {
		out := make([]int16, 4)
		h.proc.Render(out)
		first = append(first, out[0])
	}

	want := []int16{2, 4, 0}
	for i := range want {
		if first[i] != want[i] {
			t.Fatalf("rendered heads %v, want %v", first, want)
		}
	}
	if h.proc.counters["a"] != 0 {
		t.Errorf("flushed track advanced to %d", h.proc.counters["a"])
	}
	if h.queued.Load() != 0 {
		t.Errorf("queued = %d, want 0", h.queued.Load())
	}
}

func TestProcessorDropsFramesAfterInterrupt(t *testing.T) {
	h := newHarness(DrainQueued, 4)
	h.push("a", 1, 2, 3, 4)
	h.inbox <- message{kind: msgInterrupt, requestID: "req", trackID: "a"}
	h.push("a", 5, 6)
	h.push("b", 7)

	for i := 0; i < 3; i++ {
		h.proc.Render(make([]int16, 4))
	}

	if got := h.proc.counters["a"]; got != 4 {
		t.Errorf("counter a = %d, want 4", got)
	}
	if got := h.proc.counters["b"]; got != 1 {
		t.Errorf("counter b = %d, want 1", got)
	}
	if h.queued.Load() != 0 {
		t.Errorf("queued = %d, want 0", h.queued.Load())
	}
	if len(h.recycle) != 3 {
		t.Errorf("expected 3 recycled frames, got %d", len(h.recycle))
	}
}

func TestProcessorReplyNeverBlocks(t *testing.T) {
	h := newHarness(DrainQueued, 1)
	h.inbox <- message{kind: msgQuery, requestID: "1", trackID: "a"}
	h.inbox <- message{kind: msgQuery, requestID: "2", trackID: "a"}

	// Second reply is dropped rather than blocking the render thread
	h.proc.Render(make([]int16, 4))

	if len(h.replies) != 1 {
		t.Errorf("expected 1 buffered reply, got %d", len(h.replies))
	}
}

func TestFrameWrite(t *testing.T) {
	f := newFrame(3)
	f.reset("a")

	if n := f.write([]int16{1, 2}); n != 2 || f.full() {
		t.Fatalf("first write took %d, full=%v", n, f.full())
	}
	if n := f.write([]int16{3, 4, 5}); n != 1 || !f.full() {
		t.Fatalf("second write took %d, full=%v", n, f.full())
	}

	f.reset("b")
	if f.n != 0 || f.trackID != "b" {
		t.Errorf("reset left n=%d track=%q", f.n, f.trackID)
	}
}
