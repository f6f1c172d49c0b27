// ABOUTME: Frames and the messages exchanged between control and render domains
// ABOUTME: A frame holds samples of exactly one track
package wavstream

type frame struct {
	samples []int16
	n       int
	trackID string
}

func newFrame(size int) *frame {
	return &frame{samples: make([]int16, size)}
}

func (f *frame) full() bool {
	return f.n == len(f.samples)
}

// write copies as much of samples as fits and returns how many were taken
func (f *frame) write(samples []int16) int {
	n := copy(f.samples[f.n:], samples)
	f.n += n
	return n
}

func (f *frame) reset(trackID string) {
	f.n = 0
	f.trackID = trackID
}

type messageKind int

const (
	msgFrame messageKind = iota
	msgQuery
	msgInterrupt
)

// message travels control -> render over the inbox, in order
type message struct {
	kind      messageKind
	frame     *frame
	requestID string
	trackID   string
}

// reply travels render -> control, tagged with the request it answers
type reply struct {
	requestID string
	trackID   string
	offset    int64
}
