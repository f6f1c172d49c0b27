// ABOUTME: Spectrum analysis tap fed by the render path
// ABOUTME: Ring buffer plus windowed FFT for frequency, music and voice views
package wavstream

import (
	"fmt"
	"math"
	"sync"

	"github.com/harperreed/wavstream/pkg/audio"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// AnalysisKind selects how spectrum bins are grouped
type AnalysisKind string

const (
	// KindFrequency reports one value per FFT bin
	KindFrequency AnalysisKind = "frequency"
	// KindMusic reports one value per note from A0 to B8
	KindMusic AnalysisKind = "music"
	// KindVoice reports the notes in the human voice range
	KindVoice AnalysisKind = "voice"
)

const (
	defaultMinDb = -100.0
	defaultMaxDb = -30.0

	voiceLowHz  = 32.0
	voiceHighHz = 2000.0

	// MIDI numbers of A0 and B8
	lowestNote  = 21
	highestNote = 119
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Spectrum is a normalized snapshot of the output
type Spectrum struct {
	Values      []float64
	Frequencies []float64
	Labels      []string
}

// Analyser keeps the most recent output samples for on-demand FFTs
type Analyser struct {
	mu   sync.Mutex
	ring []float64
	pos  int
	rate int

	smoothing float64
	smoothed  []float64
	fft       *fourier.FFT
}

func newAnalyser(size, sampleRate int, smoothing float64) *Analyser {
	return &Analyser{
		ring:      make([]float64, size),
		rate:      sampleRate,
		smoothing: smoothing,
		smoothed:  make([]float64, size/2),
		fft:       fourier.NewFFT(size),
	}
}

// write copies rendered samples in; it skips the block rather than wait for a reader
func (a *Analyser) write(samples []int16) {
	if !a.mu.TryLock() {
		return
	}
	defer a.mu.Unlock()

	for _, s := range samples {
		a.ring[a.pos] = float64(audio.SampleToFloat(s))
		a.pos = (a.pos + 1) % len(a.ring)
	}
}

// magnitudes returns smoothed per-bin levels in dB
func (a *Analyser) magnitudes() []float64 {
	a.mu.Lock()
	n := len(a.ring)
	seq := make([]float64, n)
	copy(seq, a.ring[a.pos:])
	copy(seq[n-a.pos:], a.ring[:a.pos])

	window.Blackman(seq)
	coeffs := a.fft.Coefficients(nil, seq)

	db := make([]float64, len(a.smoothed))
	for i := range a.smoothed {
		mag := math.Hypot(real(coeffs[i]), imag(coeffs[i])) / float64(n)
		a.smoothed[i] = a.smoothing*a.smoothed[i] + (1-a.smoothing)*mag
		db[i] = 20 * math.Log10(a.smoothed[i])
	}
	a.mu.Unlock()

	return db
}

func (a *Analyser) binFrequency(i int) float64 {
	return float64(i) * float64(a.rate) / float64(len(a.ring))
}

// Frequencies computes a spectrum of the given kind normalized to [minDb, maxDb].
// Zero bounds take the defaults of -100 and -30 dB.
func (a *Analyser) Frequencies(kind AnalysisKind, minDb, maxDb float64) (*Spectrum, error) {
	if minDb == 0 && maxDb == 0 {
		minDb, maxDb = defaultMinDb, defaultMaxDb
	}
	if maxDb <= minDb {
		return nil, fmt.Errorf("invalid decibel range [%v, %v]", minDb, maxDb)
	}

	var (
		lowHz  = 0.0
		highHz = math.Inf(1)
	)
	switch kind {
	case KindFrequency:
		return a.bins(minDb, maxDb), nil
	case KindMusic:
	case KindVoice:
		lowHz, highHz = voiceLowHz, voiceHighHz
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAnalysis, kind)
	}

	db := a.magnitudes()
	spec := &Spectrum{}
	for note := lowestNote; note <= highestNote; note++ {
		freq := noteFrequency(note)
		if freq < lowHz || freq > highHz {
			continue
		}
		spec.Values = append(spec.Values, normalize(a.bandLevel(db, freq), minDb, maxDb))
		spec.Frequencies = append(spec.Frequencies, freq)
		spec.Labels = append(spec.Labels, noteLabel(note))
	}
	return spec, nil
}

func (a *Analyser) bins(minDb, maxDb float64) *Spectrum {
	db := a.magnitudes()
	spec := &Spectrum{
		Values:      make([]float64, len(db)),
		Frequencies: make([]float64, len(db)),
		Labels:      make([]string, len(db)),
	}
	for i, v := range db {
		freq := a.binFrequency(i)
		spec.Values[i] = normalize(v, minDb, maxDb)
		spec.Frequencies[i] = freq
		spec.Labels[i] = fmt.Sprintf("%.2f Hz", freq)
	}
	return spec
}

// bandLevel is the loudest bin within a quarter tone of freq, or the nearest bin
func (a *Analyser) bandLevel(db []float64, freq float64) float64 {
	binWidth := float64(a.rate) / float64(len(a.ring))
	lo := freq * math.Pow(2, -1.0/24)
	hi := freq * math.Pow(2, 1.0/24)

	first := int(math.Ceil(lo / binWidth))
	last := int(math.Floor(hi / binWidth))
	if last >= len(db) {
		last = len(db) - 1
	}

	if first > last {
		nearest := int(math.Round(freq / binWidth))
		if nearest >= len(db) {
			nearest = len(db) - 1
		}
		return db[nearest]
	}

	level := math.Inf(-1)
	for i := first; i <= last; i++ {
		level = math.Max(level, db[i])
	}
	return level
}

func noteFrequency(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

func noteLabel(note int) string {
	return fmt.Sprintf("%s%d", noteNames[note%12], note/12-1)
}

func normalize(db, minDb, maxDb float64) float64 {
	v := (db - minDb) / (maxDb - minDb)
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
