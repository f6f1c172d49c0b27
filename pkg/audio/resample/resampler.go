// ABOUTME: Offline linear resampler for converting audio sample rates
// ABOUTME: Renders a whole buffer at the target rate, preserving its duration
package resample

import (
	"fmt"

	"github.com/harperreed/wavstream/pkg/audio"
)

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
}

// New creates a new resampler
func New(inputRate, outputRate int) (*Resampler, error) {
	if inputRate <= 0 || outputRate <= 0 {
		return nil, fmt.Errorf("invalid sample rates: %d -> %d", inputRate, outputRate)
	}

	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
	}, nil
}

// Render converts a complete mono signal to the output rate.
// The tail holds the last input sample so the output covers the full input duration.
func (r *Resampler) Render(input []float32) []float32 {
	if len(input) == 0 {
		return nil
	}

	output := make([]float32, r.OutputSamplesNeeded(len(input)))
	last := len(input) - 1

	for i := range output {
		pos := float64(i*r.inputRate) / float64(r.outputRate)
		idx := int(pos)
		if idx >= last {
			output[i] = input[last]
			continue
		}

		frac := float32(pos - float64(idx))
		output[i] = input[idx]*(1-frac) + input[idx+1]*frac
	}

	return output
}

// OutputSamplesNeeded calculates how many output samples a full render of n input samples produces
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	// ceil(n * out / in) in integer math so exact ratios stay exact
	return (inputSamples*r.outputRate + r.inputRate - 1) / r.inputRate
}

// InputRate returns the source sample rate
func (r *Resampler) InputRate() int {
	return r.inputRate
}

// OutputRate returns the target sample rate
func (r *Resampler) OutputRate() int {
	return r.outputRate
}

// Resample converts 16-bit PCM from one rate to another.
// Equal rates return a copy of the input; invalid rates return nil.
func Resample(samples []int16, fromRate, toRate int) []int16 {
	if fromRate == toRate {
		return append([]int16(nil), samples...)
	}

	r, err := New(fromRate, toRate)
	if err != nil {
		return nil
	}

	f32 := make([]float32, len(samples))
	for i, s := range samples {
		f32[i] = audio.SampleToFloat(s)
	}

	rendered := r.Render(f32)

	out := make([]int16, len(rendered))
	for i, s := range rendered {
		out[i] = audio.SampleFromFloat(s)
	}
	return out
}
