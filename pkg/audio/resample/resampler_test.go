// ABOUTME: Tests for audio resampler
// ABOUTME: Tests identity passthrough, duration preservation and interpolation
package resample

import (
	"math/rand"
	"testing"
)

func TestNew(t *testing.T) {
	r, err := New(16000, 44100)
	if err != nil {
		t.Fatalf("failed to create resampler: %v", err)
	}

	if r.InputRate() != 16000 {
		t.Errorf("expected inputRate 16000, got %d", r.InputRate())
	}

	if r.OutputRate() != 44100 {
		t.Errorf("expected outputRate 44100, got %d", r.OutputRate())
	}
}

func TestNew_InvalidRates(t *testing.T) {
	if _, err := New(0, 44100); err == nil {
		t.Error("expected error for zero input rate")
	}
	if _, err := New(16000, -1); err == nil {
		t.Error("expected error for negative output rate")
	}
}

func TestResampleSameRateIsIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for _, rate := range []int{8000, 16000, 44100, 48000} {
		input := make([]int16, 1000)
		for i := range input {
			input[i] = int16(rng.Intn(65536) - 32768)
		}

		output := Resample(input, rate, rate)
		if len(output) != len(input) {
			t.Fatalf("rate %d: expected %d samples, got %d", rate, len(input), len(output))
		}
		for i := range input {
			if output[i] != input[i] {
				t.Fatalf("rate %d: sample %d changed: %d -> %d", rate, i, input[i], output[i])
			}
		}

		// Identity must not alias the caller's buffer
		output[0]++
		if output[0] == input[0] {
			t.Errorf("rate %d: identity output aliases input", rate)
		}
	}
}

func TestResampleSpeechFrameTo44100(t *testing.T) {
	input := make([]int16, 320)
	for i := range input {
		input[i] = int16(i * 10)
	}

	output := Resample(input, 16000, 44100)
	if len(output) != 882 {
		t.Errorf("expected 882 samples, got %d", len(output))
	}
}

func TestResampleRoundTripPreservesDuration(t *testing.T) {
	pairs := []struct {
		from, to int
	}{
		{16000, 44100},
		{44100, 16000},
		{48000, 44100},
		{24000, 48000},
		{44100, 22050},
		{22050, 48000},
	}
	lengths := []int{1, 7, 320, 1024, 4410, 12345}

	for _, p := range pairs {
		for _, n := range lengths {
			input := make([]int16, n)
			there := Resample(input, p.from, p.to)
			back := Resample(there, p.to, p.from)

			// One output sample of rounding per pass, scaled back to the source rate
			tolerance := (p.from+p.to-1)/p.to + 1
			diff := len(back) - n
			if diff < 0 {
				diff = -diff
			}
			if diff > tolerance {
				t.Errorf("%d->%d->%d with %d samples: got %d back (tolerance %d)",
					p.from, p.to, p.from, n, len(back), tolerance)
			}
		}
	}
}

func TestResampleUpsamplingInterpolates(t *testing.T) {
	// Ramp signal: interpolated values must stay between neighbours
	input := make([]int16, 100)
	for i := range input {
		input[i] = int16(i * 100)
	}

	output := Resample(input, 8000, 48000)
	if len(output) != 600 {
		t.Fatalf("expected 600 samples, got %d", len(output))
	}

	for i := 1; i < len(output); i++ {
		if output[i] < output[i-1] {
			t.Fatalf("ramp not monotonic at %d: %d < %d", i, output[i], output[i-1])
		}
	}

	// Tail holds the last input sample
	last := output[len(output)-1]
	if diff := int(input[len(input)-1]) - int(last); diff < 0 || diff > 1 {
		t.Errorf("expected tail ~%d, got %d", input[len(input)-1], last)
	}
}

func TestResampleDownsampling(t *testing.T) {
	input := make([]int16, 480)
	for i := range input {
		input[i] = 1000
	}

	output := Resample(input, 48000, 16000)
	if len(output) != 160 {
		t.Fatalf("expected 160 samples, got %d", len(output))
	}

	for i, s := range output {
		if s < 998 || s > 1000 {
			t.Fatalf("sample %d: expected ~1000, got %d", i, s)
		}
	}
}

func TestResampleFullScaleSaturates(t *testing.T) {
	input := []int16{32767, -32768, 32767, -32768, 32767}

	output := Resample(input, 16000, 48000)
	for i, s := range output {
		// Full-scale input never wraps to the opposite sign
		if i%3 == 0 && i/3 < len(input) {
			want := input[i/3]
			if (want > 0 && s < 32000) || (want < 0 && s > -32000) {
				t.Errorf("sample %d: expected near %d, got %d", i, want, s)
			}
		}
	}
}

func TestResampleEmptyInput(t *testing.T) {
	if out := Resample(nil, 16000, 44100); len(out) != 0 {
		t.Errorf("expected 0 samples from empty input, got %d", len(out))
	}
}

func TestResampleInvalidRate(t *testing.T) {
	if out := Resample([]int16{1, 2, 3}, 0, 44100); out != nil {
		t.Errorf("expected nil for invalid rate, got %v", out)
	}
}

func TestOutputSamplesNeeded(t *testing.T) {
	r, err := New(16000, 44100)
	if err != nil {
		t.Fatalf("failed to create resampler: %v", err)
	}

	tests := []struct {
		input, expected int
	}{
		{0, 0},
		{1, 3},
		{320, 882},
		{16000, 44100},
	}

	for _, tt := range tests {
		if got := r.OutputSamplesNeeded(tt.input); got != tt.expected {
			t.Errorf("OutputSamplesNeeded(%d): expected %d, got %d", tt.input, tt.expected, got)
		}
	}
}
