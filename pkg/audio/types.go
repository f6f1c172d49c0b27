// ABOUTME: Audio type definitions
// ABOUTME: Defines audio formats, decoded buffers and 16-bit sample conversions
package audio

const (
	// 16-bit audio range constants
	MaxInt16 = 32767  // 2^15 - 1
	MinInt16 = -32768 // -2^15
)

// Format describes audio stream format
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// Buffer represents decoded mono PCM audio
type Buffer struct {
	Samples []int16
	Format  Format
}

// Duration returns the buffer length in seconds
func (b Buffer) Duration() float64 {
	if b.Format.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.Format.SampleRate)
}

// SampleToFloat converts an int16 sample to the [-1, 1) float range
func SampleToFloat(sample int16) float32 {
	return float32(sample) / 0x8000
}

// SampleFromFloat converts a float sample to int16, saturating out-of-range values
func SampleFromFloat(sample float32) int16 {
	// Clamp before scaling so overdriven input saturates instead of wrapping
	if sample > 1 {
		sample = 1
	} else if sample < -1 {
		sample = -1
	}
	if sample < 0 {
		return int16(sample * 0x8000)
	}
	return int16(sample * 0x7FFF)
}

// SampleFromWide scales a sample of the given bit depth to int16
func SampleFromWide(sample int32, bitDepth int) int16 {
	switch {
	case bitDepth > 16:
		return int16(sample >> (bitDepth - 16))
	case bitDepth < 16 && bitDepth > 0:
		return int16(sample << (16 - bitDepth))
	default:
		return ClampInt16(int64(sample))
	}
}

// ClampInt16 saturates a wide integer to the int16 range
func ClampInt16(v int64) int16 {
	if v > MaxInt16 {
		return MaxInt16
	}
	if v < MinInt16 {
		return MinInt16
	}
	return int16(v)
}

// Downmix averages interleaved multi-channel samples into mono
func Downmix(interleaved []int16, channels int) []int16 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	mono := make([]int16, frames)
	for i := 0; i < frames; i++ {
		var sum int64
		for ch := 0; ch < channels; ch++ {
			sum += int64(interleaved[i*channels+ch])
		}
		mono[i] = int16(sum / int64(channels))
	}
	return mono
}
