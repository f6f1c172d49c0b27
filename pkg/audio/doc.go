// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Buffer types and sample conversion functions
// Package audio provides fundamental audio types and utilities for streamed speech playback.
//
// This package defines core types used throughout the wavstream library:
//   - Format: Describes audio stream format (codec, sample rate, channels, bit depth)
//   - Buffer: Represents decoded mono PCM audio
//
// It also provides utilities for converting between sample representations:
//   - int16 ↔ float32 with saturation
//   - wide (24/32-bit) → int16
//   - interleaved multi-channel → mono
//
// Example:
//
//	buf := audio.Buffer{
//	    Samples: pcm,
//	    Format:  audio.Format{Codec: "pcm", SampleRate: 16000, Channels: 1, BitDepth: 16},
//	}
//
//	f := audio.SampleToFloat(buf.Samples[0])
package audio
