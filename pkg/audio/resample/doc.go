// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts audio between different sample rates
// Package resample provides audio sample rate conversion.
//
// Conversion is offline: a whole decoded chunk is rendered at the target rate
// before it is handed to the playback engine, so it never runs on the device clock.
// Output length is ceil(len × target / source), which preserves duration.
//
// Example:
//
//	out := resample.Resample(pcm16k, 16000, 44100)
package resample
