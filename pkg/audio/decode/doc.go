// ABOUTME: Audio decoder package for container and raw payloads
// ABOUTME: Provides Decoder interface and implementations for WAV, MP3, FLAC, Ogg Opus and raw PCM
// Package decode provides audio decoders for the payloads a voice agent streams.
//
// Container payloads (WAV, MP3, FLAC, Ogg Opus) carry their own sample rate and are
// detected from their magic bytes. Headerless PCM has no rate of its own, so the
// caller supplies one.
//
// All decoders output mono int16 samples; multi-channel input is downmixed.
//
// Example:
//
//	buf, err := decode.Container(payload)
//	if err != nil {
//	    samples := decode.PCM16LE(payload) // raw fallback
//	}
package decode
