// ABOUTME: Real-time streaming playback engine
// ABOUTME: Bridges bursty network audio to a fixed-cadence output device
// Package wavstream plays audio chunks that arrive asynchronously as one
// continuous stream.
//
// Two timing domains meet here. Callers enqueue payloads from any goroutine;
// the engine decodes them (WAV, MP3, FLAC, Ogg Opus or raw PCM16LE), resamples
// to the device rate and packs the samples into fixed-size frames. The device
// callback renders one frame per period and plays silence when the queue is
// empty. The two sides talk only through ordered channels, so the render path
// never blocks.
//
// Playback position is tracked per track and advances only as samples are
// actually rendered. Interrupt latches the active track so later chunks for it
// are dropped, which is how a voice agent cancels speech mid-utterance.
//
// Example:
//
//	engine := wavstream.NewEngine(wavstream.Config{})
//	if err := engine.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close()
//
//	trackID, err := engine.EnqueueBase64(ctx, chunk, "")
//	offset, err := engine.QueryOffset(ctx, trackID)
package wavstream
