// ABOUTME: Voice agent player application
// ABOUTME: Routes conversation events to the streaming engine and answers pings
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/harperreed/wavstream/internal/version"
	"github.com/harperreed/wavstream/pkg/protocol"
	"github.com/harperreed/wavstream/pkg/wavstream"
)

// Config holds player configuration
type Config struct {
	// RelayURL is the WebSocket address of the relay or agent
	RelayURL string

	// Language and VoiceID override agent settings in the handshake
	Language string
	VoiceID  string

	// Engine configures audio playback
	Engine wavstream.Config

	// OnStatus is called when the connection status changes
	OnStatus func(protocol.Status)

	// OnAgentResponse is called with each agent reply text
	OnAgentResponse func(string)

	// OnUserTranscript is called with each recognized user utterance
	OnUserTranscript func(string)

	// OnMetadata is called when the conversation starts
	OnMetadata func(protocol.InitiationMetadataEvent)

	// OnError is called when handling an event fails
	OnError func(error)
}

// ponger answers pings; satisfied by *protocol.Client
type ponger interface {
	SendPong(eventID int) error
}

// Stats counts handled events
type Stats struct {
	Audio         int64
	Interruptions int64
	Pings         int64
	Ignored       int64
	Engine        wavstream.Stats
}

// Player plays agent speech received over the conversation protocol
type Player struct {
	config Config
	engine *wavstream.Engine
	client *protocol.Client
	pong   ponger

	mu      sync.Mutex
	trackID string

	audio         atomic.Int64
	interruptions atomic.Int64
	pings         atomic.Int64
	ignored       atomic.Int64
}

// New creates a player
func New(config Config) *Player {
	p := &Player{
		config:  config,
		engine:  wavstream.NewEngine(config.Engine),
		trackID: uuid.NewString(),
	}
	p.client = protocol.NewClient(protocol.Config{
		URL:      config.RelayURL,
		Header:   http.Header{"User-Agent": {version.UserAgent()}},
		Language: config.Language,
		VoiceID:  config.VoiceID,
		OnStatus: p.statusChanged,
	})
	p.pong = p.client
	return p
}

// newWithEngine builds a player around an existing engine without a transport
func newWithEngine(config Config, engine *wavstream.Engine, pong ponger) *Player {
	return &Player{
		config:  config,
		engine:  engine,
		pong:    pong,
		trackID: uuid.NewString(),
	}
}

func (p *Player) statusChanged(status protocol.Status) {
	log.Printf("Connection status: %s", status)
	if p.config.OnStatus != nil {
		p.config.OnStatus(status)
	}
}

// Engine returns the playback engine
func (p *Player) Engine() *wavstream.Engine {
	return p.engine
}

// Connect opens the audio device, then the conversation
func (p *Player) Connect(ctx context.Context) error {
	if err := p.engine.Connect(ctx); err != nil {
		return fmt.Errorf("failed to start audio: %w", err)
	}
	if err := p.client.Dial(ctx); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	return nil
}

// Run handles events until the connection ends or ctx is cancelled
func (p *Player) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-p.client.Events:
			if !ok {
				if err := p.client.Err(); err != nil {
					return fmt.Errorf("connection lost: %w", err)
				}
				return nil
			}
			if err := p.Handle(ctx, ev); err != nil {
				p.reportError(err)
			}
		}
	}
}

// Handle processes one event
func (p *Player) Handle(ctx context.Context, ev protocol.Event) error {
	switch ev := ev.(type) {
	case protocol.AudioEvent:
		p.audio.Add(1)
		if _, err := p.engine.EnqueueBase64(ctx, ev.AudioBase64, p.currentTrack()); err != nil {
			return fmt.Errorf("failed to enqueue audio event %d: %w", ev.EventID, err)
		}

	case protocol.InterruptionEvent:
		p.interruptions.Add(1)
		return p.interrupt(ctx)

	case protocol.PingEvent:
		p.pings.Add(1)
		if err := p.pong.SendPong(ev.EventID); err != nil {
			return fmt.Errorf("failed to send pong %d: %w", ev.EventID, err)
		}

	case protocol.AgentResponseEvent:
		log.Printf("Agent: %s", ev.Text)
		if p.config.OnAgentResponse != nil {
			p.config.OnAgentResponse(ev.Text)
		}

	case protocol.UserTranscriptEvent:
		log.Printf("User: %s", ev.Text)
		if p.config.OnUserTranscript != nil {
			p.config.OnUserTranscript(ev.Text)
		}

	case protocol.InitiationMetadataEvent:
		log.Printf("Conversation %s started (agent output %s, user input %s)",
			ev.ConversationID, ev.AgentOutputAudioFormat, ev.UserInputAudioFormat)
		if rate, ok := ev.OutputSampleRate(); ok {
			p.engine.SetRawPCMRate(rate)
		}
		if p.config.OnMetadata != nil {
			p.config.OnMetadata(ev)
		}

	case protocol.IgnoredEvent:
		p.ignored.Add(1)
		log.Printf("Unhandled event type: %s", ev.Type)

	default:
		return fmt.Errorf("unexpected event %T", ev)
	}

	return nil
}

// Interrupt stops the agent's current response locally
func (p *Player) Interrupt(ctx context.Context) error {
	p.interruptions.Add(1)
	return p.interrupt(ctx)
}

// Position reports the playback offset of the current response
func (p *Player) Position(ctx context.Context) (*wavstream.Offset, error) {
	return p.engine.QueryOffset(ctx, p.currentTrack())
}

// interrupt cancels the current response; later audio starts a new track
func (p *Player) interrupt(ctx context.Context) error {
	off, err := p.engine.Interrupt(ctx)

	p.mu.Lock()
	p.trackID = uuid.NewString()
	p.mu.Unlock()

	if err != nil {
		if errors.Is(err, wavstream.ErrReplyTimeout) {
			log.Printf("Interrupt acknowledged late: %v", err)
			return nil
		}
		return fmt.Errorf("interrupt failed: %w", err)
	}
	if off != nil {
		log.Printf("Interrupted track %s at %.2fs", off.TrackID, off.Time)
	}
	return nil
}

func (p *Player) currentTrack() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.trackID
}

func (p *Player) reportError(err error) {
	log.Printf("Player error: %v", err)
	if p.config.OnError != nil {
		p.config.OnError(err)
	}
}

// Stats returns event and engine counters
func (p *Player) Stats() Stats {
	return Stats{
		Audio:         p.audio.Load(),
		Interruptions: p.interruptions.Load(),
		Pings:         p.pings.Load(),
		Ignored:       p.ignored.Load(),
		Engine:        p.engine.Stats(),
	}
}

// Close hangs up and stops playback
func (p *Player) Close() error {
	if p.client != nil {
		p.client.Close()
	}
	return p.engine.Close()
}
