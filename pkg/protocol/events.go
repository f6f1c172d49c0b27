// ABOUTME: Inbound conversation events as a closed set of types
// ABOUTME: Parses server JSON frames into typed events, keeping unknown types as IgnoredEvent
package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Event type names carried in the "type" field
const (
	TypeAudio              = "audio"
	TypeInterruption       = "interruption"
	TypePing               = "ping"
	TypePong               = "pong"
	TypeAgentResponse      = "agent_response"
	TypeUserTranscript     = "user_transcript"
	TypeInitiationMetadata = "conversation_initiation_metadata"
	TypeClientInitiation   = "conversation_initiation_client_data"
)

// Event is one inbound server message
type Event interface {
	// EventType returns the wire type name
	EventType() string
}

// AudioEvent carries a chunk of agent speech
type AudioEvent struct {
	EventID     int
	AudioBase64 string
}

// InterruptionEvent tells the client to stop playing the current response
type InterruptionEvent struct {
	EventID int
}

// PingEvent must be answered with a pong carrying the same event id
type PingEvent struct {
	EventID int
	PingMs  int
}

// AgentResponseEvent carries the text of an agent reply
type AgentResponseEvent struct {
	Text string
}

// UserTranscriptEvent carries the recognized user speech
type UserTranscriptEvent struct {
	Text string
}

// InitiationMetadataEvent describes the conversation once it starts
type InitiationMetadataEvent struct {
	ConversationID         string
	AgentOutputAudioFormat string
	UserInputAudioFormat   string
}

// IgnoredEvent is any message type this client does not handle
type IgnoredEvent struct {
	Type string
	Raw  json.RawMessage
}

func (AudioEvent) EventType() string { return TypeAudio }
func (InterruptionEvent) EventType() string { return TypeInterruption }
func (PingEvent) EventType() string { return TypePing }
func (AgentResponseEvent) EventType() string { return TypeAgentResponse }
func (UserTranscriptEvent) EventType() string { return TypeUserTranscript }
func (InitiationMetadataEvent) EventType() string { return TypeInitiationMetadata }
func (e IgnoredEvent) EventType() string { return e.Type }

// OutputSampleRate parses a "pcm_<rate>" output format. Other formats carry
// their own rate in a container header and report false.
func (e InitiationMetadataEvent) OutputSampleRate() (int, bool) {
	rest, ok := strings.CutPrefix(e.AgentOutputAudioFormat, "pcm_")
	if !ok {
		return 0, false
	}
	rate, err := strconv.Atoi(rest)
	if err != nil || rate <= 0 {
		return 0, false
	}
	return rate, true
}

// envelope mirrors every inbound shape; only the member named by Type is set
type envelope struct {
	Type string `json:"type"`

	AudioEvent *struct {
		AudioBase64 string `json:"audio_base_64"`
		EventID     int    `json:"event_id"`
	} `json:"audio_event"`

	InterruptionEvent *struct {
		EventID int `json:"event_id"`
	} `json:"interruption_event"`

	PingEvent *struct {
		EventID int `json:"event_id"`
		PingMs  int `json:"ping_ms"`
	} `json:"ping_event"`

	AgentResponseEvent *struct {
		AgentResponse string `json:"agent_response"`
	} `json:"agent_response_event"`

	UserTranscriptionEvent *struct {
		UserTranscript string `json:"user_transcript"`
	} `json:"user_transcription_event"`

	InitiationMetadataEvent *struct {
		ConversationID         string `json:"conversation_id"`
		AgentOutputAudioFormat string `json:"agent_output_audio_format"`
		UserInputAudioFormat   string `json:"user_input_audio_format"`
	} `json:"conversation_initiation_metadata_event"`
}

// ParseEvent decodes one JSON text frame
func ParseEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse event: %w", err)
	}

	switch env.Type {
	case TypeAudio:
		if env.AudioEvent == nil {
			return nil, fmt.Errorf("audio event without audio_event body")
		}
		return AudioEvent{EventID: env.AudioEvent.EventID, AudioBase64: env.AudioEvent.AudioBase64}, nil

	case TypeInterruption:
		ev := InterruptionEvent{}
		if env.InterruptionEvent != nil {
			ev.EventID = env.InterruptionEvent.EventID
		}
		return ev, nil

	case TypePing:
		if env.PingEvent == nil {
			return nil, fmt.Errorf("ping event without ping_event body")
		}
		return PingEvent{EventID: env.PingEvent.EventID, PingMs: env.PingEvent.PingMs}, nil

	case TypeAgentResponse:
		ev := AgentResponseEvent{}
		if env.AgentResponseEvent != nil {
			ev.Text = env.AgentResponseEvent.AgentResponse
		}
		return ev, nil

	case TypeUserTranscript:
		ev := UserTranscriptEvent{}
		if env.UserTranscriptionEvent != nil {
			ev.Text = env.UserTranscriptionEvent.UserTranscript
		}
		return ev, nil

	case TypeInitiationMetadata:
		ev := InitiationMetadataEvent{}
		if m := env.InitiationMetadataEvent; m != nil {
			ev.ConversationID = m.ConversationID
			ev.AgentOutputAudioFormat = m.AgentOutputAudioFormat
			ev.UserInputAudioFormat = m.UserInputAudioFormat
		}
		return ev, nil

	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return IgnoredEvent{Type: env.Type, Raw: raw}, nil
	}
}
