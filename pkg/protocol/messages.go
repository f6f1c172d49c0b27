// ABOUTME: Outbound conversation message definitions
// ABOUTME: Initiation handshake, pong replies and user audio chunks
package protocol

import "encoding/base64"

// ClientInitiation opens a conversation, optionally overriding agent settings
type ClientInitiation struct {
	Type                       string          `json:"type"`
	ConversationConfigOverride *ConfigOverride `json:"conversation_config_override,omitempty"`
}

// ConfigOverride holds per-conversation agent overrides
type ConfigOverride struct {
	Agent *AgentOverride `json:"agent,omitempty"`
	TTS   *TTSOverride   `json:"tts,omitempty"`
}

// AgentOverride overrides agent behaviour
type AgentOverride struct {
	Language string `json:"language,omitempty"`
}

// TTSOverride overrides the synthesized voice
type TTSOverride struct {
	VoiceID string `json:"voice_id,omitempty"`
}

// Pong answers a ping; the event id must be an integer
type Pong struct {
	Type    string `json:"type"`
	EventID int    `json:"event_id"`
}

// UserAudioChunk carries base64 PCM from the user's microphone
type UserAudioChunk struct {
	UserAudioChunk string `json:"user_audio_chunk"`
}

// NewClientInitiation builds the handshake message; empty values are omitted
func NewClientInitiation(language, voiceID string) ClientInitiation {
	msg := ClientInitiation{Type: TypeClientInitiation}
	if language == "" && voiceID == "" {
		return msg
	}

	override := &ConfigOverride{}
	if language != "" {
		override.Agent = &AgentOverride{Language: language}
	}
	if voiceID != "" {
		override.TTS = &TTSOverride{VoiceID: voiceID}
	}
	msg.ConversationConfigOverride = override
	return msg
}

// NewPong builds the reply to a ping
func NewPong(eventID int) Pong {
	return Pong{Type: TypePong, EventID: eventID}
}

// NewUserAudioChunk wraps raw PCM bytes for sending
func NewUserAudioChunk(pcm []byte) UserAudioChunk {
	return UserAudioChunk{UserAudioChunk: base64.StdEncoding.EncodeToString(pcm)}
}
