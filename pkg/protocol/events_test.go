// ABOUTME: Tests for inbound event parsing
// ABOUTME: Covers every event type, the ignored case and malformed input
package protocol

import (
	"testing"
)

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Event
	}{
		{
			name: "audio",
			data: `{"type":"audio","audio_event":{"audio_base_64":"AAEC","event_id":7}}`,
			want: AudioEvent{EventID: 7, AudioBase64: "AAEC"},
		},
		{
			name: "interruption with body",
			data: `{"type":"interruption","interruption_event":{"event_id":9}}`,
			want: InterruptionEvent{EventID: 9},
		},
		{
			name: "bare interruption",
			data: `{"type":"interruption"}`,
			want: InterruptionEvent{},
		},
		{
			name: "ping",
			data: `{"type":"ping","ping_event":{"event_id":3,"ping_ms":42}}`,
			want: PingEvent{EventID: 3, PingMs: 42},
		},
		{
			name: "ping with null latency",
			data: `{"type":"ping","ping_event":{"event_id":4,"ping_ms":null}}`,
			want: PingEvent{EventID: 4},
		},
		{
			name: "agent response",
			data: `{"type":"agent_response","agent_response_event":{"agent_response":"Hello there"}}`,
			want: AgentResponseEvent{Text: "Hello there"},
		},
		{
			name: "user transcript",
			data: `{"type":"user_transcript","user_transcription_event":{"user_transcript":"hi"}}`,
			want: UserTranscriptEvent{Text: "hi"},
		},
		{
			name: "initiation metadata",
			data: `{"type":"conversation_initiation_metadata","conversation_initiation_metadata_event":{"conversation_id":"c1","agent_output_audio_format":"pcm_16000","user_input_audio_format":"pcm_16000"}}`,
			want: InitiationMetadataEvent{ConversationID: "c1", AgentOutputAudioFormat: "pcm_16000", UserInputAudioFormat: "pcm_16000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEvent([]byte(tt.data))
			if err != nil {
				t.Fatalf("ParseEvent failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseEvent() = %#v, want %#v", got, tt.want)
			}
			if got.EventType() != tt.want.EventType() {
				t.Errorf("EventType() = %q, want %q", got.EventType(), tt.want.EventType())
			}
		})
	}
}

func TestParseEventIgnored(t *testing.T) {
	data := []byte(`{"type":"vad_score","vad_score_event":{"vad_score":0.9}}`)

	ev, err := ParseEvent(data)
	if err != nil {
		t.Fatalf("ParseEvent failed: %v", err)
	}
	ignored, ok := ev.(IgnoredEvent)
	if !ok {
		t.Fatalf("expected IgnoredEvent, got %T", ev)
	}
	if ignored.Type != "vad_score" {
		t.Errorf("Type = %q, want vad_score", ignored.Type)
	}
	if string(ignored.Raw) != string(data) {
		t.Errorf("Raw = %s, want original frame", ignored.Raw)
	}
}

func TestParseEventErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"type":`},
		{"audio without body", `{"type":"audio"}`},
		{"ping without body", `{"type":"ping"}`},
		{"wrong field type", `{"type":"ping","ping_event":{"event_id":"abc"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseEvent([]byte(tt.data)); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestOutputSampleRate(t *testing.T) {
	tests := []struct {
		format string
		rate   int
		ok     bool
	}{
		{"pcm_16000", 16000, true},
		{"pcm_44100", 44100, true},
		{"mp3_44100_128", 0, false},
		{"ulaw_8000", 0, false},
		{"pcm_", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		ev := InitiationMetadataEvent{AgentOutputAudioFormat: tt.format}
		rate, ok := ev.OutputSampleRate()
		if rate != tt.rate || ok != tt.ok {
			t.Errorf("OutputSampleRate(%q) = %d, %v; want %d, %v", tt.format, rate, ok, tt.rate, tt.ok)
		}
	}
}
