// ABOUTME: Message rewriting between the browser and the upstream agent
// ABOUTME: Normalizes agent events downstream and fixes pong event ids upstream
package relay

import (
	"encoding/json"
	"log"
	"strconv"

	"github.com/harperreed/wavstream/pkg/protocol"
)

// TransformDownstream normalizes an upstream message for the browser.
// It returns the message to forward and the ping event id if the message
// was a ping carrying an integer id. Malformed input is forwarded unchanged.
func TransformDownstream(data []byte) ([]byte, *int) {
	var msg map[string]json.RawMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return data, nil
	}

	var msgType string
	json.Unmarshal(msg["type"], &msgType)

	switch msgType {
	case protocol.TypeAudio:
		var event struct {
			AudioBase64 string `json:"audio_base_64"`
		}
		if raw, ok := msg["audio_event"]; ok && json.Unmarshal(raw, &event) == nil && event.AudioBase64 != "" {
			return marshalOr(data, map[string]any{
				"type":        protocol.TypeAudio,
				"audio_event": map[string]string{"audio_base_64": event.AudioBase64},
			}), nil
		}

	case protocol.TypeAgentResponse:
		var event struct {
			AgentResponse string `json:"agent_response"`
		}
		if raw, ok := msg["agent_response_event"]; ok && json.Unmarshal(raw, &event) == nil {
			return marshalOr(data, map[string]any{
				"type":                 protocol.TypeAgentResponse,
				"agent_response_event": map[string]string{"agent_response": event.AgentResponse},
			}), nil
		}

	case protocol.TypePing:
		raw, ok := msg["ping_event"]
		if !ok {
			break
		}
		var event struct {
			EventID json.RawMessage `json:"event_id"`
		}
		if err := json.Unmarshal(raw, &event); err != nil {
			break
		}
		out := marshalOr(data, map[string]any{
			"type":       protocol.TypePing,
			"ping_event": map[string]json.RawMessage{"event_id": nullIfEmpty(event.EventID)},
		})
		var id int
		if isJSONValue(event.EventID) && json.Unmarshal(event.EventID, &id) == nil {
			return out, &id
		}
		return out, nil

	case protocol.TypeInitiationMetadata:
		meta := msg["conversation_initiation_metadata_event"]
		if !isJSONValue(meta) {
			meta = json.RawMessage("{}")
		}
		return marshalOr(data, struct {
			Type     string          `json:"type"`
			Metadata json.RawMessage `json:"conversation_initiation_metadata_event"`
		}{protocol.TypeInitiationMetadata, meta}), nil

	case protocol.TypeInterruption:
		return marshalOr(data, map[string]string{"type": protocol.TypeInterruption}), nil
	}

	return data, nil
}

// TransformUpstream rewrites a browser message for the upstream agent.
// Pong event ids sent as the string "ping" become lastPing, numeric strings
// become integers. It reports whether the message was rewritten.
func TransformUpstream(data []byte, lastPing *int) ([]byte, bool) {
	var msg map[string]json.RawMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return data, false
	}

	var msgType string
	json.Unmarshal(msg["type"], &msgType)
	if msgType != protocol.TypePong {
		return data, false
	}

	raw := msg["event_id"]
	if !isJSONValue(raw) {
		log.Printf("Pong without event id, forwarding unchanged")
		return data, false
	}

	var eventID int
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		switch {
		case text == protocol.TypePing && lastPing != nil:
			eventID = *lastPing
		default:
			n, err := strconv.Atoi(text)
			if err != nil {
				log.Printf("Cannot convert pong event id %q to integer", text)
				return data, false
			}
			eventID = n
		}
	} else if err := json.Unmarshal(raw, &eventID); err != nil {
		log.Printf("Pong event id must be an integer, got %s", raw)
		return data, false
	}

	out, err := json.Marshal(protocol.NewPong(eventID))
	if err != nil {
		return data, false
	}
	return out, true
}

func marshalOr(fallback []byte, v any) []byte {
	out, err := json.Marshal(v)
	if err != nil {
		return fallback
	}
	return out
}

func isJSONValue(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

func nullIfEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
