package protocol

import (
	"encoding/json"
	"fmt"
)

// MessageType tags the payload of a ToolInvokeMessage.
type MessageType string

const (
	MessageText MessageType = "text"
	MessageJSON MessageType = "json"
	MessageBlob MessageType = "blob"
)

// ToolInvokeMessage is one unit of a streamed tool invocation.
//
// Exactly one payload field is meaningful, selected by Type: Text for
// MessageText, JSON for MessageJSON and Blob for MessageBlob. Types this
// client does not know keep their undecoded message in Raw. A unit without a
// "message" object is read in its flat form, e.g. {"text": "hi"}; a null
// message with no flat text is an empty text message.
type ToolInvokeMessage struct {
	Type MessageType
	Text string
	JSON map[string]any
	Blob []byte
	Raw  json.RawMessage
	Meta map[string]any
}

type wireToolInvokeMessage struct {
	Type    MessageType     `json:"type"`
	Message json.RawMessage `json:"message"`
	Meta    map[string]any  `json:"meta,omitempty"`
}

// jsonMessage carries both field names daemons have used for JSON payloads.
type jsonMessage struct {
	JSON       map[string]any `json:"json"`
	JSONObject map[string]any `json:"json_object"`
}

// normalized returns the first present payload, preferring "json".
func (m jsonMessage) normalized() map[string]any {
	if m.JSON != nil {
		return m.JSON
	}
	if m.JSONObject != nil {
		return m.JSONObject
	}
	return map[string]any{}
}

// UnmarshalJSON decodes the wire form and normalizes it once.
func (m *ToolInvokeMessage) UnmarshalJSON(data []byte) error {
	var wire wireToolInvokeMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	out := ToolInvokeMessage{Type: wire.Type, Meta: wire.Meta}
	if out.Type == "" {
		out.Type = MessageText
	}
	payload := wire.Message
	nullMessage := string(payload) == "null"
	if len(payload) == 0 || nullMessage {
		payload = data
	}

	switch out.Type {
	case MessageText:
		var text struct {
			Text *string `json:"text"`
		}
		if err := json.Unmarshal(payload, &text); err != nil {
			return fmt.Errorf("text message: %w", err)
		}
		switch {
		case text.Text != nil:
			out.Text = *text.Text
		case !nullMessage:
			return fmt.Errorf("text message: missing text")
		}
	case MessageJSON:
		var jm jsonMessage
		if err := json.Unmarshal(payload, &jm); err != nil {
			return fmt.Errorf("json message: %w", err)
		}
		out.JSON = jm.normalized()
	case MessageBlob:
		var blob struct {
			Blob []byte `json:"blob"`
		}
		if err := json.Unmarshal(payload, &blob); err != nil {
			return fmt.Errorf("blob message: %w", err)
		}
		out.Blob = blob.Blob
	default:
		out.Raw = wire.Message
	}

	*m = out
	return nil
}

// MarshalJSON writes the canonical wire form, always using the "json" key.
func (m ToolInvokeMessage) MarshalJSON() ([]byte, error) {
	wire := struct {
		Type    MessageType    `json:"type"`
		Message any            `json:"message"`
		Meta    map[string]any `json:"meta,omitempty"`
	}{Type: m.Type, Meta: m.Meta}

	switch m.Type {
	case MessageText:
		wire.Message = map[string]string{"text": m.Text}
	case MessageJSON:
		wire.Message = map[string]any{"json": m.JSON}
	case MessageBlob:
		wire.Message = map[string][]byte{"blob": m.Blob}
	default:
		if len(m.Raw) > 0 {
			wire.Message = m.Raw
		}
	}
	return json.Marshal(wire)
}
