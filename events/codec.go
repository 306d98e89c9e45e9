package events

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/skeinworks/skein/messages"
)

// ToJSON encodes an event for the wire.
func ToJSON(e Event) ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON decodes a wire event back into its concrete type. The payload
// variant inside request/response envelopes is recovered from its shape:
// tool payloads carry fields that user and assistant payloads never do.
// T is the run result type carried by Result events.
func FromJSON[T any](data []byte) (Event, error) {
	switch kind := gjson.GetBytes(data, "type").String(); kind {
	case "request":
		if gjson.GetBytes(data, "message.tool_call_id").Exists() {
			var ev Request[messages.ToolResponse]
			if err := json.Unmarshal(data, &ev); err != nil {
				return nil, err
			}
			return ev, nil
		}
		var ev Request[messages.UserMessage]
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case "response":
		if gjson.GetBytes(data, "response.tool_calls").Exists() {
			var ev Response[messages.ToolCallMessage]
			if err := json.Unmarshal(data, &ev); err != nil {
				return nil, err
			}
			return ev, nil
		}
		var ev Response[messages.AssistantMessage]
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case "result":
		var ev Result[T]
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case "error":
		var ev Error
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("unknown event type: %q", kind)
	}
}
