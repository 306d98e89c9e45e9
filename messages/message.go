// Package messages defines the typed payloads that travel through an agent
// run: user prompts, assistant replies, tool call requests and tool results,
// plus the Thread that accumulates them across turns.
//
// Design decisions:
//   - Generic envelope: Message[T] pairs a payload with run/turn identity and
//     a timestamp, so every event in the system is attributable.
//   - Closed payload set: ModelMessage is a sealed interface; new payload
//     kinds are added here, not scattered across consumers.
//   - Guardrail visibility: assistant refusals (content-filter interventions)
//     are a first-class field instead of being folded into regular content.
package messages

import (
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
)

// ModelMessage constrains the payload types an envelope can carry.
type ModelMessage interface {
	modelMessage()
}

// Request constrains the payloads that flow toward the model.
type Request interface {
	UserMessage | ToolResponse
	ModelMessage
}

// Response constrains the payloads the model produces.
type Response interface {
	AssistantMessage | ToolCallMessage
	ModelMessage
}

// UserMessage is a prompt from the user (or the surrounding script).
type UserMessage struct {
	Content string `json:"content"`
}

func (UserMessage) modelMessage() {}

// AssistantMessage is a model reply. When a content guardrail intervenes the
// masked output lands in Refusal and Content stays empty.
type AssistantMessage struct {
	Content string `json:"content"`
	Refusal string `json:"refusal,omitempty"`
}

func (AssistantMessage) modelMessage() {}

// ToolCallData is a single tool invocation requested by the model. Arguments
// is the raw JSON object the model produced.
type ToolCallData struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCallMessage groups the tool calls the model requested in one turn.
type ToolCallMessage struct {
	ToolCalls []ToolCallData `json:"tool_calls"`
}

func (ToolCallMessage) modelMessage() {}

// ToolResponse is the outcome of executing one requested tool call.
type ToolResponse struct {
	ToolName   string `json:"tool_name"`
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
}

func (ToolResponse) modelMessage() {}

// Message wraps a payload with the identity of the run and turn it belongs to.
type Message[T ModelMessage] struct {
	RunID     uuid.UUID       `json:"run_id"`
	TurnID    uuid.UUID       `json:"turn_id"`
	Payload   T               `json:"payload"`
	Sender    string          `json:"sender,omitempty"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}
