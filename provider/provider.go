// Package provider defines the contract between the run loop and a model
// inference backend. A provider turns a thread of messages into exactly one
// completion: either an assistant reply or a batch of tool call requests.
//
// The contract is deliberately single-shot. The backends this module targets
// (Bedrock's InvokeModel in particular) answer one request with one payload,
// and the demonstration scripts built on top have no use for token streams.
package provider

import (
	"context"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"

	"github.com/skeinworks/skein/messages"
	"github.com/skeinworks/skein/tool"
)

// CompletionParams carries everything a provider needs for one model turn.
type CompletionParams struct {
	RunID        uuid.UUID
	Instructions string
	Thread       *messages.Thread
	Tools        []tool.Definition
	MaxTokens    int
	Temperature  float64

	// ParallelToolCalls permits the model to request several tool calls in
	// one turn. Ignored when Tools is empty.
	ParallelToolCalls bool
}

// Completion is the outcome of one model turn. Exactly one of Assistant or
// ToolCalls is set; a guardrail intervention still arrives as an Assistant
// message carrying the masked output in Refusal.
type Completion struct {
	Assistant *messages.AssistantMessage
	ToolCalls *messages.ToolCallMessage
	Timestamp strfmt.DateTime
}

// Provider runs a single completion against a model backend.
type Provider interface {
	Complete(context.Context, CompletionParams) (Completion, error)
}
