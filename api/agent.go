// Package api holds the interfaces that tie the module together without
// forcing packages to depend on each other's implementations.
package api

import (
	"github.com/skeinworks/skein/tool"
	"github.com/skeinworks/skein/types"
)

// Agent is the minimal contract the run loop needs from an agent: identity,
// a model to think with, tools to act with, and instructions that may be
// templated over context variables.
//
// The interface is deliberately read-only. Configuration happens at
// construction; the executor never mutates an agent mid-run.
type Agent interface {
	// Name returns the agent's stable identifier, used as the sender on
	// every message and event it produces.
	Name() string

	// Model returns the model configuration this agent thinks with.
	Model() Model

	// Tools returns the function definitions this agent may call.
	Tools() []tool.Definition

	// ParallelToolCalls reports whether the model may request several tool
	// calls in a single turn.
	ParallelToolCalls() bool

	// RenderInstructions renders the agent's system instructions with the
	// run's context variables.
	RenderInstructions(types.ContextVars) (string, error)
}
