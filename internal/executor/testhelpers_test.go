package executor

import (
	"context"

	"github.com/go-openapi/strfmt"

	"github.com/skeinworks/skein/api"
	"github.com/skeinworks/skein/messages"
	"github.com/skeinworks/skein/provider"
	"github.com/skeinworks/skein/tool"
	"github.com/skeinworks/skein/types"
)

// scriptedProvider returns canned completions in order.
type scriptedProvider struct {
	completions []provider.Completion
	errs        []error
	calls       []provider.CompletionParams
}

func (s *scriptedProvider) Complete(_ context.Context, params provider.CompletionParams) (provider.Completion, error) {
	idx := len(s.calls)
	s.calls = append(s.calls, params)
	if idx < len(s.errs) && s.errs[idx] != nil {
		return provider.Completion{}, s.errs[idx]
	}
	if idx >= len(s.completions) {
		return provider.Completion{}, nil
	}
	return s.completions[idx], nil
}

type testModel struct {
	provider provider.Provider
}

func (m *testModel) Name() string                { return "scripted" }
func (m *testModel) Provider() provider.Provider { return m.provider }

type testAgent struct {
	name         string
	model        api.Model
	instructions string
	tools        []tool.Definition
}

func (a *testAgent) Name() string             { return a.name }
func (a *testAgent) Model() api.Model         { return a.model }
func (a *testAgent) Tools() []tool.Definition { return a.tools }
func (a *testAgent) ParallelToolCalls() bool  { return true }

func (a *testAgent) RenderInstructions(types.ContextVars) (string, error) {
	return a.instructions, nil
}

func newTestAgent(p provider.Provider, tools ...tool.Definition) *testAgent {
	return &testAgent{
		name:         "tester",
		model:        &testModel{provider: p},
		instructions: "You are a test agent.",
		tools:        tools,
	}
}

func assistantCompletion(content, refusal string) provider.Completion {
	return provider.Completion{
		Assistant: &messages.AssistantMessage{Content: content, Refusal: refusal},
		Timestamp: strfmt.NewDateTime(),
	}
}

func toolCallCompletion(calls ...messages.ToolCallData) provider.Completion {
	return provider.Completion{
		ToolCalls: &messages.ToolCallMessage{ToolCalls: calls},
		Timestamp: strfmt.NewDateTime(),
	}
}
