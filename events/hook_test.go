package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skeinworks/skein/messages"
)

type recordingHook struct {
	calls []string
}

func (r *recordingHook) OnUserPrompt(context.Context, messages.Message[messages.UserMessage]) {
	r.calls = append(r.calls, "user")
}

func (r *recordingHook) OnAssistantMessage(context.Context, messages.Message[messages.AssistantMessage]) {
	r.calls = append(r.calls, "assistant")
}

func (r *recordingHook) OnToolCallMessage(context.Context, messages.Message[messages.ToolCallMessage]) {
	r.calls = append(r.calls, "tool_call")
}

func (r *recordingHook) OnToolCallResponse(context.Context, messages.Message[messages.ToolResponse]) {
	r.calls = append(r.calls, "tool_response")
}

func (r *recordingHook) OnResult(context.Context, string) {
	r.calls = append(r.calls, "result")
}

func (r *recordingHook) OnError(context.Context, error) {
	r.calls = append(r.calls, "error")
}

func TestCompositeHookFansOut(t *testing.T) {
	first := &recordingHook{}
	second := &recordingHook{}
	hook := NewCompositeHook[string](first, second)

	ctx := context.Background()
	hook.OnUserPrompt(ctx, messages.Message[messages.UserMessage]{})
	hook.OnAssistantMessage(ctx, messages.Message[messages.AssistantMessage]{})
	hook.OnToolCallMessage(ctx, messages.Message[messages.ToolCallMessage]{})
	hook.OnToolCallResponse(ctx, messages.Message[messages.ToolResponse]{})
	hook.OnResult(ctx, "done")
	hook.OnError(ctx, errors.New("boom"))

	want := []string{"user", "assistant", "tool_call", "tool_response", "result", "error"}
	assert.Equal(t, want, first.calls)
	assert.Equal(t, want, second.calls)
}

func TestLoggingHookDoesNotPanic(t *testing.T) {
	hook := LoggingHook[string]()

	ctx := context.Background()
	assert.NotPanics(t, func() {
		hook.OnUserPrompt(ctx, messages.Message[messages.UserMessage]{})
		hook.OnResult(ctx, "done")
		hook.OnError(ctx, errors.New("boom"))
	})
}
