package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/skeinworks/skein/api"
	"github.com/skeinworks/skein/events"
	"github.com/skeinworks/skein/internal/broker"
	"github.com/skeinworks/skein/messages"
	"github.com/skeinworks/skein/pkg/slogx"
	"github.com/skeinworks/skein/provider"
	"github.com/skeinworks/skein/types"
)

type Executor interface {
	Run(context.Context, RunCommand, Promise) error
}

var _ Executor = (*Local)(nil)

// Local runs the loop in-process. Events are published to the run's broker
// topic; subscribing hooks to that topic is the caller's concern.
type Local struct {
	broker broker.Broker[string]
	tracer trace.Tracer
}

func NewLocal(b broker.Broker[string]) *Local {
	return &Local{
		broker: b,
		tracer: otel.Tracer("skein/executor"),
	}
}

func wrapErr(runID, turnID uuid.UUID, sender string, err error) (events.Error, bool) {
	if err == nil {
		return events.Error{}, false
	}
	if pErr, ok := err.(events.Error); ok { //nolint: errorlint
		return pErr, true
	}
	return events.Error{
		RunID:     runID,
		TurnID:    turnID,
		Sender:    sender,
		Err:       err,
		Timestamp: strfmt.DateTime(time.Now()),
	}, true
}

func (l *Local) Run(ctx context.Context, command RunCommand, promise Promise) error {
	if err := command.Validate(); err != nil {
		return err
	}

	topic := l.broker.Topic(ctx, command.ID().String())
	contextVars := command.initializeContextVars()
	activeAgent := command.Agent

	ctx, span := l.tracer.Start(ctx, "agent.run", trace.WithAttributes(
		attribute.String("run.id", command.ID().String()),
		attribute.String("agent.name", activeAgent.Name()),
	))
	defer span.End()

	for turn := 0; turn < command.MaxTurns; turn++ {
		completion, err := l.think(ctx, &command, activeAgent, contextVars)
		if err != nil {
			l.fail(ctx, span, topic, &command, activeAgent, promise, err)
			return err
		}

		if completion.ToolCalls != nil {
			nextAgent, err := l.act(ctx, &command, topic, activeAgent, contextVars, *completion.ToolCalls, completion.Timestamp)
			if err != nil {
				l.fail(ctx, span, topic, &command, activeAgent, promise, err)
				return err
			}
			if nextAgent != nil {
				span.AddEvent("agent.transfer", trace.WithAttributes(
					attribute.String("agent.from", activeAgent.Name()),
					attribute.String("agent.to", nextAgent.Name()),
				))
				activeAgent = nextAgent
			}
			continue
		}

		if completion.Assistant != nil {
			l.observe(ctx, &command, topic, activeAgent, *completion.Assistant, completion.Timestamp)
			span.SetStatus(codes.Ok, "")
			promise.Complete(completion.Assistant.Content)
			return nil
		}

		err = fmt.Errorf("model returned neither an assistant message nor tool calls")
		l.fail(ctx, span, topic, &command, activeAgent, promise, err)
		return err
	}

	err := errors.New("max turns exceeded")
	l.fail(ctx, span, topic, &command, activeAgent, promise, err)
	return err
}

// think renders the instructions and asks the model for its next move.
func (l *Local) think(
	ctx context.Context,
	command *RunCommand,
	agent api.Agent,
	contextVars types.ContextVars,
) (provider.Completion, error) {
	ctx, span := l.tracer.Start(ctx, "agent.think", trace.WithAttributes(
		attribute.String("agent.name", agent.Name()),
		attribute.Int("thread.len", command.Thread.Len()),
	))
	defer span.End()

	model := agent.Model()
	if model == nil {
		return provider.Completion{}, fmt.Errorf("agent model cannot be nil")
	}
	prov := model.Provider()
	if prov == nil {
		return provider.Completion{}, fmt.Errorf("model provider cannot be nil")
	}

	instructions, err := agent.RenderInstructions(contextVars)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return provider.Completion{}, fmt.Errorf("failed to render instructions: %w", err)
	}

	completion, err := prov.Complete(ctx, provider.CompletionParams{
		RunID:             command.ID(),
		Instructions:      instructions,
		Thread:            command.Thread,
		Tools:             agent.Tools(),
		ParallelToolCalls: agent.ParallelToolCalls(),
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return provider.Completion{}, fmt.Errorf("completion failed: %w", err)
	}

	if completion.ToolCalls != nil {
		span.SetAttributes(attribute.Int("tool_calls", len(completion.ToolCalls.ToolCalls)))
	}
	return completion, nil
}

// act records the requested tool calls, executes them and feeds the results
// back into the thread. A tool returning an agent transfers the run to it.
func (l *Local) act(
	ctx context.Context,
	command *RunCommand,
	topic broker.Topic[string],
	agent api.Agent,
	contextVars types.ContextVars,
	toolCalls messages.ToolCallMessage,
	timestamp strfmt.DateTime,
) (api.Agent, error) {
	ctx, span := l.tracer.Start(ctx, "agent.act", trace.WithAttributes(
		attribute.String("agent.name", agent.Name()),
		attribute.Int("tool_calls", len(toolCalls.ToolCalls)),
	))
	defer span.End()

	toolCallMsg := messages.Message[messages.ToolCallMessage]{
		RunID:     command.ID(),
		TurnID:    command.Thread.ID(),
		Payload:   toolCalls,
		Sender:    agent.Name(),
		Timestamp: timestamp,
	}
	command.Thread.AddToolCall(toolCallMsg)
	l.publish(ctx, topic, events.Response[messages.ToolCallMessage]{
		RunID:     toolCallMsg.RunID,
		TurnID:    toolCallMsg.TurnID,
		Response:  toolCalls,
		Sender:    agent.Name(),
		Timestamp: timestamp,
	})

	nextAgent, err := l.handleToolCalls(ctx, toolCallParams{
		runID:       command.ID(),
		agent:       agent,
		contextVars: contextVars,
		thread:      command.Thread,
		topic:       topic,
		toolCalls:   toolCalls,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return nextAgent, nil
}

// observe appends the final assistant message and announces the run result.
func (l *Local) observe(
	ctx context.Context,
	command *RunCommand,
	topic broker.Topic[string],
	agent api.Agent,
	assistant messages.AssistantMessage,
	timestamp strfmt.DateTime,
) {
	ctx, span := l.tracer.Start(ctx, "agent.observe", trace.WithAttributes(
		attribute.String("agent.name", agent.Name()),
		attribute.Bool("guardrail.intervened", assistant.Refusal != ""),
	))
	defer span.End()

	msg := messages.Message[messages.AssistantMessage]{
		RunID:     command.ID(),
		TurnID:    command.Thread.ID(),
		Payload:   assistant,
		Sender:    agent.Name(),
		Timestamp: timestamp,
	}
	command.Thread.AddAssistantMessage(msg)
	l.publish(ctx, topic, events.Response[messages.AssistantMessage]{
		RunID:     msg.RunID,
		TurnID:    msg.TurnID,
		Response:  assistant,
		Sender:    agent.Name(),
		Timestamp: timestamp,
	})
	l.publish(ctx, topic, events.Result[string]{
		RunID:     msg.RunID,
		TurnID:    msg.TurnID,
		Result:    assistant.Content,
		Sender:    agent.Name(),
		Timestamp: strfmt.DateTime(time.Now()),
	})
}

func (l *Local) fail(
	ctx context.Context,
	span trace.Span,
	topic broker.Topic[string],
	command *RunCommand,
	agent api.Agent,
	promise Promise,
	err error,
) {
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
	if ee, hasErr := wrapErr(command.ID(), command.Thread.ID(), agent.Name(), err); hasErr {
		l.publish(ctx, topic, ee)
	}
	promise.Error(err)
}

func (l *Local) publish(ctx context.Context, topic broker.Topic[string], event events.Event) {
	if err := topic.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "failed to publish event", slogx.Error(err))
	}
}
