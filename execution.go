package skein

import (
	"context"

	"github.com/fogfish/opts"

	"github.com/skeinworks/skein/api"
	"github.com/skeinworks/skein/events"
	"github.com/skeinworks/skein/internal/broker"
	"github.com/skeinworks/skein/internal/executor"
	"github.com/skeinworks/skein/messages"
	"github.com/skeinworks/skein/types"
)

// ExecutionContext holds everything one workflow run needs: the executor,
// the broker its events flow through, the hook watching the run and the
// promise carrying the final result. It is built once per run and not shared
// across concurrent workflows.
type ExecutionContext struct {
	executor    executor.Executor
	broker      broker.Broker[string]
	hook        events.Hook[string]
	promise     executor.Promise
	contextVars types.ContextVars
	onClose     func(context.Context)
	maxTurns    int
}

// Local creates an ExecutionContext that runs everything in-process. The
// hook receives every event of the run plus the typed result on completion.
func Local[T any](hook Hook[T], options ...opts.Option[ExecutionContext]) ExecutionContext {
	fut := executor.NewFuture(executor.DefaultUnmarshal[T]())
	dp := &deferredPromise[T]{
		promise: fut,
		hook:    hook,
	}

	b := broker.Local[string]()
	execCtx := ExecutionContext{
		executor: executor.NewLocal(b),
		broker:   b,
		hook:     hookAdapter[T]{hook: hook},
		promise:  dp,
		onClose: func(ctx context.Context) {
			dp.Forward(ctx)
			hook.OnClose(ctx)
		},
	}

	if err := opts.Apply(&execCtx, options); err != nil {
		panic(err)
	}

	return execCtx
}

// WithBroker swaps the in-process broker for another implementation, e.g.
// the NATS one, so a separate process can watch the run.
func WithBroker(b broker.Broker[string]) opts.Option[ExecutionContext] {
	return opts.Type[ExecutionContext](func(e *ExecutionContext) error {
		e.broker = b
		e.executor = executor.NewLocal(b)
		return nil
	})
}

var (
	WithContextVars = opts.ForName[ExecutionContext, types.ContextVars]("contextVars")
	WithMaxTurns    = opts.ForName[ExecutionContext, int]("maxTurns")
)

func (e *ExecutionContext) createCommand(agent api.Agent, thread *messages.Thread) (executor.RunCommand, error) {
	cmd, err := executor.NewRunCommand(agent, thread)
	if err != nil {
		return executor.RunCommand{}, err
	}
	if len(e.contextVars) > 0 {
		cmd = cmd.WithContextVariables(e.contextVars)
	}
	if e.maxTurns > 0 {
		cmd = cmd.WithMaxTurns(e.maxTurns)
	}
	return cmd, nil
}

// hookAdapter bridges the broker's string-typed subscription to the user's
// typed hook. The raw string result is dropped here; the typed result
// reaches the hook through the deferred promise instead.
type hookAdapter[T any] struct {
	hook Hook[T]
}

func (h hookAdapter[T]) OnUserPrompt(ctx context.Context, msg messages.Message[messages.UserMessage]) {
	h.hook.OnUserPrompt(ctx, msg)
}

func (h hookAdapter[T]) OnAssistantMessage(ctx context.Context, msg messages.Message[messages.AssistantMessage]) {
	h.hook.OnAssistantMessage(ctx, msg)
}

func (h hookAdapter[T]) OnToolCallMessage(ctx context.Context, msg messages.Message[messages.ToolCallMessage]) {
	h.hook.OnToolCallMessage(ctx, msg)
}

func (h hookAdapter[T]) OnToolCallResponse(ctx context.Context, msg messages.Message[messages.ToolResponse]) {
	h.hook.OnToolCallResponse(ctx, msg)
}

func (h hookAdapter[T]) OnResult(context.Context, string) {}

func (h hookAdapter[T]) OnError(ctx context.Context, err error) {
	h.hook.OnError(ctx, err)
}
