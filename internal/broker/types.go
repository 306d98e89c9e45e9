package broker

import (
	"context"

	"github.com/skeinworks/skein/events"
	"github.com/skeinworks/skein/messages"
)

// Broker hands out topics. T is the run result type delivered to
// events.Hook[T].OnResult.
type Broker[T any] interface {
	Topic(context.Context, string) Topic[T]
}

type Topic[T any] interface {
	Publish(context.Context, events.Event) error
	Subscribe(context.Context, events.Hook[T]) (Subscription, error)
}

type Subscription interface {
	ID() string
	Unsubscribe()
}

// dispatchEvent routes one wire event to the matching hook callback. Shared
// by the local and NATS subscriptions so both deliver identical semantics.
func dispatchEvent[T any](ctx context.Context, event events.Event, hook events.Hook[T]) {
	switch event := event.(type) {
	case events.Request[messages.UserMessage]:
		hook.OnUserPrompt(ctx, messages.Message[messages.UserMessage]{
			RunID:     event.RunID,
			TurnID:    event.TurnID,
			Payload:   event.Message,
			Sender:    event.Sender,
			Timestamp: event.Timestamp,
		})
	case events.Request[messages.ToolResponse]:
		hook.OnToolCallResponse(ctx, messages.Message[messages.ToolResponse]{
			RunID:     event.RunID,
			TurnID:    event.TurnID,
			Payload:   event.Message,
			Sender:    event.Sender,
			Timestamp: event.Timestamp,
		})
	case events.Response[messages.AssistantMessage]:
		hook.OnAssistantMessage(ctx, messages.Message[messages.AssistantMessage]{
			RunID:     event.RunID,
			TurnID:    event.TurnID,
			Payload:   event.Response,
			Sender:    event.Sender,
			Timestamp: event.Timestamp,
		})
	case events.Response[messages.ToolCallMessage]:
		hook.OnToolCallMessage(ctx, messages.Message[messages.ToolCallMessage]{
			RunID:     event.RunID,
			TurnID:    event.TurnID,
			Payload:   event.Response,
			Sender:    event.Sender,
			Timestamp: event.Timestamp,
		})
	case events.Result[T]:
		hook.OnResult(ctx, event.Result)
	case events.Error:
		hook.OnError(ctx, event.Err)
	}
}
