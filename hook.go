package skein

import (
	"context"

	"github.com/skeinworks/skein/events"
)

// Hook observes a workflow run and receives its typed result. OnClose fires
// exactly once, after the final step finished or failed.
type Hook[T any] interface {
	events.Hook[T]
	OnClose(context.Context)
}
