package skein

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/fogfish/opts"
	"github.com/go-openapi/strfmt"

	"github.com/skeinworks/skein/api"
	"github.com/skeinworks/skein/internal/executor"
	"github.com/skeinworks/skein/messages"
)

// Task is anything that can seed a step: a plain prompt string or a fully
// formed user message.
type Task interface {
	~string | messages.Message[messages.UserMessage]
}

// WorkflowStep carries a normalized user prompt for one agent. Sender and
// timestamp are filled in at run time when the caller left them unset.
type WorkflowStep struct {
	agentName string
	prompt    messages.Message[messages.UserMessage]
}

// Step binds a task to the agent that should handle it. The prompt is
// normalized into a user message here, so the run loop handles exactly one
// shape.
func Step[T Task](agentName string, tsk T) WorkflowStep {
	prompt, ok := any(tsk).(messages.Message[messages.UserMessage])
	if !ok {
		prompt = messages.Message[messages.UserMessage]{
			Payload: messages.UserMessage{Content: reflect.ValueOf(tsk).String()},
		}
	}
	return WorkflowStep{
		agentName: agentName,
		prompt:    prompt,
	}
}

// Workflow is a named sequence of steps over a set of agents. Only the final
// step's result reaches the caller's promise; earlier steps run for their
// side effects on the conversation.
type Workflow struct {
	name   string
	agents *haxmap.Map[string, api.Agent]
	steps  []WorkflowStep
}

func Agents(agent api.Agent, extraAgents ...api.Agent) opts.Option[Workflow] {
	return opts.Type[Workflow](func(w *Workflow) error {
		w.agents.Set(agent.Name(), agent)
		for elem := range slices.Values(extraAgents) {
			w.agents.Set(elem.Name(), elem)
		}
		return nil
	})
}

func Steps(step WorkflowStep, extraSteps ...WorkflowStep) opts.Option[Workflow] {
	return opts.Type[Workflow](func(w *Workflow) error {
		w.steps = append(w.steps, step)
		w.steps = append(w.steps, extraSteps...)
		return nil
	})
}

var Name = opts.ForName[Workflow, string]("name")

func New(options ...opts.Option[Workflow]) *Workflow {
	w := &Workflow{
		name:   "User",
		agents: haxmap.New[string, api.Agent](),
	}
	if err := opts.Apply(w, options); err != nil {
		panic(err)
	}
	return w
}

// Run executes the workflow's steps in order. The execution context's hook
// is notified of every event and closed when the run finishes.
func (w *Workflow) Run(ctx context.Context, rc ExecutionContext) error {
	defer rc.onClose(ctx)

	maxItems := len(w.steps) - 1

	for i, step := range w.steps {
		var promise executor.Promise
		if i < maxItems {
			promise = noopPromise{}
		} else {
			promise = rc.promise
		}

		if err := w.runStep(ctx, step, ExecutionContext{
			executor:    rc.executor,
			broker:      rc.broker,
			hook:        rc.hook,
			promise:     promise,
			contextVars: rc.contextVars,
			onClose:     rc.onClose,
			maxTurns:    rc.maxTurns,
		}); err != nil {
			return err
		}
	}

	return nil
}

func (w *Workflow) runStep(ctx context.Context, step WorkflowStep, rc ExecutionContext) error {
	agent, found := w.agents.Get(step.agentName)
	if !found {
		return fmt.Errorf("agent %s not found", step.agentName)
	}

	message := step.prompt
	if message.Sender == "" {
		message.Sender = w.name
	}
	if time.Time(message.Timestamp).IsZero() {
		message.Timestamp = strfmt.DateTime(time.Now())
	}

	thread := messages.NewThread()
	thread.AddUserPrompt(message)
	rc.hook.OnUserPrompt(ctx, message)

	cmd, err := rc.createCommand(agent, thread)
	if err != nil {
		return err
	}

	// watch the run's topic so the hook sees what the executor publishes
	topic := rc.broker.Topic(ctx, cmd.ID().String())
	sub, err := topic.Subscribe(ctx, rc.hook)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	return rc.executor.Run(ctx, cmd, rc.promise)
}
