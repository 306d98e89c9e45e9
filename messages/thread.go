package messages

import (
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/skeinworks/skein/pkg/uuidx"
)

// Thread is the ordered transcript of a run. It is safe for concurrent use;
// the executor appends from its loop while hooks and formatters read.
type Thread struct {
	mu       sync.Mutex
	id       uuid.UUID
	messages []Message[ModelMessage]
}

// NewThread returns an empty thread with a fresh turn id.
func NewThread() *Thread {
	return &Thread{id: uuidx.New()}
}

// ID returns the thread's identity, used as the turn id on its messages.
func (t *Thread) ID() uuid.UUID {
	return t.id
}

// Len returns how many messages the thread holds.
func (t *Thread) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

// Messages returns a copy of the transcript in insertion order.
func (t *Thread) Messages() []Message[ModelMessage] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.messages)
}

// Fork returns a new thread with its own identity carrying a copy of the
// transcript, so a turn can speculate without mutating its parent.
func (t *Thread) Fork() *Thread {
	t.mu.Lock()
	defer t.mu.Unlock()
	return &Thread{
		id:       uuidx.New(),
		messages: slices.Clone(t.messages),
	}
}

func erase[T ModelMessage](m Message[T]) Message[ModelMessage] {
	return Message[ModelMessage]{
		RunID:     m.RunID,
		TurnID:    m.TurnID,
		Payload:   m.Payload,
		Sender:    m.Sender,
		Timestamp: m.Timestamp,
	}
}

// AddUserPrompt appends a user message to the transcript.
func (t *Thread) AddUserPrompt(m Message[UserMessage]) {
	t.add(erase(m))
}

// AddAssistantMessage appends an assistant reply to the transcript.
func (t *Thread) AddAssistantMessage(m Message[AssistantMessage]) {
	t.add(erase(m))
}

// AddToolCall appends the model's tool call request to the transcript.
func (t *Thread) AddToolCall(m Message[ToolCallMessage]) {
	t.add(erase(m))
}

// AddToolResponse appends a tool execution result to the transcript.
func (t *Thread) AddToolResponse(m Message[ToolResponse]) {
	t.add(erase(m))
}

func (t *Thread) add(m Message[ModelMessage]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, m)
}
