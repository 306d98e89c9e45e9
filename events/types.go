package events

import (
	"errors"
	"fmt"

	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/skeinworks/skein/messages"
)

var (
	requestJSON  = []byte(`{"type":"request"}`)
	responseJSON = []byte(`{"type":"response"}`)
	resultJSON   = []byte(`{"type":"result"}`)
	errorJSON    = []byte(`{"type":"error"}`)
)

// Event is the closed set of things published to a run topic.
type Event interface {
	event()
}

// Request is an inbound payload: a user prompt or a tool result being fed
// back to the model.
type Request[T messages.Request] struct {
	RunID     uuid.UUID       `json:"run_id"`
	TurnID    uuid.UUID       `json:"turn_id"`
	Message   T               `json:"message"`
	Sender    string          `json:"sender,omitempty"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Request[T]) event() {}

func (r Request[T]) MarshalJSON() ([]byte, error) {
	return marshalEnvelope(requestJSON, r.RunID, r.TurnID, "message", r.Message, r.Sender, r.Timestamp)
}

func (r *Request[T]) UnmarshalJSON(data []byte) error {
	body, err := unmarshalEnvelope(data, "request", "message", &r.RunID, &r.TurnID, &r.Sender, &r.Timestamp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(body.Raw), &r.Message); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}
	return nil
}

// Response is a model turn: an assistant reply or a tool call request.
type Response[T messages.Response] struct {
	RunID     uuid.UUID       `json:"run_id"`
	TurnID    uuid.UUID       `json:"turn_id"`
	Response  T               `json:"response"`
	Sender    string          `json:"sender,omitempty"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Response[T]) event() {}

func (r Response[T]) MarshalJSON() ([]byte, error) {
	return marshalEnvelope(responseJSON, r.RunID, r.TurnID, "response", r.Response, r.Sender, r.Timestamp)
}

func (r *Response[T]) UnmarshalJSON(data []byte) error {
	body, err := unmarshalEnvelope(data, "response", "response", &r.RunID, &r.TurnID, &r.Sender, &r.Timestamp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(body.Raw), &r.Response); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	return nil
}

// Result marks the end of a run and carries its final value.
type Result[T any] struct {
	RunID     uuid.UUID       `json:"run_id"`
	TurnID    uuid.UUID       `json:"turn_id"`
	Result    T               `json:"result"`
	Sender    string          `json:"sender,omitempty"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Result[T]) event() {}

func (r Result[T]) MarshalJSON() ([]byte, error) {
	return marshalEnvelope(resultJSON, r.RunID, r.TurnID, "result", r.Result, r.Sender, r.Timestamp)
}

func (r *Result[T]) UnmarshalJSON(data []byte) error {
	body, err := unmarshalEnvelope(data, "result", "result", &r.RunID, &r.TurnID, &r.Sender, &r.Timestamp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(body.Raw), &r.Result); err != nil {
		return fmt.Errorf("invalid result: %w", err)
	}
	return nil
}

// Error terminates a run with a failure. The error is flattened to its
// message on the wire.
type Error struct {
	RunID     uuid.UUID       `json:"run_id"`
	TurnID    uuid.UUID       `json:"turn_id"`
	Err       error           `json:"error"`
	Sender    string          `json:"sender,omitempty"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Error) event() {}

func (e Error) Error() string {
	errStr := "<nil>"
	if e.Err != nil {
		errStr = e.Err.Error()
	}
	return fmt.Sprintf("%s run_id=%s turn_id=%s", errStr, e.RunID, e.TurnID)
}

func (e Error) MarshalJSON() ([]byte, error) {
	result := errorJSON

	var err error
	result, err = sjson.SetBytes(result, "run_id", e.RunID.String())
	if err != nil {
		return nil, err
	}
	result, err = sjson.SetBytes(result, "turn_id", e.TurnID.String())
	if err != nil {
		return nil, err
	}
	if e.Err != nil {
		result, err = sjson.SetBytes(result, "error", e.Err.Error())
		if err != nil {
			return nil, err
		}
	}
	if e.Sender != "" {
		result, err = sjson.SetBytes(result, "sender", e.Sender)
		if err != nil {
			return nil, err
		}
	}
	if !e.Timestamp.IsZero() {
		result, err = sjson.SetBytes(result, "timestamp", e.Timestamp.String())
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (e *Error) UnmarshalJSON(data []byte) error {
	body, err := unmarshalEnvelope(data, "error", "error", &e.RunID, &e.TurnID, &e.Sender, &e.Timestamp)
	if err != nil {
		return err
	}
	e.Err = errors.New(body.String())
	return nil
}

func marshalEnvelope(base []byte, runID, turnID uuid.UUID, field string, payload any, sender string, ts strfmt.DateTime) ([]byte, error) {
	result := base

	var err error
	result, err = sjson.SetBytes(result, "run_id", runID.String())
	if err != nil {
		return nil, err
	}
	result, err = sjson.SetBytes(result, "turn_id", turnID.String())
	if err != nil {
		return nil, err
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", field, err)
	}
	result, err = sjson.SetRawBytes(result, field, payloadBytes)
	if err != nil {
		return nil, err
	}

	if sender != "" {
		result, err = sjson.SetBytes(result, "sender", sender)
		if err != nil {
			return nil, err
		}
	}
	if !ts.IsZero() {
		result, err = sjson.SetBytes(result, "timestamp", ts.String())
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// unmarshalEnvelope validates the discriminator and identity fields and
// returns the raw payload field for the caller to decode.
func unmarshalEnvelope(data []byte, wantType, field string, runID, turnID *uuid.UUID, sender *string, ts *strfmt.DateTime) (gjson.Result, error) {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("invalid json: %s", data)
	}

	msgType := gjson.GetBytes(data, "type")
	if !msgType.Exists() || msgType.String() != wantType {
		return gjson.Result{}, fmt.Errorf("missing or invalid type, expected %q", wantType)
	}

	rid := gjson.GetBytes(data, "run_id")
	if !rid.Exists() {
		return gjson.Result{}, errors.New("missing required field 'run_id'")
	}
	if err := runID.UnmarshalText([]byte(rid.String())); err != nil {
		return gjson.Result{}, fmt.Errorf("invalid run_id: %w", err)
	}

	tid := gjson.GetBytes(data, "turn_id")
	if !tid.Exists() {
		return gjson.Result{}, errors.New("missing required field 'turn_id'")
	}
	if err := turnID.UnmarshalText([]byte(tid.String())); err != nil {
		return gjson.Result{}, fmt.Errorf("invalid turn_id: %w", err)
	}

	body := gjson.GetBytes(data, field)
	if !body.Exists() {
		return gjson.Result{}, fmt.Errorf("missing required field %q", field)
	}

	if s := gjson.GetBytes(data, "sender"); s.Exists() {
		*sender = s.String()
	}
	if t := gjson.GetBytes(data, "timestamp"); t.Exists() {
		if err := ts.UnmarshalText([]byte(t.String())); err != nil {
			return gjson.Result{}, fmt.Errorf("invalid timestamp: %w", err)
		}
	}

	return body, nil
}
