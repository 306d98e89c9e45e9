package events

import (
	"errors"
	"testing"
	"time"

	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/skeinworks/skein/messages"
	"github.com/skeinworks/skein/pkg/uuidx"
)

func TestRequestRoundTrip(t *testing.T) {
	orig := Request[messages.UserMessage]{
		RunID:     uuidx.New(),
		TurnID:    uuidx.New(),
		Message:   messages.UserMessage{Content: "What is the capital of France?"},
		Sender:    "script",
		Timestamp: strfmt.DateTime(time.Now().UTC().Truncate(time.Millisecond)),
	}

	data, err := json.Marshal(orig)
	require.NoError(t, err)
	assert.Equal(t, "request", gjson.GetBytes(data, "type").String())

	var got Request[messages.UserMessage]
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, orig.RunID, got.RunID)
	assert.Equal(t, orig.TurnID, got.TurnID)
	assert.Equal(t, orig.Message.Content, got.Message.Content)
	assert.Equal(t, "script", got.Sender)
}

func TestResponseRoundTrip(t *testing.T) {
	orig := Response[messages.ToolCallMessage]{
		RunID:  uuidx.New(),
		TurnID: uuidx.New(),
		Response: messages.ToolCallMessage{ToolCalls: []messages.ToolCallData{
			{ID: "tu-1", Name: "get_weather", Arguments: `{"location":"Paris"}`},
		}},
		Sender: "assistant",
	}

	data, err := json.Marshal(orig)
	require.NoError(t, err)
	assert.Equal(t, "response", gjson.GetBytes(data, "type").String())

	var got Response[messages.ToolCallMessage]
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got.Response.ToolCalls, 1)
	assert.Equal(t, "get_weather", got.Response.ToolCalls[0].Name)
}

func TestResultRoundTrip(t *testing.T) {
	orig := Result[string]{
		RunID:  uuidx.New(),
		TurnID: uuidx.New(),
		Result: "Paris",
	}

	data, err := json.Marshal(orig)
	require.NoError(t, err)
	assert.Equal(t, "result", gjson.GetBytes(data, "type").String())

	var got Result[string]
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "Paris", got.Result)
	assert.Equal(t, orig.RunID, got.RunID)
}

func TestErrorRoundTrip(t *testing.T) {
	orig := Error{
		RunID:  uuidx.New(),
		TurnID: uuidx.New(),
		Err:    errors.New("model unavailable"),
		Sender: "executor",
	}

	data, err := json.Marshal(orig)
	require.NoError(t, err)
	assert.Equal(t, "error", gjson.GetBytes(data, "type").String())

	var got Error
	require.NoError(t, json.Unmarshal(data, &got))
	require.Error(t, got.Err)
	assert.Equal(t, "model unavailable", got.Err.Error())
	assert.Contains(t, got.Error(), "model unavailable")
	assert.Contains(t, got.Error(), orig.RunID.String())
}

func TestUnmarshalRejectsWrongType(t *testing.T) {
	data, err := json.Marshal(Result[string]{RunID: uuidx.New(), TurnID: uuidx.New(), Result: "x"})
	require.NoError(t, err)

	var req Request[messages.UserMessage]
	err = json.Unmarshal(data, &req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `expected "request"`)
}

func TestUnmarshalRejectsInvalidJSON(t *testing.T) {
	var req Request[messages.UserMessage]
	require.Error(t, json.Unmarshal([]byte(`{`), &req))
}

func TestUnmarshalRejectsMissingIdentity(t *testing.T) {
	var res Result[string]
	err := json.Unmarshal([]byte(`{"type":"result","result":"x"}`), &res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run_id")
}
