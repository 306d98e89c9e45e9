package jsonx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDynamicJSON(t *testing.T) {
	t.Run("struct to map", func(t *testing.T) {
		in := struct {
			Type       string         `json:"type"`
			Properties map[string]any `json:"properties"`
		}{
			Type:       "object",
			Properties: map[string]any{"location": map[string]any{"type": "string"}},
		}

		out, err := ToDynamicJSON(in)
		require.NoError(t, err)
		assert.Equal(t, "object", out["type"])
		props, ok := out["properties"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, props, "location")
	})

	t.Run("unmarshalable value", func(t *testing.T) {
		_, err := ToDynamicJSON(func() {})
		require.Error(t, err)
	})
}
