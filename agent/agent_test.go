package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skeinworks/skein/tool"
	"github.com/skeinworks/skein/types"
)

func TestNewAppliesOptions(t *testing.T) {
	weather := tool.Must(func(location string) string { return "" },
		tool.Name("get_weather"),
		tool.Parameters("location"),
	)

	a := New(
		Name("forecaster"),
		Instructions("You report the weather."),
		Tools(weather),
	)
	defer Del("forecaster")

	assert.Equal(t, "forecaster", a.Name())
	require.Len(t, a.Tools(), 1)
	assert.Equal(t, "get_weather", a.Tools()[0].Name)
	assert.Nil(t, a.Model())
	assert.True(t, a.ParallelToolCalls())
}

func TestParallelToolCallsOptOut(t *testing.T) {
	a := New(Name("serial"), ParallelToolCalls(false))
	defer Del("serial")

	assert.False(t, a.ParallelToolCalls())
}

func TestRenderInstructionsPlainString(t *testing.T) {
	a := New(Name("plain"), Instructions("Answer concisely."))
	defer Del("plain")

	got, err := a.RenderInstructions(types.ContextVars{"unused": "x"})
	require.NoError(t, err)
	assert.Equal(t, "Answer concisely.", got)
}

func TestRenderInstructionsTemplate(t *testing.T) {
	a := New(Name("templated"), Instructions("You are assisting {{.User}}."))
	defer Del("templated")

	got, err := a.RenderInstructions(types.ContextVars{"User": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "You are assisting Ada.", got)
}

func TestRenderInstructionsMissingVar(t *testing.T) {
	a := New(Name("strict"), Instructions("Hello {{.Missing}}"))
	defer Del("strict")

	_, err := a.RenderInstructions(types.ContextVars{})
	require.Error(t, err)
}

func TestRegistry(t *testing.T) {
	a := New(Name("registered"))
	defer Del("registered")

	got, ok := Get("registered")
	require.True(t, ok)
	assert.Same(t, a, got)

	Del("registered")
	_, ok = Get("registered")
	assert.False(t, ok)
}
