package uuidx

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	first := New()
	second := New()

	assert.Equal(t, uuid.Version(7), first.Version())
	assert.NotEqual(t, first, second)
}

func TestNewString(t *testing.T) {
	parsed, err := uuid.Parse(NewString())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}
