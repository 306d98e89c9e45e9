package executor

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestFutureComplete(t *testing.T) {
	f := NewFuture(DefaultUnmarshal[string]())
	f.Complete("done")

	got, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, "done", got)

	// repeatable
	got, err = f.Get()
	require.NoError(t, err)
	assert.Equal(t, "done", got)
}

func TestFutureError(t *testing.T) {
	f := NewFuture(DefaultUnmarshal[string]())
	sentinel := errors.New("boom")
	f.Error(sentinel)

	_, err := f.Get()
	require.ErrorIs(t, err, sentinel)
}

func TestFutureFirstCompletionWins(t *testing.T) {
	f := NewFuture(DefaultUnmarshal[string]())
	f.Complete("first")
	f.Complete("second")
	f.Error(errors.New("late"))

	got, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, "first", got)
}

func TestFutureConcurrentGet(t *testing.T) {
	f := NewFuture(DefaultUnmarshal[string]())

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := f.Get()
			require.NoError(t, err)
			results[i] = v
		}(i)
	}

	f.Complete("shared")
	wg.Wait()

	for _, v := range results {
		assert.Equal(t, "shared", v)
	}
}

func TestDefaultUnmarshal(t *testing.T) {
	t.Run("string passes through", func(t *testing.T) {
		got, err := DefaultUnmarshal[string]()([]byte("plain text"))
		require.NoError(t, err)
		assert.Equal(t, "plain text", got)
	})

	t.Run("gjson wraps raw payload", func(t *testing.T) {
		got, err := DefaultUnmarshal[gjson.Result]()([]byte(`{"city":"Paris"}`))
		require.NoError(t, err)
		assert.Equal(t, "Paris", got.Get("city").String())
	})

	t.Run("struct goes through json", func(t *testing.T) {
		type payload struct {
			City string `json:"city"`
		}
		got, err := DefaultUnmarshal[payload]()([]byte(`{"city":"Paris"}`))
		require.NoError(t, err)
		assert.Equal(t, "Paris", got.City)
	})
}
