package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startDispatcher(t *testing.T, d *Dispatcher) *Owner {
	t.Helper()

	owner := NewOwner()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.Serve(ctx, owner)
	}()
	require.Eventually(t, d.Serving, time.Second, time.Millisecond)
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return owner
}

func TestClaim(t *testing.T) {
	t.Parallel()

	t.Run("first claim wins", func(t *testing.T) {
		d := New()
		require.NoError(t, d.Claim(NewOwner()))
	})

	t.Run("re-claim with same owner is a no-op", func(t *testing.T) {
		d := New()
		owner := NewOwner()
		require.NoError(t, d.Claim(owner))
		require.NoError(t, d.Claim(owner))
	})

	t.Run("different owner conflicts", func(t *testing.T) {
		d := New()
		require.NoError(t, d.Claim(NewOwner()))
		err := d.Claim(NewOwner())
		require.ErrorIs(t, err, ErrOwnerConflict)
	})

	t.Run("nil owner is rejected", func(t *testing.T) {
		d := New()
		require.ErrorIs(t, d.Claim(nil), ErrNotOwner)
	})

	t.Run("concurrent claims agree on a single owner", func(t *testing.T) {
		d := New()
		owners := make([]*Owner, 8)
		for i := range owners {
			owners[i] = NewOwner()
		}

		var wg sync.WaitGroup
		failures := make([]error, len(owners))
		for i, o := range owners {
			wg.Add(1)
			go func() {
				defer wg.Done()
				failures[i] = d.Claim(o)
			}()
		}
		wg.Wait()

		var winners int
		for _, err := range failures {
			if err == nil {
				winners++
			} else {
				require.ErrorIs(t, err, ErrOwnerConflict)
			}
		}
		assert.Equal(t, 1, winners)
	})
}

func TestServe(t *testing.T) {
	t.Parallel()

	t.Run("rejects a handle that does not hold the claim", func(t *testing.T) {
		d := New()
		require.NoError(t, d.Claim(NewOwner()))
		err := d.Serve(context.Background(), NewOwner())
		require.ErrorIs(t, err, ErrOwnerConflict)
	})

	t.Run("second loop for the same owner is refused", func(t *testing.T) {
		d := New()
		owner := startDispatcher(t, d)
		require.ErrorIs(t, d.Serve(context.Background(), owner), ErrAlreadyServing)
	})

	t.Run("pending invocations fail on shutdown", func(t *testing.T) {
		d := New()
		ctx, cancel := context.WithCancel(context.Background())
		owner := NewOwner()
		served := make(chan struct{})
		go func() {
			defer close(served)
			_ = d.Serve(ctx, owner)
		}()
		require.Eventually(t, d.Serving, time.Second, time.Millisecond)

		// Park the loop on a gated operation, then queue one more behind it.
		gate := make(chan struct{})
		blocked, err := d.InvokeAsync(context.Background(), func(context.Context) (any, error) {
			<-gate
			return nil, nil
		})
		require.NoError(t, err)
		pending, err := d.InvokeAsync(context.Background(), func(context.Context) (any, error) {
			return "never", nil
		})
		require.NoError(t, err)

		cancel()
		close(gate)
		<-served

		_, err = pending.Get()
		require.ErrorIs(t, err, ErrNotServing)
		_, err = blocked.Get()
		require.NoError(t, err)
	})

	t.Run("a submit racing shutdown is refused or drained, never stranded", func(t *testing.T) {
		// Callers use the default unset timeout, so an enqueued invocation
		// that is neither executed nor drained would park its worker forever
		// and trip the watchdog below.
		for range 200 {
			d := New()
			ctx, cancel := context.WithCancel(context.Background())
			owner := NewOwner()
			served := make(chan struct{})
			go func() {
				defer close(served)
				_ = d.Serve(ctx, owner)
			}()
			require.Eventually(t, d.Serving, time.Second, time.Millisecond)

			var wg sync.WaitGroup
			for range 4 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for {
						_, err := d.Invoke(context.Background(), func(context.Context) (any, error) {
							return nil, nil
						})
						if errors.Is(err, ErrNotServing) {
							return
						}
					}
				}()
			}

			cancel()
			<-served

			finished := make(chan struct{})
			go func() {
				defer close(finished)
				wg.Wait()
			}()
			select {
			case <-finished:
			case <-time.After(2 * time.Second):
				t.Fatal("a caller was left waiting on an invocation the loop will never run")
			}

			_, err := d.Invoke(context.Background(), func(context.Context) (any, error) { return nil, nil })
			require.ErrorIs(t, err, ErrNotServing)
		}
	})
}

func TestInvoke(t *testing.T) {
	t.Parallel()

	t.Run("fails when the loop is not running", func(t *testing.T) {
		d := New()
		_, err := d.Invoke(context.Background(), func(context.Context) (any, error) {
			return 42, nil
		})
		require.ErrorIs(t, err, ErrNotServing)
	})

	t.Run("nil operation is rejected", func(t *testing.T) {
		d := New()
		startDispatcher(t, d)
		_, err := d.Invoke(context.Background(), nil)
		require.ErrorIs(t, err, ErrNilOperation)
	})

	t.Run("executes on the owner loop and returns the result", func(t *testing.T) {
		d := New()
		startDispatcher(t, d)

		result, err := d.Invoke(context.Background(), func(ctx context.Context) (any, error) {
			assert.True(t, d.IsOwnerContext(ctx))
			return "on the loop", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "on the loop", result)
	})

	t.Run("reentrant invoke runs inline without deadlock", func(t *testing.T) {
		d := New(WithTimeout(2 * time.Second))
		startDispatcher(t, d)

		result, err := d.Invoke(context.Background(), func(ctx context.Context) (any, error) {
			return d.Invoke(ctx, func(inner context.Context) (any, error) {
				require.True(t, d.IsOwnerContext(inner))
				return "nested", nil
			})
		})
		require.NoError(t, err)
		assert.Equal(t, "nested", result)
	})

	t.Run("operation errors keep their identity", func(t *testing.T) {
		d := New()
		startDispatcher(t, d)

		sentinel := errors.New("guardrail intervened")
		_, err := d.Invoke(context.Background(), func(context.Context) (any, error) {
			return nil, fmt.Errorf("model call failed: %w", sentinel)
		})
		require.ErrorIs(t, err, sentinel)
	})

	t.Run("typed operation errors survive errors.As", func(t *testing.T) {
		d := New()
		startDispatcher(t, d)

		_, err := d.Invoke(context.Background(), func(context.Context) (any, error) {
			return nil, &payloadError{Code: 422, Detail: "blocked"}
		})
		var perr *payloadError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, 422, perr.Code)
		assert.Equal(t, "blocked", perr.Detail)
	})

	t.Run("panicking operation surfaces as an error", func(t *testing.T) {
		d := New()
		startDispatcher(t, d)

		_, err := d.Invoke(context.Background(), func(context.Context) (any, error) {
			panic("boom")
		})
		require.ErrorContains(t, err, "boom")
		assert.True(t, d.Serving(), "a panic must not kill the loop")
	})

	t.Run("caller context cancellation abandons the wait", func(t *testing.T) {
		d := New()
		startDispatcher(t, d)

		gate := make(chan struct{})
		defer close(gate)
		// occupy the loop so the next call has to wait
		_, err := d.InvokeAsync(context.Background(), func(context.Context) (any, error) {
			<-gate
			return nil, nil
		})
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()
		_, err = d.Invoke(ctx, func(context.Context) (any, error) { return nil, nil })
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("bounded queue rejects overflow", func(t *testing.T) {
		d := New(WithQueueDepth(1))
		startDispatcher(t, d)

		gate := make(chan struct{})
		defer close(gate)
		_, err := d.InvokeAsync(context.Background(), func(context.Context) (any, error) {
			<-gate
			return nil, nil
		})
		require.NoError(t, err)
		_, err = d.InvokeAsync(context.Background(), func(context.Context) (any, error) { return nil, nil })
		require.NoError(t, err)

		_, err = d.InvokeAsync(context.Background(), func(context.Context) (any, error) { return nil, nil })
		require.ErrorIs(t, err, ErrQueueFull)
	})
}

type payloadError struct {
	Code   int
	Detail string
}

func (e *payloadError) Error() string {
	return fmt.Sprintf("payload error %d: %s", e.Code, e.Detail)
}

func TestInvokeTimeout(t *testing.T) {
	t.Parallel()

	d := New(WithTimeout(100 * time.Millisecond))
	startDispatcher(t, d)

	started := time.Now()
	_, err := d.Invoke(context.Background(), func(context.Context) (any, error) {
		time.Sleep(2 * time.Second)
		return nil, nil
	})
	elapsed := time.Since(started)

	require.ErrorIs(t, err, ErrDispatchTimeout)
	assert.GreaterOrEqual(t, elapsed, 80*time.Millisecond, "must not fail immediately")
	assert.Less(t, elapsed, time.Second, "must not wait for the operation")
}

func TestInvokeFIFO(t *testing.T) {
	t.Parallel()

	d := New()
	startDispatcher(t, d)

	// Park the loop so subsequent invocations pile up in enqueue order.
	gate := make(chan struct{})
	blocker, err := d.InvokeAsync(context.Background(), func(context.Context) (any, error) {
		<-gate
		return nil, nil
	})
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		order []string
	)
	futures := make([]Future, 0, 3)
	for _, name := range []string{"A", "B", "C"} {
		fut, err := d.InvokeAsync(context.Background(), func(context.Context) (any, error) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return name, nil
		})
		require.NoError(t, err)
		futures = append(futures, fut)
	}

	close(gate)
	_, err = blocker.Get()
	require.NoError(t, err)
	for _, fut := range futures {
		_, err := fut.Get()
		require.NoError(t, err)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"A", "B", "C"}, order)
}

func TestInvokeConcurrent(t *testing.T) {
	t.Parallel()

	d := New()
	startDispatcher(t, d)

	const workers = 32
	results := make([]int, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = Do(context.Background(), d, func(context.Context) (int, error) {
				return i * 2, nil
			})
		}()
	}
	wg.Wait()

	for i := range workers {
		require.NoError(t, errs[i])
		assert.Equal(t, i*2, results[i], "worker %d received someone else's result", i)
	}
}

func TestDo(t *testing.T) {
	t.Parallel()

	t.Run("preserves the typed result", func(t *testing.T) {
		d := New()
		startDispatcher(t, d)

		got, err := Do(context.Background(), d, func(context.Context) (string, error) {
			return "typed", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "typed", got)
	})

	t.Run("zero value on error", func(t *testing.T) {
		d := New()
		startDispatcher(t, d)

		sentinel := errors.New("nope")
		got, err := Do(context.Background(), d, func(context.Context) (int, error) {
			return 7, sentinel
		})
		require.ErrorIs(t, err, sentinel)
		assert.Zero(t, got)
	})
}

func TestInvokeAsync(t *testing.T) {
	t.Parallel()

	t.Run("future resolves once the loop ran the operation", func(t *testing.T) {
		d := New()
		startDispatcher(t, d)

		fut, err := d.InvokeAsync(context.Background(), func(context.Context) (any, error) {
			return 99, nil
		})
		require.NoError(t, err)

		result, err := fut.Get()
		require.NoError(t, err)
		assert.Equal(t, 99, result)

		// Get is idempotent
		again, err := fut.Get()
		require.NoError(t, err)
		assert.Equal(t, 99, again)
	})

	t.Run("owner context completes before returning", func(t *testing.T) {
		d := New()
		startDispatcher(t, d)

		result, err := d.Invoke(context.Background(), func(ctx context.Context) (any, error) {
			fut, err := d.InvokeAsync(ctx, func(context.Context) (any, error) {
				return "inline", nil
			})
			if err != nil {
				return nil, err
			}
			return fut.Get()
		})
		require.NoError(t, err)
		assert.Equal(t, "inline", result)
	})
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	d := New(WithMetrics(reg))
	startDispatcher(t, d)

	_, err := d.Invoke(context.Background(), func(ctx context.Context) (any, error) {
		// one inline invocation through reentrancy
		return d.Invoke(ctx, func(context.Context) (any, error) { return nil, nil })
	})
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]struct{}, len(families))
	for _, mf := range families {
		names[mf.GetName()] = struct{}{}
	}
	assert.Contains(t, names, "skein_dispatch_inline_invocations_total")
	assert.Contains(t, names, "skein_dispatch_queued_invocations_total")
	assert.Contains(t, names, "skein_dispatch_latency_seconds")
}
