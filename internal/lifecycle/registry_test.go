package lifecycle

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CloseRunsHooksInReverse(t *testing.T) {
	r := NewRegistry(nil)
	var order []string
	r.Register("first", func() error { order = append(order, "first"); return nil })
	r.Register("second", func() error { order = append(order, "second"); return nil })
	r.Register("third", func() error { order = append(order, "third"); return nil })

	require.NoError(t, r.Close())
	assert.Equal(t, []string{"third", "second", "first"}, order)
}

func TestRegistry_HookRunsOnce(t *testing.T) {
	r := NewRegistry(nil)
	var calls atomic.Int32
	release := r.Register("sink", func() error {
		calls.Add(1)
		return nil
	})

	require.NoError(t, release())
	require.NoError(t, release())
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	assert.Equal(t, int32(1), calls.Load())
}

func TestRegistry_ErrorsJoined(t *testing.T) {
	r := NewRegistry(nil)
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	r.Register("a", func() error { return errA })
	r.Register("ok", func() error { return nil })
	r.Register("b", func() error { return errB })

	err := r.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestRegistry_PanicBecomesError(t *testing.T) {
	r := NewRegistry(nil)
	ran := false
	r.Register("after", func() error { ran = true; return nil })
	r.Register("bad", func() error { panic("boom") })

	err := r.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	assert.True(t, ran, "hooks after a panicking hook still run")
}

func TestRegistry_RegisterAfterClose(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Close())

	ran := false
	release := r.Register("late", func() error { ran = true; return nil })

	assert.True(t, ran, "late hook runs immediately")
	assert.NoError(t, release())
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_ConcurrentRegister(t *testing.T) {
	r := NewRegistry(nil)
	var calls atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Register("sink", func() error {
				calls.Add(1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, r.Len())
	require.NoError(t, r.Close())
	assert.Equal(t, int32(50), calls.Load())
}
