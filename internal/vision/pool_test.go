package vision

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	id     int
	closed bool
}

func TestPoolBoundsConcurrency(t *testing.T) {
	t.Parallel()

	pool, err := NewPool(3, func(i int) (*fakeModel, error) {
		return &fakeModel{id: i}, nil
	}, func(m *fakeModel) error {
		m.closed = true
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, pool.Size())

	var inFlight, peak atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Go(func() {
			_ = pool.Do(func(*fakeModel) error {
				n := inFlight.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				inFlight.Add(-1)
				return nil
			})
		})
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(3))

	require.NoError(t, pool.Close())
	for _, m := range pool.all {
		assert.True(t, m.closed)
	}
	require.NoError(t, pool.Close(), "second close is a no-op")
}

func TestPoolDoReturnsCallbackError(t *testing.T) {
	t.Parallel()

	pool, err := NewPool(1, func(i int) (int, error) { return i, nil }, nil)
	require.NoError(t, err)

	want := fmt.Errorf("invoke failed")
	assert.ErrorIs(t, pool.Do(func(int) error { return want }), want)

	// The instance went back to the pool
	assert.NoError(t, pool.Do(func(int) error { return nil }))
}

func TestPoolCreationFailureReleasesCreated(t *testing.T) {
	t.Parallel()

	var released []int
	_, err := NewPool(3, func(i int) (int, error) {
		if i == 2 {
			return 0, fmt.Errorf("model file missing")
		}
		return i, nil
	}, func(i int) error {
		released = append(released, i)
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "instance 2")
	assert.Equal(t, []int{0, 1}, released)
}

func TestPoolRejectsZeroSize(t *testing.T) {
	t.Parallel()

	_, err := NewPool(0, func(int) (int, error) { return 0, nil }, nil)
	assert.Error(t, err)
}
