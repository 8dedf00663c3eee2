package blockcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/vtable/pkg/loader"
)

func TestCleanupSkippedWithFewBlocks(t *testing.T) {
	m := newModel(t, &loader.Synchronous{}, newCountingSource(100_000, 1), withBlockSize(100))

	for i := 0; i < evictThreshold; i++ {
		m.Value(i*1000, 0)
	}
	require.Len(t, m.ResidentBlocks(), evictThreshold)

	assert.Zero(t, m.Cleanup())
	assert.Len(t, m.ResidentBlocks(), evictThreshold)
}

func TestCleanupKeepsMostRecentOutsideWindow(t *testing.T) {
	clock := &fakeClock{}
	m := newModel(t, &loader.Synchronous{}, newCountingSource(10_000, 1),
		withBlockSize(10), withPolicy(Conservative),
		func(o *Options) { o.Clock = clock.Now })

	// Load blocks 0..19, then touch them in ascending order.
	for i := 0; i < 20; i++ {
		m.Value(i*10, 0)
	}
	for i := 0; i < 20; i++ {
		require.False(t, m.Value(i*10, 0).IsPending())
	}

	// Visible block 50, prefetch window [50, 51].
	m.SetVisibleRange(500, 505)

	want := append(blockRange(10, 19), 50, 51)
	assert.Equal(t, want, m.ResidentBlocks())
}

func TestCleanupRetainsPrefetchWindow(t *testing.T) {
	m := newModel(t, &loader.Synchronous{}, newCountingSource(100_000, 1), withBlockSize(100))

	for step := 0; step < 30; step++ {
		start := step * 3000
		m.SetVisibleRange(start, start+250)

		resident := map[int]bool{}
		for _, idx := range m.ResidentBlocks() {
			resident[idx] = true
		}

		first, last, ok := m.PrefetchWindow()
		require.True(t, ok)
		for idx := first; idx <= last; idx++ {
			assert.True(t, resident[idx], "step %d: prefetch block %d evicted", step, idx)
		}
		for idx := start / 100; idx <= (start+250)/100; idx++ {
			assert.True(t, resident[idx], "step %d: visible block %d evicted", step, idx)
		}

		// visible (3) + window (at most 4) + recency (10)
		assert.LessOrEqual(t, len(resident), 3+4+DefaultMaxExtraBlocks)
	}
}

func TestCleanupSuspendedDuringLoadAll(t *testing.T) {
	exec := &loader.Deferred{}
	m := newModel(t, exec, newCountingSource(5000, 1), withBlockSize(100))

	// Make 20 blocks resident before LoadAll starts.
	for i := 0; i < 20; i++ {
		m.Value(i*100, 0)
	}
	exec.Run()
	require.Len(t, m.ResidentBlocks(), 20)

	done := make(chan error, 1)
	go func() { done <- m.LoadAll(t.Context()) }()

	require.Eventually(t, func() bool { return m.LoadingStatus() == LoadingAll }, time.Second, time.Millisecond)
	assert.Zero(t, m.Cleanup())

	require.Eventually(t, func() bool {
		exec.Run()
		select {
		case err := <-done:
			return assert.NoError(t, err)
		default:
			return false
		}
	}, 5*time.Second, time.Millisecond)

	assert.Len(t, m.ResidentBlocks(), 50)
	assert.Positive(t, m.Cleanup(), "eviction resumes once LoadAll finishes")
}
