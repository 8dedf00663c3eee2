package blockcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyCounts(t *testing.T) {
	tests := []struct {
		policy        PreloadPolicy
		ahead, behind int
	}{
		{Conservative, 1, 0},
		{Balanced, 2, 1},
		{Aggressive, 5, 2},
	}
	for _, tt := range tests {
		ahead, behind := tt.policy.Counts()
		assert.Equal(t, tt.ahead, ahead, tt.policy.String())
		assert.Equal(t, tt.behind, behind, tt.policy.String())
	}
}

func TestParsePolicy(t *testing.T) {
	for _, p := range []PreloadPolicy{Conservative, Balanced, Aggressive} {
		got, err := ParsePolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	got, err := ParsePolicy("  AGGRESSIVE ")
	require.NoError(t, err)
	assert.Equal(t, Aggressive, got)

	got, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, Balanced, got)

	_, err = ParsePolicy("reckless")
	assert.Error(t, err)
}

func TestPrefetchRange(t *testing.T) {
	first, last := prefetchRange(5, 5, 2, 100)
	assert.Equal(t, 3, first)
	assert.Equal(t, 10, last)

	first, last = prefetchRange(0, 2, 1, 100)
	assert.Equal(t, 0, first)
	assert.Equal(t, 2, last)

	first, last = prefetchRange(99, 5, 2, 100)
	assert.Equal(t, 97, first)
	assert.Equal(t, 99, last)

	first, last = prefetchRange(0, 1, 0, 0)
	assert.Greater(t, first, last, "no blocks means an empty range")
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "loading_visible", LoadingVisible.String())
	assert.Equal(t, "loading_preload", LoadingPreload.String())
	assert.Equal(t, "loading_all", LoadingAll.String())
	assert.Equal(t, "unknown(9)", Status(9).String())
}
