package flusher

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBatchIterations(t *testing.T) {
	testCases := []struct {
		name          string
		eventCount    int
		perBatchLimit int
		expected      int
	}{
		{name: "no events", eventCount: 0, perBatchLimit: 100, expected: 0},
		{name: "negative count", eventCount: -5, perBatchLimit: 100, expected: 0},
		{name: "less than one batch", eventCount: 5, perBatchLimit: 100, expected: 1},
		{name: "exactly one batch", eventCount: 100, perBatchLimit: 100, expected: 1},
		{name: "one over the limit", eventCount: 101, perBatchLimit: 100, expected: 2},
		{name: "partial last batch", eventCount: 5, perBatchLimit: 2, expected: 3},
		{name: "exact multiple", eventCount: 300, perBatchLimit: 100, expected: 3},
		{name: "limit of one", eventCount: 7, perBatchLimit: 1, expected: 7},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, batchIterations(tc.eventCount, tc.perBatchLimit))
		})
	}
}

func TestClassifyResults(t *testing.T) {
	ok := EventBatchResult{Success: true}
	ko := EventBatchResult{Success: false}

	t.Run("no results is all succeeded", func(t *testing.T) {
		o := classifyResults(nil)
		require.Equal(t, allSucceeded, o.kind)
		require.Empty(t, o.succeeded)
		require.Empty(t, o.failed)
	})

	t.Run("only successes", func(t *testing.T) {
		o := classifyResults([]EventBatchResult{ok, ok})
		require.Equal(t, allSucceeded, o.kind)
		require.Len(t, o.succeeded, 2)
		require.Empty(t, o.failed)
	})

	t.Run("only failures", func(t *testing.T) {
		o := classifyResults([]EventBatchResult{ko, ko, ko})
		require.Equal(t, allFailed, o.kind)
		require.Empty(t, o.succeeded)
		require.Len(t, o.failed, 3)
	})

	t.Run("mixed", func(t *testing.T) {
		o := classifyResults([]EventBatchResult{ok, ko, ok})
		require.Equal(t, mixed, o.kind)
		require.Len(t, o.succeeded, 2)
		require.Len(t, o.failed, 1)
	})
}
