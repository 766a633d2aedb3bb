package testutil

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoll(t *testing.T) {
	ctx := context.Background()

	t.Run("condition met", func(t *testing.T) {
		calls := 0
		err := Poll(ctx, func() bool { calls++; return calls >= 3 }, time.Second, time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("timeout", func(t *testing.T) {
		err := Poll(ctx, func() bool { return false }, 20*time.Millisecond, time.Millisecond)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timed out")
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		err := Poll(cctx, func() bool { cancel(); return false }, time.Second, time.Millisecond)
		assert.True(t, errors.Is(err, context.Canceled), "err = %v", err)
	})
}

func TestWaitFor(t *testing.T) {
	n := 0
	got, err := WaitFor(context.Background(), func() int { n++; return n }, func(v int) bool { return v > 4 }, time.Second, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 5, got)

	_, err = WaitFor(context.Background(), func() string { return "" }, func(s string) bool { return s != "" }, 10*time.Millisecond, time.Millisecond)
	assert.ErrorContains(t, err, "string")
}

func TestDetectPlatform(t *testing.T) {
	p := DetectPlatform(t)
	assert.Equal(t, runtime.GOOS == "windows", p.Windows)
	assert.Equal(t, p.UID == 0, p.Root)
}

func TestAnnotationID(t *testing.T) {
	a, b := AnnotationID(), AnnotationID()
	assert.Greater(t, a, int64(1000))
	assert.NotEqual(t, a, b)
}
