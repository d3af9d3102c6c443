package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCallWithDeadline(t *testing.T) {
	v, err := callWithDeadline(context.Background(), time.Second, func(ctx context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	require.Equal(t, 7, v)

	release := make(chan struct{})
	defer close(release)
	start := time.Now()
	_, err = callWithDeadline(context.Background(), 20*time.Millisecond, func(ctx context.Context) (int, error) {
		<-release // ignores ctx, like a cgo call
		return 1, nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), time.Second)

	v, err = callWithDeadline(context.Background(), 0, func(ctx context.Context) (int, error) {
		_, has := ctx.Deadline()
		require.False(t, has)
		return 3, nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, v)
}
