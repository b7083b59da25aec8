package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUntil_ImmediateSuccess(t *testing.T) {
	calls := 0
	err := Until(context.Background(), "thing", time.Second, time.Second, func(context.Context) (bool, error) {
		calls++
		return true, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestUntil_EventualSuccess(t *testing.T) {
	calls := 0
	err := Until(context.Background(), "thing", 5*time.Millisecond, time.Second, func(context.Context) (bool, error) {
		calls++
		return calls >= 3, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestUntil_Timeout(t *testing.T) {
	err := Until(context.Background(), "node ready", 5*time.Millisecond, 30*time.Millisecond, func(context.Context) (bool, error) {
		return false, nil
	})

	require.Error(t, err)
	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "node ready", timeout.What)
	assert.Contains(t, err.Error(), "node ready")
}

func TestUntil_ConditionError(t *testing.T) {
	boom := errors.New("boom")
	err := Until(context.Background(), "thing", time.Millisecond, time.Second, func(context.Context) (bool, error) {
		return false, boom
	})

	assert.ErrorIs(t, err, boom)
}

func TestUntil_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Until(ctx, "thing", 50*time.Millisecond, time.Second, func(context.Context) (bool, error) {
		return false, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}
