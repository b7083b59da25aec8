package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAll_Empty(t *testing.T) {
	assert.Nil(t, RunAll(context.Background(), nil))
}

func TestRunAll_AllSucceed(t *testing.T) {
	var ran atomic.Int32
	tasks := []Task{
		{Name: "a", Func: func(context.Context) error { ran.Add(1); return nil }},
		{Name: "b", Func: func(context.Context) error { ran.Add(1); return nil }},
		{Name: "c", Func: func(context.Context) error { ran.Add(1); return nil }},
	}

	results := RunAll(context.Background(), tasks)

	require.Len(t, results, 3)
	assert.Equal(t, int32(3), ran.Load())
	assert.NoError(t, FirstError(results))
}

func TestRunAll_FailureDoesNotCancelSiblings(t *testing.T) {
	var ran atomic.Int32
	boom := errors.New("boom")
	tasks := []Task{
		{Name: "fails", Func: func(context.Context) error { return boom }},
		{Name: "ok-1", Func: func(context.Context) error { ran.Add(1); return nil }},
		{Name: "ok-2", Func: func(context.Context) error { ran.Add(1); return nil }},
	}

	results := RunAll(context.Background(), tasks)

	require.Len(t, results, 3)
	assert.Equal(t, int32(2), ran.Load())
	assert.ErrorIs(t, FirstError(results), boom)

	byName := map[string]error{}
	for _, r := range results {
		byName[r.Name] = r.Err
	}
	assert.Error(t, byName["fails"])
	assert.NoError(t, byName["ok-1"])
	assert.NoError(t, byName["ok-2"])
}
