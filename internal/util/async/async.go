// Package async provides utilities for parallel task execution.
//
// This package contains generic helpers for running multiple operations
// concurrently and collecting every task's result. Unlike errgroup-style
// helpers, a failing task never cancels its siblings: the worker-join
// fan-out needs partial success, not first-error semantics.
package async

import (
	"context"
)

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// Result pairs a task name with its outcome.
type Result struct {
	Name string
	Err  error
}

// RunAll executes all tasks concurrently and waits for every one to finish.
// It returns one Result per task, in completion order. A task's failure does
// not affect the others; cancellation is the caller's concern via ctx.
func RunAll(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	resultChan := make(chan Result, len(tasks))

	for _, task := range tasks {
		go func() {
			resultChan <- Result{Name: task.Name, Err: task.Func(ctx)}
		}()
	}

	results := make([]Result, 0, len(tasks))
	for range len(tasks) {
		results = append(results, <-resultChan)
	}

	return results
}

// FirstError returns the first non-nil error among results, or nil.
func FirstError(results []Result) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}
