package agent

import (
	"context"
	"sync"

	"github.com/forge-run/forge/internal/pipeline"
)

// ExecuteFunc is the signature MockExecutor.RunFunc must implement.
type ExecuteFunc func(ctx context.Context, job pipeline.Job, runCtx map[string]any, opts ExecuteOptions) (*JobResult, *pipeline.EngineError)

// MockExecutor is a scheduler-test double standing in for Execute. Its
// builder methods (WithRunFunc, WithFailures) let scheduler tests script
// per-job outcomes
// without spawning real subprocesses.
type MockExecutor struct {
	mu    sync.Mutex
	calls []pipeline.Job

	RunFunc ExecuteFunc
}

// NewMockExecutor returns a MockExecutor that, absent a configured
// RunFunc, succeeds every job with an empty output.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{}
}

// WithRunFunc sets the function invoked on every Execute call.
func (m *MockExecutor) WithRunFunc(fn ExecuteFunc) *MockExecutor {
	m.RunFunc = fn
	return m
}

// WithFailures configures every job ID in the given set to fail with
// WorkerFailed, leaving everything else to the default success behavior
// (or to RunFunc if one has been set first).
func (m *MockExecutor) WithFailures(jobIDs ...string) *MockExecutor {
	failing := make(map[string]bool, len(jobIDs))
	for _, id := range jobIDs {
		failing[id] = true
	}
	prev := m.RunFunc
	m.RunFunc = func(ctx context.Context, job pipeline.Job, runCtx map[string]any, opts ExecuteOptions) (*JobResult, *pipeline.EngineError) {
		if failing[job.ID] {
			return nil, pipeline.NewEngineError(pipeline.WorkerFailed, "mock executor: job scripted to fail: "+job.ID)
		}
		if prev != nil {
			return prev(ctx, job, runCtx, opts)
		}
		return &JobResult{}, nil
	}
	return m
}

// Execute records the call and delegates to RunFunc, or returns an empty
// success result if none is configured.
func (m *MockExecutor) Execute(ctx context.Context, job pipeline.Job, runCtx map[string]any, opts ExecuteOptions) (*JobResult, *pipeline.EngineError) {
	m.mu.Lock()
	m.calls = append(m.calls, job)
	fn := m.RunFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, job, runCtx, opts)
	}
	return &JobResult{}, nil
}

// Calls returns every job passed to Execute so far, in call order.
func (m *MockExecutor) Calls() []pipeline.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]pipeline.Job(nil), m.calls...)
}
