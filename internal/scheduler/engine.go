package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/forge-run/forge/internal/agent"
	"github.com/forge-run/forge/internal/events"
	"github.com/forge-run/forge/internal/logging"
	"github.com/forge-run/forge/internal/pipeline"
	"github.com/forge-run/forge/internal/store"
)

// defaultConcurrency is used when no EngineOption sets the cap,
// matching forge.toml's default max_concurrent_jobs.
const defaultConcurrency = 3

// EngineOption configures an Engine at construction time.
type EngineOption func(*Engine)

// WithConcurrency overrides the worker pool's concurrency cap. A value <= 0
// is clamped to 1.
func WithConcurrency(n int) EngineOption {
	return func(e *Engine) {
		if n <= 0 {
			n = 1
		}
		e.concurrency = n
	}
}

// WithAgentsDir overrides the directory AgentDefinition files resolve from.
func WithAgentsDir(dir string) EngineOption {
	return func(e *Engine) { e.agentsDir = dir }
}

// WithScratchRoot overrides the root directory executions scratch into.
func WithScratchRoot(dir string) EngineOption {
	return func(e *Engine) { e.scratchRoot = dir }
}

// WithDefaultTimeout sets the per-job timeout used when a Job declares none.
func WithDefaultTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.defaultTimeout = d }
}

// WithGracePeriod overrides the executor's process-group drain window.
func WithGracePeriod(d time.Duration) EngineOption {
	return func(e *Engine) { e.gracePeriod = d }
}

// WithExecutor overrides the Executor used to run jobs, primarily for
// tests (agent.NewMockExecutor).
func WithExecutor(ex agent.Executor) EngineOption {
	return func(e *Engine) { e.executor = ex }
}

// WithEventBus overrides the Engine's event bus instead of the one it would
// otherwise allocate for itself.
func WithEventBus(b *events.Bus) EngineOption {
	return func(e *Engine) { e.events = b }
}

// runHandle is the Engine's in-memory bookkeeping for one active or
// completed run, guarding the authoritative RunState and carrying the
// cancellation plumbing cancel(runId) needs.
type runHandle struct {
	mu        sync.Mutex
	state     *pipeline.RunState
	cancel    context.CancelFunc
	cancelled bool
	done      chan struct{}
}

// Engine is the Run Scheduler: the single writer of every RunState it
// creates. It owns admission into a bounded worker pool, retry/backoff
// scheduling, conditional-skip and dependency-failure-propagation
// evaluation, context merging, persistence, and event publication.
type Engine struct {
	store    *store.StateStore
	events   *events.Bus
	executor agent.Executor
	logger   *log.Logger

	concurrency    int
	agentsDir      string
	scratchRoot    string
	defaultTimeout time.Duration
	gracePeriod    time.Duration

	mu   sync.Mutex
	runs map[string]*runHandle
}

// New constructs an Engine persisting to st and publishing to its own fresh
// event bus (override with WithEventBus), executing jobs via ex.
func New(st *store.StateStore, ex agent.Executor, opts ...EngineOption) *Engine {
	e := &Engine{
		store:          st,
		events:         events.NewBus(),
		executor:       ex,
		logger:         logging.New("scheduler"),
		concurrency:    defaultConcurrency,
		agentsDir:      "agents",
		scratchRoot:    ".forge/scratch",
		defaultTimeout: 10 * time.Minute,
		gracePeriod:    3 * time.Second,
		runs:           make(map[string]*runHandle),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Events returns the Engine's event bus so callers (CLI, dashboard) can
// subscribe to lifecycle events.
func (e *Engine) Events() *events.Bus {
	return e.events
}

// newRunID mirrors the teacher's wf-<unixnano> scheme: cheap, monotonic-ish,
// and human-recognizable in logs without pulling in a UUID dependency the
// rest of the stack never otherwise needs.
func newRunID() string {
	return fmt.Sprintf("run-%d", time.Now().UnixNano())
}

// StartRun validates p, builds its initial RunState (pipeline defaults
// merged with initialContext, caller overrides winning), persists it,
// publishes run.started, and launches the scheduling loop in the
// background. It returns the new run's ID immediately; callers observe
// progress via Status/Progress or block on Wait.
func (e *Engine) StartRun(ctx context.Context, p *pipeline.Pipeline, initialContext map[string]any) (string, *pipeline.EngineError) {
	if err := pipeline.Validate(p); err != nil {
		return "", err
	}

	runID := newRunID()
	rs := pipeline.NewRunState(runID, p)
	for k, v := range initialContext {
		rs.Context[k] = v
	}
	now := time.Now()
	rs.StartedAt = &now
	rs.Status = pipeline.RunRunning

	if err := e.save(rs); err != nil {
		return "", err
	}
	e.publish(events.Event{Type: events.RunStarted, RunID: runID, Timestamp: now})

	runCtx, cancel := context.WithCancel(context.Background())
	h := &runHandle{state: rs, cancel: cancel, done: make(chan struct{})}

	e.mu.Lock()
	e.runs[runID] = h
	e.mu.Unlock()

	go func() {
		defer close(h.done)
		e.run(runCtx, h, p)
	}()

	return runID, nil
}

// ResumeRun re-enters the scheduling loop for a previously persisted,
// non-terminal run, using p as the pipeline definition (the persisted
// RunState only carries the pipeline's name, not its job graph). Jobs
// caught RUNNING, QUEUED, or RETRYING by whatever snapshot was last saved
// are reset to PENDING first: this process has no goroutine actually
// driving them, so they must be re-admitted from scratch rather than
// assumed still in flight. COMPLETED, FAILED, SKIPPED, and CANCELLED jobs
// are left untouched, and the scheduling loop picks up from there exactly
// as it would mid-run.
func (e *Engine) ResumeRun(ctx context.Context, runID string, p *pipeline.Pipeline) *pipeline.EngineError {
	if err := pipeline.Validate(p); err != nil {
		return err
	}

	rs, err := e.loadFromStore(runID)
	if err != nil {
		return err
	}
	if rs.Pipeline != p.Name {
		return pipeline.NewEngineError(pipeline.InvalidPipeline,
			fmt.Sprintf("run %q was started from pipeline %q, not %q", runID, rs.Pipeline, p.Name))
	}
	if rs.Done() {
		return pipeline.NewEngineError(pipeline.InvalidPipeline,
			fmt.Sprintf("run %q is already terminal (%s)", runID, rs.Status))
	}

	for _, js := range rs.Jobs {
		if js.Status == pipeline.JobRunning || js.Status == pipeline.JobQueued || js.Status == pipeline.JobRetrying {
			js.Status = pipeline.JobPending
			js.StartedAt = nil
		}
	}
	rs.Status = pipeline.RunRunning

	if err := e.save(rs); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	h := &runHandle{state: rs, cancel: cancel, done: make(chan struct{})}

	e.mu.Lock()
	e.runs[runID] = h
	e.mu.Unlock()

	go func() {
		defer close(h.done)
		e.run(runCtx, h, p)
	}()

	return nil
}

// Status returns a value-copy snapshot of runID's current RunState.
func (e *Engine) Status(runID string) (*pipeline.RunState, *pipeline.EngineError) {
	h, ok := e.handle(runID)
	if !ok {
		return e.loadFromStore(runID)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return cloneRunState(h.state), nil
}

// Progress reports runID's completion percentage: 100 * (completed +
// skipped) / total, per spec.md §4.4.
func (e *Engine) Progress(runID string) (int, *pipeline.EngineError) {
	rs, err := e.Status(runID)
	if err != nil {
		return 0, err
	}
	return computeProgress(rs), nil
}

func computeProgress(rs *pipeline.RunState) int {
	total := len(rs.Jobs)
	if total == 0 {
		return 0
	}
	done := 0
	for _, js := range rs.Jobs {
		if js.Status == pipeline.JobCompleted || js.Status == pipeline.JobSkipped {
			done++
		}
	}
	return (100 * done) / total
}

// List returns a summary of every run the store knows about.
func (e *Engine) List() ([]store.RunSummary, error) {
	return e.store.List()
}

// Cancel requests termination of runID. It returns false if the run is
// unknown or already terminal. Cancellation is cooperative: running jobs
// are signalled via their Executor context and unwind within their own
// grace window; pending/queued/retrying jobs are transitioned to CANCELLED
// immediately.
func (e *Engine) Cancel(runID string) bool {
	h, ok := e.handle(runID)
	if !ok {
		return false
	}

	h.mu.Lock()
	if h.state.Done() || h.cancelled {
		h.mu.Unlock()
		return false
	}
	h.cancelled = true
	for _, js := range h.state.Jobs {
		if js.Status == pipeline.JobPending || js.Status == pipeline.JobQueued || js.Status == pipeline.JobRetrying {
			js.Status = pipeline.JobCancelled
			js.SkipReason = pipeline.SkipCancelled
		}
	}
	rs := cloneRunState(h.state)
	h.mu.Unlock()

	_ = e.save(rs)
	h.cancel()
	return true
}

// Wait blocks until runID's scheduling loop has terminated. It is primarily
// useful in tests that need a deterministic point to assert final state
// without polling Status.
func (e *Engine) Wait(runID string) {
	h, ok := e.handle(runID)
	if !ok {
		return
	}
	<-h.done
}

func (e *Engine) handle(runID string) (*runHandle, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.runs[runID]
	return h, ok
}

func (e *Engine) loadFromStore(runID string) (*pipeline.RunState, *pipeline.EngineError) {
	rs, err := e.store.Load(runID)
	if err != nil {
		if ee, ok := err.(*pipeline.EngineError); ok {
			return nil, ee
		}
		return nil, pipeline.WrapEngineError(pipeline.UnknownRun, "loading run state", err)
	}
	return rs, nil
}

func (e *Engine) save(rs *pipeline.RunState) *pipeline.EngineError {
	if err := e.store.Save(rs); err != nil {
		return pipeline.WrapEngineError(pipeline.StatePersistenceError, fmt.Sprintf("saving run %q", rs.RunID), err)
	}
	return nil
}

func (e *Engine) publish(ev events.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	e.events.Publish(ev)
}

// cloneRunState deep-copies rs so callers never observe (or race on) the
// scheduler's live state.
func cloneRunState(rs *pipeline.RunState) *pipeline.RunState {
	out := *rs
	out.Context = make(map[string]any, len(rs.Context))
	for k, v := range rs.Context {
		out.Context[k] = v
	}
	out.Jobs = make(map[string]*pipeline.JobState, len(rs.Jobs))
	for k, js := range rs.Jobs {
		jsCopy := *js
		out.Jobs[k] = &jsCopy
	}
	return &out
}
