package scheduler

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/forge-run/forge/internal/agent"
	"github.com/forge-run/forge/internal/events"
	"github.com/forge-run/forge/internal/graph"
	"github.com/forge-run/forge/internal/pipeline"
)

// run drives h's RunState from RUNNING to a terminal status: the
// ready->admit->run->await->repeat scheduling loop from spec.md §4.4,
// grounded in review.ReviewOrchestrator.Run's errgroup.WithContext +
// SetLimit worker pool but generalized from a one-shot static fan-out to
// jobs admitted dynamically as their dependencies resolve.
func (e *Engine) run(ctx context.Context, h *runHandle, p *pipeline.Pipeline) {
	order := make([]string, len(p.Jobs))
	dependsOn := make(map[string][]string, len(p.Jobs))
	jobByID := make(map[string]pipeline.Job, len(p.Jobs))
	for i, j := range p.Jobs {
		order[i] = j.ID
		dependsOn[j.ID] = j.DependsOn
		jobByID[j.ID] = j
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	wake := make(chan struct{}, 1)
	notify := func() {
		select {
		case wake <- struct{}{}:
		default:
		}
	}

	for {
		h.mu.Lock()
		done := h.state.Done()
		h.mu.Unlock()
		if done {
			break
		}

		progressed := e.tick(gctx, h, jobByID, order, dependsOn, g, notify)
		if progressed {
			continue
		}

		select {
		case <-wake:
		case <-ctx.Done():
			// Cancel() already transitioned non-running jobs to CANCELLED;
			// just wait here for in-flight workers to unwind.
		}
	}

	_ = g.Wait()
	e.terminate(h)
}

// tick runs one pass of the scheduling loop: it first propagates
// upstream-failure skips to jobs whose dependencies are all terminal but
// not all satisfied, then asks the graph for ready jobs, skipping those
// whose "when" is false and admitting the rest into the worker pool. It
// returns true if it changed any job's status, so the caller can avoid an
// unnecessary wait on wake.
func (e *Engine) tick(
	ctx context.Context,
	h *runHandle,
	jobByID map[string]pipeline.Job,
	order []string,
	dependsOn map[string][]string,
	g *errgroup.Group,
	notify func(),
) bool {
	progressed := false

	h.mu.Lock()
	if h.cancelled {
		h.mu.Unlock()
		return false
	}
	status := make(map[string]graph.NodeStatus, len(order))
	for _, id := range order {
		status[id] = translateStatus(h.state.Jobs[id].Status)
	}
	rsSnapshot := cloneRunState(h.state)
	h.mu.Unlock()

	// Dependency-failure propagation: a job whose dependencies are all
	// terminal but at least one did not succeed/get skipped can never
	// become ready; skip it with reason upstream_failed so the run still
	// terminates (spec.md §4.4 "Dependency failure propagation").
	for _, id := range order {
		if status[id] != graph.StatusPending {
			continue
		}
		deps := dependsOn[id]
		if allTerminal(deps, rsSnapshot) && !allSatisfied(deps, rsSnapshot) {
			e.transitionSkipped(h, id, pipeline.SkipUpstreamFailed)
			status[id] = graph.StatusSkipped
			progressed = true
		}
	}

	ready := graph.ReadyJobs(order, dependsOn, status)
	for _, id := range ready {
		job := jobByID[id]

		ok, diagnostic := evaluateWhen(job.When, rsSnapshot)
		if !ok {
			if diagnostic != "" && e.logger != nil {
				e.logger.Warn("when predicate not satisfied", "job", id, "reason", diagnostic)
			}
			e.transitionSkipped(h, id, pipeline.SkipCondition)
			progressed = true
			continue
		}

		progressed = true
		e.admit(ctx, h, job, snapshotContext(rsSnapshot), g, notify)
	}

	return progressed
}

// admit transitions job to QUEUED, persists, then launches it in the
// worker pool. The errgroup.Go call blocks until a slot is available,
// which is exactly the "admit until the pool is full" rule: admission
// proceeds in ready-job declaration order, one blocking call at a time.
func (e *Engine) admit(ctx context.Context, h *runHandle, job pipeline.Job, ctxSnapshot map[string]any, g *errgroup.Group, notify func()) {
	h.mu.Lock()
	h.state.Jobs[job.ID].Status = pipeline.JobQueued
	rsCopy := cloneRunState(h.state)
	h.mu.Unlock()
	_ = e.save(rsCopy)

	g.Go(func() error {
		e.runAttempt(ctx, h, job, ctxSnapshot, g, notify)
		return nil
	})
}

// runAttempt runs exactly one attempt of job and, on a retryable failure,
// marks it RETRYING and returns — releasing this goroutine's errgroup
// slot — instead of sleeping in place. A plain (non-errgroup) goroutine
// waits out the backoff and re-admits the job with a fresh g.Go call once
// it elapses, so a retrying job never occupies a worker-pool slot during
// its backoff window (spec.md §4.4, SPEC_FULL §4.4.1). notify wakes the
// scheduling loop whenever this job reaches a state that might have
// changed what's ready.
func (e *Engine) runAttempt(ctx context.Context, h *runHandle, job pipeline.Job, ctxSnapshot map[string]any, g *errgroup.Group, notify func()) {
	h.mu.Lock()
	js := h.state.Jobs[job.ID]
	js.Attempts++
	attempt := js.Attempts
	js.Status = pipeline.JobRunning
	now := time.Now()
	js.StartedAt = &now
	rsCopy := cloneRunState(h.state)
	h.mu.Unlock()
	_ = e.save(rsCopy)
	e.publish(events.Event{Type: events.JobStarted, RunID: h.state.RunID, JobID: job.ID})

	timeout := e.defaultTimeout
	if job.TimeoutMs > 0 {
		timeout = time.Duration(job.TimeoutMs) * time.Millisecond
	}

	progressCh := make(chan int, 8)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for pct := range progressCh {
			h.mu.Lock()
			if js2, ok := h.state.Jobs[job.ID]; ok {
				js2.Progress = pct
			}
			h.mu.Unlock()
		}
	}()

	result, execErr := e.executor.Execute(ctx, job, ctxSnapshot, agent.ExecuteOptions{
		AgentsDir:   e.agentsDir,
		ScratchRoot: e.scratchRoot,
		RunID:       h.state.RunID,
		JobID:       job.ID,
		Attempt:     attempt,
		Timeout:     timeout,
		GracePeriod: e.gracePeriod,
		Progress:    progressCh,
	})
	close(progressCh)
	<-drained

	if execErr == nil {
		e.completeSuccess(h, job.ID, result)
		notify()
		return
	}

	if execErr.Kind == pipeline.Cancelled {
		e.transitionCancelled(h, job.ID)
		notify()
		return
	}

	maxAttempts := 1
	if job.Retry != nil {
		maxAttempts = job.Retry.MaxAttempts
	}
	if attempt >= maxAttempts {
		e.completeFailure(h, job.ID, execErr)
		notify()
		return
	}

	h.mu.Lock()
	js.Status = pipeline.JobRetrying
	rsCopy = cloneRunState(h.state)
	h.mu.Unlock()
	_ = e.save(rsCopy)
	e.publish(events.Event{Type: events.JobRetrying, RunID: h.state.RunID, JobID: job.ID})

	delay := job.Retry.Delay(attempt)
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			e.transitionCancelled(h, job.ID)
			notify()
			return
		}

		h.mu.Lock()
		h.state.Jobs[job.ID].Status = pipeline.JobQueued
		rsCopy := cloneRunState(h.state)
		h.mu.Unlock()
		_ = e.save(rsCopy)
		notify()

		g.Go(func() error {
			e.runAttempt(ctx, h, job, ctxSnapshot, g, notify)
			return nil
		})
	}()
}

func (e *Engine) completeSuccess(h *runHandle, jobID string, result *agent.JobResult) {
	h.mu.Lock()
	js := h.state.Jobs[jobID]
	js.Status = pipeline.JobCompleted
	js.Progress = 100
	now := time.Now()
	js.CompletedAt = &now

	var output any = result.Output
	if result.Output != "" {
		var decoded any
		if json.Unmarshal([]byte(result.Output), &decoded) == nil {
			output = decoded
		}
	}
	js.Output = output
	h.state.Context["jobs"] = mergeJobOutput(h.state.Context["jobs"], jobID, output)
	rsCopy := cloneRunState(h.state)
	h.mu.Unlock()

	_ = e.save(rsCopy)
	e.publish(events.Event{Type: events.JobCompleted, RunID: h.state.RunID, JobID: jobID})
}

func (e *Engine) completeFailure(h *runHandle, jobID string, execErr *pipeline.EngineError) {
	h.mu.Lock()
	js := h.state.Jobs[jobID]
	js.Status = pipeline.JobFailed
	js.Error = pipeline.NewJobError(execErr)
	now := time.Now()
	js.CompletedAt = &now
	rsCopy := cloneRunState(h.state)
	h.mu.Unlock()

	_ = e.save(rsCopy)
	e.publish(events.Event{Type: events.JobFailed, RunID: h.state.RunID, JobID: jobID})
}

func (e *Engine) transitionCancelled(h *runHandle, jobID string) {
	h.mu.Lock()
	js := h.state.Jobs[jobID]
	js.Status = pipeline.JobCancelled
	js.SkipReason = pipeline.SkipCancelled
	now := time.Now()
	js.CompletedAt = &now
	rsCopy := cloneRunState(h.state)
	h.mu.Unlock()

	_ = e.save(rsCopy)
}

func (e *Engine) transitionSkipped(h *runHandle, jobID string, reason pipeline.SkipReason) {
	h.mu.Lock()
	js := h.state.Jobs[jobID]
	js.Status = pipeline.JobSkipped
	js.SkipReason = reason
	now := time.Now()
	js.StartedAt = &now
	js.CompletedAt = &now
	rsCopy := cloneRunState(h.state)
	h.mu.Unlock()

	_ = e.save(rsCopy)
	e.publish(events.Event{Type: events.JobSkipped, RunID: h.state.RunID, JobID: jobID})
}

// terminate computes the final run status once every job has reached a
// terminal state, persists it, and emits the matching run.* event.
func (e *Engine) terminate(h *runHandle) {
	h.mu.Lock()
	status := pipeline.RunSucceeded
	switch {
	case h.cancelled:
		status = pipeline.RunCancelled
	case h.state.AnyFailed():
		status = pipeline.RunFailed
	}
	h.state.Status = status
	now := time.Now()
	h.state.CompletedAt = &now
	rsCopy := cloneRunState(h.state)
	h.mu.Unlock()

	_ = e.save(rsCopy)

	evType := events.RunCompleted
	switch status {
	case pipeline.RunFailed:
		evType = events.RunFailed
	case pipeline.RunCancelled:
		evType = events.RunCancelled
	}
	e.publish(events.Event{Type: evType, RunID: h.state.RunID})
}

// translateStatus maps a JobStatus onto the minimal graph.NodeStatus set
// ReadyJobs needs: StatusSucceeded and StatusSkipped both satisfy a
// dependent's edge (spec.md §4.2); every other status does not.
func translateStatus(s pipeline.JobStatus) graph.NodeStatus {
	switch s {
	case pipeline.JobPending:
		return graph.StatusPending
	case pipeline.JobCompleted:
		return graph.StatusSucceeded
	case pipeline.JobSkipped:
		return graph.StatusSkipped
	default:
		return graph.StatusOther
	}
}

func allTerminal(deps []string, rs *pipeline.RunState) bool {
	if len(deps) == 0 {
		return false
	}
	for _, dep := range deps {
		js, ok := rs.Jobs[dep]
		if !ok || !js.Status.Terminal() {
			return false
		}
	}
	return true
}

func allSatisfied(deps []string, rs *pipeline.RunState) bool {
	for _, dep := range deps {
		js, ok := rs.Jobs[dep]
		if !ok {
			return false
		}
		if js.Status != pipeline.JobCompleted && js.Status != pipeline.JobSkipped {
			return false
		}
	}
	return true
}

// snapshotContext returns a shallow copy of rs.Context suitable for handing
// to one executor invocation: the executor only ever reads it.
func snapshotContext(rs *pipeline.RunState) map[string]any {
	out := make(map[string]any, len(rs.Context))
	for k, v := range rs.Context {
		out[k] = v
	}
	return out
}

// mergeJobOutput returns jobsField (the context's "jobs" entry) with
// jobID's output set, building the nested map fresh if it doesn't exist yet
// so downstream templates can address jobs.<id>.output. Only the output is
// written: a job's status is not recorded in the context (when predicates
// read it from the run's job states instead).
func mergeJobOutput(jobsField any, jobID string, output any) map[string]any {
	jobs, ok := jobsField.(map[string]any)
	if !ok {
		jobs = make(map[string]any)
	}
	entry, ok := jobs[jobID].(map[string]any)
	if !ok {
		entry = make(map[string]any)
	}
	entry["output"] = output
	jobs[jobID] = entry
	return jobs
}
