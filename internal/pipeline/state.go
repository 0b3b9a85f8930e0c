package pipeline

import "time"

// JobStatus is a job's position in its attempt lifecycle within a run.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobRetrying  JobStatus = "retrying"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobSkipped   JobStatus = "skipped"
	JobCancelled JobStatus = "cancelled"
)

// SkipReason records why the scheduler skipped a job instead of running it.
type SkipReason string

const (
	SkipNone           SkipReason = ""
	SkipUpstreamFailed SkipReason = "upstream_failed"
	SkipCondition      SkipReason = "condition_false"
	SkipCancelled      SkipReason = "run_cancelled"
)

// JobError is the JSON-serializable projection of an EngineError recorded on
// a JobState. Cause is flattened to its message text since error values
// themselves don't round-trip through JSON.
type JobError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Cause   string    `json:"cause,omitempty"`
}

// NewJobError projects an EngineError onto a JobError for persistence.
func NewJobError(err *EngineError) *JobError {
	if err == nil {
		return nil
	}
	je := &JobError{Kind: err.Kind, Message: err.Message}
	if err.Cause != nil {
		je.Cause = err.Cause.Error()
	}
	return je
}

// JobState is the scheduler's mutable record of one job's progress through a
// run. The scheduler owns all writes to a JobState; readers (CLI, dashboard,
// store) only ever see consistent snapshots taken under the run's lock.
type JobState struct {
	JobID       string     `json:"jobId"`
	Status      JobStatus  `json:"status"`
	Attempts    int        `json:"attempts"`
	Progress    int        `json:"progress"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Output      any        `json:"output,omitempty"`
	Error       *JobError  `json:"error,omitempty"`
	SkipReason  SkipReason `json:"skipReason,omitempty"`
}

// RunStatus is the aggregate status of a pipeline run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// RunState is the full persisted record of one pipeline execution. Jobs is
// keyed by job ID and its key set is fixed at NewRunState time: the
// scheduler never adds or removes entries, only mutates the JobState values.
type RunState struct {
	RunID       string               `json:"runId"`
	Pipeline    string               `json:"pipeline"`
	Status      RunStatus            `json:"status"`
	StartedAt   *time.Time           `json:"startedAt,omitempty"`
	CompletedAt *time.Time           `json:"completedAt,omitempty"`
	UpdatedAt   time.Time            `json:"updatedAt"`
	Context     map[string]any       `json:"context"`
	Jobs        map[string]*JobState `json:"jobs"`
}

// NewRunState builds the initial state for a run of p, with one pending
// JobState per job and context seeded from the pipeline's declared Context.
func NewRunState(runID string, p *Pipeline) *RunState {
	jobs := make(map[string]*JobState, len(p.Jobs))
	for _, j := range p.Jobs {
		jobs[j.ID] = &JobState{JobID: j.ID, Status: JobPending}
	}

	ctx := make(map[string]any, len(p.Context))
	for k, v := range p.Context {
		ctx[k] = v
	}

	return &RunState{
		RunID:    runID,
		Pipeline: p.Name,
		Status:   RunPending,
		Context:  ctx,
		Jobs:     jobs,
	}
}

// Terminal reports whether status will never transition further.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobSkipped, JobCancelled:
		return true
	default:
		return false
	}
}

// Done reports whether every job in the run has reached a terminal status.
func (rs *RunState) Done() bool {
	for _, js := range rs.Jobs {
		if !js.Status.Terminal() {
			return false
		}
	}
	return true
}

// AnyFailed reports whether at least one job in the run failed (after
// exhausting retries) or was cancelled.
func (rs *RunState) AnyFailed() bool {
	for _, js := range rs.Jobs {
		if js.Status == JobFailed || js.Status == JobCancelled {
			return true
		}
	}
	return false
}
