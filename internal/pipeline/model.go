package pipeline

import (
	"encoding/json"
	"time"
)

// BackoffStrategy selects how RetryPolicy.Delay grows between attempts.
type BackoffStrategy string

const (
	BackoffFixed       BackoffStrategy = "fixed"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// RetryPolicy controls how many times a failed job is retried and how long
// the scheduler waits between attempts.
type RetryPolicy struct {
	MaxAttempts int             `json:"maxAttempts"`
	Backoff     BackoffStrategy `json:"backoff,omitempty"`
	DelayMs     int             `json:"delayMs,omitempty"`
}

// defaultRetryDelayMs is the base delay used when a RetryPolicy only sets
// MaxAttempts, per spec.md §3: "Default when only maxAttempts given:
// exponential, base 2000 ms."
const defaultRetryDelayMs = 2000

// normalized returns a RetryPolicy with Backoff/DelayMs defaulted when the
// caller only specified MaxAttempts.
func (r RetryPolicy) normalized() RetryPolicy {
	if r.Backoff == "" {
		r.Backoff = BackoffExponential
	}
	if r.DelayMs == 0 {
		r.DelayMs = defaultRetryDelayMs
	}
	return r
}

// Delay returns the wait duration before the given retry attempt (1-based:
// attempt 1 is the first retry after the initial failed attempt).
func (r RetryPolicy) Delay(attempt int) time.Duration {
	r = r.normalized()
	if attempt < 1 {
		attempt = 1
	}
	var ms int
	switch r.Backoff {
	case BackoffFixed:
		ms = r.DelayMs
	case BackoffLinear:
		ms = attempt * r.DelayMs
	case BackoffExponential:
		ms = r.DelayMs * (1 << uint(attempt-1))
	default:
		ms = r.DelayMs
	}
	return time.Duration(ms) * time.Millisecond
}

// Trigger is a named activation descriptor carried through as Pipeline
// metadata. The engine never interprets a trigger's config; it only stores
// it for external schedulers or the CLI to read.
type Trigger struct {
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	Schedule string         `json:"schedule,omitempty"`
	Event    string         `json:"event,omitempty"`
	Config   map[string]any `json:"config,omitempty"`
}

// DefaultTriggerType is assumed by the CLI's run command when a pipeline
// declares no triggers.
const DefaultTriggerType = "manual"

// Job is a single node in a Pipeline's dependency graph. Agent-specific
// fields beyond the ones named here are preserved opaquely in Extra and
// handed, unparsed, to the Agent Executor.
type Job struct {
	ID        string         `json:"id"`
	Name      string         `json:"name,omitempty"`
	Agent     string         `json:"agent"`
	Task      string         `json:"task,omitempty"`
	Prompt    string         `json:"prompt,omitempty"`
	DependsOn []string       `json:"dependsOn,omitempty"`
	When      string         `json:"when,omitempty"`
	TimeoutMs int            `json:"timeoutMs,omitempty"`
	Retry     *RetryPolicy   `json:"retry,omitempty"`
	Stage     string         `json:"stage,omitempty"`
	Extra     map[string]any `json:"-"`
}

// jobAlias mirrors Job's named fields so UnmarshalJSON can decode into it
// without recursing into Job.UnmarshalJSON.
type jobAlias struct {
	ID        string       `json:"id"`
	Name      string       `json:"name,omitempty"`
	Agent     string       `json:"agent"`
	Task      string       `json:"task,omitempty"`
	Prompt    string       `json:"prompt,omitempty"`
	DependsOn dependsOn    `json:"dependsOn,omitempty"`
	When      string       `json:"when,omitempty"`
	TimeoutMs int          `json:"timeoutMs,omitempty"`
	Retry     *RetryPolicy `json:"retry,omitempty"`
	Stage     string       `json:"stage,omitempty"`
}

// dependsOn decodes a job's dependsOn field, which per spec.md §3 is either
// a single job ID or a JSON array of job IDs.
type dependsOn []string

func (d *dependsOn) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*d = dependsOn{single}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*d = list
	return nil
}

var jobKnownFields = map[string]bool{
	"id": true, "name": true, "agent": true, "task": true, "prompt": true,
	"dependsOn": true, "when": true, "timeoutMs": true, "retry": true, "stage": true,
}

// UnmarshalJSON decodes the named fields normally and stashes any remaining
// top-level keys in Extra so the Agent Executor can pass them through to the
// worker opaquely, per spec.md §3's "arbitrary agent-specific fields passed
// through opaque."
func (j *Job) UnmarshalJSON(data []byte) error {
	var alias jobAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	extra := make(map[string]any)
	for k, v := range raw {
		if jobKnownFields[k] {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return err
		}
		extra[k] = val
	}

	j.ID = alias.ID
	j.Name = alias.Name
	j.Agent = alias.Agent
	j.Task = alias.Task
	j.Prompt = alias.Prompt
	j.DependsOn = []string(alias.DependsOn)
	j.When = alias.When
	j.TimeoutMs = alias.TimeoutMs
	j.Retry = alias.Retry
	j.Stage = alias.Stage
	if len(extra) > 0 {
		j.Extra = extra
	}
	return nil
}

// MarshalJSON re-merges Extra's keys alongside the named fields.
func (j Job) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(j.Extra)+10)
	for k, v := range j.Extra {
		out[k] = v
	}
	out["id"] = j.ID
	if j.Name != "" {
		out["name"] = j.Name
	}
	out["agent"] = j.Agent
	if j.Task != "" {
		out["task"] = j.Task
	}
	if j.Prompt != "" {
		out["prompt"] = j.Prompt
	}
	if len(j.DependsOn) > 0 {
		out["dependsOn"] = j.DependsOn
	}
	if j.When != "" {
		out["when"] = j.When
	}
	if j.TimeoutMs != 0 {
		out["timeoutMs"] = j.TimeoutMs
	}
	if j.Retry != nil {
		out["retry"] = j.Retry
	}
	if j.Stage != "" {
		out["stage"] = j.Stage
	}
	return json.Marshal(out)
}

// Pipeline is a validated, immutable-after-validation DAG document.
type Pipeline struct {
	Name     string         `json:"name"`
	Version  string         `json:"version,omitempty"`
	Triggers []Trigger      `json:"triggers,omitempty"`
	Env      map[string]string `json:"env,omitempty"`
	Context  map[string]any `json:"context,omitempty"`
	Jobs     []Job          `json:"jobs"`
}

// JobByID returns the job with the given ID and true, or a zero Job and
// false if no job in the pipeline has that ID.
func (p *Pipeline) JobByID(id string) (Job, bool) {
	for _, j := range p.Jobs {
		if j.ID == id {
			return j, true
		}
	}
	return Job{}, false
}
