package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunState_SeedsOneJobStatePerJob(t *testing.T) {
	p := &Pipeline{
		Name: "ci",
		Jobs: []Job{{ID: "lint"}, {ID: "build"}, {ID: "test"}},
	}
	rs := NewRunState("run-1", p)

	assert.Equal(t, "run-1", rs.RunID)
	assert.Equal(t, "ci", rs.Pipeline)
	assert.Equal(t, RunPending, rs.Status)
	require.Len(t, rs.Jobs, 3)
	for _, id := range []string{"lint", "build", "test"} {
		js, ok := rs.Jobs[id]
		require.True(t, ok)
		assert.Equal(t, JobPending, js.Status)
		assert.Equal(t, 0, js.Attempts)
	}
}

func TestNewRunState_CopiesContextNotReference(t *testing.T) {
	p := &Pipeline{Name: "ci", Jobs: []Job{{ID: "a"}}, Context: map[string]any{"env": "staging"}}
	rs := NewRunState("run-1", p)
	rs.Context["env"] = "prod"
	assert.Equal(t, "staging", p.Context["env"])
}

func TestRunState_Done_FalseUntilAllTerminal(t *testing.T) {
	p := &Pipeline{Name: "ci", Jobs: []Job{{ID: "a"}, {ID: "b"}}}
	rs := NewRunState("run-1", p)
	assert.False(t, rs.Done())

	rs.Jobs["a"].Status = JobCompleted
	assert.False(t, rs.Done())

	rs.Jobs["b"].Status = JobFailed
	assert.True(t, rs.Done())
}

func TestRunState_AnyFailed(t *testing.T) {
	p := &Pipeline{Name: "ci", Jobs: []Job{{ID: "a"}, {ID: "b"}}}
	rs := NewRunState("run-1", p)
	assert.False(t, rs.AnyFailed())

	rs.Jobs["a"].Status = JobCompleted
	assert.False(t, rs.AnyFailed())

	rs.Jobs["b"].Status = JobCancelled
	assert.True(t, rs.AnyFailed())
}

func TestJobStatus_Terminal(t *testing.T) {
	terminal := []JobStatus{JobCompleted, JobFailed, JobSkipped, JobCancelled}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "expected %s to be terminal", s)
	}
	nonTerminal := []JobStatus{JobPending, JobQueued, JobRunning, JobRetrying}
	for _, s := range nonTerminal {
		assert.False(t, s.Terminal(), "expected %s to not be terminal", s)
	}
}

func TestRunState_JSONMarshalsEmptyMapsNotNull(t *testing.T) {
	p := &Pipeline{Name: "ci", Jobs: []Job{{ID: "a"}}}
	rs := NewRunState("run-1", p)
	rs.Context = map[string]any{}

	data, err := json.Marshal(rs)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"context":{}`)
	assert.NotContains(t, string(data), `"jobs":null`)
}
