package cli

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forge-run/forge/internal/agent"
	"github.com/forge-run/forge/internal/pipeline"
	"github.com/forge-run/forge/internal/store"
)

func TestCancel_AlreadyTerminalRunIsNoop(t *testing.T) {
	resetRootCmd(t)
	tmpDir := chdirTemp(t)

	runID := seedRun(t, filepath.Join(tmpDir, ".forge", "state"), twoJobPipeline("deploy"), agent.NewMockExecutor())

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"cancel", runID})

	code := Execute()
	assert.Equal(t, 0, code)
	assert.Contains(t, buf.String(), "already succeeded, nothing to cancel")
}

func TestCancel_UnknownRunReturnsError(t *testing.T) {
	resetRootCmd(t)
	chdirTemp(t)

	rootCmd.SetArgs([]string{"cancel", "run-does-not-exist"})

	code := Execute()
	assert.Equal(t, 1, code)
}

// TestCancel_OrphanedRunFallsBackToStore simulates a run persisted by a
// different "forge run" process: the state file exists on disk but no
// in-process Engine owns it, so "forge cancel" must fall back to marking
// it CANCELLED directly in the store rather than reporting it as untouchable.
func TestCancel_OrphanedRunFallsBackToStore(t *testing.T) {
	resetRootCmd(t)
	tmpDir := chdirTemp(t)
	stateDir := filepath.Join(tmpDir, ".forge", "state")

	st, err := store.New(stateDir)
	require.NoError(t, err)

	now := time.Now()
	rs := &pipeline.RunState{
		RunID:     "run-orphaned",
		Pipeline:  "deploy",
		Status:    pipeline.RunRunning,
		StartedAt: &now,
		Context:   map[string]any{},
		Jobs: map[string]*pipeline.JobState{
			"build": {JobID: "build", Status: pipeline.JobRunning},
			"test":  {JobID: "test", Status: pipeline.JobPending},
		},
	}
	require.NoError(t, st.Save(rs))

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"cancel", "run-orphaned"})

	code := Execute()
	assert.Equal(t, 0, code)
	assert.Contains(t, buf.String(), "marked cancelled in persisted state")

	reloaded, err := st.Load("run-orphaned")
	require.NoError(t, err)
	assert.Equal(t, pipeline.RunCancelled, reloaded.Status)
	assert.Equal(t, pipeline.JobCancelled, reloaded.Jobs["build"].Status)
	assert.Equal(t, pipeline.JobCancelled, reloaded.Jobs["test"].Status)
	assert.Equal(t, pipeline.SkipCancelled, reloaded.Jobs["test"].SkipReason)
}

func TestCancel_RequiresExactlyOneArg(t *testing.T) {
	resetRootCmd(t)
	chdirTemp(t)

	rootCmd.SetArgs([]string{"cancel"})

	code := Execute()
	assert.Equal(t, 1, code)
}
