package agent

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forge-run/forge/internal/pipeline"
)

// writeScriptAgent drops an AgentDefinition into dir pointing at a shell
// script that "body" is written into, so Execute can be exercised against a
// real subprocess without a real AI CLI installed.
func writeScriptAgent(t *testing.T, agentsDir, name, body string) {
	t.Helper()
	scriptPath := filepath.Join(agentsDir, name+".sh")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/bin/sh\n"+body), 0o755))
	def := `command = "` + scriptPath + `"`
	require.NoError(t, os.WriteFile(filepath.Join(agentsDir, name), []byte(def), 0o644))
}

func TestExecute_SuccessWritesOutputFile(t *testing.T) {
	agentsDir := t.TempDir()
	writeScriptAgent(t, agentsDir, "ok", `echo "{\"status\":\"done\"}" > "$FORGE_OUTPUT_FILE"`)

	opts := ExecuteOptions{
		AgentsDir:   agentsDir,
		ScratchRoot: t.TempDir(),
		RunID:       "run-1",
		JobID:       "build",
		Attempt:     1,
	}
	job := pipeline.Job{ID: "build", Agent: "ok", Prompt: "build it"}

	result, engErr := Execute(context.Background(), job, map[string]any{}, opts)
	require.Nil(t, engErr)
	assert.Equal(t, 0, result.ExitCode)
	assert.JSONEq(t, `{"status":"done"}`, result.Output)
	assert.NotEmpty(t, result.PromptHash)

	_, statErr := os.Stat(result.ScratchDir)
	assert.True(t, os.IsNotExist(statErr), "scratch directory should be cleaned up after execution")
}

func TestExecute_MissingOutputFileIsWorkerOutputInvalid(t *testing.T) {
	agentsDir := t.TempDir()
	writeScriptAgent(t, agentsDir, "echoer", `echo "no output file here" 1>&2`)

	opts := ExecuteOptions{
		AgentsDir:   agentsDir,
		ScratchRoot: t.TempDir(),
		RunID:       "run-1",
		JobID:       "lint",
		Attempt:     1,
	}
	job := pipeline.Job{ID: "lint", Agent: "echoer", Prompt: "lint it"}

	_, engErr := Execute(context.Background(), job, map[string]any{}, opts)
	require.NotNil(t, engErr)
	assert.Equal(t, pipeline.WorkerOutputInvalid, engErr.Kind)
	assert.Contains(t, engErr.Cause.Error(), "no output file here")
}

func TestExecute_NonZeroExitIsWorkerFailed(t *testing.T) {
	agentsDir := t.TempDir()
	writeScriptAgent(t, agentsDir, "broken", `echo "boom" 1>&2
exit 3`)

	opts := ExecuteOptions{
		AgentsDir:   agentsDir,
		ScratchRoot: t.TempDir(),
		RunID:       "run-1",
		JobID:       "test",
		Attempt:     1,
	}
	job := pipeline.Job{ID: "test", Agent: "broken", Prompt: "run tests"}

	_, engErr := Execute(context.Background(), job, map[string]any{}, opts)
	require.NotNil(t, engErr)
	assert.Equal(t, pipeline.WorkerFailed, engErr.Kind)
}

func TestExecute_UnknownAgentIsAgentNotFound(t *testing.T) {
	opts := ExecuteOptions{AgentsDir: t.TempDir(), ScratchRoot: t.TempDir(), RunID: "run-1", JobID: "a", Attempt: 1}
	job := pipeline.Job{ID: "a", Agent: "ghost"}

	_, engErr := Execute(context.Background(), job, map[string]any{}, opts)
	require.NotNil(t, engErr)
	assert.Equal(t, pipeline.AgentNotFound, engErr.Kind)
}

func TestExecute_TimeoutExceeded(t *testing.T) {
	agentsDir := t.TempDir()
	writeScriptAgent(t, agentsDir, "slow", `sleep 5`)

	opts := ExecuteOptions{
		AgentsDir:   agentsDir,
		ScratchRoot: t.TempDir(),
		RunID:       "run-1",
		JobID:       "slow",
		Attempt:     1,
		Timeout:     50 * time.Millisecond,
		GracePeriod: 50 * time.Millisecond,
	}
	job := pipeline.Job{ID: "slow", Agent: "slow", Prompt: "take forever"}

	_, engErr := Execute(context.Background(), job, map[string]any{}, opts)
	require.NotNil(t, engErr)
	assert.Equal(t, pipeline.Timeout, engErr.Kind)
}

func TestExecute_ProgressMarkerForwarded(t *testing.T) {
	agentsDir := t.TempDir()
	writeScriptAgent(t, agentsDir, "progressive", `echo "FORGE_PROGRESS 50"
echo "{}" > "$FORGE_OUTPUT_FILE"`)

	sink := make(chan int, 4)
	opts := ExecuteOptions{
		AgentsDir:   agentsDir,
		ScratchRoot: t.TempDir(),
		RunID:       "run-1",
		JobID:       "build",
		Attempt:     1,
		Progress:    sink,
	}
	job := pipeline.Job{ID: "build", Agent: "progressive"}

	_, engErr := Execute(context.Background(), job, map[string]any{}, opts)
	require.Nil(t, engErr)
	close(sink)
	var got []int
	for pct := range sink {
		got = append(got, pct)
	}
	assert.Contains(t, got, 50)
}

func TestExecute_PromptTemplateInterpolated(t *testing.T) {
	agentsDir := t.TempDir()
	writeScriptAgent(t, agentsDir, "catter", `grep -q "hello forge" prompt.md && echo "{}" > "$FORGE_OUTPUT_FILE"`)

	opts := ExecuteOptions{
		AgentsDir:   agentsDir,
		ScratchRoot: t.TempDir(),
		RunID:       "run-1",
		JobID:       "build",
		Attempt:     1,
	}
	job := pipeline.Job{ID: "build", Agent: "catter", Prompt: "hello {{name}}"}

	_, engErr := Execute(context.Background(), job, map[string]any{"name": "forge"}, opts)
	require.Nil(t, engErr)
}
