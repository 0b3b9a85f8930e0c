package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forge-run/forge/internal/agent"
	"github.com/forge-run/forge/internal/pipeline"
	"github.com/forge-run/forge/internal/scheduler"
	"github.com/forge-run/forge/internal/store"
)

// writeScriptAgent drops an AgentDefinition into agentsDir pointing at a
// shell script containing body, so a pipeline job can be executed against a
// real subprocess without a real AI CLI installed.
func writeScriptAgent(t *testing.T, agentsDir, name, body string) {
	t.Helper()
	scriptPath := filepath.Join(agentsDir, name+".sh")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/bin/sh\n"+body), 0o755))
	def := "command = \"" + scriptPath + "\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(agentsDir, name), []byte(def), 0o644))
}

// writePipelineFile marshals p as JSON into dir/name and returns its path.
func writePipelineFile(t *testing.T, dir, name string, p pipeline.Pipeline) string {
	t.Helper()
	data, err := json.MarshalIndent(p, "", "  ")
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// seedRun drives p to completion through a throwaway scheduler.Engine backed
// by a MockExecutor and a StateStore rooted at stateDir, then returns the
// persisted run ID. Tests use it to populate a state directory that a
// command under test (status/list/progress/cancel/resume) then reads back
// through its own, separately-constructed Engine, exactly as a second
// "forge status" invocation would see runs a prior "forge run" left behind.
func seedRun(t *testing.T, stateDir string, p *pipeline.Pipeline, ex *agent.MockExecutor) string {
	t.Helper()
	st, err := store.New(stateDir)
	require.NoError(t, err)

	e := scheduler.New(st, ex, scheduler.WithConcurrency(2))
	runID, rerr := e.StartRun(context.Background(), p, nil)
	require.Nil(t, rerr)
	e.Wait(runID)
	return runID
}
