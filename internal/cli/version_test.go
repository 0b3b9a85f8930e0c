package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forge-run/forge/internal/buildinfo"
)

// resetVersionFlags resets the version command's local flag state so tests
// do not leak state between runs.
func resetVersionFlags(t *testing.T) {
	t.Helper()
	resetRootCmd(t)
	versionJSON = false
	versionCmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
	})
}

func TestVersionCmd_HumanReadable(t *testing.T) {
	resetVersionFlags(t)

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	t.Cleanup(func() {
		os.Stdout = oldStdout
	})

	rootCmd.SetArgs([]string{"version"})

	code := Execute()

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	assert.Equal(t, 0, code)

	output := buf.String()
	assert.Contains(t, output, "forge v")
	assert.Contains(t, output, buildinfo.Version)
	assert.Contains(t, output, buildinfo.Commit)
	assert.Contains(t, output, buildinfo.Date)
}

func TestVersionCmd_JSONOutput(t *testing.T) {
	resetVersionFlags(t)

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	t.Cleanup(func() {
		os.Stdout = oldStdout
	})

	rootCmd.SetArgs([]string{"version", "--json"})

	code := Execute()

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	assert.Equal(t, 0, code)

	var parsed map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))

	assert.Contains(t, parsed, "version")
	assert.Contains(t, parsed, "commit")
	assert.Contains(t, parsed, "date")
	assert.Len(t, parsed, 3)
	assert.Equal(t, buildinfo.Version, parsed["version"])
}

func TestVersionCmd_RejectsExtraArgs(t *testing.T) {
	resetVersionFlags(t)

	oldStderr := os.Stderr
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stderr = w
	t.Cleanup(func() {
		os.Stderr = oldStderr
	})

	rootCmd.SetArgs([]string{"version", "unexpected-arg"})

	code := Execute()

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stderr = oldStderr

	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "unknown command")
}

func TestVersionCmd_RegisteredInRoot(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Use == "version" {
			found = true
			break
		}
	}
	assert.True(t, found, "version command must be registered in rootCmd")
}

func TestVersionCmd_Metadata(t *testing.T) {
	assert.Equal(t, "version", versionCmd.Use)
	assert.Equal(t, "Show forge version and build information", versionCmd.Short)
}

func TestVersionCmd_JSONFlag_Registered(t *testing.T) {
	flag := versionCmd.Flags().Lookup("json")
	require.NotNil(t, flag, "--json flag must be registered")
	assert.Equal(t, "false", flag.DefValue)
}

func TestVersionCmd_OutputToStdout_NotStderr(t *testing.T) {
	resetVersionFlags(t)

	oldStdout := os.Stdout
	rOut, wOut, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = wOut

	oldStderr := os.Stderr
	rErr, wErr, err := os.Pipe()
	require.NoError(t, err)
	os.Stderr = wErr

	t.Cleanup(func() {
		os.Stdout = oldStdout
		os.Stderr = oldStderr
	})

	rootCmd.SetArgs([]string{"version"})

	code := Execute()

	wOut.Close()
	wErr.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	_, _ = stdoutBuf.ReadFrom(rOut)
	_, _ = stderrBuf.ReadFrom(rErr)

	os.Stdout = oldStdout
	os.Stderr = oldStderr

	assert.Equal(t, 0, code)
	assert.Contains(t, stdoutBuf.String(), "forge v")
	assert.NotContains(t, stderrBuf.String(), "forge v")
}

func TestVersionCmd_JSONRoundTrip(t *testing.T) {
	resetVersionFlags(t)

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	t.Cleanup(func() {
		os.Stdout = oldStdout
	})

	rootCmd.SetArgs([]string{"version", "--json"})

	code := Execute()

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	assert.Equal(t, 0, code)

	var info buildinfo.Info
	require.NoError(t, json.Unmarshal(buf.Bytes(), &info))
	assert.Equal(t, buildinfo.GetInfo(), info)
}
