package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTOML writes the given TOML content to a temp file and returns its path.
func writeTOML(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// --- LoadFromFile tests ---

func TestLoadFromFile_ValidFull(t *testing.T) {
	t.Parallel()

	path := writeTOML(t, `
agents_dir = "my-agents"

[engine]
max_concurrent_jobs = 5
default_timeout_ms = 120000
scratch_root = ".forge/scratch"
state_dir = ".forge/state"
worker_grace_period_ms = 5000

[agents.claude]
command = "claude"
model = "claude-opus-4-6"
effort = "high"
allowed_tools = "Edit,Write,Read,Glob,Grep,Bash(go*)"

[agents.codex]
command = "codex"
model = "gpt-5.3-codex"
effort = "medium"
`)

	cfg, md, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "my-agents", cfg.AgentsDir)
	assert.Equal(t, 5, cfg.Engine.MaxConcurrentJobs)
	assert.Equal(t, 120000, cfg.Engine.DefaultTimeoutMs)
	assert.Equal(t, ".forge/scratch", cfg.Engine.ScratchRoot)
	assert.Equal(t, ".forge/state", cfg.Engine.StateDir)
	assert.Equal(t, 5000, cfg.Engine.WorkerGracePeriodMs)

	require.Len(t, cfg.Agents, 2)
	claude, ok := cfg.Agents["claude"]
	require.True(t, ok, "expected agents.claude to exist")
	assert.Equal(t, "claude", claude.Command)
	assert.Equal(t, "claude-opus-4-6", claude.Model)
	assert.Equal(t, "high", claude.Effort)
	assert.Equal(t, "Edit,Write,Read,Glob,Grep,Bash(go*)", claude.AllowedTools)

	codex, ok := cfg.Agents["codex"]
	require.True(t, ok, "expected agents.codex to exist")
	assert.Equal(t, "codex", codex.Command)
	assert.Equal(t, "gpt-5.3-codex", codex.Model)

	assert.Empty(t, md.Undecoded(), "expected no undecoded keys for a fully valid document")
}

func TestLoadFromFile_PartialConfig(t *testing.T) {
	t.Parallel()

	path := writeTOML(t, `
[engine]
max_concurrent_jobs = 2
`)

	cfg, _, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Engine.MaxConcurrentJobs)

	// Fields not in file should be zero-valued.
	assert.Empty(t, cfg.Engine.ScratchRoot)
	assert.Empty(t, cfg.Engine.StateDir)
	assert.Nil(t, cfg.Agents)
	assert.Empty(t, cfg.AgentsDir)
}

func TestLoadFromFile_MalformedTOML(t *testing.T) {
	t.Parallel()

	path := writeTOML(t, `this is not [ valid toml`)

	_, _, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}

func TestLoadFromFile_NonExistentFile(t *testing.T) {
	t.Parallel()
	_, _, err := LoadFromFile("/nonexistent/path/forge.toml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}

func TestLoadFromFile_ReturnsUnknownKeyMetadata(t *testing.T) {
	t.Parallel()

	path := writeTOML(t, `
[engine]
max_concurrent_jobs = 1
typo_field = "oops"

[unknown_section]
foo = "bar"
`)

	_, md, err := LoadFromFile(path)
	require.NoError(t, err)

	undecoded := md.Undecoded()
	require.NotEmpty(t, undecoded, "expected undecoded keys for config with unknown keys")

	keys := make([]string, 0, len(undecoded))
	for _, k := range undecoded {
		keys = append(keys, k.String())
	}
	assert.Contains(t, keys, "engine.typo_field")
	assert.Contains(t, keys, "unknown_section.foo")
}

func TestLoadFromFile_EmptyFile(t *testing.T) {
	t.Parallel()

	path := writeTOML(t, ``)
	cfg, _, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Empty(t, cfg.AgentsDir)
	assert.Nil(t, cfg.Agents)
	assert.Equal(t, 0, cfg.Engine.MaxConcurrentJobs)
}

func TestLoadFromFile_CommentsOnly(t *testing.T) {
	t.Parallel()

	path := writeTOML(t, "# nothing but comments\n# another comment\n")
	cfg, _, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Empty(t, cfg.AgentsDir)
	assert.Nil(t, cfg.Agents)
}

func TestLoadFromFile_SpecialAgentNames(t *testing.T) {
	t.Parallel()

	path := writeTOML(t, `
[agents."claude-3"]
command = "claude"
model = "claude-3-opus"

[agents."gpt.4"]
command = "gpt"
model = "gpt-4"
`)

	cfg, _, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Len(t, cfg.Agents, 2)

	claude3, ok := cfg.Agents["claude-3"]
	require.True(t, ok, "expected agents with hyphen in name")
	assert.Equal(t, "claude", claude3.Command)
	assert.Equal(t, "claude-3-opus", claude3.Model)

	gpt4, ok := cfg.Agents["gpt.4"]
	require.True(t, ok, "expected agents with dot in name")
	assert.Equal(t, "gpt", gpt4.Command)
	assert.Equal(t, "gpt-4", gpt4.Model)
}

// --- FindConfigFile tests ---

func TestFindConfigFile_InCurrentDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	configPath := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(configPath, []byte("# test\n"), 0o644))

	found, err := FindConfigFile(dir)
	require.NoError(t, err)
	assert.Equal(t, configPath, found)
}

func TestFindConfigFile_InParentDir(t *testing.T) {
	t.Parallel()
	parent := t.TempDir()
	child := filepath.Join(parent, "sub", "deep")
	require.NoError(t, os.MkdirAll(child, 0o755))

	configPath := filepath.Join(parent, ConfigFileName)
	require.NoError(t, os.WriteFile(configPath, []byte("# test\n"), 0o644))

	found, err := FindConfigFile(child)
	require.NoError(t, err)
	assert.Equal(t, configPath, found)
}

func TestFindConfigFile_NotFound(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	found, err := FindConfigFile(dir)
	require.NoError(t, err)
	assert.Empty(t, found, "expected empty string when config not found")
}

func TestFindConfigFile_DeeplyNested(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	// Create a 25-level deep directory tree.
	deepPath := root
	for i := 0; i < 25; i++ {
		deepPath = filepath.Join(deepPath, "level")
	}
	require.NoError(t, os.MkdirAll(deepPath, 0o755))

	// Place config at root.
	configPath := filepath.Join(root, ConfigFileName)
	require.NoError(t, os.WriteFile(configPath, []byte("# deep test\n"), 0o644))

	found, err := FindConfigFile(deepPath)
	require.NoError(t, err)
	assert.Equal(t, configPath, found)
}

func TestFindConfigFile_ReturnsAbsolutePath(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	configPath := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(configPath, []byte("# test\n"), 0o644))

	found, err := FindConfigFile(dir)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(found), "expected absolute path, got %s", found)
}
