package agent

import "time"

// maxInlinePromptBytes is the threshold above which a rendered prompt is
// always written to the scratch prompt file rather than passed as a CLI
// argument.
const maxInlinePromptBytes = 100 * 1024 // 100 KiB

// defaultGracePeriod is used when ExecuteOptions.GracePeriod is zero.
const defaultGracePeriod = 3 * time.Second

// AgentDefinition is the resolved on-disk descriptor for a Job's Agent
// string: the worker command to run, its default model/effort knobs, and an
// optional glob-based set of extra resources to materialize alongside the
// execution's scratch directory.
type AgentDefinition struct {
	Name         string   `toml:"-"`
	Command      string   `toml:"command"`
	Model        string   `toml:"model"`
	Effort       string   `toml:"effort"`
	AllowedTools string   `toml:"allowed_tools"`
	Resources    []string `toml:"resources"`
}

// ExecuteOptions parameterizes one Execute call.
type ExecuteOptions struct {
	// AgentsDir is the directory AgentDefinition files are resolved from.
	AgentsDir string
	// ScratchRoot is the configured scratch filesystem root; the execution's
	// own scratch directory is <ScratchRoot>/<RunID>/<JobID>-<Attempt>/.
	ScratchRoot string
	RunID       string
	JobID       string
	Attempt     int
	// Timeout bounds the worker's wall-clock execution time. Zero means no
	// per-job timeout beyond the caller's context.
	Timeout time.Duration
	// GracePeriod is how long a killed worker's process group is given to
	// drain its pipes before they are forcibly closed. Zero uses
	// defaultGracePeriod.
	GracePeriod time.Duration
	// Env is appended to the worker's inherited environment.
	Env []string
	// WorkDir, if set, overrides the worker's working directory; it
	// otherwise runs from the execution's scratch directory.
	WorkDir string
	// Progress receives 0-100 percentages parsed from the worker's stdout.
	// Sends are non-blocking; a nil channel disables progress observation.
	Progress chan<- int
}

// JobResult is everything Execute learned about one worker invocation.
type JobResult struct {
	Output     string
	ExitCode   int
	Duration   time.Duration
	PromptHash string
	ScratchDir string
}
