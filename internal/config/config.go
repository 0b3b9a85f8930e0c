package config

// Config is the top-level configuration structure mapping to forge.toml.
type Config struct {
	Engine    EngineConfig           `toml:"engine"`
	Agents    map[string]AgentConfig `toml:"agents"`
	AgentsDir string                 `toml:"agents_dir"`
}

// EngineConfig maps to the [engine] section in forge.toml. It controls the
// Run Scheduler's concurrency cap and timing, and where the engine keeps its
// on-disk state.
type EngineConfig struct {
	MaxConcurrentJobs   int    `toml:"max_concurrent_jobs"`
	DefaultTimeoutMs    int    `toml:"default_timeout_ms"`
	ScratchRoot         string `toml:"scratch_root"`
	StateDir            string `toml:"state_dir"`
	WorkerGracePeriodMs int    `toml:"worker_grace_period_ms"`
}

// AgentConfig maps to an [agents.<name>] section in forge.toml. It describes
// how the Agent Executor invokes the named agent when a Job references it.
type AgentConfig struct {
	Command      string `toml:"command"`
	Model        string `toml:"model"`
	Effort       string `toml:"effort"`
	AllowedTools string `toml:"allowed_tools"`
}
