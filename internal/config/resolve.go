package config

// ConfigSource identifies where a configuration value came from.
type ConfigSource string

const (
	// SourceDefault indicates the value came from built-in defaults.
	SourceDefault ConfigSource = "default"
	// SourceFile indicates the value came from the forge.toml config file.
	SourceFile ConfigSource = "file"
	// SourceEnv indicates the value came from an environment variable.
	SourceEnv ConfigSource = "env"
	// SourceCLI indicates the value came from a CLI flag.
	SourceCLI ConfigSource = "cli"
)

// ResolvedConfig holds the fully-resolved configuration with source tracking.
// The Config field contains the merged values; Sources tracks where each came from.
type ResolvedConfig struct {
	Config  *Config
	Sources map[string]ConfigSource // key is dotted path, e.g., "engine.max_concurrent_jobs"
	Path    string                  // path to the config file used (empty if none)
}

// CLIOverrides captures flag values that can override configuration.
// Nil/zero values mean "not set" (do not override). A *string that is nil
// means "not overridden"; a *string pointing to "" means "override to empty string."
type CLIOverrides struct {
	MaxConcurrentJobs *int
	ScratchRoot       *string
	StateDir          *string
	AgentModel        *string
	AgentEffort       *string
}

// EnvFunc is a function that looks up environment variables.
// Default implementation is os.LookupEnv. Injected for testability.
type EnvFunc func(key string) (string, bool)

// Resolve merges configuration from all sources in priority order:
// CLI flags > environment variables > config file > defaults.
//
// Parameters:
//   - defaults: built-in default config (from NewDefaults())
//   - fileConfig: parsed config from forge.toml (nil if no file found)
//   - envFn: function to look up environment variables
//   - overrides: CLI flag values (nil fields mean "not set")
//
// Returns the fully-resolved config with source annotations.
func Resolve(defaults *Config, fileConfig *Config, envFn EnvFunc, overrides *CLIOverrides) *ResolvedConfig {
	rc := &ResolvedConfig{
		Config:  &Config{},
		Sources: make(map[string]ConfigSource),
	}

	// Ensure we have a valid defaults to start from.
	if defaults == nil {
		defaults = &Config{}
	}

	// Ensure we have a valid envFn.
	if envFn == nil {
		envFn = func(string) (string, bool) { return "", false }
	}

	// Ensure we have a valid overrides.
	if overrides == nil {
		overrides = &CLIOverrides{}
	}

	// Layer 1: Start with defaults as the base.
	resolveEngineFromDefaults(rc, defaults)
	resolveAgentsFromDefaults(rc, defaults)

	// Layer 2: Merge file config on top (non-zero values override; maps merge keys).
	if fileConfig != nil {
		resolveEngineFromFile(rc, fileConfig)
		resolveAgentsFromFile(rc, fileConfig)
	}

	// Layer 3: Merge environment variables on top.
	resolveFromEnv(rc, envFn)

	// Layer 4: Merge CLI overrides on top.
	resolveFromCLI(rc, overrides)

	return rc
}

// --- Layer 1: Defaults ---

func resolveEngineFromDefaults(rc *ResolvedConfig, defaults *Config) {
	e := &rc.Config.Engine
	d := &defaults.Engine

	setInt(&e.MaxConcurrentJobs, d.MaxConcurrentJobs, "engine.max_concurrent_jobs", SourceDefault, rc.Sources)
	setInt(&e.DefaultTimeoutMs, d.DefaultTimeoutMs, "engine.default_timeout_ms", SourceDefault, rc.Sources)
	setString(&e.ScratchRoot, d.ScratchRoot, "engine.scratch_root", SourceDefault, rc.Sources)
	setString(&e.StateDir, d.StateDir, "engine.state_dir", SourceDefault, rc.Sources)
	setInt(&e.WorkerGracePeriodMs, d.WorkerGracePeriodMs, "engine.worker_grace_period_ms", SourceDefault, rc.Sources)

	setString(&rc.Config.AgentsDir, defaults.AgentsDir, "agents_dir", SourceDefault, rc.Sources)
}

func resolveAgentsFromDefaults(rc *ResolvedConfig, defaults *Config) {
	rc.Config.Agents = make(map[string]AgentConfig)
	if defaults.Agents != nil {
		for name, agent := range defaults.Agents {
			rc.Config.Agents[name] = copyAgentConfig(agent)
			setAgentSources(rc.Sources, name, SourceDefault)
		}
	}
}

// --- Layer 2: File ---

func resolveEngineFromFile(rc *ResolvedConfig, file *Config) {
	e := &rc.Config.Engine
	f := &file.Engine

	mergeInt(&e.MaxConcurrentJobs, f.MaxConcurrentJobs, "engine.max_concurrent_jobs", SourceFile, rc.Sources)
	mergeInt(&e.DefaultTimeoutMs, f.DefaultTimeoutMs, "engine.default_timeout_ms", SourceFile, rc.Sources)
	mergeString(&e.ScratchRoot, f.ScratchRoot, "engine.scratch_root", SourceFile, rc.Sources)
	mergeString(&e.StateDir, f.StateDir, "engine.state_dir", SourceFile, rc.Sources)
	mergeInt(&e.WorkerGracePeriodMs, f.WorkerGracePeriodMs, "engine.worker_grace_period_ms", SourceFile, rc.Sources)

	mergeString(&rc.Config.AgentsDir, file.AgentsDir, "agents_dir", SourceFile, rc.Sources)
}

func resolveAgentsFromFile(rc *ResolvedConfig, file *Config) {
	if file.Agents == nil {
		return
	}
	for name, agent := range file.Agents {
		rc.Config.Agents[name] = copyAgentConfig(agent)
		setAgentSources(rc.Sources, name, SourceFile)
	}
}

// --- Layer 3: Environment ---

// Environment variable mapping:
//
//	FORGE_MAX_CONCURRENT_JOBS   -> engine.max_concurrent_jobs
//	FORGE_SCRATCH_ROOT          -> engine.scratch_root
//	FORGE_STATE_DIR             -> engine.state_dir
//	FORGE_AGENTS_DIR            -> agents_dir
//	FORGE_AGENT_MODEL           -> agents.*.model (applies to all agents)
//	FORGE_AGENT_EFFORT          -> agents.*.effort (applies to all agents)
func resolveFromEnv(rc *ResolvedConfig, envFn EnvFunc) {
	e := &rc.Config.Engine

	if val, ok := envFn("FORGE_MAX_CONCURRENT_JOBS"); ok {
		if n, ok := parseInt(val); ok {
			e.MaxConcurrentJobs = n
			rc.Sources["engine.max_concurrent_jobs"] = SourceEnv
		}
	}
	if val, ok := envFn("FORGE_SCRATCH_ROOT"); ok {
		e.ScratchRoot = val
		rc.Sources["engine.scratch_root"] = SourceEnv
	}
	if val, ok := envFn("FORGE_STATE_DIR"); ok {
		e.StateDir = val
		rc.Sources["engine.state_dir"] = SourceEnv
	}
	if val, ok := envFn("FORGE_AGENTS_DIR"); ok {
		rc.Config.AgentsDir = val
		rc.Sources["agents_dir"] = SourceEnv
	}

	// Agent-level env vars apply to ALL agents in the merged map.
	modelVal, modelSet := envFn("FORGE_AGENT_MODEL")
	effortVal, effortSet := envFn("FORGE_AGENT_EFFORT")

	if modelSet || effortSet {
		for name, agent := range rc.Config.Agents {
			if modelSet {
				agent.Model = modelVal
				rc.Sources["agents."+name+".model"] = SourceEnv
			}
			if effortSet {
				agent.Effort = effortVal
				rc.Sources["agents."+name+".effort"] = SourceEnv
			}
			rc.Config.Agents[name] = agent
		}
	}
}

// --- Layer 4: CLI overrides ---

func resolveFromCLI(rc *ResolvedConfig, overrides *CLIOverrides) {
	e := &rc.Config.Engine

	if overrides.MaxConcurrentJobs != nil {
		e.MaxConcurrentJobs = *overrides.MaxConcurrentJobs
		rc.Sources["engine.max_concurrent_jobs"] = SourceCLI
	}
	if overrides.ScratchRoot != nil {
		e.ScratchRoot = *overrides.ScratchRoot
		rc.Sources["engine.scratch_root"] = SourceCLI
	}
	if overrides.StateDir != nil {
		e.StateDir = *overrides.StateDir
		rc.Sources["engine.state_dir"] = SourceCLI
	}

	// Agent-level CLI overrides apply to ALL agents in the merged map.
	if overrides.AgentModel != nil || overrides.AgentEffort != nil {
		for name, agent := range rc.Config.Agents {
			if overrides.AgentModel != nil {
				agent.Model = *overrides.AgentModel
				rc.Sources["agents."+name+".model"] = SourceCLI
			}
			if overrides.AgentEffort != nil {
				agent.Effort = *overrides.AgentEffort
				rc.Sources["agents."+name+".effort"] = SourceCLI
			}
			rc.Config.Agents[name] = agent
		}
	}
}

// --- Helpers ---

// setString unconditionally sets the target to the given value and records the source.
func setString(target *string, value string, path string, source ConfigSource, sources map[string]ConfigSource) {
	*target = value
	sources[path] = source
}

// mergeString overwrites the target only if value is non-empty (non-zero string).
// For file-layer merging, an empty string in the file means "not set in file",
// so it does not override the default.
func mergeString(target *string, value string, path string, source ConfigSource, sources map[string]ConfigSource) {
	if value != "" {
		*target = value
		sources[path] = source
	}
}

// setInt unconditionally sets the target to the given value and records the source.
func setInt(target *int, value int, path string, source ConfigSource, sources map[string]ConfigSource) {
	*target = value
	sources[path] = source
}

// mergeInt overwrites the target only if value is non-zero. For file-layer
// merging, a zero value in the file means "not set in file", so it does not
// override the default.
func mergeInt(target *int, value int, path string, source ConfigSource, sources map[string]ConfigSource) {
	if value != 0 {
		*target = value
		sources[path] = source
	}
}

// parseInt parses a base-10 integer, returning ok=false on malformed input.
func parseInt(s string) (int, bool) {
	n := 0
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

// copyAgentConfig returns a copy of an AgentConfig.
func copyAgentConfig(src AgentConfig) AgentConfig {
	return AgentConfig{
		Command:      src.Command,
		Model:        src.Model,
		Effort:       src.Effort,
		AllowedTools: src.AllowedTools,
	}
}

// setAgentSources records the source for all fields of a named agent.
func setAgentSources(sources map[string]ConfigSource, name string, source ConfigSource) {
	prefix := "agents." + name
	sources[prefix+".command"] = source
	sources[prefix+".model"] = source
	sources[prefix+".effort"] = source
	sources[prefix+".allowed_tools"] = source
}
