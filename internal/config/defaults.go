package config

// NewDefaults returns a Config populated with all built-in default values.
func NewDefaults() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxConcurrentJobs:   3,
			DefaultTimeoutMs:    600_000,
			ScratchRoot:         ".forge/scratch",
			StateDir:            ".forge/state",
			WorkerGracePeriodMs: 3_000,
		},
		Agents:    map[string]AgentConfig{},
		AgentsDir: "agents",
	}
}
