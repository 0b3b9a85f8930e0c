package config

import (
	"os"
	"testing"
)

// minimalValidTOML is a complete forge.toml fixture that passes Validate with
// no errors or warnings.
const minimalValidTOML = `
agents_dir = "agents"

[engine]
max_concurrent_jobs = 3
default_timeout_ms = 600000
scratch_root = ".forge/scratch"
state_dir = ".forge/state"
worker_grace_period_ms = 3000

[agents.claude]
command = "claude"
model = "claude-opus-4-6"
effort = "high"
`

func BenchmarkLoadFromFile(b *testing.B) {
	path := b.TempDir() + "/forge.toml"
	if err := os.WriteFile(path, []byte(minimalValidTOML), 0o644); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := LoadFromFile(path); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkResolve(b *testing.B) {
	defaults := NewDefaults()
	fileCfg := &Config{Engine: EngineConfig{MaxConcurrentJobs: 5}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Resolve(defaults, fileCfg, nil, nil)
	}
}

func BenchmarkValidate(b *testing.B) {
	cfg := NewDefaults()
	cfg.Agents["claude"] = AgentConfig{Command: "claude", Effort: "high"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Validate(cfg, nil)
	}
}
