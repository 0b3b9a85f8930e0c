package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/forge-run/forge/internal/agent"
	"github.com/forge-run/forge/internal/config"
	"github.com/forge-run/forge/internal/scheduler"
	"github.com/forge-run/forge/internal/store"
)

// loadAndResolveConfig loads forge.toml (explicit --config path, or
// auto-detected by walking up from cwd) and layers env vars and defaults on
// top, mirroring config.Resolve's priority order. It also returns the TOML
// metadata (nil when no file was found) so callers can report unknown keys.
func loadAndResolveConfig() (*config.ResolvedConfig, *toml.MetaData, error) {
	var (
		fileCfg *config.Config
		meta    *toml.MetaData
		cfgPath string
	)

	if flagConfig != "" {
		cfgPath = flagConfig
		fc, md, err := config.LoadFromFile(cfgPath)
		if err != nil {
			return nil, nil, fmt.Errorf("loading config: %w", err)
		}
		fileCfg = fc
		meta = &md
	} else {
		found, err := config.FindConfigFile(".")
		if err != nil {
			return nil, nil, fmt.Errorf("finding config file: %w", err)
		}
		if found != "" {
			cfgPath = found
			fc, md, err := config.LoadFromFile(cfgPath)
			if err != nil {
				return nil, nil, fmt.Errorf("loading config: %w", err)
			}
			fileCfg = fc
			meta = &md
		}
	}

	resolved := config.Resolve(config.NewDefaults(), fileCfg, os.LookupEnv, nil)
	resolved.Path = cfgPath
	return resolved, meta, nil
}

// newEngine builds a scheduler.Engine from rc's resolved [engine] section,
// using the production agent.DefaultExecutor and a StateStore rooted at
// rc.Config.Engine.StateDir.
func newEngine(rc *config.ResolvedConfig) (*scheduler.Engine, error) {
	st, err := store.New(rc.Config.Engine.StateDir)
	if err != nil {
		return nil, fmt.Errorf("opening state store: %w", err)
	}

	e := scheduler.New(st, agent.DefaultExecutor{},
		scheduler.WithConcurrency(rc.Config.Engine.MaxConcurrentJobs),
		scheduler.WithAgentsDir(rc.Config.AgentsDir),
		scheduler.WithScratchRoot(rc.Config.Engine.ScratchRoot),
		scheduler.WithDefaultTimeout(time.Duration(rc.Config.Engine.DefaultTimeoutMs)*time.Millisecond),
		scheduler.WithGracePeriod(time.Duration(rc.Config.Engine.WorkerGracePeriodMs)*time.Millisecond),
	)
	return e, nil
}
