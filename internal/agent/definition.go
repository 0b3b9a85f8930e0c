package agent

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
)

// ErrNotFound is returned by ResolveDefinition when neither candidate path
// exists under the agents directory.
var ErrNotFound = errors.New("agent definition not found")

// ErrInvalidName rejects agent names that could escape the agents
// directory via path traversal.
var ErrInvalidName = errors.New("invalid agent name")

var agentNameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ResolveDefinition resolves name against agentsDir, trying the name as-is
// first, then with the canonical ".md" markup extension. The file is
// decoded as TOML regardless of extension, matching the rest of this
// module's configuration format.
func ResolveDefinition(agentsDir, name string) (*AgentDefinition, error) {
	if !agentNameRe.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	candidates := []string{
		filepath.Join(agentsDir, name),
		filepath.Join(agentsDir, name+".md"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			var def AgentDefinition
			if _, err := toml.DecodeFile(path, &def); err != nil {
				return nil, fmt.Errorf("decoding agent definition %s: %w", path, err)
			}
			def.Name = name
			return &def, nil
		}
	}

	return nil, fmt.Errorf("%w: %q (tried %v)", ErrNotFound, name, candidates)
}

// ResolveResources expands def's Resources glob patterns (evaluated with
// doublestar so "**" works) relative to agentsDir and returns the matched
// file paths.
func ResolveResources(agentsDir string, def *AgentDefinition) ([]string, error) {
	fsys := os.DirFS(agentsDir)
	var matches []string
	for _, pattern := range def.Resources {
		found, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("resolving resource glob %q for agent %q: %w", pattern, def.Name, err)
		}
		matches = append(matches, found...)
	}
	return matches, nil
}
