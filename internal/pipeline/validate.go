package pipeline

import (
	"fmt"
	"strings"

	"github.com/forge-run/forge/internal/graph"
)

// Validate performs every structural check on p that does not require graph
// analysis, then delegates cycle detection to internal/graph. It returns the
// first violation found; callers that want every violation at once should
// use CollectValidationErrors.
func Validate(p *Pipeline) *EngineError {
	errs := CollectValidationErrors(p)
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}

// CollectValidationErrors runs every structural check and returns all
// violations it finds, in a stable order, instead of stopping at the first.
func CollectValidationErrors(p *Pipeline) []*EngineError {
	var errs []*EngineError

	if p == nil {
		return []*EngineError{NewEngineError(InvalidPipeline, "pipeline is nil")}
	}
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, NewEngineError(InvalidPipeline, "pipeline name must not be empty"))
	}
	if len(p.Jobs) == 0 {
		errs = append(errs, NewEngineError(InvalidPipeline, "pipeline must declare at least one job"))
	}

	seen := make(map[string]bool, len(p.Jobs))
	adjacency := make(map[string][]string, len(p.Jobs))

	for i, j := range p.Jobs {
		if strings.TrimSpace(j.ID) == "" {
			errs = append(errs, NewEngineError(InvalidPipeline, fmt.Sprintf("job at index %d has an empty id", i)))
			continue
		}
		if seen[j.ID] {
			errs = append(errs, NewEngineError(InvalidPipeline, fmt.Sprintf("duplicate job id %q", j.ID)))
			continue
		}
		seen[j.ID] = true
		if strings.TrimSpace(j.Agent) == "" {
			errs = append(errs, NewEngineError(InvalidPipeline, fmt.Sprintf("job %q has an empty agent", j.ID)))
		}
		if j.Retry != nil && j.Retry.MaxAttempts < 1 {
			errs = append(errs, NewEngineError(InvalidPipeline, fmt.Sprintf("job %q retry.maxAttempts must be >= 1", j.ID)))
		}
		adjacency[j.ID] = append([]string(nil), j.DependsOn...)
	}

	for _, j := range p.Jobs {
		if !seen[j.ID] {
			continue
		}
		for _, dep := range j.DependsOn {
			if !seen[dep] {
				errs = append(errs, NewEngineError(InvalidPipeline, fmt.Sprintf("job %q depends on unknown job %q", j.ID, dep)))
			}
		}
	}

	if len(errs) == 0 {
		if cycle, ok := graph.DetectCycle(adjacency); ok {
			errs = append(errs, NewEngineError(InvalidPipeline, fmt.Sprintf("dependency cycle detected: %s", strings.Join(cycle, " -> "))))
		}
	}

	return errs
}
