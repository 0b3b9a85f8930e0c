package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// ValidationSeverity indicates whether a validation issue is an error or warning.
type ValidationSeverity string

const (
	// SeverityError indicates a fatal validation issue; the configuration is unusable.
	SeverityError ValidationSeverity = "error"
	// SeverityWarning indicates an informational validation issue; the configuration works
	// but may have problems.
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationIssue represents a single validation finding.
type ValidationIssue struct {
	Severity ValidationSeverity
	Field    string // dotted path, e.g., "engine.max_concurrent_jobs"
	Message  string
}

// ValidationResult holds all validation findings.
type ValidationResult struct {
	Issues []ValidationIssue
}

// HasErrors returns true if any issue has error severity.
func (vr *ValidationResult) HasErrors() bool {
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasWarnings returns true if any issue has warning severity.
func (vr *ValidationResult) HasWarnings() bool {
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// Errors returns only error-severity issues.
func (vr *ValidationResult) Errors() []ValidationIssue {
	var errs []ValidationIssue
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityError {
			errs = append(errs, issue)
		}
	}
	return errs
}

// Warnings returns only warning-severity issues.
func (vr *ValidationResult) Warnings() []ValidationIssue {
	var warns []ValidationIssue
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityWarning {
			warns = append(warns, issue)
		}
	}
	return warns
}

// validEfforts is the set of valid values for agent effort.
var validEfforts = map[string]bool{
	"":       true,
	"low":    true,
	"medium": true,
	"high":   true,
}

// Validate checks the configuration for correctness and completeness.
// It performs structural validation, semantic validation, and unknown key
// detection.
//
// Parameters:
//   - cfg: the configuration to validate
//   - meta: TOML metadata from BurntSushi/toml (may be nil if no file was loaded)
//
// Returns validation results. Check HasErrors() to determine if the config is usable.
func Validate(cfg *Config, meta *toml.MetaData) *ValidationResult {
	vr := &ValidationResult{}

	if cfg == nil {
		addError(vr, "", "configuration is nil")
		return vr
	}

	validateEngine(vr, &cfg.Engine)
	validateAgents(vr, cfg.Agents)
	validateUnknownKeys(vr, meta)

	return vr
}

// validateEngine checks the [engine] section for errors and warnings.
func validateEngine(vr *ValidationResult, e *EngineConfig) {
	if e.MaxConcurrentJobs < 1 {
		addError(vr, "engine.max_concurrent_jobs", "must be at least 1")
	}

	if e.DefaultTimeoutMs < 0 {
		addError(vr, "engine.default_timeout_ms", "must not be negative")
	}

	if e.WorkerGracePeriodMs < 0 {
		addError(vr, "engine.worker_grace_period_ms", "must not be negative")
	}

	if e.ScratchRoot == "" {
		addError(vr, "engine.scratch_root", "must not be empty")
	}

	if e.StateDir == "" {
		addError(vr, "engine.state_dir", "must not be empty")
	}

	if e.ScratchRoot != "" && e.StateDir != "" && e.ScratchRoot == e.StateDir {
		addWarning(vr, "engine.scratch_root",
			"scratch_root and state_dir are the same path; scratch cleanup could remove persisted run state")
	}
}

// validateAgents checks all [agents.*] sections.
func validateAgents(vr *ValidationResult, agents map[string]AgentConfig) {
	for name, agent := range agents {
		prefix := "agents." + name

		// Error: command must not be empty if agent is defined.
		if agent.Command == "" {
			addError(vr, prefix+".command", "must not be empty")
		}

		// Error: effort must be a recognized value.
		if !validEfforts[agent.Effort] {
			addError(vr, prefix+".effort",
				fmt.Sprintf("unrecognized effort %q; must be one of: low, medium, high, or empty", agent.Effort))
		}
	}
}

// validateUnknownKeys checks for TOML keys that did not map to any config struct field.
func validateUnknownKeys(vr *ValidationResult, meta *toml.MetaData) {
	if meta == nil {
		return
	}

	for _, key := range meta.Undecoded() {
		path := strings.Join(key, ".")
		addWarning(vr, path, "unknown configuration key")
	}
}

// addError appends an error-severity issue to the validation result.
func addError(vr *ValidationResult, field, message string) {
	vr.Issues = append(vr.Issues, ValidationIssue{
		Severity: SeverityError,
		Field:    field,
		Message:  message,
	})
}

// addWarning appends a warning-severity issue to the validation result.
func addWarning(vr *ValidationResult, field, message string) {
	vr.Issues = append(vr.Issues, ValidationIssue{
		Severity: SeverityWarning,
		Field:    field,
		Message:  message,
	})
}
