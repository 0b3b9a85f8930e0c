package scheduler

import (
	"regexp"

	"github.com/forge-run/forge/internal/pipeline"
)

// predicateRe matches the minimum supported "when" shape:
// <jobId>.status == '<status-literal>'. Whitespace around the operator is
// optional; the status literal may be single- or double-quoted.
var predicateRe = regexp.MustCompile(`^\s*([A-Za-z0-9_\-]+)\.status\s*==\s*['"]([a-z_]+)['"]\s*$`)

// evaluateWhen evaluates expr against rs and reports whether it holds. An
// empty expr always holds (no predicate means always-ready). An expression
// that fails to parse, or that references a job absent from rs, evaluates to
// false along with a human-readable diagnostic describing why — per
// spec.md §4.4, such a predicate never fails the run, it only ever resolves
// to false.
func evaluateWhen(expr string, rs *pipeline.RunState) (ok bool, diagnostic string) {
	if expr == "" {
		return true, ""
	}

	m := predicateRe.FindStringSubmatch(expr)
	if m == nil {
		return false, "unparseable when predicate: " + expr
	}

	jobID, wantStatus := m[1], m[2]
	js, known := rs.Jobs[jobID]
	if !known {
		return false, "when predicate references unknown job: " + jobID
	}

	return string(js.Status) == wantStatus, ""
}
