// Package pipeline defines the data model for a forge pipeline document: its
// jobs, retry policy, triggers, and the run/job state that the scheduler
// mutates as it executes one. Validate performs the structural checks that
// do not require graph analysis; cycle detection lives in internal/graph.
package pipeline
