// Package graph implements dependency-graph analysis for a forge pipeline:
// cycle detection over a job's dependsOn edges, and computing the set of
// jobs that are ready to run given the current state of every other job.
// Unlike a workflow's transition graph, a pipeline's dependency graph must
// be acyclic; DetectCycle reports a cycle as a hard failure rather than a
// warning.
package graph
