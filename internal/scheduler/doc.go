// Package scheduler implements the Run Scheduler: the engine's
// single-writer owner of RunState. Given a validated Pipeline it resolves
// execution order from the dependency graph, admits ready jobs into a
// bounded worker pool, drives retries and conditional skips, merges job
// output back into the run's context, persists every transition, and
// publishes lifecycle events.
//
// The scheduler never talks to a worker process directly; it delegates one
// job invocation at a time to an agent.Executor, and is itself agnostic to
// what that executor does under the hood.
package scheduler
