// Package agent implements the Agent Executor: resolving a Job's agent
// string to an on-disk AgentDefinition, rendering its prompt, spawning the
// worker subprocess in its own process group, observing a lightweight
// progress marker on stdout, and collecting a JobResult once the worker
// exits or is force-killed after its grace period.
package agent
