// Package events implements the scheduler's fire-and-forget event bus.
// Subscribe registers a channel under an exact event name or the wildcard
// "*"; Publish loops over matching subscribers and sends non-blockingly, so
// a slow or inattentive consumer drops events rather than stalling the
// scheduler.
package events
