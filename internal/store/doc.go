// Package store persists pipeline RunState records to disk. Save replaces a
// run's record atomically via a write-to-temp-then-rename so a crash mid
// write never leaves a corrupt or half-written file for List/Load to trip
// over.
package store
