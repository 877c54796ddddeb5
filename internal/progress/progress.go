// Package progress provides observable snapshots of in-flight batch
// operations. The process entry point creates a cell per batch kind and
// hands it to the component running the batch; one writer mutates the cell
// in place while any number of readers poll it. A cell that has not begun,
// or whose batch has finished, reports no active operation.
package progress

import (
	"sync"
	"time"
)

// Cell guards a single observable batch state. The zero value is an inactive
// cell, ready for use.
type Cell[T any] struct {
	mu     sync.Mutex
	active bool
	value  T
}

// Begin activates the cell with an initial state, replacing any prior state.
func (c *Cell[T]) Begin(initial T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = true
	c.value = initial
}

// Update mutates the current state under the cell lock. A no-op when the
// cell is inactive.
func (c *Cell[T]) Update(fn func(*T)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return
	}
	fn(&c.value)
}

// Snapshot returns a copy of the current state. The second return is false
// when no batch is active.
func (c *Cell[T]) Snapshot() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.active
}

// Clear deactivates the cell. Called on every batch exit path, success or
// failure.
func (c *Cell[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	c.active = false
	c.value = zero
}

// MigrationProgress describes an in-flight migration batch.
type MigrationProgress struct {
	TotalRecordings     int
	ProcessedRecordings int
	FailedRecordings    int
	CurrentFile         string
	CurrentStep         string
	TotalBytes          int64
	ProcessedBytes      int64
	StartedAt           time.Time
}

// Elapsed reports time since the batch started, computed at read time.
func (p MigrationProgress) Elapsed() time.Duration {
	if p.StartedAt.IsZero() {
		return 0
	}
	return time.Since(p.StartedAt)
}

// TranscriptionProgress describes an in-flight transcription batch.
type TranscriptionProgress struct {
	TotalSlices     int
	CompletedSlices int
	FailedSlices    int

	CurrentSliceID   int64
	CurrentSliceName string
	CurrentStep      string
	CurrentFileBytes int64
	// CurrentEstimatedSeconds is the expected processing time for the
	// current slice, seeded from its stored estimate or the byte rate.
	CurrentEstimatedSeconds float64
	CurrentStartedAt        time.Time

	// EstimatedTotalSeconds is the projected cost of the whole batch.
	EstimatedTotalSeconds float64
	// BytesPerSecond is the historical throughput seeding the projection.
	// Informational only; it does not gate scheduling.
	BytesPerSecond float64

	StartedAt time.Time
}

// Elapsed reports time since the batch started, computed at read time.
func (p TranscriptionProgress) Elapsed() time.Duration {
	if p.StartedAt.IsZero() {
		return 0
	}
	return time.Since(p.StartedAt)
}

// CurrentElapsed reports time spent on the current slice.
func (p TranscriptionProgress) CurrentElapsed() time.Duration {
	if p.CurrentStartedAt.IsZero() {
		return 0
	}
	return time.Since(p.CurrentStartedAt)
}
