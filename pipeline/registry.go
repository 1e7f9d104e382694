package pipeline

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownJob is returned when a job id has no registry entry.
var ErrUnknownJob = errors.New("pipeline: unknown job")

// Registry is the concurrency-safe store of job state. Each entry is written
// by exactly one orchestrator run; readers always get snapshots, never live
// references, so polls observe atomically-consistent state.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

// Create registers a new job in the queued state and returns its id.
func (r *Registry) Create() string {
	id := uuid.New().String()
	now := time.Now()
	r.mu.Lock()
	r.jobs[id] = &Job{
		ID:        id,
		Status:    StatusQueued,
		Message:   "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.mu.Unlock()
	return id
}

// Get returns a snapshot of the job, or ErrUnknownJob.
func (r *Registry) Get(id string) (Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return Job{}, ErrUnknownJob
	}
	return *j, nil
}

// Len reports the number of resident jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// update applies fn to the stored job under the lock. Progress never
// decreases and terminal states are never overwritten, regardless of what fn
// does; this keeps the monotonicity invariants out of orchestrator code.
func (r *Registry) update(id string, fn func(*Job)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok || j.Status.Terminal() {
		return
	}
	prevProgress := j.Progress
	fn(j)
	if j.Progress < prevProgress {
		j.Progress = prevProgress
	}
	if j.Progress > 100 {
		j.Progress = 100
	}
	j.UpdatedAt = time.Now()
}

// PurgeOlderThan removes terminal jobs whose last update is older than age
// and reports how many were dropped. Retention is the daemon's policy; the
// orchestrator never deletes entries on its own.
func (r *Registry) PurgeOlderThan(age time.Duration) int {
	cutoff := time.Now().Add(-age)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, j := range r.jobs {
		if j.Status.Terminal() && j.UpdatedAt.Before(cutoff) {
			delete(r.jobs, id)
			removed++
		}
	}
	return removed
}
