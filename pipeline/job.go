// Package pipeline drives one conversion job end to end: normalize and
// extract every page sequentially, polish pages through a bounded worker
// pool, and assemble the ordered result into the packaged container. Job
// state lives in an in-process registry that the polling boundary reads.
package pipeline

import "time"

// Status is the job lifecycle state. Transitions only move forward:
// queued → processing → completed or failed; terminal states are final.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusFailed }

// Job is the caller-visible state of one conversion. Values handed out by
// the registry are snapshots; only the orchestrator owning the job mutates
// the stored copy.
type Job struct {
	ID       string
	Status   Status
	Progress int // 0-100, never decreases
	Message  string
	// ArtifactPath points at the assembled container once Status is completed.
	ArtifactPath string
	// Summary holds the generated synopsis, when one was requested and produced.
	Summary string
	// Error carries the diagnostic message for failed jobs.
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PageInput is one scanned page as submitted, in reading order.
type PageInput struct {
	// Index is zero-based and defines the final reading order.
	Index int
	// Data is the raw encoded image.
	Data []byte
	// Name identifies the source upload for logging and error attribution.
	Name string
}

// pageText carries one page through extraction and correction. The index is
// pinned at submission so concurrent correction cannot reorder output.
type pageText struct {
	index    int
	raw      string
	polished string
	degraded bool
}
