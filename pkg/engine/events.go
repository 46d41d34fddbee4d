package engine

import "pindl/pkg/pinterest"

// Status is the lifecycle of one queued pin.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusDownloaded Status = "Downloaded"
	StatusFailed     Status = "Failed"
)

// Event is a message from the engine to the presentation layer. The worker
// never touches presentation state directly; everything it has to say
// travels through the event channel.
type Event interface {
	isEvent()
}

// QueuePrepared reports the fully expanded download queue, including notes
// about invalid input lines and profile expansion outcomes.
type QueuePrepared struct {
	Items []string
	Notes []string
}

// RowUpdate reports a status change of one queue item.
type RowUpdate struct {
	Index     int
	ItemURL   string
	Status    Status
	SavedPath string
	MediaURL  string
	MediaType pinterest.MediaType
	Error     string
}

// Progress is a terminal per-item tick.
type Progress struct {
	Current int
	Total   int
}

// Completed is the final batch summary.
type Completed struct {
	Total      int
	Success    int
	Failed     int
	Cancelled  bool
	Notes      []string
	Discovered int
}

// Crashed reports an unexpected internal failure, distinct from ordinary
// per-item failures, so the caller can tell "this item failed" from "the
// engine broke".
type Crashed struct {
	Message string
}

func (QueuePrepared) isEvent() {}
func (RowUpdate) isEvent()     {}
func (Progress) isEvent()      {}
func (Completed) isEvent()     {}
func (Crashed) isEvent()       {}
