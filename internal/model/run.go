package model

import "time"

// RunMode distinguishes the two kinds of runs.
type RunMode string

// Run modes.
const (
	RunModeReview  RunMode = "review"
	RunModeReapply RunMode = "reapply"
)

// Counters are the process-lifetime totals of a review run.
type Counters struct {
	Processed int
	Approved  int
	Flagged   int
	Skipped   int
	Stuck     int
	DryRun    int
}

// Balanced reports whether the outcome accounting invariant holds.
func (c Counters) Balanced() bool {
	return c.Approved+c.Flagged+c.Skipped+c.DryRun == c.Processed
}

// Run is the stored summary of one invocation.
type Run struct {
	StartedAt  time.Time
	FinishedAt *time.Time
	ID         string
	Mode       RunMode
	StopReason string
	Counters   Counters
	DryRun     bool
}
