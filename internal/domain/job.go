package domain

import "time"

// JobType selects what a dispatch job does.
type JobType string

const (
	JobFireTrigger      JobType = "fire"
	JobSendSequence     JobType = "sequence"
	JobRefreshArtifacts JobType = "artifacts"
)

// Job is one unit of network-bound work handed from the scheduler to the
// dispatch worker. The scheduler never blocks on its execution.
type Job struct {
	Type  JobType
	Key   EventKey
	Code  int
	Label string
	Seat  string

	// SendSequence only.
	Sequence []string

	// RefreshArtifacts only.
	Filter     map[RowRef]struct{}
	BlockIndex int
	BlockKey   string
}

// JobResult reports a finished job back to the scheduler. Err nil means
// success.
type JobResult struct {
	Job      Job
	Err      error
	Duration time.Duration
	FiredAt  time.Time
}
