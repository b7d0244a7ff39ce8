package scheduler

import (
	"time"

	"github.com/garimto81/ggm-timeline/internal/domain"
)

// EventState is one timeline event plus its scheduling flags. States live
// only until the next rebuild; durable outcome lives in the Ledger.
type EventState struct {
	Event      domain.Event
	Enabled    bool
	Executed   bool
	Sending    bool
	Failed     bool
	ExecutedAt time.Time
	SendingAt  time.Time
}

func (s *EventState) fireable() bool {
	return s.Enabled && !s.Executed && !s.Sending && !s.Failed && s.Event.HasCode()
}

func (s *EventState) settled() bool {
	return s.Executed || s.Failed
}

// Rebuild carries a freshly derived event list from the feed pipeline into
// the scheduler loop.
type Rebuild struct {
	Events      []domain.Event
	DeletedKeys []string
}

// EventView is a read-only snapshot row for the status API.
type EventView struct {
	Time      float64 `json:"time"`
	TimeLabel string  `json:"time_label"`
	Kind      string  `json:"kind"`
	Code      int     `json:"code,omitempty"`
	Label     string  `json:"label,omitempty"`
	Status    string  `json:"status"`
	RemainSec float64 `json:"remain_sec"`
}

// Snapshot is the full loop state exposed over the status API.
type Snapshot struct {
	Running   bool        `json:"running"`
	Now       float64     `json:"now"`
	ClockLive bool        `json:"clock_live"`
	Events    []EventView `json:"events"`
}
