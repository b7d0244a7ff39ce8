// Package rollover resets the execution ledger between show days on a
// cron schedule, so yesterday's executed keys cannot shadow today's
// identical timeline.
package rollover

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Resetter is the scheduler-side reset hook.
type Resetter interface {
	ResetLedger()
}

// Runner fires the reset at each scheduled time.
type Runner struct {
	schedule cron.Schedule
	spec     string
	target   Resetter
	now      func() time.Time
}

// New parses a standard 5-field cron spec ("30 4 * * *" for 04:30 daily).
func New(spec string, target Resetter) (*Runner, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("rollover: parse %q: %w", spec, err)
	}
	return &Runner{schedule: sched, spec: spec, target: target, now: time.Now}, nil
}

// Run sleeps until each next activation and triggers the reset, until ctx
// is canceled.
func (r *Runner) Run(ctx context.Context) {
	log.Printf("rollover: schedule %q active", r.spec)
	for {
		next := r.schedule.Next(r.now())
		timer := time.NewTimer(next.Sub(r.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			log.Printf("rollover: resetting ledger (scheduled %s)", next.Format(time.RFC3339))
			r.target.ResetLedger()
		}
	}
}
