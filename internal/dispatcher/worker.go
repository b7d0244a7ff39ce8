package dispatcher

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/garimto81/ggm-timeline/internal/domain"
)

// TriggerSender fires a numbered trigger on the production device.
type TriggerSender interface {
	Fire(ctx context.Context, code int) error
}

// SequenceUploader pushes a draw reveal order to the overlay.
type SequenceUploader interface {
	SendSequence(ctx context.Context, seats []string) error
}

// Refresher regenerates hand artifacts for one hand block.
type Refresher interface {
	Refresh(ctx context.Context, filter map[domain.RowRef]struct{}, blockIndex int) error
}

// MetricsSink receives dispatch observations.
type MetricsSink interface {
	JobCompleted(jobType string, ok bool, d time.Duration)
}

// AnalyticsSink records fired triggers for show analytics. Best-effort.
type AnalyticsSink interface {
	TriggerFired(ctx context.Context, code int, ok bool)
}

// JournalSink persists one row per dispatch attempt. Best-effort.
type JournalSink interface {
	RecordAttempt(ctx context.Context, attemptID string, job domain.Job, outcome error, d time.Duration) error
}

// Worker is the single consumer of the job bus. One worker keeps device
// presses strictly ordered; the scheduler never waits on it.
type Worker struct {
	triggers  TriggerSender
	sequences SequenceUploader
	artifacts Refresher
	results   chan<- domain.JobResult

	metrics   MetricsSink
	analytics AnalyticsSink
	journal   JournalSink

	jobTimeout   time.Duration
	drainTimeout time.Duration
}

type WorkerOption func(*Worker)

func WithMetrics(m MetricsSink) WorkerOption     { return func(w *Worker) { w.metrics = m } }
func WithAnalytics(a AnalyticsSink) WorkerOption { return func(w *Worker) { w.analytics = a } }
func WithJournal(j JournalSink) WorkerOption     { return func(w *Worker) { w.journal = j } }
func WithDrainTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) { w.drainTimeout = d }
}

func NewWorker(triggers TriggerSender, sequences SequenceUploader, artifacts Refresher,
	results chan<- domain.JobResult, opts ...WorkerOption) *Worker {
	w := &Worker{
		triggers:     triggers,
		sequences:    sequences,
		artifacts:    artifacts,
		results:      results,
		jobTimeout:   10 * time.Second,
		drainTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run consumes jobs until ctx is canceled, then drains what is already
// queued so accepted work is not silently lost.
func (w *Worker) Run(ctx context.Context, jobs <-chan domain.Job) {
	log.Printf("dispatcher: worker started")
	for {
		select {
		case <-ctx.Done():
			w.drain(jobs)
			log.Printf("dispatcher: worker stopped")
			return
		case job, ok := <-jobs:
			if !ok {
				log.Printf("dispatcher: job bus closed")
				return
			}
			w.handle(ctx, job)
		}
	}
}

func (w *Worker) drain(jobs <-chan domain.Job) {
	drainCtx, cancel := context.WithTimeout(context.Background(), w.drainTimeout)
	defer cancel()
	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.handle(drainCtx, job)
		case <-drainCtx.Done():
			log.Printf("dispatcher: drain timeout, %d jobs abandoned", len(jobs))
			return
		default:
			return
		}
	}
}

func (w *Worker) handle(ctx context.Context, job domain.Job) {
	attemptID := uuid.NewString()
	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	start := time.Now()
	err := w.execute(jobCtx, job)
	dur := time.Since(start)

	res := domain.JobResult{Job: job, Err: err, Duration: dur, FiredAt: start}
	select {
	case w.results <- res:
	case <-time.After(w.drainTimeout):
		log.Printf("dispatcher: result dropped, scheduler not consuming (attempt=%s)", attemptID)
	}

	if w.metrics != nil {
		w.metrics.JobCompleted(string(job.Type), err == nil, dur)
	}
	if w.analytics != nil && job.Type == domain.JobFireTrigger {
		w.analytics.TriggerFired(jobCtx, job.Code, err == nil)
	}
	if w.journal != nil {
		if jerr := w.journal.RecordAttempt(jobCtx, attemptID, job, err, dur); jerr != nil {
			log.Printf("dispatcher: journal write failed: %v", jerr)
		}
	}
}

func (w *Worker) execute(ctx context.Context, job domain.Job) error {
	switch job.Type {
	case domain.JobFireTrigger:
		return w.triggers.Fire(ctx, job.Code)
	case domain.JobSendSequence:
		return w.sequences.SendSequence(ctx, job.Sequence)
	case domain.JobRefreshArtifacts:
		return w.artifacts.Refresh(ctx, job.Filter, job.BlockIndex)
	default:
		return fmt.Errorf("dispatcher: unknown job type %q", job.Type)
	}
}
