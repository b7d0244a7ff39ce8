package channel

import (
	"errors"

	"github.com/garimto81/ggm-timeline/internal/domain"
)

// ErrBusFull is returned when the job buffer is at capacity. The scheduler
// tick must never block, so enqueue is strictly non-blocking.
var ErrBusFull = errors.New("channel: job bus full")

// JobBus is an in-process buffered queue between the scheduler and the
// dispatch worker.
type JobBus struct {
	ch chan domain.Job
}

func NewJobBus(size int) *JobBus {
	if size <= 0 {
		size = 64
	}
	return &JobBus{ch: make(chan domain.Job, size)}
}

func (b *JobBus) Enqueue(job domain.Job) error {
	select {
	case b.ch <- job:
		return nil
	default:
		return ErrBusFull
	}
}

// Channel exposes the receive side for the dispatch worker.
func (b *JobBus) Channel() <-chan domain.Job {
	return b.ch
}

// Close releases the channel. Call only after the scheduler has stopped
// enqueueing.
func (b *JobBus) Close() {
	close(b.ch)
}

func (b *JobBus) Len() int {
	return len(b.ch)
}

func (b *JobBus) Cap() int {
	return cap(b.ch)
}
