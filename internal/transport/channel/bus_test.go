package channel

import (
	"errors"
	"testing"

	"github.com/garimto81/ggm-timeline/internal/domain"
)

func TestJobBus_EnqueueDequeue(t *testing.T) {
	bus := NewJobBus(2)
	if err := bus.Enqueue(domain.Job{Type: domain.JobFireTrigger, Code: 7}); err != nil {
		t.Fatalf("Enqueue error: %v", err)
	}
	job := <-bus.Channel()
	if job.Code != 7 {
		t.Errorf("dequeued code = %d, want 7", job.Code)
	}
}

func TestJobBus_FullNeverBlocks(t *testing.T) {
	bus := NewJobBus(1)
	if err := bus.Enqueue(domain.Job{Code: 1}); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	err := bus.Enqueue(domain.Job{Code: 2})
	if !errors.Is(err, ErrBusFull) {
		t.Errorf("second enqueue = %v, want ErrBusFull", err)
	}
	if bus.Len() != 1 {
		t.Errorf("Len = %d, want 1", bus.Len())
	}
}

func TestJobBus_DefaultCapacity(t *testing.T) {
	bus := NewJobBus(0)
	if bus.Cap() != 64 {
		t.Errorf("Cap = %d, want default 64", bus.Cap())
	}
}
