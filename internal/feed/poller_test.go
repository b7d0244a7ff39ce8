package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stubFetcher struct {
	mu      sync.Mutex
	records []Record
	err     error
	calls   int
	block   chan struct{} // non-nil: Fetch parks until closed
}

func (f *stubFetcher) Fetch(ctx context.Context) ([]Record, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.records, f.err
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingSink struct {
	mu      sync.Mutex
	batches [][]Record
}

func (s *recordingSink) HandleRecords(records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, records)
	return nil
}

func (s *recordingSink) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func TestPoller_DeliversToSink(t *testing.T) {
	fetcher := &stubFetcher{records: []Record{{Object: map[string]any{"a": "b"}}}}
	sink := &recordingSink{}
	p := NewPoller(fetcher, sink, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for sink.batchCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("sink never received a batch")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if !p.Healthy() {
		t.Error("Healthy() = false after successful poll")
	}
}

func TestPoller_FetchErrorUnhealthy(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("boom")}
	sink := &recordingSink{}
	p := NewPoller(fetcher, sink, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for fetcher.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("fetcher never called")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if p.Healthy() {
		t.Error("Healthy() = true after failed poll")
	}
	if sink.batchCount() != 0 {
		t.Errorf("sink received %d batches on fetch error, want 0", sink.batchCount())
	}
}

func TestPoller_SingleFlight(t *testing.T) {
	block := make(chan struct{})
	fetcher := &stubFetcher{block: block}
	sink := &recordingSink{}
	p := NewPoller(fetcher, sink, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	// Let several intervals elapse while the first fetch is parked. The
	// in-flight guard must suppress overlapping polls.
	time.Sleep(60 * time.Millisecond)
	if got := fetcher.callCount(); got != 1 {
		t.Errorf("fetch called %d times while one was in flight, want 1", got)
	}

	close(block)
	cancel()
	<-done
}
