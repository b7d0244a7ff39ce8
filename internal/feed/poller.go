package feed

import (
	"context"
	"log"
	"sync/atomic"
	"time"
)

// Fetcher retrieves the current feed row set.
type Fetcher interface {
	Fetch(ctx context.Context) ([]Record, error)
}

// Sink consumes a freshly fetched row set (derivation + scheduler rebuild).
type Sink interface {
	HandleRecords(records []Record) error
}

// MetricsSink records poll outcomes. Implementations must not block.
type MetricsSink interface {
	FeedPollCompleted(ok bool, rows int)
}

// Poller periodically re-fetches the feed, fully decoupled from the
// scheduling tick. Each poll runs on its own goroutine; an in-flight poll
// suppresses the next one rather than stacking requests.
type Poller struct {
	fetcher  Fetcher
	sink     Sink
	interval time.Duration
	metrics  MetricsSink // optional, nil = disabled

	inFlight atomic.Bool
	lastOK   atomic.Bool
}

func NewPoller(fetcher Fetcher, sink Sink, interval time.Duration) *Poller {
	return &Poller{fetcher: fetcher, sink: sink, interval: interval}
}

// WithMetrics attaches a metrics sink to the poller.
func (p *Poller) WithMetrics(sink MetricsSink) *Poller {
	p.metrics = sink
	return p
}

// Healthy reports whether the most recent poll succeeded.
func (p *Poller) Healthy() bool { return p.lastOK.Load() }

// Run polls until the context is cancelled. The first poll fires
// immediately so a fresh start does not wait a full interval.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	log.Printf("feed: poller started, interval=%s", p.interval)
	p.pollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("feed: poller stopped")
			return ctx.Err()
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	if !p.inFlight.CompareAndSwap(false, true) {
		return // previous poll still running
	}
	go func() {
		defer p.inFlight.Store(false)

		records, err := p.fetcher.Fetch(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("feed: poll error: %v", err)
			}
			p.lastOK.Store(false)
			if p.metrics != nil {
				p.metrics.FeedPollCompleted(false, 0)
			}
			return
		}

		if err := p.sink.HandleRecords(records); err != nil {
			log.Printf("feed: apply error: %v", err)
			p.lastOK.Store(false)
			if p.metrics != nil {
				p.metrics.FeedPollCompleted(false, len(records))
			}
			return
		}

		p.lastOK.Store(true)
		if p.metrics != nil {
			p.metrics.FeedPollCompleted(true, len(records))
		}
	}()
}
