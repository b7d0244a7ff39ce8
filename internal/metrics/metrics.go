package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sink receives operational observations from the loop, the dispatcher
// and the feed poller. Implementations must be safe for concurrent use.
type Sink interface {
	TickCompleted(d time.Duration, fired int)
	RebuildApplied(events int)
	QueueDropped(jobType string)
	EventsGauge(pending, executed, failed int)
	JobCompleted(jobType string, ok bool, d time.Duration)
	FeedPollCompleted(ok bool, rows int)
	ClockLive(live bool)
}

// PrometheusSink exports the observations as Prometheus collectors.
type PrometheusSink struct {
	tickDuration  prometheus.Histogram
	tickFired     prometheus.Counter
	rebuilds      prometheus.Counter
	rebuildSize   prometheus.Gauge
	queueDropped  *prometheus.CounterVec
	eventsByState *prometheus.GaugeVec
	jobDuration   *prometheus.HistogramVec
	jobOutcomes   *prometheus.CounterVec
	feedPolls     *prometheus.CounterVec
	feedRows      prometheus.Gauge
	clockLive     prometheus.Gauge
}

func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	s := &PrometheusSink{
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ggm_timeline_tick_duration_seconds",
			Help:    "Scheduler tick processing time.",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .2},
		}),
		tickFired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ggm_timeline_triggers_fired_total",
			Help: "Trigger jobs dispatched by the tick loop.",
		}),
		rebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ggm_timeline_rebuilds_total",
			Help: "Event list rebuilds applied.",
		}),
		rebuildSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ggm_timeline_events_total",
			Help: "Events in the current timeline.",
		}),
		queueDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ggm_timeline_queue_dropped_total",
			Help: "Jobs refused by the full dispatch queue.",
		}, []string{"type"}),
		eventsByState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ggm_timeline_events_by_state",
			Help: "Coded events by scheduling state.",
		}, []string{"state"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ggm_timeline_job_duration_seconds",
			Help:    "Dispatch job execution time.",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"}),
		jobOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ggm_timeline_job_outcomes_total",
			Help: "Dispatch job completions by outcome.",
		}, []string{"type", "outcome"}),
		feedPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ggm_timeline_feed_polls_total",
			Help: "Feed poll attempts by outcome.",
		}, []string{"outcome"}),
		feedRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ggm_timeline_feed_rows",
			Help: "Rows in the last successful feed poll.",
		}),
		clockLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ggm_timeline_clock_live",
			Help: "1 while the replay timecode backs the day clock.",
		}),
	}
	for _, c := range []prometheus.Collector{
		s.tickDuration, s.tickFired, s.rebuilds, s.rebuildSize, s.queueDropped,
		s.eventsByState, s.jobDuration, s.jobOutcomes, s.feedPolls, s.feedRows,
		s.clockLive,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *PrometheusSink) TickCompleted(d time.Duration, fired int) {
	s.tickDuration.Observe(d.Seconds())
	if fired > 0 {
		s.tickFired.Add(float64(fired))
	}
}

func (s *PrometheusSink) RebuildApplied(events int) {
	s.rebuilds.Inc()
	s.rebuildSize.Set(float64(events))
}

func (s *PrometheusSink) QueueDropped(jobType string) {
	s.queueDropped.WithLabelValues(jobType).Inc()
}

func (s *PrometheusSink) EventsGauge(pending, executed, failed int) {
	s.eventsByState.WithLabelValues("pending").Set(float64(pending))
	s.eventsByState.WithLabelValues("executed").Set(float64(executed))
	s.eventsByState.WithLabelValues("failed").Set(float64(failed))
}

func (s *PrometheusSink) JobCompleted(jobType string, ok bool, d time.Duration) {
	s.jobDuration.WithLabelValues(jobType).Observe(d.Seconds())
	s.jobOutcomes.WithLabelValues(jobType, outcome(ok)).Inc()
}

func (s *PrometheusSink) FeedPollCompleted(ok bool, rows int) {
	s.feedPolls.WithLabelValues(outcome(ok)).Inc()
	if ok {
		s.feedRows.Set(float64(rows))
	}
}

func (s *PrometheusSink) ClockLive(live bool) {
	if live {
		s.clockLive.Set(1)
	} else {
		s.clockLive.Set(0)
	}
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// NoopSink drops everything. Used when metrics are disabled.
type NoopSink struct{}

func (NoopSink) TickCompleted(time.Duration, int)         {}
func (NoopSink) RebuildApplied(int)                       {}
func (NoopSink) QueueDropped(string)                      {}
func (NoopSink) EventsGauge(int, int, int)                {}
func (NoopSink) JobCompleted(string, bool, time.Duration) {}
func (NoopSink) FeedPollCompleted(bool, int)              {}
func (NoopSink) ClockLive(bool)                           {}
