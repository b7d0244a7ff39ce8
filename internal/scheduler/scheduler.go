package scheduler

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/garimto81/ggm-timeline/internal/domain"
)

// ClockSource supplies the broadcast day-clock. ok=false means the source
// is stale or unreachable and the caller decides the fallback.
type ClockSource interface {
	Now() (sec float64, live bool)
}

// JobQueue accepts dispatch jobs without blocking.
type JobQueue interface {
	Enqueue(domain.Job) error
}

// MetricsSink receives scheduler loop observations.
type MetricsSink interface {
	TickCompleted(d time.Duration, fired int)
	RebuildApplied(events int)
	QueueDropped(jobType string)
	EventsGauge(pending, executed, failed int)
	ClockLive(live bool)
}

// Config tunes the realtime loop. Zero values are replaced with defaults
// matching live-show operation.
type Config struct {
	TickInterval      time.Duration
	FireTolerance     time.Duration
	CatchupWindow     time.Duration
	ArtifactDelay     time.Duration
	SendingStaleAfter time.Duration
}

func (c *Config) applyDefaults() {
	if c.TickInterval <= 0 {
		c.TickInterval = 200 * time.Millisecond
	}
	if c.FireTolerance <= 0 {
		c.FireTolerance = 600 * time.Millisecond
	}
	if c.CatchupWindow <= 0 {
		c.CatchupWindow = 5 * time.Second
	}
	if c.ArtifactDelay <= 0 {
		c.ArtifactDelay = 5 * time.Second
	}
	if c.SendingStaleAfter <= 0 {
		c.SendingStaleAfter = 30 * time.Second
	}
}

// Scheduler owns the event list and the tick loop. All state is confined
// to the Run goroutine; external goroutines talk to it over channels.
type Scheduler struct {
	cfg     Config
	clock   ClockSource
	queue   JobQueue
	metrics MetricsSink
	ledger  *Ledger
	wall    func() time.Time

	states []EventState
	index  map[domain.EventKey]int

	running            bool
	sentSequences      map[domain.EventKey]struct{}
	artifactsDone      map[string]struct{}
	initialRefreshDone bool

	rebuilds     chan Rebuild
	results      chan domain.JobResult
	deletions    chan []string
	resets       chan struct{}
	runToggle    chan bool
	artifactKick chan struct{}
	snapshots    chan chan Snapshot
}

func New(cfg Config, clock ClockSource, queue JobQueue, metrics MetricsSink) *Scheduler {
	cfg.applyDefaults()
	return &Scheduler{
		cfg:           cfg,
		clock:         clock,
		queue:         queue,
		metrics:       metrics,
		ledger:        NewLedger(),
		wall:          time.Now,
		index:         make(map[domain.EventKey]int),
		running:       true,
		sentSequences: make(map[domain.EventKey]struct{}),
		artifactsDone: make(map[string]struct{}),
		rebuilds:      make(chan Rebuild, 4),
		results:       make(chan domain.JobResult, 64),
		deletions:     make(chan []string, 8),
		resets:        make(chan struct{}, 1),
		runToggle:     make(chan bool, 1),
		artifactKick:  make(chan struct{}, 4),
		snapshots:     make(chan chan Snapshot),
	}
}

// SubmitRebuild replaces the event list on the next loop iteration.
func (s *Scheduler) SubmitRebuild(events []domain.Event, deletedKeys []string) {
	s.rebuilds <- Rebuild{Events: events, DeletedKeys: deletedKeys}
}

// Results exposes the channel the dispatch worker reports into.
func (s *Scheduler) Results() chan<- domain.JobResult {
	return s.results
}

// SignalDeletions re-arms executed and failed events whose kind matches a
// deletion key suffix.
func (s *Scheduler) SignalDeletions(keys []string) {
	if len(keys) == 0 {
		return
	}
	s.deletions <- keys
}

// ResetLedger clears all execution history. Non-blocking; a pending reset
// already covers the request.
func (s *Scheduler) ResetLedger() {
	select {
	case s.resets <- struct{}{}:
	default:
	}
}

// SetRunning pauses or resumes firing. Rebuilds and results still apply
// while paused.
func (s *Scheduler) SetRunning(on bool) {
	select {
	case s.runToggle <- on:
	default:
	}
}

// Snapshot returns the current loop state for the status API.
func (s *Scheduler) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	select {
	case s.snapshots <- reply:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Run drives the loop until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Printf("scheduler: starting, tick=%s tolerance=%s catchup=%s",
		s.cfg.TickInterval, s.cfg.FireTolerance, s.cfg.CatchupWindow)

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("scheduler: stopping")
			return ctx.Err()
		case rb := <-s.rebuilds:
			s.applyRebuild(rb)
		case res := <-s.results:
			s.applyResult(res)
		case keys := <-s.deletions:
			s.applyDeletions(keys)
		case <-s.resets:
			n := s.ledger.Reset()
			s.sentSequences = make(map[domain.EventKey]struct{})
			s.artifactsDone = make(map[string]struct{})
			for i := range s.states {
				s.states[i].Executed = false
				s.states[i].Failed = false
				s.states[i].ExecutedAt = time.Time{}
			}
			log.Printf("scheduler: ledger reset, %d entries dropped", n)
		case on := <-s.runToggle:
			if on != s.running {
				s.running = on
				log.Printf("scheduler: running=%t", on)
			}
		case <-s.artifactKick:
			s.kickArtifacts()
		case reply := <-s.snapshots:
			reply <- s.snapshot()
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	start := s.wall()
	s.sweepStaleSending()

	now, live := s.clock.Now()
	fired := 0
	if s.running {
		fired = s.fireEligible(now)
	}

	if s.metrics != nil {
		s.metrics.TickCompleted(s.wall().Sub(start), fired)
		s.metrics.ClockLive(live)
		pending, executed, failed := s.tally()
		s.metrics.EventsGauge(pending, executed, failed)
	}
}

// fireEligible dispatches every event inside the fire window: within the
// tolerance of its scheduled time, or already past it by no more than the
// catch-up window. Failed events are never retried here.
func (s *Scheduler) fireEligible(now float64) int {
	tol := s.cfg.FireTolerance.Seconds()
	catchup := s.cfg.CatchupWindow.Seconds()
	fired := 0
	for i := range s.states {
		st := &s.states[i]
		if !st.fireable() || st.Event.Kind == domain.KindSequenceSend {
			continue
		}
		delta := st.Event.Time - now
		if math.Abs(delta) > tol && !(delta < 0 && -delta <= catchup) {
			continue
		}
		if s.dispatchTrigger(st) {
			fired++
		}
	}
	return fired
}

func (s *Scheduler) dispatchTrigger(st *EventState) bool {
	key := domain.KeyOf(st.Event)
	job := domain.Job{
		Type:  domain.JobFireTrigger,
		Key:   key,
		Code:  st.Event.Code,
		Label: st.Event.Label,
		Seat:  st.Event.Meta.SeatMapped,
	}
	st.Sending = true
	st.SendingAt = s.wall()
	if err := s.queue.Enqueue(job); err != nil {
		st.Sending = false
		log.Printf("scheduler: enqueue dropped code=%d label=%q: %v", job.Code, job.Label, err)
		if s.metrics != nil {
			s.metrics.QueueDropped(string(job.Type))
		}
		return false
	}
	if st.Event.Kind == domain.KindHandAction &&
		(st.Event.Code == domain.CodeHandEndHero || st.Event.Code == domain.CodeHandEndVillain) {
		s.scheduleArtifactKick()
	}
	return true
}

// scheduleArtifactKick defers the post-hand artifact refresh so the hand's
// last feed rows have time to arrive.
func (s *Scheduler) scheduleArtifactKick() {
	time.AfterFunc(s.cfg.ArtifactDelay, func() {
		select {
		case s.artifactKick <- struct{}{}:
		default:
		}
	})
}

func (s *Scheduler) applyRebuild(rb Rebuild) {
	if len(rb.DeletedKeys) > 0 {
		s.clearDeleted(rb.DeletedKeys)
	}

	states := make([]EventState, len(rb.Events))
	index := make(map[domain.EventKey]int, len(rb.Events))
	for i, ev := range rb.Events {
		st := EventState{Event: ev, Enabled: ev.Kind != domain.KindSpacer}
		key := domain.KeyOf(ev)
		if s.ledger.IsExecuted(key) {
			st.Executed = true
			if at, ok := s.ledger.ExecutedAt(key); ok {
				st.ExecutedAt = at
			}
		}
		if s.ledger.IsFailed(key) {
			st.Failed = true
		}
		states[i] = st
		index[key] = i
	}
	s.states = states
	s.index = index

	log.Printf("scheduler: rebuild applied, %d events, %d deletion keys",
		len(rb.Events), len(rb.DeletedKeys))
	if s.metrics != nil {
		s.metrics.RebuildApplied(len(rb.Events))
	}

	// Sequence sends are time-independent: pick the next unsent one for the
	// first incomplete draw block as part of applying the rebuild.
	s.submitSequenceSend()

	// The first hand block of the day gets its overlay prepared as soon as
	// it exists, not at its first hand end. Empty polls do not count.
	if !s.initialRefreshDone && s.hasHandAction() {
		s.initialRefreshDone = true
		s.kickArtifacts()
	}
}

func (s *Scheduler) hasHandAction() bool {
	for i := range s.states {
		if s.states[i].Event.Kind == domain.KindHandAction {
			return true
		}
	}
	return false
}

// submitSequenceSend enqueues the reveal-order upload for the first draw
// block that still has unfinished events, at most once per sequence key.
func (s *Scheduler) submitSequenceSend() {
	st := s.pickNextSequenceSend()
	if st == nil {
		return
	}
	key := domain.KeyOf(st.Event)
	if _, done := s.sentSequences[key]; done {
		return
	}
	st.Sending = true
	st.SendingAt = s.wall()
	s.sentSequences[key] = struct{}{}
	job := domain.Job{
		Type:     domain.JobSendSequence,
		Key:      key,
		Label:    st.Event.Label,
		Sequence: st.Event.Meta.Sequence,
	}
	if err := s.queue.Enqueue(job); err != nil {
		st.Sending = false
		delete(s.sentSequences, key)
		log.Printf("scheduler: sequence enqueue dropped label=%q: %v", job.Label, err)
		if s.metrics != nil {
			s.metrics.QueueDropped(string(job.Type))
		}
		return
	}
	log.Printf("scheduler: sequence send queued, %d seats", len(job.Sequence))
}

func (s *Scheduler) pickNextSequenceSend() *EventState {
	var blocks [][]*EventState
	var cur []*EventState
	for i := range s.states {
		st := &s.states[i]
		switch st.Event.Kind {
		case domain.KindSpacer:
			if len(cur) > 0 {
				blocks = append(blocks, cur)
				cur = nil
			}
		case domain.KindMysteryDraw, domain.KindSequenceSend:
			cur = append(cur, st)
		}
	}
	if len(cur) > 0 {
		blocks = append(blocks, cur)
	}

	for _, blk := range blocks {
		complete := true
		for _, st := range blk {
			if !st.settled() {
				complete = false
				break
			}
		}
		if complete {
			continue
		}
		for _, st := range blk {
			if st.Event.Kind == domain.KindSequenceSend && !st.settled() && !st.Sending {
				return st
			}
		}
		// First incomplete block has no sendable sequence; later blocks wait.
		return nil
	}
	return nil
}

func (s *Scheduler) applyResult(res domain.JobResult) {
	if res.Job.Type == domain.JobRefreshArtifacts {
		if res.Err != nil {
			log.Printf("scheduler: artifact refresh failed block=%s: %v", res.Job.BlockKey, res.Err)
			return
		}
		s.artifactsDone[res.Job.BlockKey] = struct{}{}
		log.Printf("scheduler: artifact refresh done block=%s in %s", res.Job.BlockKey, res.Duration)
		return
	}

	var st *EventState
	if idx, ok := s.index[res.Job.Key]; ok {
		st = &s.states[idx]
		st.Sending = false
	}

	if res.Err != nil {
		if res.Job.Type == domain.JobSendSequence {
			// Sequence sends stay pending: dropping the once-per-key guard
			// lets the next rebuild retry the upload.
			delete(s.sentSequences, res.Job.Key)
			log.Printf("scheduler: sequence send failed label=%q: %v", res.Job.Label, res.Err)
			return
		}
		if st != nil {
			st.Failed = true
		}
		s.ledger.MarkFailed(res.Job.Key)
		log.Printf("scheduler: %s failed code=%d label=%q: %v",
			res.Job.Type, res.Job.Code, res.Job.Label, res.Err)
		return
	}

	firedAt := res.FiredAt
	if firedAt.IsZero() {
		firedAt = s.wall()
	}
	if st != nil {
		st.Executed = true
		st.Failed = false
		st.ExecutedAt = firedAt
	}
	s.ledger.MarkExecuted(res.Job.Key, firedAt)
	log.Printf("scheduler: %s done code=%d label=%q in %s",
		res.Job.Type, res.Job.Code, res.Job.Label, res.Duration)
}

func (s *Scheduler) applyDeletions(keys []string) {
	cleared := s.clearDeleted(keys)
	if cleared > 0 {
		log.Printf("scheduler: deletions re-armed %d events (%s)", cleared, strings.Join(keys, ","))
	}
}

func (s *Scheduler) clearDeleted(keys []string) int {
	cleared := s.ledger.ClearMatching(keys)
	for key := range cleared {
		// A re-armed reveal-order send must also drop the once-per-key
		// guard, or the re-entered draw block never uploads again.
		delete(s.sentSequences, key)
		if idx, ok := s.index[key]; ok {
			st := &s.states[idx]
			st.Executed = false
			st.Failed = false
			st.ExecutedAt = time.Time{}
			st.Sending = false
		}
	}
	return len(cleared)
}

// sweepStaleSending fails events stuck in-flight longer than the stale
// window, so a lost worker result cannot wedge an event forever.
func (s *Scheduler) sweepStaleSending() {
	cutoff := s.wall().Add(-s.cfg.SendingStaleAfter)
	for i := range s.states {
		st := &s.states[i]
		if !st.Sending || st.SendingAt.After(cutoff) {
			continue
		}
		st.Sending = false
		st.Failed = true
		key := domain.KeyOf(st.Event)
		if st.Event.Kind != domain.KindSequenceSend {
			// Sequence failures stay out of the ledger so a rebuild retries.
			s.ledger.MarkFailed(key)
		}
		delete(s.sentSequences, key)
		log.Printf("scheduler: sending stale, marking failed code=%d label=%q",
			st.Event.Code, st.Event.Label)
	}
}

// kickArtifacts queues a refresh for the earliest hand block with no
// finished events, skipping blocks already refreshed.
func (s *Scheduler) kickArtifacts() {
	blk := s.pickNextHandBlock()
	if blk == nil {
		log.Printf("scheduler: no unstarted hand block for artifact refresh")
		return
	}
	job := domain.Job{
		Type:       domain.JobRefreshArtifacts,
		Filter:     blk.rows,
		BlockIndex: blk.blockIndex,
		BlockKey:   blk.key,
	}
	if err := s.queue.Enqueue(job); err != nil {
		log.Printf("scheduler: artifact enqueue dropped block=%s: %v", blk.key, err)
		if s.metrics != nil {
			s.metrics.QueueDropped(string(job.Type))
		}
		return
	}
	log.Printf("scheduler: artifact refresh queued block=%s rows=%d", blk.key, len(blk.rows))
}

type handBlock struct {
	key        string
	startTime  float64
	blockIndex int
	rows       map[domain.RowRef]struct{}
}

func (s *Scheduler) pickNextHandBlock() *handBlock {
	var groups [][]*EventState
	var cur []*EventState
	for i := range s.states {
		st := &s.states[i]
		switch st.Event.Kind {
		case domain.KindSpacer:
			if len(cur) > 0 {
				groups = append(groups, cur)
				cur = nil
			}
		case domain.KindHandAction:
			cur = append(cur, st)
		}
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}

	var best *handBlock
	for _, grp := range groups {
		started := false
		start := math.MaxFloat64
		rows := make(map[domain.RowRef]struct{})
		blockIndex := 0
		for _, st := range grp {
			if st.settled() {
				started = true
				break
			}
			if st.Event.Time < start {
				start = st.Event.Time
			}
			if st.Event.Meta.BlockIndex > 0 {
				blockIndex = st.Event.Meta.BlockIndex
			}
			if st.Event.Meta.Sheet != "" || st.Event.Meta.Row != "" {
				rows[domain.RowRef{Sheet: st.Event.Meta.Sheet, Row: st.Event.Meta.Row}] = struct{}{}
			}
		}
		if started || len(grp) == 0 {
			continue
		}
		key := blockKey(blockIndex, rows, start)
		if _, done := s.artifactsDone[key]; done {
			continue
		}
		if best == nil || start < best.startTime {
			best = &handBlock{key: key, startTime: start, blockIndex: blockIndex, rows: rows}
		}
	}
	return best
}

func blockKey(blockIndex int, rows map[domain.RowRef]struct{}, start float64) string {
	if blockIndex > 0 {
		return fmt.Sprintf("blk:%d", blockIndex)
	}
	if len(rows) > 0 {
		pairs := make([]string, 0, len(rows))
		for ref := range rows {
			pairs = append(pairs, ref.Sheet+"!"+ref.Row)
		}
		sort.Strings(pairs)
		return strings.Join(pairs, ",")
	}
	return fmt.Sprintf("t:%.1f", start)
}

func (s *Scheduler) tally() (pending, executed, failed int) {
	for i := range s.states {
		st := &s.states[i]
		if !st.Event.HasCode() && st.Event.Kind != domain.KindSequenceSend {
			continue
		}
		switch {
		case st.Executed:
			executed++
		case st.Failed:
			failed++
		default:
			pending++
		}
	}
	return
}

func (s *Scheduler) snapshot() Snapshot {
	now, live := s.clock.Now()
	views := make([]EventView, 0, len(s.states))
	for i := range s.states {
		st := &s.states[i]
		if st.Event.Kind == domain.KindSpacer {
			continue
		}
		views = append(views, EventView{
			Time:      st.Event.Time,
			TimeLabel: FormatDaySeconds(st.Event.Time),
			Kind:      string(st.Event.Kind),
			Code:      st.Event.Code,
			Label:     st.Event.Label,
			Status:    statusOf(st),
			RemainSec: math.Round((st.Event.Time-now)*10) / 10,
		})
	}
	return Snapshot{Running: s.running, Now: now, ClockLive: live, Events: views}
}

func statusOf(st *EventState) string {
	switch {
	case st.Executed:
		return "done"
	case st.Failed:
		return "failed"
	case st.Sending:
		return "sending"
	default:
		return "pending"
	}
}

// FormatDaySeconds renders seconds-of-day as hh:mm:ss.d for operators.
func FormatDaySeconds(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	h := int(sec) / 3600
	m := (int(sec) % 3600) / 60
	rem := sec - float64(h*3600+m*60)
	return fmt.Sprintf("%02d:%02d:%04.1f", h, m, rem)
}
