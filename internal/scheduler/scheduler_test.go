package scheduler

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/garimto81/ggm-timeline/internal/domain"
	"github.com/garimto81/ggm-timeline/internal/testutil"
)

// mockQueue captures enqueued jobs and can simulate a full bus.
type mockQueue struct {
	mu   sync.Mutex
	jobs []domain.Job
	full bool
}

var errFull = errors.New("full")

func (q *mockQueue) Enqueue(job domain.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.full {
		return errFull
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *mockQueue) byType(t domain.JobType) []domain.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []domain.Job
	for _, j := range q.jobs {
		if j.Type == t {
			out = append(out, j)
		}
	}
	return out
}

func newTestScheduler(clockSec float64) (*Scheduler, *testutil.FakeDayClock, *mockQueue) {
	clk := testutil.NewFakeDayClock(clockSec)
	q := &mockQueue{}
	s := New(Config{}, clk, q, nil)
	return s, clk, q
}

func handEvent(t float64, code int) domain.Event {
	return domain.Event{
		Time:  t,
		Kind:  domain.KindHandAction,
		Code:  code,
		Label: "test",
		Meta:  domain.Meta{Sheet: "Day1", Row: "10", BlockIndex: 1},
	}
}

func TestFireEligible_WithinTolerance(t *testing.T) {
	s, _, q := newTestScheduler(100)
	s.applyRebuild(Rebuild{Events: []domain.Event{handEvent(100.4, 2)}})

	if fired := s.fireEligible(100); fired != 1 {
		t.Fatalf("fired = %d, want 1 inside tolerance", fired)
	}
	if jobs := q.byType(domain.JobFireTrigger); len(jobs) != 1 || jobs[0].Code != 2 {
		t.Errorf("trigger jobs = %+v", jobs)
	}
}

func TestFireEligible_OutsideTolerance(t *testing.T) {
	s, _, q := newTestScheduler(100)
	s.applyRebuild(Rebuild{Events: []domain.Event{handEvent(101, 2)}})

	if fired := s.fireEligible(100); fired != 0 {
		t.Errorf("fired = %d for event 1s early, want 0", fired)
	}
	if jobs := q.byType(domain.JobFireTrigger); len(jobs) != 0 {
		t.Errorf("unexpected trigger jobs: %+v", jobs)
	}
}

func TestFireEligible_CatchupWindow(t *testing.T) {
	s, _, _ := newTestScheduler(0)
	s.applyRebuild(Rebuild{Events: []domain.Event{handEvent(100, 2)}})

	if fired := s.fireEligible(104.8); fired != 1 {
		t.Errorf("fired = %d for event 4.8s late, want 1 (inside catch-up)", fired)
	}

	s2, _, _ := newTestScheduler(0)
	s2.applyRebuild(Rebuild{Events: []domain.Event{handEvent(100, 2)}})
	if fired := s2.fireEligible(105.8); fired != 0 {
		t.Errorf("fired = %d for event 5.8s late, want 0 (missed)", fired)
	}
}

func TestFireEligible_AtMostOnce(t *testing.T) {
	s, _, q := newTestScheduler(100)
	s.applyRebuild(Rebuild{Events: []domain.Event{handEvent(100, 2)}})

	s.fireEligible(100)
	s.fireEligible(100) // still Sending, must not re-dispatch
	if jobs := q.byType(domain.JobFireTrigger); len(jobs) != 1 {
		t.Fatalf("trigger jobs = %d after double tick, want 1", len(jobs))
	}

	// Success settles the event; further ticks and rebuilds stay quiet.
	s.applyResult(domain.JobResult{Job: q.byType(domain.JobFireTrigger)[0], FiredAt: time.Now()})
	s.fireEligible(100)
	s.applyRebuild(Rebuild{Events: []domain.Event{handEvent(100, 2)}})
	s.fireEligible(100)
	if jobs := q.byType(domain.JobFireTrigger); len(jobs) != 1 {
		t.Errorf("trigger jobs = %d after result + rebuild, want 1", len(jobs))
	}
}

func TestFailedEventsNotRetried(t *testing.T) {
	s, _, q := newTestScheduler(100)
	s.applyRebuild(Rebuild{Events: []domain.Event{handEvent(100, 2)}})

	s.fireEligible(100)
	s.applyResult(domain.JobResult{Job: q.byType(domain.JobFireTrigger)[0], Err: errors.New("press failed")})

	s.fireEligible(100)
	if jobs := q.byType(domain.JobFireTrigger); len(jobs) != 1 {
		t.Errorf("trigger jobs = %d after failure, want 1 (no retry)", len(jobs))
	}

	// The failure carries across rebuilds through the ledger.
	s.applyRebuild(Rebuild{Events: []domain.Event{handEvent(100, 2)}})
	s.fireEligible(100)
	if jobs := q.byType(domain.JobFireTrigger); len(jobs) != 1 {
		t.Errorf("failed event re-fired after rebuild")
	}
}

func TestDeletionRearmsExecutedAndFailed(t *testing.T) {
	s, _, q := newTestScheduler(100)
	s.applyRebuild(Rebuild{Events: []domain.Event{handEvent(100, 2)}})

	s.fireEligible(100)
	s.applyResult(domain.JobResult{Job: q.byType(domain.JobFireTrigger)[0], Err: errors.New("boom")})

	s.applyDeletions([]string{"h42_HandAction"})
	if fired := s.fireEligible(100); fired != 1 {
		t.Fatalf("fired = %d after deletion re-arm, want 1", fired)
	}
	if jobs := q.byType(domain.JobFireTrigger); len(jobs) != 2 {
		t.Errorf("trigger jobs = %d, want 2", len(jobs))
	}
}

func TestRebuildDeletionsAppliedBeforeSeeding(t *testing.T) {
	s, _, q := newTestScheduler(100)
	ev := handEvent(100, 2)
	s.applyRebuild(Rebuild{Events: []domain.Event{ev}})
	s.fireEligible(100)
	s.applyResult(domain.JobResult{Job: q.byType(domain.JobFireTrigger)[0], FiredAt: time.Now()})

	// A rebuild carrying the deletion key must seed the event as pending.
	s.applyRebuild(Rebuild{Events: []domain.Event{ev}, DeletedKeys: []string{"h42_HandAction"}})
	if fired := s.fireEligible(100); fired != 1 {
		t.Errorf("fired = %d after rebuild with deletion key, want 1", fired)
	}
}

func TestSpacersNeverFire(t *testing.T) {
	s, _, q := newTestScheduler(100)
	s.applyRebuild(Rebuild{Events: []domain.Event{
		{Time: 100, Kind: domain.KindSpacer},
	}})
	s.fireEligible(100)
	if len(q.byType(domain.JobFireTrigger)) != 0 {
		t.Error("spacer produced a trigger job")
	}
}

func TestSequenceSendOnRebuildNotTick(t *testing.T) {
	s, _, q := newTestScheduler(0) // clock nowhere near the events
	events := []domain.Event{
		{Time: 50399.6, Kind: domain.KindSequenceSend, Label: "Draw sequence send",
			Meta: domain.Meta{Sequence: []string{"8", "7"}}},
		{Time: 50400, Kind: domain.KindMysteryDraw, Code: domain.CodeDrawShuffle},
	}
	s.applyRebuild(Rebuild{Events: events})

	seqJobs := q.byType(domain.JobSendSequence)
	if len(seqJobs) != 1 {
		t.Fatalf("sequence jobs = %d after rebuild, want 1 (time-independent)", len(seqJobs))
	}
	if len(seqJobs[0].Sequence) != 2 {
		t.Errorf("sequence payload = %v", seqJobs[0].Sequence)
	}

	// A second rebuild while the send is in flight must not duplicate it.
	s.applyRebuild(Rebuild{Events: events})
	if len(q.byType(domain.JobSendSequence)) != 1 {
		t.Error("sequence send duplicated across rebuilds")
	}
}

func TestSequenceSendRetriedAfterFailure(t *testing.T) {
	s, _, q := newTestScheduler(0)
	events := []domain.Event{
		{Time: 50399.6, Kind: domain.KindSequenceSend, Label: "Draw sequence send",
			Meta: domain.Meta{Sequence: []string{"8"}}},
		{Time: 50400, Kind: domain.KindMysteryDraw, Code: domain.CodeDrawShuffle},
	}
	s.applyRebuild(Rebuild{Events: events})
	s.applyResult(domain.JobResult{Job: q.byType(domain.JobSendSequence)[0], Err: errors.New("overlay down")})

	// Failure clears the once-per-key guard so the next rebuild retries.
	s.applyRebuild(Rebuild{Events: events})
	if got := len(q.byType(domain.JobSendSequence)); got != 2 {
		t.Errorf("sequence jobs = %d after failure + rebuild, want 2", got)
	}
}

func TestDeletedDrawBlockResendsSequence(t *testing.T) {
	s, _, q := newTestScheduler(0)
	events := []domain.Event{
		{Time: 50399.6, Kind: domain.KindSequenceSend, Label: "Draw sequence send",
			Meta: domain.Meta{Sequence: []string{"8", "7"}}},
		{Time: 50400, Kind: domain.KindMysteryDraw, Code: domain.CodeDrawShuffle},
	}
	s.applyRebuild(Rebuild{Events: events})
	s.applyResult(domain.JobResult{Job: q.byType(domain.JobSendSequence)[0]})

	// Upload done: further rebuilds leave it alone.
	s.applyRebuild(Rebuild{Events: events})
	if got := len(q.byType(domain.JobSendSequence)); got != 1 {
		t.Fatalf("sequence jobs = %d after success + rebuild, want 1", got)
	}

	// Deleting the draw block re-arms its reveal order along with the
	// trigger events, so the re-entered block uploads again.
	s.applyDeletions([]string{"42_MysteryDraw"})
	s.applyRebuild(Rebuild{Events: events})
	if got := len(q.byType(domain.JobSendSequence)); got != 2 {
		t.Errorf("sequence jobs = %d after deletion + rebuild, want 2", got)
	}
}

func TestFirstRebuildKicksArtifacts(t *testing.T) {
	s, _, q := newTestScheduler(0)
	s.applyRebuild(Rebuild{Events: []domain.Event{handEvent(100, 2)}})

	jobs := q.byType(domain.JobRefreshArtifacts)
	if len(jobs) != 1 {
		t.Fatalf("artifact jobs = %d after first rebuild, want 1", len(jobs))
	}
	if jobs[0].BlockKey == "" {
		t.Error("artifact job missing block key")
	}

	// Completion marks the block done; a repeat kick finds nothing new.
	s.applyResult(domain.JobResult{Job: jobs[0]})
	s.kickArtifacts()
	if got := len(q.byType(domain.JobRefreshArtifacts)); got != 1 {
		t.Errorf("artifact jobs = %d after done-block kick, want 1", got)
	}
}

func TestInitialArtifactKickSurvivesEmptyPolls(t *testing.T) {
	s, _, q := newTestScheduler(0)

	// The feed can come up empty before the first hand is logged; those
	// rebuilds must not spend the one-time kick.
	s.applyRebuild(Rebuild{Events: nil})
	s.applyRebuild(Rebuild{Events: []domain.Event{{Time: 50, Kind: domain.KindBlindsUp, Code: 20}}})
	if got := len(q.byType(domain.JobRefreshArtifacts)); got != 0 {
		t.Fatalf("artifact jobs = %d before any hand block, want 0", got)
	}

	s.applyRebuild(Rebuild{Events: []domain.Event{handEvent(100, 2)}})
	if got := len(q.byType(domain.JobRefreshArtifacts)); got != 1 {
		t.Fatalf("artifact jobs = %d after first hand appeared, want 1", got)
	}

	// One-time: later rebuilds rely on end-of-hand kicks instead.
	s.applyRebuild(Rebuild{Events: []domain.Event{handEvent(100, 2)}})
	if got := len(q.byType(domain.JobRefreshArtifacts)); got != 1 {
		t.Errorf("artifact jobs = %d after a further rebuild, want still 1", got)
	}
}

func TestEndOfHandSchedulesArtifactKick(t *testing.T) {
	s, _, q := newTestScheduler(100)
	s.cfg.ArtifactDelay = 10 * time.Millisecond
	s.applyRebuild(Rebuild{Events: []domain.Event{handEvent(100, domain.CodeHandEndHero)}})

	s.fireEligible(100)
	select {
	case <-s.artifactKick:
	case <-time.After(time.Second):
		t.Fatal("no artifact kick after end-of-hand fire")
	}
	_ = q
}

func TestEnqueueFailureRevertsSending(t *testing.T) {
	s, _, q := newTestScheduler(100)
	s.applyRebuild(Rebuild{Events: []domain.Event{handEvent(100, 2)}})

	q.full = true
	if fired := s.fireEligible(100); fired != 0 {
		t.Errorf("fired = %d with full queue, want 0", fired)
	}
	q.full = false
	if fired := s.fireEligible(100); fired != 1 {
		t.Errorf("fired = %d after queue recovered, want 1", fired)
	}
}

func TestSweepStaleSending(t *testing.T) {
	s, _, q := newTestScheduler(100)
	wall := testutil.NewFakeClock(time.Date(2026, 8, 28, 20, 0, 0, 0, time.UTC))
	s.wall = wall.Now

	s.applyRebuild(Rebuild{Events: []domain.Event{handEvent(100, 2)}})
	s.fireEligible(100)

	wall.Advance(time.Minute) // past SendingStaleAfter
	s.sweepStaleSending()

	snap := s.snapshot()
	if len(snap.Events) != 1 || snap.Events[0].Status != "failed" {
		t.Errorf("snapshot after stale sweep = %+v, want failed", snap.Events)
	}
	_ = q
}

func TestRunLoop_FiresViaTicker(t *testing.T) {
	clk := testutil.NewFakeDayClock(100)
	q := &mockQueue{}
	s := New(Config{TickInterval: 5 * time.Millisecond}, clk, q, nil)

	ctx := testutil.TestContext(t)
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	s.SubmitRebuild([]domain.Event{handEvent(100.2, 2)}, nil)

	deadline := time.After(2 * time.Second)
	for len(q.byType(domain.JobFireTrigger)) == 0 {
		select {
		case <-deadline:
			t.Fatal("tick loop never fired the event")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Paused loop stops firing re-armed events.
	s.SetRunning(false)
	s.SignalDeletions([]string{"h_HandAction"})
	time.Sleep(50 * time.Millisecond)
	before := len(q.byType(domain.JobFireTrigger))

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}
	if snap.Running {
		t.Error("snapshot shows running after SetRunning(false)")
	}
	if got := len(q.byType(domain.JobFireTrigger)); got != before {
		t.Errorf("paused loop fired %d more jobs", got-before)
	}
}

func TestFormatDaySeconds(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "00:00:00.0"},
		{50607.4, "14:03:27.4"},
		{-5, "00:00:00.0"},
	}
	for _, tt := range tests {
		if got := FormatDaySeconds(tt.in); got != tt.want {
			t.Errorf("FormatDaySeconds(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
