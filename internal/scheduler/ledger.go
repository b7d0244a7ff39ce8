package scheduler

import (
	"strings"
	"time"

	"github.com/garimto81/ggm-timeline/internal/domain"
)

// Ledger is the process-lifetime record of execution outcomes, keyed by
// event identity. The event list is discarded wholesale on every rebuild;
// only the ledger carries executed/failed state across.
type Ledger struct {
	executed   map[domain.EventKey]struct{}
	failed     map[domain.EventKey]struct{}
	executedAt map[domain.EventKey]time.Time
}

func NewLedger() *Ledger {
	return &Ledger{
		executed:   make(map[domain.EventKey]struct{}),
		failed:     make(map[domain.EventKey]struct{}),
		executedAt: make(map[domain.EventKey]time.Time),
	}
}

// MarkExecuted records a successful execution and clears any stale failed
// flag for the key.
func (l *Ledger) MarkExecuted(key domain.EventKey, at time.Time) {
	l.executed[key] = struct{}{}
	l.executedAt[key] = at
	delete(l.failed, key)
}

func (l *Ledger) MarkFailed(key domain.EventKey) {
	l.failed[key] = struct{}{}
}

func (l *Ledger) IsExecuted(key domain.EventKey) bool {
	_, ok := l.executed[key]
	return ok
}

func (l *Ledger) IsFailed(key domain.EventKey) bool {
	_, ok := l.failed[key]
	return ok
}

func (l *Ledger) ExecutedAt(key domain.EventKey) (time.Time, bool) {
	at, ok := l.executedAt[key]
	return at, ok
}

// ClearMatching removes entries whose event kind matches the command-type
// suffix of any deletion key ("{hand}_{commandType}"), re-arming those
// events for execution. A deleted draw block also clears its reveal-order
// send, which carries its own kind but lives or dies with the draw.
// Returns the cleared keys.
func (l *Ledger) ClearMatching(deletionKeys []string) map[domain.EventKey]struct{} {
	cleared := make(map[domain.EventKey]struct{})
	match := func(key domain.EventKey) bool {
		kind := string(key.Kind)
		if key.Kind == domain.KindSequenceSend {
			kind = string(domain.KindMysteryDraw)
		}
		for _, del := range deletionKeys {
			if strings.HasSuffix(del, "_"+kind) {
				return true
			}
		}
		return false
	}
	for key := range l.executed {
		if match(key) {
			cleared[key] = struct{}{}
		}
	}
	for key := range l.failed {
		if match(key) {
			cleared[key] = struct{}{}
		}
	}
	for key := range cleared {
		delete(l.executed, key)
		delete(l.failed, key)
		delete(l.executedAt, key)
	}
	return cleared
}

// Reset drops every entry. Used by the daily rollover between show days.
func (l *Ledger) Reset() int {
	n := len(l.executed) + len(l.failed)
	l.executed = make(map[domain.EventKey]struct{})
	l.failed = make(map[domain.EventKey]struct{})
	l.executedAt = make(map[domain.EventKey]time.Time)
	return n
}
