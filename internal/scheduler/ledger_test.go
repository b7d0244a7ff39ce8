package scheduler

import (
	"testing"
	"time"

	"github.com/garimto81/ggm-timeline/internal/domain"
)

func key(kind domain.EventKind, code int, tds int64) domain.EventKey {
	return domain.EventKey{Kind: kind, Code: code, TimeDs: tds}
}

func TestLedger_MarkExecutedClearsFailed(t *testing.T) {
	l := NewLedger()
	k := key(domain.KindHandAction, 2, 1000)

	l.MarkFailed(k)
	if !l.IsFailed(k) {
		t.Fatal("key not failed after MarkFailed")
	}

	at := time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC)
	l.MarkExecuted(k, at)
	if !l.IsExecuted(k) {
		t.Error("key not executed after MarkExecuted")
	}
	if l.IsFailed(k) {
		t.Error("failed flag survived a successful execution")
	}
	if got, ok := l.ExecutedAt(k); !ok || !got.Equal(at) {
		t.Errorf("ExecutedAt = %v, %t", got, ok)
	}
}

func TestLedger_ClearMatchingBySuffix(t *testing.T) {
	l := NewLedger()
	hand := key(domain.KindHandAction, 2, 1000)
	handEnd := key(domain.KindHandAction, 8, 2000)
	draw := key(domain.KindMysteryDraw, 22, 3000)

	now := time.Now()
	l.MarkExecuted(hand, now)
	l.MarkExecuted(draw, now)
	l.MarkFailed(handEnd)

	cleared := l.ClearMatching([]string{"h42_HandAction"})
	if len(cleared) != 2 {
		t.Fatalf("cleared %d keys, want 2", len(cleared))
	}
	if l.IsExecuted(hand) || l.IsFailed(handEnd) {
		t.Error("hand-action entries survived deletion")
	}
	if !l.IsExecuted(draw) {
		t.Error("mystery-draw entry cleared by hand-action deletion key")
	}
}

func TestLedger_ClearMatchingDrawReArmsSequence(t *testing.T) {
	l := NewLedger()
	draw := key(domain.KindMysteryDraw, 22, 3000)
	seq := key(domain.KindSequenceSend, 0, 2999)
	now := time.Now()
	l.MarkExecuted(draw, now)
	l.MarkExecuted(seq, now)

	cleared := l.ClearMatching([]string{"h42_MysteryDraw"})
	if len(cleared) != 2 {
		t.Fatalf("cleared %d keys, want 2", len(cleared))
	}
	if l.IsExecuted(seq) {
		t.Error("reveal-order send survived its draw block's deletion")
	}
}

func TestLedger_ClearMatchingNoSubstringMatch(t *testing.T) {
	l := NewLedger()
	hand := key(domain.KindHandAction, 2, 1000)
	l.MarkExecuted(hand, time.Now())

	// "Action" is a suffix of the key text but not of "_HandAction".
	if cleared := l.ClearMatching([]string{"h42_Action"}); len(cleared) != 0 {
		t.Errorf("cleared %d keys for non-matching suffix, want 0", len(cleared))
	}
}

func TestLedger_Reset(t *testing.T) {
	l := NewLedger()
	l.MarkExecuted(key(domain.KindHandAction, 2, 1), time.Now())
	l.MarkFailed(key(domain.KindBlindsUp, 20, 2))

	if n := l.Reset(); n != 2 {
		t.Errorf("Reset dropped %d entries, want 2", n)
	}
	if l.IsExecuted(key(domain.KindHandAction, 2, 1)) {
		t.Error("entry survived reset")
	}
}
