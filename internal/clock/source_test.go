package clock

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestParseTimecode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{"iso with date", "2026-08-28T14:03:27.400Z", 50607.4},
		{"bare time", "14:03:27", 50607},
		{"drop-frame separator", "14:03:27;12", 50607}, // frame count ignored
		{"half-step rounds up", "10:00:00.1", 36000.2},
		{"midnight", "00:00:00", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimecode(tt.raw)
			if err != nil {
				t.Fatalf("ParseTimecode(%q) error: %v", tt.raw, err)
			}
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("ParseTimecode(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseTimecode_Invalid(t *testing.T) {
	for _, raw := range []string{"", "14:03", "xx:yy:zz", "garbage"} {
		if _, err := ParseTimecode(raw); err == nil {
			t.Errorf("ParseTimecode(%q) succeeded, want error", raw)
		}
	}
}

func TestParseTimecode_OnGrid(t *testing.T) {
	got, err := ParseTimecode("10:00:00.123")
	if err != nil {
		t.Fatal(err)
	}
	steps := got / quantStep
	if math.Abs(steps-math.Round(steps)) > 1e-6 {
		t.Errorf("parsed timecode %v is off the 0.2s grid", got)
	}
}

func TestExtractTimecode(t *testing.T) {
	xml := `<vmix><inputs/><replay><timecode> 2026-08-28T14:03:27.4Z </timecode></replay></vmix>`
	tc, ok := extractTimecode([]byte(xml))
	if !ok || tc != "2026-08-28T14:03:27.4Z" {
		t.Errorf("extractTimecode = %q, %t", tc, ok)
	}
}

func TestExtractTimecode_IgnoresOutsideReplay(t *testing.T) {
	xml := `<vmix><timecode>10:00:00</timecode><other/></vmix>`
	if _, ok := extractTimecode([]byte(xml)); ok {
		t.Error("timecode outside a replay element should be ignored")
	}
}

func TestSourceNow_WallClockFallback(t *testing.T) {
	s := NewSource("", 0)
	fixed := time.Date(2026, 8, 28, 14, 3, 27, 0, time.UTC)
	s.wall = func() time.Time { return fixed }

	sec, live := s.Now()
	if live {
		t.Error("live = true with no replay feed")
	}
	if math.Abs(sec-50607) > 1e-6 {
		t.Errorf("fallback seconds = %v, want 50607", sec)
	}
}

func TestSourceNow_LiveThenStale(t *testing.T) {
	s := NewSource("", 0)
	base := time.Date(2026, 8, 28, 20, 0, 0, 0, time.UTC)
	now := base
	s.wall = func() time.Time { return now }

	s.mu.Lock()
	s.lastSec = 50607.4
	s.lastSeen = base
	s.everSeen = true
	s.mu.Unlock()

	if sec, live := s.Now(); !live || math.Abs(sec-50607.4) > 1e-6 {
		t.Errorf("Now() = %v, %t, want 50607.4 live", sec, live)
	}

	now = base.Add(staleAfter + time.Second)
	if _, live := s.Now(); live {
		t.Error("clock still live past the staleness window")
	}
}

func TestSourcePoll_ReadsReplayEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<vmix><replay><timecode>2026-08-28T14:03:27.4Z</timecode></replay></vmix>`))
	}))
	defer srv.Close()

	s := NewSource(strings.TrimPrefix(srv.URL, "http://"), 0)
	s.poll(context.Background())

	sec, live := s.Now()
	if !live {
		t.Fatal("not live after successful poll")
	}
	if math.Abs(sec-50607.4) > 1e-6 {
		t.Errorf("Now() = %v, want 50607.4", sec)
	}
}
