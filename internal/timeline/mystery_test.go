package timeline

import (
	"reflect"
	"testing"

	"github.com/garimto81/ggm-timeline/internal/domain"
)

func drawRow(seat, action, start string) domain.Row {
	return domain.Row{
		CommandType: domain.CommandMysteryDraw,
		SeatIndex:   seat,
		Action:      action,
		ActionStart: start,
	}
}

func fullDrawBlock() domain.Block {
	return domain.Block{Tag: domain.CommandMysteryDraw, Rows: []domain.Row{
		drawRow("Players: 5", "", ""),
		drawRow("Open Seat 3", "", ""),
		drawRow("Shuffle", "", "2024-05-01 14:00:00"),
		drawRow("2", "Fold", "2024-05-01 14:01:00"),
		drawRow("4", "fold", "2024-05-01 14:02:00"),
		drawRow("Showdown", "1, 5", "2024-05-01 14:03:00"),
	}}
}

func eventsByCode(events []domain.Event, code int) []domain.Event {
	var out []domain.Event
	for _, ev := range events {
		if ev.Code == code {
			out = append(out, ev)
		}
	}
	return out
}

func TestBuildMysteryDraw_FullBlock(t *testing.T) {
	events := buildMysteryDraw(fullDrawBlock(), 0)
	if len(events) != 6 {
		t.Fatalf("got %d events, want 6 (send, pre-open, shuffle, 2 folds, showdown)", len(events))
	}

	shuffles := eventsByCode(events, domain.CodeDrawShuffle)
	if len(shuffles) != 1 || !almostEqual(shuffles[0].Time, 50400) {
		t.Errorf("shuffle events = %+v, want one at 50400", shuffles)
	}

	ends := eventsByCode(events, domain.CodeDrawEnd)
	if len(ends) != 1 || !almostEqual(ends[0].Time, 50580) {
		t.Errorf("showdown events = %+v, want one at 50580", ends)
	}

	folds := eventsByCode(events, domain.CodeDrawReveal)
	// One pre-open reveal plus two fold reveals.
	if len(folds) != 3 {
		t.Fatalf("reveal events = %d, want 3", len(folds))
	}
	if folds[0].Label != "Draw Pre-open seat 8" || !almostEqual(folds[0].Time, 50399) {
		t.Errorf("pre-open = %q at %v, want seat 8 at 50399", folds[0].Label, folds[0].Time)
	}
	if folds[1].Label != "Draw Fold seat 7" || folds[2].Label != "Draw Fold seat 9" {
		t.Errorf("fold labels = %q, %q", folds[1].Label, folds[2].Label)
	}
}

func TestBuildMysteryDraw_RevealSequenceOrder(t *testing.T) {
	events := buildMysteryDraw(fullDrawBlock(), 0)
	var send *domain.Event
	for i := range events {
		if events[i].Kind == domain.KindSequenceSend {
			send = &events[i]
		}
	}
	if send == nil {
		t.Fatal("no sequence-send event")
	}
	// Open seat first, then fold order, then showdown seats. Players 5 with
	// open+folds+showdown covering the roster leaves no missing seats.
	want := []string{"8", "7", "9", "6", "1"}
	if !reflect.DeepEqual(send.Meta.Sequence, want) {
		t.Errorf("sequence = %v, want %v", send.Meta.Sequence, want)
	}
	// 0.5s before the shuffle, snapped to the grid.
	if !almostEqual(send.Time, 50399.6) {
		t.Errorf("sequence-send time = %v, want 50399.6", send.Time)
	}
}

func TestBuildMysteryDraw_MissingSeatsJoinSequence(t *testing.T) {
	// Three players, only the open seat accounted for: the other two roster
	// seats are missing and slot in after the open seat.
	block := domain.Block{Tag: domain.CommandMysteryDraw, Rows: []domain.Row{
		drawRow("Players: 3", "", ""),
		drawRow("Open Seat 1", "", ""),
		drawRow("Shuffle", "", "2024-05-01 14:00:00"),
	}}
	events := buildMysteryDraw(block, 0)

	var seq []string
	for _, ev := range events {
		if ev.Kind == domain.KindSequenceSend {
			seq = ev.Meta.Sequence
		}
	}
	// Roster for 3 players is mapped seats [6 7 8]; open seat 1 maps to 6.
	want := []string{"6", "7", "8"}
	if !reflect.DeepEqual(seq, want) {
		t.Errorf("sequence = %v, want %v", seq, want)
	}

	// Pre-open reveals run backward from the shuffle, 1s apart.
	reveals := eventsByCode(events, domain.CodeDrawReveal)
	if len(reveals) != 3 {
		t.Fatalf("pre-open reveals = %d, want 3", len(reveals))
	}
	wantTimes := []float64{50397, 50398, 50399}
	for i, ev := range reveals {
		if !almostEqual(ev.Time, wantTimes[i]) {
			t.Errorf("reveal %d at %v, want %v", i, ev.Time, wantTimes[i])
		}
	}
}

func TestBuildMysteryDraw_NoShuffleNoAnchor(t *testing.T) {
	block := domain.Block{Tag: domain.CommandMysteryDraw, Rows: []domain.Row{
		drawRow("Players: 4", "", ""),
		drawRow("3", "Fold", "2024-05-01 14:01:00"),
	}}
	events := buildMysteryDraw(block, 0)
	// Without a shuffle anchor there is no send, no pre-open, no start.
	for _, ev := range events {
		if ev.Kind == domain.KindSequenceSend || ev.Code == domain.CodeDrawShuffle {
			t.Errorf("unexpected event without shuffle anchor: %+v", ev)
		}
	}
	if folds := eventsByCode(events, domain.CodeDrawReveal); len(folds) != 1 {
		t.Errorf("fold reveals = %d, want 1", len(folds))
	}
}

func TestMapDrawSeat(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"1", "6", true},
		{"3", "8", true},
		{"9", "", false}, // maps to table seat 10, outside the draw format
		{"x", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := mapDrawSeat(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("mapDrawSeat(%q) = %q, %t, want %q, %t", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestExtractSeats(t *testing.T) {
	got := extractSeats("3, 7 / 9; 2")
	want := []string{"3", "7", "9", "2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("extractSeats = %v, want %v", got, want)
	}
}
