package timeline

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/garimto81/ggm-timeline/internal/domain"
)

// drawSeatCap: the mystery-draw format is fixed at 9 seats; mapped seats
// above 9 are discarded from roster and sequence.
const drawSeatCap = 9

// buildMysteryDraw converts one mystery-draw block into events.
//
// Row categories are recognized by substring on the seat/action text:
// a "players" header (roster size), an "open seat" header, "shuffle" rows
// (first positive start time anchors the draw), "showdown"/"end" rows
// (referenced seats + end anchor), and digit-seat rows whose action starts
// with "fold" (one reveal event each, fold order preserved).
func buildMysteryDraw(block domain.Block, offsetSeconds int) []domain.Event {
	var (
		shuffleSec    float64
		showdownSec   float64
		foldEvents    []domain.Event
		playersCount  int
		openSeat      string // mapped, "" if absent
		foldSeats     []string
		showdownSeats []string
	)

	for _, r := range block.Rows {
		seat := strings.TrimSpace(r.SeatIndex)
		action := strings.TrimSpace(r.Action)
		seatLower := strings.ToLower(seat)
		actionLower := strings.ToLower(action)

		if strings.Contains(seatLower, "players") {
			playersCount, _ = strconv.Atoi(digitsOf(seat))
			continue
		}
		if strings.Contains(seatLower, "open seat") {
			openSeat, _ = mapDrawSeat(digitsOf(seat))
			continue
		}

		if strings.HasPrefix(seatLower, "shuffle") || strings.HasPrefix(actionLower, "shuffle") {
			sec := ParseSeconds(r.ActionStart, offsetSeconds)
			if sec > 0 && shuffleSec == 0 {
				shuffleSec = sec
			}
		}

		if strings.Contains(seatLower, "showdown") || strings.Contains(seatLower, "end") ||
			strings.Contains(actionLower, "showdown") {
			tokens := extractSeats(action)
			if len(tokens) == 0 {
				tokens = extractSeats(seat)
			}
			for _, tok := range tokens {
				if mapped, ok := mapDrawSeat(tok); ok {
					showdownSeats = append(showdownSeats, mapped)
				}
			}
			sec := ParseSeconds(r.ActionStart, offsetSeconds)
			if sec <= 0 {
				sec = ParseSeconds(r.ActionEnd, offsetSeconds)
			}
			if sec > 0 && showdownSec == 0 {
				showdownSec = sec
			}
		}

		if isDigits(seat) && strings.HasPrefix(actionLower, "fold") {
			sec := ParseSeconds(r.ActionStart, offsetSeconds)
			if sec <= 0 {
				continue
			}
			mapped, ok := mapDrawSeat(seat)
			display := seat
			if ok {
				foldSeats = append(foldSeats, mapped)
				display = mapped
			}
			foldEvents = append(foldEvents, domain.Event{
				Time:  sec,
				Kind:  domain.KindMysteryDraw,
				Code:  domain.CodeDrawReveal,
				Label: fmt.Sprintf("Draw Fold seat %s", display),
				Meta: domain.Meta{
					Sheet:      r.SheetName,
					Row:        r.RowNum,
					Seat:       seat,
					SeatMapped: display,
					Players:    playersCount,
					OpenSeat:   openSeat,
				},
			})
		}
	}

	// Roster: mapped seats for serialize indexes 1..players (capped at 9).
	total := playersCount
	if total <= 0 || total > drawSeatCap {
		total = drawSeatCap
	}
	var roster []string
	for i := 1; i <= total; i++ {
		if mapped, ok := mapDrawSeat(strconv.Itoa(i)); ok {
			roster = append(roster, mapped)
		}
	}

	present := make(map[string]struct{})
	for _, s := range foldSeats {
		present[s] = struct{}{}
	}
	for _, s := range showdownSeats {
		present[s] = struct{}{}
	}
	if openSeat != "" {
		present[openSeat] = struct{}{}
	}
	var missing []string
	for _, s := range roster {
		if _, ok := present[s]; !ok {
			missing = append(missing, s)
		}
	}

	// Reveal order: open seat, missing seats, fold order, showdown seats.
	// First occurrence wins.
	var sequence []string
	appendOnce := func(s string) {
		if !containsString(sequence, s) {
			sequence = append(sequence, s)
		}
	}
	if openSeat != "" {
		appendOnce(openSeat)
	}
	for _, s := range missing {
		appendOnce(s)
	}
	for _, s := range foldSeats {
		appendOnce(s)
	}
	for _, s := range showdownSeats {
		appendOnce(s)
	}

	var events []domain.Event

	if len(sequence) > 0 && shuffleSec > 0 {
		events = append(events, domain.Event{
			Time:  Quantize(shuffleSec - 0.5),
			Kind:  domain.KindSequenceSend,
			Label: "Draw sequence send",
			Meta:  domain.Meta{Sequence: sequence, Players: playersCount, OpenSeat: openSeat},
		})
	}

	// Overlay removals for the open/missing prefix, spaced 1s backward from
	// the shuffle anchor. If that would land at or before zero, fall back to
	// sub-second spacing so no event time goes non-positive.
	if shuffleSec > 0 {
		prefix := len(missing)
		if openSeat != "" {
			prefix++
		}
		if prefix > len(sequence) {
			prefix = len(sequence)
		}
		for idx, seat := range sequence[:prefix] {
			t := shuffleSec - float64(prefix-idx)
			if t <= 0 {
				t = shuffleSec - 0.1*float64(prefix-idx)
			}
			events = append(events, domain.Event{
				Time:  Quantize(t),
				Kind:  domain.KindMysteryDraw,
				Code:  domain.CodeDrawReveal,
				Label: fmt.Sprintf("Draw Pre-open seat %s", seat),
				Meta: domain.Meta{
					Seat:       seat,
					SeatMapped: seat,
					Players:    playersCount,
					OpenSeat:   openSeat,
				},
			})
		}

		events = append(events, domain.Event{
			Time:  shuffleSec,
			Kind:  domain.KindMysteryDraw,
			Code:  domain.CodeDrawShuffle,
			Label: "Draw Start (Shuffle)",
			Meta:  domain.Meta{Sequence: sequence},
		})
	}

	sort.SliceStable(foldEvents, func(i, j int) bool { return foldEvents[i].Time < foldEvents[j].Time })
	events = append(events, foldEvents...)

	if showdownSec > 0 {
		events = append(events, domain.Event{
			Time:  showdownSec,
			Kind:  domain.KindMysteryDraw,
			Code:  domain.CodeDrawEnd,
			Label: "Draw End (Showdown)",
		})
	}

	return events
}

// mapDrawSeat maps a digit seat string to its table seat, discarding seats
// outside the 9-seat draw format.
func mapDrawSeat(seat string) (string, bool) {
	if !isDigits(seat) {
		return "", false
	}
	idx, err := strconv.Atoi(seat)
	if err != nil {
		return "", false
	}
	mapped, ok := domain.TableSeat(idx)
	if !ok || mapped > drawSeatCap {
		return "", false
	}
	return strconv.Itoa(mapped), true
}

// extractSeats pulls digit tokens out of free text like "3, 7 / 9".
func extractSeats(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.NewReplacer("/", ",", ";", ",", " ", "").Replace(text)
	var seats []string
	for _, tok := range strings.Split(text, ",") {
		if tok != "" && isDigits(tok) {
			seats = append(seats, tok)
		}
	}
	return seats
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
