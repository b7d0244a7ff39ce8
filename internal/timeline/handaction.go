package timeline

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/garimto81/ggm-timeline/internal/domain"
)

// buildHandAction converts one hand block into trigger events.
//
// The first two distinct seats, in start-time order, become Hero and
// Villain (heads-up assumption; any other seat plays as Hero). Codes:
//
//	first Hero action      -> 2
//	first Villain action   -> 4
//	Hero after Villain     -> 5
//	Hero after Hero        -> 7
//	Villain after anything -> 6
//
// The last row's end timestamp closes the hand: 8 when Hero acted last,
// 17 when Villain did.
func buildHandAction(block domain.Block, offsetSeconds, blockIndex int) []domain.Event {
	type timedRow struct {
		sec float64
		row domain.Row
	}

	var rows []timedRow
	for _, r := range block.Rows {
		sec := ParseSeconds(r.ActionStart, offsetSeconds)
		if sec <= 0 {
			continue
		}
		rows = append(rows, timedRow{sec: sec, row: r})
	}
	if len(rows) == 0 {
		return nil
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].sec < rows[j].sec })

	var seenSeats []string
	for _, tr := range rows {
		seat := strings.TrimSpace(tr.row.SeatIndex)
		if seat == "" {
			continue
		}
		if !containsString(seenSeats, seat) {
			seenSeats = append(seenSeats, seat)
		}
	}
	// First distinct seat is Hero; only an exact match on the second
	// distinct seat plays as Villain.
	villainSeat := ""
	if len(seenSeats) >= 2 {
		villainSeat = seenSeats[1]
	}
	actorOf := func(seat string) string {
		if villainSeat != "" && seat == villainSeat {
			return "Villain"
		}
		return "Hero"
	}

	var events []domain.Event
	firstHeroDone := false
	firstVillainDone := false
	prevActor := ""
	lastActor := ""
	var lastRow domain.Row

	for _, tr := range rows {
		seat := strings.TrimSpace(tr.row.SeatIndex)
		actor := actorOf(seat)
		lastActor = actor
		lastRow = tr.row

		var code int
		switch {
		case actor == "Hero" && !firstHeroDone:
			code = domain.CodeFirstHero
			firstHeroDone = true
		case actor == "Villain" && !firstVillainDone:
			code = domain.CodeFirstVillain
			firstVillainDone = true
		case actor == "Hero" && prevActor == "Villain":
			code = domain.CodeHeroAfterVillain
		case actor == "Hero":
			code = domain.CodeHeroRepeat
		default:
			code = domain.CodeVillainAct
		}

		prevTag := prevActor
		if prevTag == "" {
			prevTag = "Start"
		}
		labelShort := fmt.Sprintf("%c_After_%c", actor[0], prevTag[0])

		events = append(events, domain.Event{
			Time:  tr.sec,
			Kind:  domain.KindHandAction,
			Code:  code,
			Label: fmt.Sprintf("%s Seat %s", labelShort, displaySeat(seat)),
			Meta: domain.Meta{
				Sheet:      tr.row.SheetName,
				Row:        tr.row.RowNum,
				Seat:       seat,
				SeatMapped: displaySeat(seat),
				Actor:      actor,
				BlockIndex: blockIndex,
			},
		})

		prevActor = actor
	}

	if lastActor != "" {
		endSec := ParseSeconds(lastRow.ActionEnd, offsetSeconds)
		if endSec > 0 {
			endCode := domain.CodeHandEndHero
			if lastActor == "Villain" {
				endCode = domain.CodeHandEndVillain
			}
			events = append(events, domain.Event{
				Time:  endSec,
				Kind:  domain.KindHandAction,
				Code:  endCode,
				Label: fmt.Sprintf("Hand End (%s)", lastActor),
				Meta: domain.Meta{
					Sheet:      lastRow.SheetName,
					Row:        lastRow.RowNum,
					Actor:      lastActor,
					BlockIndex: blockIndex,
				},
			})
		}
	}

	return events
}

// displaySeat maps a raw digit seat index to its table seat for labels.
// Unmapped values pass through unchanged.
func displaySeat(seat string) string {
	idx, err := strconv.Atoi(seat)
	if err != nil {
		return seat
	}
	if mapped, ok := domain.TableSeat(idx); ok {
		return strconv.Itoa(mapped)
	}
	return seat
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
