package artifacts

import (
	"strconv"
	"strings"

	"github.com/garimto81/ggm-timeline/internal/domain"
	"github.com/garimto81/ggm-timeline/internal/timeline"
)

// actionRowCount is the fixed row count the overlay template expects; the
// action table is padded with blanks up to it.
const actionRowCount = 12

// HandSummary is the derived overlay content for one hand block.
type HandSummary struct {
	HeroSeat    string
	VillainSeat string
	Orientation string
	Actions     [][]string // 6 columns: text/value pairs
}

// SelectHandBlock picks the hand-action block the refresh targets: by row
// filter when present, else by 1-based block index, else the last block.
func SelectHandBlock(rows []domain.Row, filter map[domain.RowRef]struct{}, blockIndex int) (domain.Block, bool) {
	var hands []domain.Block
	for _, blk := range timeline.Group(rows) {
		if blk.Tag == domain.CommandHandAction {
			hands = append(hands, blk)
		}
	}
	if len(hands) == 0 {
		return domain.Block{}, false
	}

	if len(filter) > 0 {
		for _, blk := range hands {
			if blockMatches(blk, filter) {
				return blk, true
			}
		}
		return domain.Block{}, false
	}
	if blockIndex > 0 && blockIndex <= len(hands) {
		return hands[blockIndex-1], true
	}
	return hands[len(hands)-1], true
}

func blockMatches(blk domain.Block, filter map[domain.RowRef]struct{}) bool {
	for _, r := range blk.Rows {
		if _, ok := filter[domain.RowRef{Sheet: r.SheetName, Row: r.RowNum}]; ok {
			return true
		}
		// Filters built before the sheet name is known carry a bare row num.
		if _, ok := filter[domain.RowRef{Row: r.RowNum}]; ok {
			return true
		}
	}
	return false
}

// BuildHandSummary derives the overlay content for one hand block. Hero
// and villain are the first two distinct seats to act, in table-seat
// numbering.
func BuildHandSummary(blk domain.Block) HandSummary {
	var sum HandSummary

	var seats []int
	seen := make(map[int]struct{})
	for _, r := range blk.Rows {
		raw := strings.TrimSpace(r.SeatIndex)
		idx, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		mapped, ok := domain.TableSeat(idx)
		if !ok {
			continue
		}
		if _, dup := seen[mapped]; !dup {
			seen[mapped] = struct{}{}
			seats = append(seats, mapped)
		}
	}
	if len(seats) > 0 {
		sum.HeroSeat = strconv.Itoa(seats[0])
	}
	if len(seats) > 1 {
		sum.VillainSeat = strconv.Itoa(seats[1])
		sum.Orientation = chooseOrientation(seats[0], seats[1])
	}

	for _, r := range blk.Rows {
		if strings.TrimSpace(r.Text1) == "" {
			continue
		}
		sum.Actions = append(sum.Actions, []string{
			r.Text1, formatValue(r.Value1),
			r.Text2, formatValue(r.Value2),
			r.Text3, formatValue(r.Value3),
		})
		if len(sum.Actions) == actionRowCount {
			break
		}
	}
	for len(sum.Actions) < actionRowCount {
		sum.Actions = append(sum.Actions, make([]string, 6))
	}
	return sum
}

// formatValue renders fractional values in [0,1] as percentages; anything
// else passes through.
func formatValue(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	if f >= 0 && f <= 1 {
		return strconv.Itoa(int(f*100+0.5)) + "%"
	}
	return s
}

// seatAngle places the 10 table seats evenly around the table for the
// camera-orientation pick.
func seatAngle(seat int) float64 {
	return float64((seat-1)%10) * 36
}

// chooseOrientation picks the graphic layout direction: clockwise when the
// shorter arc from hero to villain runs clockwise.
func chooseOrientation(hero, villain int) string {
	diff := seatAngle(villain) - seatAngle(hero)
	for diff < 0 {
		diff += 360
	}
	if diff <= 180 {
		return "cw"
	}
	return "ccw"
}
