package timeline

import (
	"sort"

	"github.com/garimto81/ggm-timeline/internal/domain"
	"github.com/garimto81/ggm-timeline/internal/feed"
)

// spacerStep separates a block's spacer from its last event so it sorts
// immediately after without colliding.
const spacerStep = 0.0005

// Assemble derives the full event sequence from a raw feed row set.
//
// It normalizes every record, diverts soft-deleted rows into deletion keys
// and drops empty ones, groups the rest into command blocks, runs each
// block through its builder, inserts a spacer after each block's output,
// and time-sorts the result. Pure: same input and offset, same output.
//
// The returned deletion keys ({hand}_{commandType}, de-duplicated, sorted)
// re-arm previously executed blocks in the scheduler.
func Assemble(records []feed.Record, offsetSeconds int) ([]domain.Event, []string) {
	var rows []domain.Row
	deleted := make(map[string]struct{})

	for _, rec := range records {
		row := feed.Normalize(rec)
		if row.IsEmpty() {
			continue
		}
		if row.Deleted {
			if row.Hand != "" || row.CommandType != "" {
				deleted[row.Hand+"_"+row.CommandType] = struct{}{}
			}
			continue
		}
		rows = append(rows, row)
	}

	deletedKeys := make([]string, 0, len(deleted))
	for k := range deleted {
		deletedKeys = append(deletedKeys, k)
	}
	sort.Strings(deletedKeys)

	if len(rows) == 0 {
		return nil, deletedKeys
	}

	var events []domain.Event
	handBlockIdx := 0
	for _, block := range Group(rows) {
		var built []domain.Event
		switch block.Tag {
		case domain.CommandHandAction:
			handBlockIdx++
			built = buildHandAction(block, offsetSeconds, handBlockIdx)
		case domain.CommandMysteryDraw:
			built = buildMysteryDraw(block, offsetSeconds)
		case domain.CommandBlindsUp:
			built = buildBlindsUp(block, offsetSeconds)
		case domain.CommandBreakSkip:
			built = buildBreakSkip(block, offsetSeconds)
		default:
			continue
		}
		if len(built) == 0 {
			continue
		}
		events = append(events, built...)
		last := events[len(events)-1]
		events = append(events, domain.Event{
			Time: last.Time + spacerStep,
			Kind: domain.KindSpacer,
		})
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Time < events[j].Time })
	return events, deletedKeys
}
