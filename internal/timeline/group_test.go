package timeline

import (
	"testing"

	"github.com/garimto81/ggm-timeline/internal/domain"
)

func TestGroup_SplitsByCommandType(t *testing.T) {
	rows := []domain.Row{
		{CommandType: domain.CommandHandAction, SeatIndex: "1"},
		{SeatIndex: "2"},
		{CommandType: domain.CommandBlindsUp, ActionStart: "x"},
		{CommandType: domain.CommandHandAction, SeatIndex: "3"},
	}
	blocks := Group(rows)
	if len(blocks) != 3 {
		t.Fatalf("Group() produced %d blocks, want 3", len(blocks))
	}
	if blocks[0].Tag != domain.CommandHandAction || len(blocks[0].Rows) != 2 {
		t.Errorf("block 0 = %q with %d rows, want HandAction with 2", blocks[0].Tag, len(blocks[0].Rows))
	}
	if blocks[1].Tag != domain.CommandBlindsUp || len(blocks[1].Rows) != 1 {
		t.Errorf("block 1 = %q with %d rows, want BlindsUp with 1", blocks[1].Tag, len(blocks[1].Rows))
	}
	if blocks[2].Tag != domain.CommandHandAction || len(blocks[2].Rows) != 1 {
		t.Errorf("block 2 = %q with %d rows, want HandAction with 1", blocks[2].Tag, len(blocks[2].Rows))
	}
}

func TestGroup_BlankTagInherits(t *testing.T) {
	rows := []domain.Row{
		{CommandType: domain.CommandMysteryDraw, SeatIndex: "shuffle"},
		{SeatIndex: "3", Action: "fold"},
		{SeatIndex: "  ", CommandType: "  ", Action: "fold"},
	}
	blocks := Group(rows)
	if len(blocks) != 1 {
		t.Fatalf("Group() produced %d blocks, want 1", len(blocks))
	}
	if len(blocks[0].Rows) != 3 {
		t.Errorf("inherited block has %d rows, want 3", len(blocks[0].Rows))
	}
}

func TestGroup_RowsBeforeFirstTagDropped(t *testing.T) {
	rows := []domain.Row{
		{SeatIndex: "9"},
		{CommandType: domain.CommandBreakSkip, ActionStart: "x"},
	}
	blocks := Group(rows)
	if len(blocks) != 1 || len(blocks[0].Rows) != 1 {
		t.Fatalf("Group() = %+v, want single one-row block", blocks)
	}
}

func TestGroup_Empty(t *testing.T) {
	if got := Group(nil); len(got) != 0 {
		t.Errorf("Group(nil) = %v, want empty", got)
	}
}
