package artifacts

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/garimto81/ggm-timeline/internal/domain"
)

const (
	playersFile      = "players.csv"
	actionsLeftFile  = "actions_left.csv"
	actionsRightFile = "actions_right.csv"
)

// Refresher regenerates the overlay CSV files for one hand block from the
// latest feed snapshot.
type Refresher struct {
	store *RowStore
	dir   string
}

func NewRefresher(store *RowStore, dir string) *Refresher {
	return &Refresher{store: store, dir: dir}
}

// Refresh rebuilds the overlay files for the hand block selected by the
// row filter (or block index). When no block matches, the tables are
// blanked so the overlay shows nothing stale.
func (r *Refresher) Refresh(ctx context.Context, filter map[domain.RowRef]struct{}, blockIndex int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}

	blk, ok := SelectHandBlock(r.store.Rows(), filter, blockIndex)
	if !ok {
		log.Printf("artifacts: no matching hand block, blanking overlay")
		return r.writeBlank()
	}

	sum := BuildHandSummary(blk)
	left, right := splitActions(sum.Actions)

	if err := writeCSVAtomic(filepath.Join(r.dir, playersFile), [][]string{
		{"hero_seat", "villain_seat", "orientation"},
		{sum.HeroSeat, sum.VillainSeat, sum.Orientation},
	}); err != nil {
		return err
	}
	if err := writeCSVAtomic(filepath.Join(r.dir, actionsLeftFile), left); err != nil {
		return err
	}
	return writeCSVAtomic(filepath.Join(r.dir, actionsRightFile), right)
}

func (r *Refresher) writeBlank() error {
	if err := writeCSVAtomic(filepath.Join(r.dir, playersFile), [][]string{
		{"hero_seat", "villain_seat", "orientation"},
		{"", "", ""},
	}); err != nil {
		return err
	}
	half := blankRows(actionRowCount/2, 6)
	if err := writeCSVAtomic(filepath.Join(r.dir, actionsLeftFile), half); err != nil {
		return err
	}
	return writeCSVAtomic(filepath.Join(r.dir, actionsRightFile), half)
}
