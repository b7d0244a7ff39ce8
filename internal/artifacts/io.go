package artifacts

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// utf8BOM keeps the overlay software reading the files as UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// writeCSVAtomic writes rows to path via a temp file and rename, so the
// overlay never reads a half-written file.
func writeCSVAtomic(path string, rows [][]string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return fmt.Errorf("artifacts: temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(utf8BOM); err != nil {
		tmp.Close()
		return fmt.Errorf("artifacts: write %s: %w", path, err)
	}
	w := csv.NewWriter(tmp)
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("artifacts: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("artifacts: close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("artifacts: rename %s: %w", path, err)
	}
	return nil
}

// blankRows returns an all-empty grid, used to clear overlay tables
// between hands.
func blankRows(rows, cols int) [][]string {
	out := make([][]string, rows)
	for i := range out {
		out[i] = make([]string, cols)
	}
	return out
}

// splitActions divides the padded action table into left and right halves
// for the two overlay columns.
func splitActions(actions [][]string) (left, right [][]string) {
	half := len(actions) / 2
	return actions[:half], actions[half:]
}
