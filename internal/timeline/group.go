package timeline

import (
	"strings"

	"github.com/garimto81/ggm-timeline/internal/domain"
)

// Group partitions rows into contiguous blocks by command type. Rows with a
// blank command cell inherit the most recent tag; rows seen before any tag
// are dropped.
func Group(rows []domain.Row) []domain.Block {
	var blocks []domain.Block
	var cur []domain.Row
	curTag := ""

	flush := func() {
		if len(cur) > 0 {
			blocks = append(blocks, domain.Block{Tag: curTag, Rows: cur})
			cur = nil
		}
	}

	for _, r := range rows {
		tag := strings.TrimSpace(r.CommandType)
		if tag == "" {
			tag = curTag
		}
		if tag != "" && tag != curTag {
			flush()
			curTag = tag
		}
		if tag == "" {
			continue
		}
		cur = append(cur, r)
	}
	flush()
	return blocks
}
