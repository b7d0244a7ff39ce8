package timeline

import "github.com/garimto81/ggm-timeline/internal/domain"

// buildSingle covers the one-shot command types: the first row's start
// timestamp yields exactly one event, or nothing if it does not parse.
func buildSingle(block domain.Block, offsetSeconds int, kind domain.EventKind, code int, label string) []domain.Event {
	if len(block.Rows) == 0 {
		return nil
	}
	r0 := block.Rows[0]
	sec := ParseSeconds(r0.ActionStart, offsetSeconds)
	if sec <= 0 {
		return nil
	}
	return []domain.Event{{
		Time:  sec,
		Kind:  kind,
		Code:  code,
		Label: label,
		Meta:  domain.Meta{Sheet: r0.SheetName, Row: r0.RowNum},
	}}
}

func buildBlindsUp(block domain.Block, offsetSeconds int) []domain.Event {
	return buildSingle(block, offsetSeconds, domain.KindBlindsUp, domain.CodeBlindsUp, "Blinds Up")
}

func buildBreakSkip(block domain.Block, offsetSeconds int) []domain.Event {
	return buildSingle(block, offsetSeconds, domain.KindBreakSkip, domain.CodeBreakSkip, "Break Skip")
}
