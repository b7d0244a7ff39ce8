package feed

import (
	"strconv"
	"strings"

	"github.com/garimto81/ggm-timeline/internal/domain"
)

// Accepted spellings per canonical field, first match wins. The upstream
// sheet script has emitted both CamelCase and snake_case over time.
var fieldAliases = []struct {
	set     func(*domain.Row, string)
	aliases []string
}{
	{func(r *domain.Row, v string) { r.CommandType = v }, []string{"CommandType", "command_type", "commandtype"}},
	{func(r *domain.Row, v string) { r.SeatIndex = v }, []string{"SeatIndex", "seat_index", "seatindex"}},
	{func(r *domain.Row, v string) { r.ActionStart = v }, []string{"ActionStart", "action_start", "actionstart"}},
	{func(r *domain.Row, v string) { r.ActionEnd = v }, []string{"ActionEnd", "action_end", "actionend"}},
	{func(r *domain.Row, v string) { r.Action = v }, []string{"Action", "action"}},
	{func(r *domain.Row, v string) { r.Text1 = v }, []string{"Text1", "text1"}},
	{func(r *domain.Row, v string) { r.Text2 = v }, []string{"Text2", "text2"}},
	{func(r *domain.Row, v string) { r.Text3 = v }, []string{"Text3", "text3"}},
	{func(r *domain.Row, v string) { r.Value1 = v }, []string{"Value1", "value1"}},
	{func(r *domain.Row, v string) { r.Value2 = v }, []string{"Value2", "value2"}},
	{func(r *domain.Row, v string) { r.Value3 = v }, []string{"Value3", "value3"}},
	{func(r *domain.Row, v string) { r.SheetName = v }, []string{"SheetName", "sheet_name", "sheetname"}},
	{func(r *domain.Row, v string) { r.RowNum = v }, []string{"Row", "row"}},
	{func(r *domain.Row, v string) { r.Hand = v }, []string{"Hand", "hand"}},
}

// Normalize maps a raw record into the canonical row shape. Missing fields
// become empty strings, never errors.
func Normalize(rec Record) domain.Row {
	if rec.Object != nil {
		return normalizeObject(rec.Object)
	}
	if rec.Legacy != nil {
		return normalizeLegacy(rec.Legacy)
	}
	return domain.Row{}
}

func normalizeObject(obj map[string]any) domain.Row {
	var row domain.Row

	for _, key := range []string{"Delete", "delete"} {
		if v, ok := obj[key]; ok {
			row.Deleted = isTruthy(v)
			break
		}
	}

	for _, field := range fieldAliases {
		for _, alias := range field.aliases {
			if v, ok := obj[alias]; ok {
				field.set(&row, cellString(v))
				break
			}
		}
	}
	return row
}

// normalizeLegacy maps the very old positional backup format. Index 4 held
// both the action and the first text column.
func normalizeLegacy(arr []any) domain.Row {
	get := func(i int) string {
		if i >= len(arr) {
			return ""
		}
		return cellString(arr[i])
	}
	return domain.Row{
		CommandType: get(0),
		SeatIndex:   get(1),
		ActionStart: get(2),
		ActionEnd:   get(3),
		Action:      get(4),
		Text1:       get(4),
		Text2:       get(5),
		Text3:       get(6),
		Value1:      get(7),
		Value2:      get(8),
		Value3:      get(9),
	}
}

// cellString renders a JSON scalar the way the sheet displays it: integers
// without a trailing ".0", everything trimmed.
func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}

// isTruthy recognizes the soft-delete encodings the sheet has produced:
// boolean true, "true", numeric 1, and "1".
func isTruthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val == "true" || val == "1"
	case float64:
		return val == 1
	}
	return false
}
