package domain

import "math"

// EventKey identifies a logical event across timeline rebuilds.
//
// The full event list is rebuilt from scratch on every feed poll, so
// execution state cannot hang off Event instances. Two rebuilds of an
// unchanged feed row produce equal keys. Time participates rounded to one
// decimal (stored in tenths to keep equality exact).
type EventKey struct {
	Kind   EventKind
	Code   int
	Label  string
	Sheet  string
	Row    string
	TimeDs int64
}

// KeyOf derives the identity key for an event.
func KeyOf(ev Event) EventKey {
	return EventKey{
		Kind:   ev.Kind,
		Code:   ev.Code,
		Label:  ev.Label,
		Sheet:  ev.Meta.Sheet,
		Row:    ev.Meta.Row,
		TimeDs: int64(math.Round(ev.Time * 10)),
	}
}
