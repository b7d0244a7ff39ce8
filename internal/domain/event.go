package domain

// EventKind classifies a timeline event.
type EventKind string

const (
	KindHandAction   EventKind = "HandAction"
	KindMysteryDraw  EventKind = "MysteryDraw"
	KindBlindsUp     EventKind = "BlindsUp"
	KindBreakSkip    EventKind = "BreakSkip"
	KindSequenceSend EventKind = "SequenceSend"
	KindSpacer       EventKind = "spacer"
)

// Device trigger codes. A code identifies one button on the show-control
// device; page/button placement is derived by the dispatcher.
const (
	CodeFirstHero        = 2
	CodeFirstVillain     = 4
	CodeHeroAfterVillain = 5
	CodeVillainAct       = 6
	CodeHeroRepeat       = 7
	CodeHandEndHero      = 8
	CodeHandEndVillain   = 17
	CodeBlindsUp         = 20
	CodeBreakSkip        = 21
	CodeDrawShuffle      = 22
	CodeDrawReveal       = 23
	CodeDrawEnd          = 24
)

// Event is a single scheduled unit of work on the timeline.
//
// Time is absolute seconds-of-day with the daily offset applied, quantized
// to the 0.2s grid. Code 0 means the event carries no device trigger
// (spacers, sequence sends).
type Event struct {
	Time  float64
	Kind  EventKind
	Code  int
	Label string
	Meta  Meta
}

// Meta carries provenance and per-kind extras for an Event.
type Meta struct {
	Sheet      string
	Row        string
	Seat       string // raw feed seat index
	SeatMapped string // table seat for display
	Actor      string // Hero / Villain
	BlockIndex int    // 1-based hand block number, 0 if not applicable
	Players    int
	OpenSeat   string
	Sequence   []string // seat reveal order, sequence-send events only
}

// HasCode reports whether the event fires a device trigger.
func (e Event) HasCode() bool { return e.Code != 0 }
