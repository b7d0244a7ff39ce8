package domain

// Feed command types. Blank command cells inherit the previous block's tag.
const (
	CommandHandAction  = "HandAction"
	CommandMysteryDraw = "MysteryDraw"
	CommandBlindsUp    = "BlindsUp"
	CommandBreakSkip   = "BreakSkip"
)

// Row is one normalized feed record. Missing fields are empty strings;
// timestamp cells keep their source text and are interpreted later.
type Row struct {
	CommandType string
	SeatIndex   string
	ActionStart string
	ActionEnd   string
	Action      string
	Text1       string
	Text2       string
	Text3       string
	Value1      string
	Value2      string
	Value3      string
	SheetName   string
	RowNum      string
	Hand        string
	Deleted     bool
}

// IsEmpty reports whether the row carries no usable data. Text3/Value3 and
// provenance fields are deliberately excluded from the check.
func (r Row) IsEmpty() bool {
	return r.CommandType == "" &&
		r.SeatIndex == "" &&
		r.ActionStart == "" &&
		r.ActionEnd == "" &&
		r.Action == "" &&
		r.Text1 == "" &&
		r.Text2 == "" &&
		r.Value1 == "" &&
		r.Value2 == ""
}

// Block is a contiguous run of rows sharing one command type.
type Block struct {
	Tag  string
	Rows []Row
}

// RowRef locates a feed row by originating sheet and row number.
type RowRef struct {
	Sheet string
	Row   string
}
