package domain

// tableSeat maps the feed's 0-based clockwise seat index to the broadcast
// table seat number.
var tableSeat = map[int]int{
	0: 5, 1: 6, 2: 7, 3: 8, 4: 9,
	5: 1, 6: 2, 7: 3, 8: 4, 9: 10,
}

// TableSeat resolves a raw seat index to its table seat number.
func TableSeat(idx int) (int, bool) {
	seat, ok := tableSeat[idx]
	return seat, ok
}
