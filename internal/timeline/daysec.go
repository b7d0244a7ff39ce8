// Package timeline derives the canonical trigger-event sequence from
// normalized feed rows: timestamp interpretation, block grouping, per
// command-type builders, and final assembly.
package timeline

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// QuantStep is the scheduling grid in seconds. Every emitted event time is
// a multiple of this step.
const QuantStep = 0.2

// Quantize snaps a seconds value to the grid, rounding half-steps up.
// The arithmetic runs in integer milliseconds: dividing floats by 0.2
// lands midpoints like x.1 just below the half step.
func Quantize(sec float64) float64 {
	const stepMs = 200
	ms := int64(math.Round(sec*1000)) + stepMs/2
	ms -= ((ms % stepMs) + stepMs) % stepMs
	return float64(ms) / 1000
}

// Timestamp layouts the sheet has produced over time. Fractional seconds
// are optional in every variant.
var tsLayouts = []string{
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05.999999",
	"2006/01/02 15:04:05.999999",
	"2006.01.02 15:04:05.999999",
	"2006-01-02 15:04:05.999999Z07:00",
	"2006-01-02T15:04:05.999999Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05.999999Z0700",
	"2006-01-02T15:04:05.999999Z0700",
	"2006-01-02T15:04:05Z0700",
}

// ParseSeconds interprets a raw timestamp cell as seconds since local
// midnight, applies the daily offset, and quantizes. Numeric values are
// epoch seconds (or milliseconds when the magnitude says so). Unparseable
// or blank input yields exactly 0; negative results clamp to 0.
func ParseSeconds(raw string, offsetSeconds int) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	var t time.Time
	parsed := false
	for _, layout := range tsLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			t = v
			parsed = true
			break
		}
	}

	if !parsed {
		val, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		if val > 1e12 { // looks like milliseconds
			val /= 1000
		}
		sec := int64(val)
		nsec := int64((val - float64(sec)) * 1e9)
		t = time.Unix(sec, nsec).Local()
	}

	sec := float64(t.Hour()*3600+t.Minute()*60+t.Second()) +
		float64(t.Nanosecond())/1e9
	sec = Quantize(sec + float64(offsetSeconds))
	if sec < 0 {
		return 0
	}
	return sec
}
