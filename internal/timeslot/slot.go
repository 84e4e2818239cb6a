// Package timeslot holds the intraday interval type used across the engine.
// Times are fractional hours: 13.5 is 13:30, 24.0 is the end of the day.
package timeslot

import (
	"fmt"
	"math"
	"sort"
)

const (
	DayStart = 0.0
	DayEnd   = 24.0
)

// Slot is the half-open interval [From, To) within one day.
type Slot struct {
	From float64 `json:"from"`
	To   float64 `json:"to"`
}

func New(from, to float64) Slot {
	return Slot{From: from, To: to}
}

// Validate reports whether the slot lies within a day and is non-empty.
func (s Slot) Validate() error {
	if math.IsNaN(s.From) || math.IsNaN(s.To) {
		return fmt.Errorf("time range is not a number")
	}
	if s.From < DayStart || s.To > DayEnd {
		return fmt.Errorf("time range %s must lie within 00:00-24:00", s)
	}
	if s.From >= s.To {
		return fmt.Errorf("start time %s must be before end time %s", FormatHour24(s.From), FormatHour24(s.To))
	}
	return nil
}

func (s Slot) Duration() float64 {
	return s.To - s.From
}

// Overlaps uses strict comparison; slots that only touch do not overlap.
func (s Slot) Overlaps(o Slot) bool {
	return s.From < o.To && s.To > o.From
}

// Contains reports whether o lies entirely inside s.
func (s Slot) Contains(o Slot) bool {
	return o.From >= s.From && o.To <= s.To
}

// Subtract removes o from s and returns what is left, in order.
func (s Slot) Subtract(o Slot) []Slot {
	if !s.Overlaps(o) {
		return []Slot{s}
	}
	var out []Slot
	if o.From > s.From {
		out = append(out, Slot{From: s.From, To: o.From})
	}
	if o.To < s.To {
		out = append(out, Slot{From: o.To, To: s.To})
	}
	return out
}

func (s Slot) String() string {
	return FormatHour24(s.From) + "-" + FormatHour24(s.To)
}

// Sort orders slots by start, then end.
func Sort(slots []Slot) {
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].From != slots[j].From {
			return slots[i].From < slots[j].From
		}
		return slots[i].To < slots[j].To
	})
}

// ContainedIn reports whether want fits inside at least one of the given slots.
func ContainedIn(want Slot, slots []Slot) bool {
	for _, s := range slots {
		if s.Contains(want) {
			return true
		}
	}
	return false
}
