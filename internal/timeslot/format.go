package timeslot

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Minutes converts fractional hours to whole minutes, rounding to the nearest minute.
func Minutes(hours float64) int {
	return int(math.Round(hours * 60))
}

// FromMinutes converts whole minutes back to fractional hours.
func FromMinutes(minutes int) float64 {
	return float64(minutes) / 60
}

// FormatHour24 renders 13.5 as "13:30".
func FormatHour24(hours float64) string {
	total := Minutes(hours)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// FormatHour12 renders 13.5 as "01:30 PM".
func FormatHour12(hours float64) string {
	total := Minutes(hours)
	h, m := (total/60)%24, total%60
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%02d:%02d %s", h12, m, suffix)
}

// ParseHour parses "HH:MM" or a decimal like "13.5" into fractional hours.
func ParseHour(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("time is required")
	}
	if h, m, ok := strings.Cut(raw, ":"); ok {
		hours, err := strconv.Atoi(h)
		if err != nil {
			return 0, fmt.Errorf("invalid time %q", raw)
		}
		minutes, err := strconv.Atoi(m)
		if err != nil || minutes < 0 || minutes > 59 {
			return 0, fmt.Errorf("invalid time %q", raw)
		}
		value := float64(hours) + float64(minutes)/60
		if value < DayStart || value > DayEnd {
			return 0, fmt.Errorf("time %q is out of range", raw)
		}
		return value, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < DayStart || value > DayEnd {
		return 0, fmt.Errorf("invalid time %q", raw)
	}
	return value, nil
}
