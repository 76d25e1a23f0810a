package timecodec

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// #region constants
const (
	MinutesPerDay = 1440
	HalfDay       = 720
)

var clockPattern = regexp.MustCompile(`(?i)^\s*(\d{1,2}):(\d{2})\s*(AM|PM)\s*$`)

// #endregion constants

// #region parse
// Parse converts a 12-hour "HH:MM AM/PM" string into a minute of the day.
// The marker is case-insensitive and the hour may be one or two digits.
// ok is false for any malformed input, including hours above 12 and
// minutes above 59.
func Parse(s string) (minute int, ok bool) {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	h, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	mm, err := strconv.Atoi(m[2])
	if err != nil || h > 12 || mm > 59 {
		return 0, false
	}
	if h == 12 {
		h = 0
	}
	if strings.EqualFold(m[3], "PM") {
		h += 12
	}
	return h*60 + mm, true
}

// #endregion parse

// #region format
// Format renders a minute of the day as "HH:MM AM/PM". Values outside
// [0, 1440) are wrapped first.
func Format(minute int) string {
	minute = Normalize(minute)
	h24 := minute / 60
	marker := "AM"
	if h24 >= 12 {
		marker = "PM"
	}
	h12 := h24 % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%02d:%02d %s", h12, minute%60, marker)
}

// Normalize wraps minute into [0, 1440).
func Normalize(minute int) int {
	return ((minute % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
}

// #endregion format

// #region offset
// ApplyOffset shifts a clock string by offset minutes, wrapping at midnight.
// Unparsable input is returned unchanged.
func ApplyOffset(s string, offset int) string {
	base, ok := Parse(s)
	if !ok {
		return s
	}
	return Format(base + offset)
}

// #endregion offset

// #region circular
// CircularDiff returns the absolute distance in minutes between two minutes
// of the day, going the short way around midnight.
func CircularDiff(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if MinutesPerDay-d < d {
		return MinutesPerDay - d
	}
	return d
}

// FoldDelta folds a raw minute difference into (-720, 720] so that a
// confirmation just past midnight counts as a small delay.
func FoldDelta(delta int) int {
	if delta > HalfDay {
		delta -= MinutesPerDay
	}
	if delta <= -HalfDay {
		delta += MinutesPerDay
	}
	return delta
}

// MinuteOfDay returns the wall-clock minute of t in t's location.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// #endregion circular
