package models

import (
	"fmt"
	"time"
)

const (
	DateLayout    = "2006-01-02"
	ClockLayout   = "15:04"
	MinutesPerDay = 24 * 60
)

// TimeWindow is a half-open interval [Start, End) in minutes since midnight
type TimeWindow struct {
	Start int
	End   int
}

// FullDay covers the whole calendar day
var FullDay = TimeWindow{Start: 0, End: MinutesPerDay}

// ParseClock converts "HH:MM" to minutes since midnight. "24:00" is accepted as end of day.
func ParseClock(value string) (int, error) {
	if value == "24:00" {
		return MinutesPerDay, nil
	}
	t, err := time.Parse(ClockLayout, value)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", value, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock converts minutes since midnight back to "HH:MM"
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseDate validates a YYYY-MM-DD date
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return t, nil
}

// NewTimeWindow parses a start/end pair and requires start < end
func NewTimeWindow(start, end string) (TimeWindow, error) {
	s, err := ParseClock(start)
	if err != nil {
		return TimeWindow{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return TimeWindow{}, err
	}
	if s >= e {
		return TimeWindow{}, fmt.Errorf("start time %s must be before end time %s", start, end)
	}
	return TimeWindow{Start: s, End: e}, nil
}

// Minutes is the length of the window
func (w TimeWindow) Minutes() int {
	if w.End <= w.Start {
		return 0
	}
	return w.End - w.Start
}

// Overlaps applies the three-way half-open test: w starts inside other, w ends inside other,
// or w contains other. Touching windows such as [9:00,10:00) and [10:00,11:00) do not overlap.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	startsInside := w.Start >= other.Start && w.Start < other.End
	endsInside := w.End > other.Start && w.End <= other.End
	contains := w.Start <= other.Start && w.End >= other.End
	return startsInside || endsInside || contains
}

// Intersect returns the overlapping part of two windows, or an empty window
func (w TimeWindow) Intersect(other TimeWindow) TimeWindow {
	s, e := w.Start, w.End
	if other.Start > s {
		s = other.Start
	}
	if other.End < e {
		e = other.End
	}
	if e < s {
		e = s
	}
	return TimeWindow{Start: s, End: e}
}

func (w TimeWindow) String() string {
	return FormatClock(w.Start) + "-" + FormatClock(w.End)
}

// ScheduleWindow resolves the occupied window of a scheduled item. A missing start means the whole
// day. A missing end is derived from the estimated duration when present, otherwise the day's end.
func ScheduleWindow(startTime, endTime string, estimatedDuration *int) TimeWindow {
	if startTime == "" {
		return FullDay
	}
	start, err := ParseClock(startTime)
	if err != nil {
		return FullDay
	}
	if endTime != "" {
		if end, err := ParseClock(endTime); err == nil && end > start {
			return TimeWindow{Start: start, End: end}
		}
	}
	if estimatedDuration != nil && *estimatedDuration > 0 {
		end := start + *estimatedDuration
		if end > MinutesPerDay {
			end = MinutesPerDay
		}
		return TimeWindow{Start: start, End: end}
	}
	return TimeWindow{Start: start, End: MinutesPerDay}
}

// Window returns the time window the dispatch occupies on its scheduled date
func (d *Dispatch) Window() TimeWindow {
	return ScheduleWindow(d.StartTime, d.EndTime, d.EstimatedDuration)
}

// Window returns the slot copied onto the technician assignment row
func (t *DispatchTechnician) Window() TimeWindow {
	return ScheduleWindow(t.StartTime, t.EndTime, nil)
}

// Window returns the working window for the weekday; inactive rows yield an empty window
func (h *TechnicianWorkingHours) Window() TimeWindow {
	if !h.IsActive {
		return TimeWindow{}
	}
	w, err := NewTimeWindow(h.StartTime, h.EndTime)
	if err != nil {
		return TimeWindow{}
	}
	return w
}

// DefaultWorkingWindow applies when a technician has no row for a weekday
var DefaultWorkingWindow = TimeWindow{Start: 8 * 60, End: 16 * 60}

// DatesBetween lists every date in the inclusive range. It returns nil when to precedes from.
func DatesBetween(from, to time.Time) []time.Time {
	var dates []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}
