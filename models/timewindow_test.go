package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func window(t *testing.T, start, end string) TimeWindow {
	t.Helper()
	w, err := NewTimeWindow(start, end)
	require.NoError(t, err)
	return w
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"23:59", 1439, false},
		{"24:00", MinutesPerDay, false},
		{"9am", 0, true},
		{"25:00", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	assert.Equal(t, "09:30", FormatClock(570))
	assert.Equal(t, "24:00", FormatClock(MinutesPerDay))
}

func TestNewTimeWindowRequiresOrder(t *testing.T) {
	_, err := NewTimeWindow("10:00", "10:00")
	assert.Error(t, err)
	_, err = NewTimeWindow("11:00", "10:00")
	assert.Error(t, err)
	assert.Equal(t, 90, window(t, "09:00", "10:30").Minutes())
}

func TestOverlaps(t *testing.T) {
	base := window(t, "09:00", "11:00")
	tests := []struct {
		name  string
		other TimeWindow
		want  bool
	}{
		{"identical", window(t, "09:00", "11:00"), true},
		{"starts inside", window(t, "10:00", "12:00"), true},
		{"ends inside", window(t, "08:00", "09:30"), true},
		{"contains", window(t, "08:00", "12:00"), true},
		{"contained", window(t, "09:30", "10:00"), true},
		{"touches end", window(t, "11:00", "12:00"), false},
		{"touches start", window(t, "08:00", "09:00"), false},
		{"disjoint", window(t, "13:00", "14:00"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(base), "overlap must be symmetric")
		})
	}
}

func TestIntersect(t *testing.T) {
	w := window(t, "08:00", "16:00")
	assert.Equal(t, "15:00-16:00", w.Intersect(window(t, "15:00", "18:00")).String())
	assert.Equal(t, 0, w.Intersect(window(t, "17:00", "18:00")).Minutes())
	assert.Equal(t, "08:00-16:00", w.Intersect(FullDay).String())
}

func TestScheduleWindow(t *testing.T) {
	ninety := 90
	huge := 2000
	zero := 0

	tests := []struct {
		name     string
		start    string
		end      string
		duration *int
		want     string
	}{
		{"explicit", "09:00", "10:00", nil, "09:00-10:00"},
		{"end wins over duration", "09:00", "10:00", &ninety, "09:00-10:00"},
		{"duration", "09:00", "", &ninety, "09:00-10:30"},
		{"duration clamped", "20:00", "", &huge, "20:00-24:00"},
		{"zero duration", "09:00", "", &zero, "09:00-24:00"},
		{"open ended", "13:00", "", nil, "13:00-24:00"},
		{"end before start", "13:00", "12:00", nil, "13:00-24:00"},
		{"no start", "", "12:00", &ninety, "00:00-24:00"},
		{"bad start", "noon", "", nil, "00:00-24:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScheduleWindow(tt.start, tt.end, tt.duration).String())
		})
	}
}

func TestWorkingHoursWindow(t *testing.T) {
	active := &TechnicianWorkingHours{DayOfWeek: 1, StartTime: "07:00", EndTime: "15:30", IsActive: true}
	assert.Equal(t, 510, active.Window().Minutes())

	inactive := &TechnicianWorkingHours{DayOfWeek: 0, StartTime: "07:00", EndTime: "15:30"}
	assert.Equal(t, 0, inactive.Window().Minutes())

	broken := &TechnicianWorkingHours{StartTime: "15:00", EndTime: "07:00", IsActive: true}
	assert.Equal(t, 0, broken.Window().Minutes())

	assert.Equal(t, 480, DefaultWorkingWindow.Minutes())
}

func TestDatesBetween(t *testing.T) {
	from := time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	dates := DatesBetween(from, to)
	require.Len(t, dates, 3)
	assert.Equal(t, "2024-02-29", dates[1].Format(DateLayout))
	assert.Nil(t, DatesBetween(to, from))
}

func TestLeaveCoverage(t *testing.T) {
	leave := &TechnicianLeave{StartDate: "2024-06-03", EndDate: "2024-06-05", Status: LeaveStatusApproved}
	assert.True(t, leave.Covers("2024-06-03"))
	assert.True(t, leave.Covers("2024-06-05"))
	assert.False(t, leave.Covers("2024-06-06"))
	assert.True(t, leave.Overlaps("2024-06-01", "2024-06-03"))
	assert.False(t, leave.Overlaps("2024-06-06", "2024-06-09"))

	leave.Status = LeaveStatusPending
	assert.False(t, leave.Covers("2024-06-04"))
}
