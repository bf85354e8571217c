// Package scheduling expands a doctor's weekly availability windows into
// discrete bookable start times and provides the interval arithmetic used to
// mask slots covered by existing appointments.
package scheduling

import (
	"errors"
	"fmt"
	"time"

	"mediflow-server/internal/models"
)

// StepMinutes is the slot granularity.
const StepMinutes = 30

var (
	ErrInvalidTime   = errors.New("invalid time format")
	ErrInvalidWindow = errors.New("window start must be before end")
)

// ParseClockToMinutes converts a "15:04" wall-clock string to minutes since
// midnight.
func ParseClockToMinutes(timeStr string) (int, error) {
	tm, err := time.Parse("15:04", timeStr)
	if err != nil {
		return 0, ErrInvalidTime
	}
	return tm.Hour()*60 + tm.Minute(), nil
}

// MinutesToClock formats minutes since midnight as "15:04".
func MinutesToClock(minutes int) string {
	h := minutes / 60
	m := minutes % 60
	return fmt.Sprintf("%02d:%02d", h, m)
}

// ValidateWindow checks the start<end invariant of a single window.
func ValidateWindow(w models.AvailabilityWindow) error {
	start, err := ParseClockToMinutes(w.StartTime)
	if err != nil {
		return err
	}
	end, err := ParseClockToMinutes(w.EndTime)
	if err != nil {
		return err
	}
	if start >= end {
		return ErrInvalidWindow
	}
	if w.DayOfWeek < 0 || w.DayOfWeek > 6 {
		return errors.New("day of week out of range")
	}
	return nil
}

// WindowsOverlap reports whether two windows on the same day share any time.
func WindowsOverlap(a, b models.AvailabilityWindow) (bool, error) {
	if a.DayOfWeek != b.DayOfWeek {
		return false, nil
	}
	aStart, err := ParseClockToMinutes(a.StartTime)
	if err != nil {
		return false, err
	}
	aEnd, err := ParseClockToMinutes(a.EndTime)
	if err != nil {
		return false, err
	}
	bStart, err := ParseClockToMinutes(b.StartTime)
	if err != nil {
		return false, err
	}
	bEnd, err := ParseClockToMinutes(b.EndTime)
	if err != nil {
		return false, err
	}
	return Overlaps(Interval{aStart, aEnd}, Interval{bStart, bEnd}), nil
}

// GenerateSlots expands the windows matching the date's weekday into start
// times at StepMinutes stride. A slot is emitted only when the full stride
// fits inside the window (slot end <= window end). Blocked windows and
// windows for other weekdays are skipped; with no matching window the result
// is empty.
func GenerateSlots(windows []models.AvailabilityWindow, date time.Time) ([]time.Time, error) {
	day := int(date.Weekday())
	year, month, dom := date.Date()
	loc := date.Location()

	slots := make([]time.Time, 0)
	for _, w := range windows {
		if w.DayOfWeek != day || w.IsBlocked {
			continue
		}
		startMin, err := ParseClockToMinutes(w.StartTime)
		if err != nil {
			return nil, err
		}
		endMin, err := ParseClockToMinutes(w.EndTime)
		if err != nil {
			return nil, err
		}
		for cursor := startMin; cursor+StepMinutes <= endMin; cursor += StepMinutes {
			slots = append(slots, time.Date(year, month, dom, cursor/60, cursor%60, 0, 0, loc))
		}
	}
	return slots, nil
}

// Interval is a half-open [Start, End) range in minutes.
type Interval struct {
	Start int
	End   int
}

// Overlaps reports whether two half-open intervals intersect.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// TimeOverlaps reports whether [aStart, aEnd) intersects [bStart, bEnd).
func TimeOverlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Slot pairs a candidate start time with its availability after masking
// against existing appointments.
type Slot struct {
	Time      time.Time `json:"time"`
	Available bool      `json:"available"`
}

// MaskBooked marks as unavailable every slot whose [start, start+duration)
// interval intersects an active appointment's interval. The booked slices
// must contain only active appointments for the target doctor.
func MaskBooked(slots []time.Time, duration time.Duration, booked []models.Appointment) []Slot {
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		end := s.Add(duration)
		free := true
		for _, appt := range booked {
			if TimeOverlaps(s, end, appt.ScheduledAt, appt.End()) {
				free = false
				break
			}
		}
		out = append(out, Slot{Time: s, Available: free})
	}
	return out
}
