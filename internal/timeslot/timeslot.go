// Package timeslot provides an immutable half-open time interval bound to a
// timezone, constructible from a calendar date and two times of day.
package timeslot

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/ariefcatur/go-restaurant-booking/internal/apperr"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// TimeSlot is [start, end) in a named IANA timezone. The zero value is not
// a valid slot; use New or FromDate.
type TimeSlot struct {
	start time.Time
	end   time.Time
	tz    string
}

// New builds a slot from two instants; end must be strictly after start.
func New(start, end time.Time, tz string) (TimeSlot, error) {
	loc, err := load(tz)
	if err != nil {
		return TimeSlot{}, err
	}
	if !end.After(start) {
		return TimeSlot{}, apperr.Validation("ends_at", "end %s must be after start %s",
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return TimeSlot{start: start.In(loc), end: end.In(loc), tz: loc.String()}, nil
}

// FromDate builds a slot from a date (YYYY-MM-DD) and two times of day
// (HH:MM or HH:MM:SS) in tz. When timeTo's minute of day is not greater than
// timeFrom's, the end lands on the following calendar day; equal times give
// a 24h slot, never a zero-length one.
func FromDate(date, timeFrom, timeTo, tz string) (TimeSlot, error) {
	loc, err := load(tz)
	if err != nil {
		return TimeSlot{}, err
	}
	day, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return TimeSlot{}, apperr.Validation("date", "invalid date %q", date)
	}
	fromMin, fromSec, err := ParseTimeOfDay(timeFrom)
	if err != nil {
		return TimeSlot{}, apperr.Validation("time_from", "%v", err)
	}
	toMin, toSec, err := ParseTimeOfDay(timeTo)
	if err != nil {
		return TimeSlot{}, apperr.Validation("time_to", "%v", err)
	}

	y, m, d := day.Date()
	start := time.Date(y, m, d, fromMin/60, fromMin%60, fromSec, 0, loc)
	endDay := d
	if toMin <= fromMin {
		endDay++
	}
	end := time.Date(y, m, endDay, toMin/60, toMin%60, toSec, 0, loc)
	return TimeSlot{start: start, end: end, tz: loc.String()}, nil
}

// ParseTimeOfDay returns the minute of day and the seconds remainder.
func ParseTimeOfDay(v string) (minute, second int, err error) {
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, fmt.Errorf("invalid time of day %q", v)
	}
	nums := make([]int, 3)
	limits := []int{23, 59, 59}
	for i, p := range parts {
		n, convErr := strconv.Atoi(p)
		if convErr != nil || len(p) != 2 || n < 0 || n > limits[i] {
			return 0, 0, fmt.Errorf("invalid time of day %q", v)
		}
		nums[i] = n
	}
	return nums[0]*60 + nums[1], nums[2], nil
}

func load(tz string) (*time.Location, error) {
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, apperr.Validation("timezone", "unknown timezone %q", tz)
	}
	return loc, nil
}

func (s TimeSlot) StartsAt() time.Time { return s.start }
func (s TimeSlot) EndsAt() time.Time   { return s.end }
func (s TimeSlot) Timezone() string    { return s.tz }
func (s TimeSlot) IsZero() bool        { return s.start.IsZero() && s.end.IsZero() }

func (s TimeSlot) ToUTC() TimeSlot {
	return TimeSlot{start: s.start.UTC(), end: s.end.UTC(), tz: "UTC"}
}

func (s TimeSlot) ToTimezone(tz string) (TimeSlot, error) {
	loc, err := load(tz)
	if err != nil {
		return TimeSlot{}, err
	}
	return TimeSlot{start: s.start.In(loc), end: s.end.In(loc), tz: loc.String()}, nil
}

// Overlaps compares instants, so slots in different timezones compare
// correctly. Touching endpoints do not overlap.
func (s TimeSlot) Overlaps(o TimeSlot) bool {
	return s.start.Before(o.end) && o.start.Before(s.end)
}

// Contains reports start <= t < end.
func (s TimeSlot) Contains(t time.Time) bool {
	return !t.Before(s.start) && t.Before(s.end)
}

func (s TimeSlot) Duration() time.Duration { return s.end.Sub(s.start) }

func (s TimeSlot) DurationMinutes() int { return int(s.Duration() / time.Minute) }

// CrossesMidnight reports whether the slot ends on a later calendar day
// than it starts, in the slot's own timezone.
func (s TimeSlot) CrossesMidnight() bool {
	return s.StartDate() != s.EndDate()
}

func (s TimeSlot) StartDate() string { return s.start.Format(DateLayout) }
func (s TimeSlot) EndDate() string   { return s.end.Format(DateLayout) }
func (s TimeSlot) TimeFrom() string  { return s.start.Format(TimeLayout) }
func (s TimeSlot) TimeTo() string    { return s.end.Format(TimeLayout) }

// IsPast reports whether the slot started before now.
func (s TimeSlot) IsPast(now time.Time) bool { return s.start.Before(now) }

// Equal compares instants only.
func (s TimeSlot) Equal(o TimeSlot) bool {
	return s.start.Equal(o.start) && s.end.Equal(o.end)
}

func (s TimeSlot) String() string {
	return fmt.Sprintf("%s %s-%s (%s)", s.StartDate(), s.TimeFrom(), s.TimeTo(), s.tz)
}
