// Package interval holds the time arithmetic shared by availability and
// booking: vendor-local clock values, absolute spans, overlap and
// containment tests, and the free-slot walk used to build alternatives.
package interval

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// MinutesPerDay is the clock value of the midnight that ends a day.
const MinutesPerDay = 24 * 60

var ErrInvalidClock = errors.New("invalid clock value")

// Clock is a vendor-local time of day in minutes since midnight.
type Clock int

// ParseClock accepts "HH:MM" or "HH:MM:SS". "24:00" is allowed as the end of a day.
func ParseClock(s string) (Clock, error) {
	var h, m, sec int
	n, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec)
	if err != nil && n < 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return Clock(h*60 + m), nil
}

// ClockSince returns t as minutes past the midnight that starts day.
// Values past MinutesPerDay mean t lies on a following day.
func ClockSince(day, t time.Time) Clock {
	return Clock(t.Sub(Day(day)) / time.Minute)
}

func (c Clock) On(day time.Time) time.Time {
	return Day(day).Add(time.Duration(c) * time.Minute)
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Day truncates t to the midnight of its calendar date in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Wall keeps t's clock reading and drops its zone. Booking times are
// vendor-local clock values and are stored and compared in this form.
func Wall(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b.In(a.Location())))
}

// Span is the half-open interval [Start, End).
type Span struct {
	Start time.Time
	End   time.Time
}

func (s Span) Valid() bool {
	return s.End.After(s.Start)
}

func (s Span) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Days lists the calendar dates s touches, earliest first. The end instant
// itself is excluded, so a span ending at midnight stays on one date.
func (s Span) Days() []time.Time {
	first := Day(s.Start)
	last := first
	if s.Valid() {
		last = Day(s.End.Add(-time.Nanosecond))
	}

	days := []time.Time{first}
	for d := first.AddDate(0, 0, 1); !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Overlaps reports whether s and o share any instant. Spans that only touch
// at a boundary do not overlap.
func (s Span) Overlaps(o Span) bool {
	return s.Start.Before(o.End) && o.Start.Before(s.End)
}

// Contains reports whether o lies entirely inside s, boundaries included.
func (s Span) Contains(o Span) bool {
	return !o.Start.Before(s.Start) && !o.End.After(s.End)
}

// WindowSpan resolves a pair of clock values against day. An end before the
// start is an overnight window and runs into the following day.
func WindowSpan(day time.Time, start, end Clock) Span {
	span := Span{Start: start.On(day), End: end.On(day)}
	if end < start {
		span.End = end.On(Day(day).AddDate(0, 0, 1))
	}
	return span
}

// FreeSlots walks busy left to right inside bounds and returns, for every gap
// of at least d, one candidate of exactly d anchored at the start of the gap.
func FreeSlots(bounds Span, busy []Span, d time.Duration) []Span {
	if d <= 0 || !bounds.Valid() {
		return nil
	}

	sorted := make([]Span, len(busy))
	copy(sorted, busy)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	var out []Span
	cursor := bounds.Start
	for _, b := range sorted {
		gapEnd := b.Start
		if gapEnd.After(bounds.End) {
			gapEnd = bounds.End
		}
		if gapEnd.Sub(cursor) >= d {
			out = append(out, Span{Start: cursor, End: cursor.Add(d)})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
	}
	if bounds.End.Sub(cursor) >= d {
		out = append(out, Span{Start: cursor, End: cursor.Add(d)})
	}
	return out
}

// Suggestion is the display form of a free or open window.
type Suggestion struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	DurationHours float64   `json:"duration_hours"`
}

func (s Span) Suggestion() Suggestion {
	return Suggestion{
		Start:         s.Start,
		End:           s.End,
		DurationHours: s.Duration().Hours(),
	}
}

// Suggestions drops duplicate spans and returns them sorted by start time.
func Suggestions(spans []Span) []Suggestion {
	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].End.Before(sorted[j].End)
		}
		return sorted[i].Start.Before(sorted[j].Start)
	})

	out := make([]Suggestion, 0, len(sorted))
	for i, s := range sorted {
		if i > 0 && s.Start.Equal(sorted[i-1].Start) && s.End.Equal(sorted[i-1].End) {
			continue
		}
		out = append(out, s.Suggestion())
	}
	return out
}
