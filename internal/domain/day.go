package domain

import (
	"errors"
	"fmt"
	"time"
)

// DayLayout is the fixed-width, lexically sortable format of a logical day.
const DayLayout = "2006-01-02"

// DefaultDayBoundary is the local hour at which a new logical day starts.
const DefaultDayBoundary = 6

// ErrInvalidDay is returned when a day string is not a valid YYYY-MM-DD date.
var ErrInvalidDay = errors.New("invalid day")

// Day identifies a logical accounting day. The zero value is not a valid day.
type Day string

// ParseDay validates and normalises a YYYY-MM-DD string.
func ParseDay(value string) (Day, error) {
	t, err := time.Parse(DayLayout, value)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDay, value)
	}
	return Day(t.Format(DayLayout)), nil
}

func (d Day) String() string { return string(d) }

// Date returns midnight UTC of the calendar date named by d.
func (d Day) Date() time.Time {
	t, _ := time.Parse(DayLayout, string(d))
	return t
}

// AddDays shifts d by n calendar days.
func (d Day) AddDays(n int) Day {
	return Day(d.Date().AddDate(0, 0, n).Format(DayLayout))
}

// Partitioner maps wall-clock instants onto logical days whose boundary is
// Boundary o'clock in Location rather than midnight.
type Partitioner struct {
	Boundary int
	Location *time.Location
}

// NewPartitioner validates the boundary hour. A nil location means UTC.
func NewPartitioner(boundary int, loc *time.Location) (Partitioner, error) {
	if boundary < 0 || boundary > 23 {
		return Partitioner{}, fmt.Errorf("day boundary hour must be within 0..23, got %d", boundary)
	}
	if loc == nil {
		loc = time.UTC
	}
	return Partitioner{Boundary: boundary, Location: loc}, nil
}

func (p Partitioner) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// DayOf returns the logical day containing t. Instants before the boundary
// hour belong to the previous calendar day.
func (p Partitioner) DayOf(t time.Time) Day {
	local := t.In(p.location())
	if local.Hour() < p.Boundary {
		local = local.AddDate(0, 0, -1)
	}
	return Day(local.Format(DayLayout))
}

// Start returns the instant at which day d begins.
func (p Partitioner) Start(d Day) time.Time {
	date := d.Date()
	return time.Date(date.Year(), date.Month(), date.Day(), p.Boundary, 0, 0, 0, p.location())
}
