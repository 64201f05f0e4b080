package core

import (
	"bytes"
	"strings"
	"time"
)

// DayLayout is the wire format for calendar days.
const DayLayout = "2006-01-02"

// dateLayouts are tried in order when parsing date cells. Fractional
// seconds are accepted after any seconds field.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-0700",
	"2006-01-02 15:04:05-07",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05-07",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	DayLayout,
	"01/02/2006",
}

// Date is a calendar day; the zero value means "missing".
type Date struct {
	time.Time
}

// NewDate returns the calendar day y-m-d.
func NewDate(y int, m time.Month, d int) Date {
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date cell. It returns a zero Date and false when no
// known layout matches. Time-of-day and zone are dropped: the calendar day
// written in the cell is kept.
func ParseDate(s string) (Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t.Date()), true
		}
	}
	return Date{}, false
}

// IsEmpty reports whether the date is missing.
func (d Date) IsEmpty() bool { return d.Time.IsZero() }

// StartOfDay normalises to midnight UTC of the same calendar day.
func (d Date) StartOfDay() Date {
	if d.IsEmpty() {
		return d
	}
	return NewDate(d.Date())
}

// StartOfMonth returns the first day of d's month.
func (d Date) StartOfMonth() Date {
	if d.IsEmpty() {
		return d
	}
	return NewDate(d.Year(), d.Month(), 1)
}

// Before compares calendar days.
func (d Date) Before(o Date) bool { return d.StartOfDay().Time.Before(o.StartOfDay().Time) }

// After compares calendar days.
func (d Date) After(o Date) bool { return d.StartOfDay().Time.After(o.StartOfDay().Time) }

func (d Date) String() string {
	if d.IsEmpty() {
		return ""
	}
	return d.Format(DayLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsEmpty() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(DayLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	s := string(bytes.Trim(b, `"`))
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, ok := ParseDate(s)
	if !ok {
		return ErrInvalidDate
	}
	*d = parsed
	return nil
}
