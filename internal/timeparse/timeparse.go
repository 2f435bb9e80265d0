// Package timeparse converts the date and time fragments users type into
// time values. All results are in the local zone.
package timeparse

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/anxi/internal/apperr"
)

// Layouts used for persistence and display.
const (
	SaveDateTimeLayout    = "2006-01-02 15:04"
	SaveClockLayout       = "15:04"
	DisplayDateTimeLayout = "Jan 02 2006 03:04 PM"
	DisplayClockLayout    = "03:04 PM"
)

// dateTimeLayouts are tried in order; the first that parses wins.
var dateTimeLayouts = []string{
	"2006-01-02 1504",
	"2006-01-02 15:04",
	"2/1/2006 1504",
	"2/1/2006 15:04",
	"2006-01-02",
	"2/1/2006",
}

var clockLayouts = []string{
	"1504",
	"15:04",
}

const dateTimeHint = "Use yyyy-MM-dd HHmm, yyyy-MM-dd or d/M/yyyy HHmm, e.g. 2019-10-15 1800."

const clockHint = "Use HHmm or HH:mm, e.g. 1800."

// ParseDateTime parses a date with an optional time of day. Date-only input
// resolves to the start of that day.
func ParseDateTime(text string) (time.Time, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, apperr.Validation("Missing date. "+dateTimeHint, apperr.ErrTimeFormat)
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.Validation(fmt.Sprintf("Cannot read date %q. %s", s, dateTimeHint), apperr.ErrTimeFormat)
}

// ParseTime parses a time of day.
func ParseTime(text string) (Clock, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return Clock{}, apperr.Validation("Missing time. "+clockHint, apperr.ErrTimeFormat)
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	return Clock{}, apperr.Validation(fmt.Sprintf("Cannot read time %q. %s", s, clockHint), apperr.ErrTimeFormat)
}

// Clock is a time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// Of returns the time of day of t.
func Of(t time.Time) Clock {
	return Clock{Hour: t.Hour(), Minute: t.Minute()}
}

func (c Clock) minutes() int {
	return c.Hour*60 + c.Minute
}

// Before reports whether c is strictly earlier in the day than o.
func (c Clock) Before(o Clock) bool {
	return c.minutes() < o.minutes()
}

// Format renders c with a time.Format layout.
func (c Clock) Format(layout string) string {
	return time.Date(0, time.January, 1, c.Hour, c.Minute, 0, 0, time.Local).Format(layout)
}

// String renders c as HH:mm.
func (c Clock) String() string {
	return c.Format(SaveClockLayout)
}

// On returns the instant c on the same day as day.
func (c Clock) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, day.Location())
}
