package core

import (
	"fmt"
	"time"
)

// WindowKind tags which temporal window a query resolved to.
type WindowKind int

const (
	WindowNone WindowKind = iota
	WindowDay
	WindowMonth
	WindowYear
)

// Window is the inclusive temporal range a list query is restricted to.
type Window struct {
	Kind  WindowKind
	Day   Date
	Year  int
	Month time.Month
}

func AllTime() Window { return Window{Kind: WindowNone} }

func OnDay(d Date) Window { return Window{Kind: WindowDay, Day: d} }

func InMonth(year int, month time.Month) Window {
	return Window{Kind: WindowMonth, Year: year, Month: month}
}

func InYear(year int) Window { return Window{Kind: WindowYear, Year: year} }

// Range returns the window bounds in loc: start at 00:00:00.000 of the first
// day and end at 23:59:59.999 of the last day. ok is false for WindowNone.
func (w Window) Range(loc *time.Location) (start, end time.Time, ok bool) {
	switch w.Kind {
	case WindowDay:
		y, m, d := w.Day.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc), endOfDay(y, m, d, loc), true
	case WindowMonth:
		// Day 0 of the next month normalises to the last day of this one.
		return time.Date(w.Year, w.Month, 1, 0, 0, 0, 0, loc), endOfDay(w.Year, w.Month+1, 0, loc), true
	case WindowYear:
		return time.Date(w.Year, time.January, 1, 0, 0, 0, 0, loc), endOfDay(w.Year, time.December, 31, loc), true
	}
	return time.Time{}, time.Time{}, false
}

func endOfDay(y int, m time.Month, d int, loc *time.Location) time.Time {
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), loc)
}

// Days returns the first and last calendar day covered by the window, the
// form stores use to translate it into a native range predicate.
func (w Window) Days() (first, last Date, ok bool) {
	start, end, ok := w.Range(time.UTC)
	if !ok {
		return Date{}, Date{}, false
	}
	return NewDate(start.Date()), NewDate(end.Date()), true
}

// Contains reports whether the calendar day d falls inside the window.
func (w Window) Contains(d Date) bool {
	start, end, ok := w.Range(time.Local)
	if !ok {
		return true
	}
	t := d.In(time.Local)
	return !t.Before(start) && !t.After(end)
}

func (w Window) String() string {
	switch w.Kind {
	case WindowDay:
		return "day:" + w.Day.String()
	case WindowMonth:
		return fmt.Sprintf("month:%04d-%02d", w.Year, int(w.Month))
	case WindowYear:
		return fmt.Sprintf("year:%04d", w.Year)
	}
	return "all"
}
