// Package calendar turns instants into canonical days and period windows.
// Every day string in the system is produced here, in one fixed location,
// so writes and reads bucket identically.
package calendar

import (
	"fmt"
	"time"
)

// DateLayout is the canonical day format.
const DateLayout = "2006-01-02"

type Frequency string

const (
	Daily  Frequency = "daily"
	Weekly Frequency = "weekly"
)

func (f Frequency) Valid() bool {
	return f == Daily || f == Weekly
}

// Window is a half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies in [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Calendar fixes the location used for day boundaries.
type Calendar struct {
	loc *time.Location
}

// New returns a Calendar for loc. A nil loc means UTC.
func New(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{loc: loc}
}

// Load resolves an IANA zone name. Empty means UTC.
func Load(name string) (Calendar, error) {
	if name == "" || name == "UTC" {
		return New(time.UTC), nil
	}
	if name == "Local" {
		return New(time.Local), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Calendar{}, fmt.Errorf("load location %q: %w", name, err)
	}
	return New(loc), nil
}

func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// StartOfDay returns midnight of the day containing t.
func (c Calendar) StartOfDay(t time.Time) time.Time {
	t = t.In(c.Location())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.Location())
}

// AddDays moves a midnight by n calendar days. Uses the date arithmetic rather
// than 24h steps so DST transitions keep landing on midnight.
func (c Calendar) AddDays(day time.Time, n int) time.Time {
	day = day.In(c.Location())
	return time.Date(day.Year(), day.Month(), day.Day()+n, 0, 0, 0, 0, c.Location())
}

// Day formats t as a canonical day string.
func (c Calendar) Day(t time.Time) string {
	return t.In(c.Location()).Format(DateLayout)
}

// ParseDay parses a canonical day string into its midnight.
func (c Calendar) ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, c.Location())
}

func (c Calendar) DayWindow(t time.Time) Window {
	start := c.StartOfDay(t)
	return Window{Start: start, End: c.AddDays(start, 1)}
}

// WeekWindow returns the ISO week (Monday start) containing t.
func (c Calendar) WeekWindow(t time.Time) Window {
	start := c.StartOfDay(t)
	back := (int(start.Weekday()) + 6) % 7
	monday := c.AddDays(start, -back)
	return Window{Start: monday, End: c.AddDays(monday, 7)}
}

// PeriodWindow returns the current period window for a habit frequency.
// Unknown frequencies fall back to daily.
func (c Calendar) PeriodWindow(f Frequency, t time.Time) Window {
	if f == Weekly {
		return c.WeekWindow(t)
	}
	return c.DayWindow(t)
}

// PeriodKey identifies the period containing t: the canonical day for daily
// habits, the ISO week ("2026-W07") for weekly ones.
func (c Calendar) PeriodKey(f Frequency, t time.Time) string {
	if f == Weekly {
		year, week := t.In(c.Location()).ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	}
	return c.Day(t)
}
