package stats

import (
	"context"
	"math"
	"time"

	"github.com/dukerupert/trackify/internal/calendar"
	"github.com/dukerupert/trackify/internal/model"
)

// RateWindowDays is the trailing window, in days, used for completion rate.
const RateWindowDays = 30

// Summary holds the per-habit values derived from check-in history. Nothing
// here is persisted; it is recomputed on every read.
type Summary struct {
	CompletedToday bool `json:"completedToday"`
	Streak         int  `json:"streak"`
	CompletionRate int  `json:"completionRate"`
}

type HabitWithStats struct {
	model.Habit
	Summary
}

// CheckInSource is the slice of the check-in store the aggregator reads.
// Every lookup is scoped to one habit.
type CheckInSource interface {
	FindInWindow(ctx context.Context, habitID string, w calendar.Window) (*model.CheckIn, error)
	MostRecent(ctx context.Context, habitID string) (*model.CheckIn, error)
	CountSince(ctx context.Context, habitID string, since time.Time) (int, error)
}

// Aggregate computes the Summary for habit as of now with targeted lookups
// instead of its full history.
func Aggregate(ctx context.Context, src CheckInSource, habit model.Habit, now time.Time, cal calendar.Calendar) (Summary, error) {
	var sum Summary

	current, err := src.FindInWindow(ctx, habit.ID, cal.PeriodWindow(habit.Frequency, now))
	if err != nil {
		return sum, err
	}
	sum.CompletedToday = current != nil && !current.Timestamp.After(now)

	if sum.Streak, err = Streak(ctx, src, habit.ID, now, cal); err != nil {
		return sum, err
	}

	n, err := src.CountSince(ctx, habit.ID, now.Add(-RateWindowDays*24*time.Hour))
	if err != nil {
		return sum, err
	}
	sum.CompletionRate = RateFromCount(n)
	return sum, nil
}

// Streak counts consecutive days with a check-in, walking backward from the
// day of the most recent check-in (not from today). Any history therefore
// yields at least 1, however stale. Weekly habits use the same day walk.
// A check-in dated after today starts the walk at today.
func Streak(ctx context.Context, src CheckInSource, habitID string, now time.Time, cal calendar.Calendar) (int, error) {
	latest, err := src.MostRecent(ctx, habitID)
	if err != nil || latest == nil {
		return 0, err
	}

	day := cal.StartOfDay(latest.Timestamp)
	if today := cal.StartOfDay(now); day.After(today) {
		day = today
	}
	streak := 0
	for {
		c, err := src.FindInWindow(ctx, habitID, cal.DayWindow(day))
		if err != nil {
			return 0, err
		}
		if c == nil {
			return streak, nil
		}
		streak++
		day = cal.AddDays(day, -1)
	}
}

// RateFromCount converts a check-in count over the trailing window into a
// whole percentage capped at 100. The denominator is always RateWindowDays,
// whatever the habit frequency.
func RateFromCount(count int) int {
	rate := int(math.Round(float64(count) / RateWindowDays * 100))
	return min(max(rate, 0), 100)
}
