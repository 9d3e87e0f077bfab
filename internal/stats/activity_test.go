package stats

import (
	"testing"
	"time"

	"github.com/dukerupert/trackify/internal/calendar"
	"github.com/dukerupert/trackify/internal/model"
)

func TestBucketByDayCountsDistinctHabits(t *testing.T) {
	entries := []Entry{
		{HabitID: "a", Date: calendar.Raw("2026-02-05")},
		{HabitID: "a", Date: calendar.Raw("2026-02-05T18:00:00Z")}, // duplicate for habit a
		{HabitID: "b", Date: calendar.Instant(time.Date(2026, 2, 5, 7, 0, 0, 0, time.UTC))},
		{HabitID: "a", Date: calendar.Raw("2026-02-03")},
	}

	got := BucketByDay(entries, utc)
	want := []DayCount{
		{Date: "2026-02-03", Count: 1, Level: 1},
		{Date: "2026-02-05", Count: 2, Level: 2},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d buckets, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bucket[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestBucketByDaySkipsMalformed(t *testing.T) {
	entries := []Entry{
		{HabitID: "a", Date: calendar.Raw("not a date")},
		{HabitID: "", Date: calendar.Raw("2026-02-05")},
		{HabitID: "b", Date: calendar.Instant(time.Time{})},
		{HabitID: "c", Date: calendar.Raw("2026-02-05")},
	}

	got := BucketByDay(entries, utc)
	if len(got) != 1 || got[0].Count != 1 {
		t.Errorf("got %+v, want a single bucket with count 1", got)
	}
}

func TestBucketLevelCapped(t *testing.T) {
	var entries []Entry
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		entries = append(entries, Entry{HabitID: id, Date: calendar.Raw("2026-02-05")})
	}

	got := BucketByDay(entries, utc)
	if got[0].Count != 6 {
		t.Errorf("count = %d, want 6", got[0].Count)
	}
	if got[0].Level != MaxLevel {
		t.Errorf("level = %d, want %d", got[0].Level, MaxLevel)
	}
}

func TestEntriesFromCheckInsPrefersDate(t *testing.T) {
	// Stored date disagrees with the timestamp; the stored day wins.
	checkIns := []model.CheckIn{
		{HabitID: "a", Timestamp: time.Date(2026, 2, 5, 23, 0, 0, 0, time.UTC), Date: "2026-02-06"},
		{HabitID: "b", Timestamp: time.Date(2026, 2, 5, 23, 0, 0, 0, time.UTC)},
	}

	got := BucketByDay(EntriesFromCheckIns(checkIns), utc)
	if len(got) != 2 {
		t.Fatalf("got %+v", got)
	}
	if got[0].Date != "2026-02-05" || got[1].Date != "2026-02-06" {
		t.Errorf("dates = %s, %s", got[0].Date, got[1].Date)
	}
}

func TestHeatmapDense(t *testing.T) {
	entries := []Entry{
		{HabitID: "a", Date: calendar.Raw("2026-02-03")},
		{HabitID: "a", Date: calendar.Raw("2026-02-05")},
		{HabitID: "a", Date: calendar.Raw("2026-01-01")}, // outside range
	}

	got := Heatmap(entries, time.Date(2026, 2, 5, 15, 0, 0, 0, time.UTC), 4, utc)
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	wantDates := []string{"2026-02-02", "2026-02-03", "2026-02-04", "2026-02-05"}
	wantCounts := []int{0, 1, 0, 1}
	for i := range got {
		if got[i].Date != wantDates[i] || got[i].Count != wantCounts[i] {
			t.Errorf("day[%d] = %+v, want %s/%d", i, got[i], wantDates[i], wantCounts[i])
		}
	}

	if empty := Heatmap(entries, time.Now(), 0, utc); len(empty) != 0 {
		t.Errorf("zero days should be empty, got %d", len(empty))
	}
}

func TestWeeklyRing(t *testing.T) {
	today := time.Date(2026, 2, 8, 9, 0, 0, 0, time.UTC) // Sunday
	entries := []Entry{
		{HabitID: "a", Date: calendar.Raw("2026-02-08")},
		{HabitID: "b", Date: calendar.Raw("2026-02-08")},
		{HabitID: "b", Date: calendar.Raw("2026-02-08")},
		{HabitID: "a", Date: calendar.Raw("2026-02-02")},
		{HabitID: "a", Date: calendar.Raw("2026-02-01")}, // eight days back
	}

	ring := WeeklyRing(entries, 3, today, utc)
	if len(ring) != 7 {
		t.Fatalf("len = %d, want 7", len(ring))
	}
	if ring[0].DayLabel != "Mon" || ring[0].Date != "2026-02-02" {
		t.Errorf("first = %+v, want Monday 2026-02-02", ring[0])
	}
	if ring[0].CompletedCount != 1 || ring[0].Percentage != 33 {
		t.Errorf("monday = %+v, want 1/33%%", ring[0])
	}
	last := ring[6]
	if !last.IsToday || last.DayLabel != "Sun" {
		t.Errorf("last = %+v, want today Sunday", last)
	}
	if last.CompletedCount != 2 || last.Percentage != 67 || last.TotalHabits != 3 {
		t.Errorf("today = %+v, want 2 of 3 at 67%%", last)
	}
	for _, d := range ring[:6] {
		if d.IsToday {
			t.Errorf("%s marked today", d.Date)
		}
	}
}

func TestWeeklyRingNoHabits(t *testing.T) {
	entries := []Entry{{HabitID: "a", Date: calendar.Raw("2026-02-08")}}

	ring := WeeklyRing(entries, 0, time.Date(2026, 2, 8, 9, 0, 0, 0, time.UTC), utc)
	if ring[6].Percentage != 0 {
		t.Errorf("percentage = %d, want 0 without habits", ring[6].Percentage)
	}
}

func TestWeeklyRingPercentageCapped(t *testing.T) {
	entries := []Entry{
		{HabitID: "a", Date: calendar.Raw("2026-02-08")},
		{HabitID: "deleted", Date: calendar.Raw("2026-02-08")},
	}

	ring := WeeklyRing(entries, 1, time.Date(2026, 2, 8, 9, 0, 0, 0, time.UTC), utc)
	if ring[6].Percentage != 100 {
		t.Errorf("percentage = %d, want 100", ring[6].Percentage)
	}
}

func TestSummarize(t *testing.T) {
	habits := []HabitWithStats{
		{Habit: model.Habit{Category: "Health"}, Summary: Summary{CompletedToday: true, Streak: 3, CompletionRate: 50}},
		{Habit: model.Habit{Category: "Health"}, Summary: Summary{Streak: 0, CompletionRate: 0}},
		{Habit: model.Habit{Category: "Learning"}, Summary: Summary{Streak: 1, CompletionRate: 25}},
	}

	o := Summarize(habits)
	if o.TotalHabits != 3 || o.CompletedToday != 1 || o.ActiveStreaks != 2 || o.TotalStreak != 4 {
		t.Errorf("overview = %+v", o)
	}
	if o.AverageCompletion != 25 {
		t.Errorf("average = %d, want 25", o.AverageCompletion)
	}
	if o.ByCategory["Health"] != 2 || o.ByCategory["Learning"] != 1 {
		t.Errorf("by category = %v", o.ByCategory)
	}
}
