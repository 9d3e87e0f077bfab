package stats

import (
	"math"
	"sort"
	"time"

	"github.com/dukerupert/trackify/internal/calendar"
	"github.com/dukerupert/trackify/internal/model"
)

// MaxLevel is the highest heatmap intensity tier.
const MaxLevel = 4

// Entry is a raw activity record as received from storage or a client.
type Entry struct {
	HabitID string
	Date    calendar.CanonicalDate
}

// EntriesFromCheckIns prefers the stored day string and falls back to the
// timestamp when it is missing.
func EntriesFromCheckIns(checkIns []model.CheckIn) []Entry {
	entries := make([]Entry, 0, len(checkIns))
	for _, c := range checkIns {
		d := calendar.Instant(c.Timestamp)
		if c.Date != "" {
			d = calendar.Raw(c.Date)
		}
		entries = append(entries, Entry{HabitID: c.HabitID, Date: d})
	}
	return entries
}

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
	Level int    `json:"level"`
}

// distinctByDay maps each canonical day to the set of habit ids seen on it.
// Entries without a habit id or with an unreadable date are dropped.
func distinctByDay(entries []Entry, cal calendar.Calendar) map[string]map[string]struct{} {
	byDay := make(map[string]map[string]struct{})
	for _, e := range entries {
		if e.HabitID == "" {
			continue
		}
		day, ok := cal.Normalize(e.Date)
		if !ok {
			continue
		}
		set, ok := byDay[day]
		if !ok {
			set = make(map[string]struct{})
			byDay[day] = set
		}
		set[e.HabitID] = struct{}{}
	}
	return byDay
}

// BucketByDay counts distinct habits per canonical day, oldest day first.
// Two entries for the same habit on the same day count once.
func BucketByDay(entries []Entry, cal calendar.Calendar) []DayCount {
	byDay := distinctByDay(entries, cal)
	out := make([]DayCount, 0, len(byDay))
	for day, set := range byDay {
		out = append(out, DayCount{Date: day, Count: len(set), Level: level(len(set))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Heatmap returns a dense series of the trailing days ending at end, with
// zero entries for days without activity.
func Heatmap(entries []Entry, end time.Time, days int, cal calendar.Calendar) []DayCount {
	if days <= 0 {
		return []DayCount{}
	}
	byDay := distinctByDay(entries, cal)
	last := cal.StartOfDay(end)
	out := make([]DayCount, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := cal.Day(cal.AddDays(last, -i))
		n := len(byDay[day])
		out = append(out, DayCount{Date: day, Count: n, Level: level(n)})
	}
	return out
}

func level(count int) int {
	return min(count, MaxLevel)
}

type RingDay struct {
	DayLabel       string `json:"dayLabel"`
	Date           string `json:"date"`
	CompletedCount int    `json:"completedCount"`
	TotalHabits    int    `json:"totalHabits"`
	Percentage     int    `json:"percentage"`
	IsToday        bool   `json:"isToday"`
}

// WeeklyRing reports per-day completion for the seven days ending at today,
// oldest first.
func WeeklyRing(entries []Entry, totalHabits int, today time.Time, cal calendar.Calendar) []RingDay {
	byDay := distinctByDay(entries, cal)
	last := cal.StartOfDay(today)
	ring := make([]RingDay, 0, 7)
	for i := 6; i >= 0; i-- {
		d := cal.AddDays(last, -i)
		key := cal.Day(d)
		completed := len(byDay[key])
		pct := 0
		if totalHabits > 0 {
			pct = int(math.Round(math.Min(float64(completed)/float64(totalHabits)*100, 100)))
		}
		ring = append(ring, RingDay{
			DayLabel:       d.Weekday().String()[:3],
			Date:           key,
			CompletedCount: completed,
			TotalHabits:    totalHabits,
			Percentage:     pct,
			IsToday:        i == 0,
		})
	}
	return ring
}

// Overview rolls decorated habits up into profile totals.
type Overview struct {
	TotalHabits       int            `json:"totalHabits"`
	CompletedToday    int            `json:"completedToday"`
	ActiveStreaks     int            `json:"activeStreaks"`
	TotalStreak       int            `json:"totalStreak"`
	AverageCompletion int            `json:"averageCompletion"`
	ByCategory        map[string]int `json:"byCategory"`
}

func Summarize(habits []HabitWithStats) Overview {
	o := Overview{TotalHabits: len(habits), ByCategory: make(map[string]int)}
	rateSum := 0
	for _, h := range habits {
		if h.CompletedToday {
			o.CompletedToday++
		}
		if h.Streak > 0 {
			o.ActiveStreaks++
		}
		o.TotalStreak += h.Streak
		rateSum += h.CompletionRate
		o.ByCategory[h.Category]++
	}
	if len(habits) > 0 {
		o.AverageCompletion = int(math.Round(float64(rateSum) / float64(len(habits))))
	}
	return o
}
