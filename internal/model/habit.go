package model

import (
	"time"

	"github.com/dukerupert/trackify/internal/calendar"
)

const DefaultCategory = "General"

type Habit struct {
	ID        string             `json:"id"`
	UserID    string             `json:"userId"`
	Name      string             `json:"name"`
	Frequency calendar.Frequency `json:"frequency"`
	Category  string             `json:"category"`
	CreatedAt time.Time          `json:"createdAt"`
}

type CheckIn struct {
	ID        string    `json:"id"`
	HabitID   string    `json:"habitId"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
	Date      string    `json:"date"`
	PeriodKey string    `json:"-"`
}

// FeedItem is a followed user's check-in projected for display.
type FeedItem struct {
	ID        string             `json:"id"`
	User      UserSummary        `json:"user"`
	HabitID   string             `json:"habitId"`
	Habit     string             `json:"habit"`
	Category  string             `json:"category"`
	Frequency calendar.Frequency `json:"frequency"`
	Streak    int                `json:"streak"`
	Timestamp time.Time          `json:"timestamp"`
}
