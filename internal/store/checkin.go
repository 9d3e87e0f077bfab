package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/trackify/internal/calendar"
	"github.com/dukerupert/trackify/internal/model"
)

// CheckInStore persists check-ins. A check-in is never updated once written.
type CheckInStore struct {
	db *sql.DB
}

func NewCheckInStore(db *sql.DB) *CheckInStore {
	return &CheckInStore{db: db}
}

func scanCheckIn(row scanner) (*model.CheckIn, error) {
	var c model.CheckIn
	var checkedAt string
	if err := row.Scan(&c.ID, &c.HabitID, &c.UserID, &checkedAt, &c.Date, &c.PeriodKey); err != nil {
		return nil, err
	}
	t, err := parseTime(checkedAt)
	if err != nil {
		return nil, err
	}
	c.Timestamp = t
	return &c, nil
}

const checkInCols = `id, habit_id, user_id, checked_at, date, period_key`

// Create inserts c as given. A second check-in for the same habit and period
// key yields ErrConflict.
func (s *CheckInStore) Create(ctx context.Context, c model.CheckIn) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO check_ins (id, habit_id, user_id, checked_at, date, period_key) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.HabitID, c.UserID, formatTime(c.Timestamp), c.Date, c.PeriodKey,
	)
	if err != nil {
		return wrapWrite("insert check-in", err)
	}
	return nil
}

// FindInWindow returns the first check-in for the habit with a timestamp in w,
// or nil.
func (s *CheckInStore) FindInWindow(ctx context.Context, habitID string, w calendar.Window) (*model.CheckIn, error) {
	c, err := scanCheckIn(s.db.QueryRowContext(ctx,
		`SELECT `+checkInCols+` FROM check_ins
		 WHERE habit_id = ? AND checked_at >= ? AND checked_at < ?
		 ORDER BY checked_at ASC LIMIT 1`,
		habitID, formatTime(w.Start), formatTime(w.End),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find check-in in window: %w", err)
	}
	return c, nil
}

// MostRecent returns the habit's latest check-in, or nil.
func (s *CheckInStore) MostRecent(ctx context.Context, habitID string) (*model.CheckIn, error) {
	c, err := scanCheckIn(s.db.QueryRowContext(ctx,
		`SELECT `+checkInCols+` FROM check_ins WHERE habit_id = ? ORDER BY checked_at DESC LIMIT 1`,
		habitID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest check-in: %w", err)
	}
	return c, nil
}

// CountSince counts the habit's check-ins at or after since.
func (s *CheckInStore) CountSince(ctx context.Context, habitID string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM check_ins WHERE habit_id = ? AND checked_at >= ?`,
		habitID, formatTime(since),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count check-ins: %w", err)
	}
	return n, nil
}

// ListByHabit returns the habit's check-ins, newest first.
func (s *CheckInStore) ListByHabit(ctx context.Context, habitID string) ([]model.CheckIn, error) {
	return s.list(ctx,
		`SELECT `+checkInCols+` FROM check_ins WHERE habit_id = ? ORDER BY checked_at DESC`,
		habitID,
	)
}

// ListByUser returns every check-in the user recorded, newest first.
func (s *CheckInStore) ListByUser(ctx context.Context, userID string) ([]model.CheckIn, error) {
	return s.list(ctx,
		`SELECT `+checkInCols+` FROM check_ins WHERE user_id = ? ORDER BY checked_at DESC`,
		userID,
	)
}

// ListByUserSince returns the user's check-ins at or after since, newest first.
func (s *CheckInStore) ListByUserSince(ctx context.Context, userID string, since time.Time) ([]model.CheckIn, error) {
	return s.list(ctx,
		`SELECT `+checkInCols+` FROM check_ins WHERE user_id = ? AND checked_at >= ? ORDER BY checked_at DESC`,
		userID, formatTime(since),
	)
}

func (s *CheckInStore) list(ctx context.Context, query string, args ...any) ([]model.CheckIn, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	defer rows.Close()

	var out []model.CheckIn
	for rows.Next() {
		c, err := scanCheckIn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan check-in: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// RecentCheckIn is a check-in labelled with its habit name for profiles.
type RecentCheckIn struct {
	ID         string    `json:"id"`
	HabitID    string    `json:"habitId"`
	HabitTitle string    `json:"habitTitle"`
	Timestamp  time.Time `json:"timestamp"`
}

// ListRecentByUser returns the user's latest check-ins with habit names.
func (s *CheckInStore) ListRecentByUser(ctx context.Context, userID string, limit int) ([]RecentCheckIn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.habit_id, COALESCE(h.name, 'Habit deleted'), c.checked_at
		 FROM check_ins c LEFT JOIN habits h ON h.id = c.habit_id
		 WHERE c.user_id = ? ORDER BY c.checked_at DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list recent check-ins: %w", err)
	}
	defer rows.Close()

	var out []RecentCheckIn
	for rows.Next() {
		var r RecentCheckIn
		var checkedAt string
		if err := rows.Scan(&r.ID, &r.HabitID, &r.HabitTitle, &checkedAt); err != nil {
			return nil, fmt.Errorf("scan recent check-in: %w", err)
		}
		if r.Timestamp, err = parseTime(checkedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListFeed returns the newest check-ins recorded by any of userIDs, joined
// with the author and habit. Streak is left zero for the caller to fill.
func (s *CheckInStore) ListFeed(ctx context.Context, userIDs []string, limit int) ([]model.FeedItem, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(userIDs)+1)
	for _, id := range userIDs {
		args = append(args, id)
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, u.id, u.username, u.email, h.id, h.name, h.category, h.frequency, c.checked_at
		 FROM check_ins c
		 JOIN users u ON u.id = c.user_id
		 JOIN habits h ON h.id = c.habit_id
		 WHERE c.user_id IN (`+placeholders(len(userIDs))+`)
		 ORDER BY c.checked_at DESC LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list feed: %w", err)
	}
	defer rows.Close()

	var out []model.FeedItem
	for rows.Next() {
		var f model.FeedItem
		var freq, checkedAt string
		if err := rows.Scan(&f.ID, &f.User.ID, &f.User.Username, &f.User.Email,
			&f.HabitID, &f.Habit, &f.Category, &freq, &checkedAt); err != nil {
			return nil, fmt.Errorf("scan feed item: %w", err)
		}
		f.Frequency = calendar.Frequency(freq)
		if f.Timestamp, err = parseTime(checkedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
