package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/trackify/internal/calendar"
	"github.com/dukerupert/trackify/internal/model"
)

type HabitStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewHabitStore(db *sql.DB) *HabitStore {
	return &HabitStore{db: db, now: time.Now}
}

func scanHabit(row scanner) (*model.Habit, error) {
	var h model.Habit
	var freq, createdAt string
	if err := row.Scan(&h.ID, &h.UserID, &h.Name, &freq, &h.Category, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	h.Frequency = calendar.Frequency(freq)
	h.CreatedAt = t
	return &h, nil
}

const habitCols = `id, user_id, name, frequency, category, created_at`

// Create inserts a habit. A name already used by the same owner yields
// ErrConflict.
func (s *HabitStore) Create(ctx context.Context, userID, name string, freq calendar.Frequency, category string) (*model.Habit, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO habits (id, user_id, name, frequency, category, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, userID, name, string(freq), category, formatTime(s.now()),
	)
	if err != nil {
		return nil, wrapWrite("insert habit", err)
	}
	return s.GetByID(ctx, id)
}

func (s *HabitStore) GetByID(ctx context.Context, id string) (*model.Habit, error) {
	h, err := scanHabit(s.db.QueryRowContext(ctx, `SELECT `+habitCols+` FROM habits WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return h, nil
}

// ListByUser returns the user's habits, newest first and then by name.
func (s *HabitStore) ListByUser(ctx context.Context, userID string) ([]model.Habit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+habitCols+` FROM habits WHERE user_id = ? ORDER BY created_at DESC, name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	defer rows.Close()

	var habits []model.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan habit: %w", err)
		}
		habits = append(habits, *h)
	}
	return habits, rows.Err()
}

func (s *HabitStore) Update(ctx context.Context, id, name string, freq calendar.Frequency, category string) (*model.Habit, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE habits SET name = ?, frequency = ?, category = ? WHERE id = ?`,
		name, string(freq), category, id,
	)
	if err != nil {
		return nil, wrapWrite("update habit", err)
	}
	return s.GetByID(ctx, id)
}

// Delete removes the habit and every check-in recorded against it.
func (s *HabitStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM check_ins WHERE habit_id = ?`, id); err != nil {
		return fmt.Errorf("delete check-ins: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM habits WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete habit: %w", err)
	}
	return tx.Commit()
}

// CountByUser returns how many habits the user owns.
func (s *HabitStore) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM habits WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count habits: %w", err)
	}
	return n, nil
}
