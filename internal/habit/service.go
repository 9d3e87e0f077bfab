// Package habit holds the rules around habits, check-ins and the follow
// graph. Stores do persistence; this package decides ownership, period
// uniqueness and what each read returns.
package habit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/trackify/internal/calendar"
	"github.com/dukerupert/trackify/internal/model"
	"github.com/dukerupert/trackify/internal/stats"
	"github.com/dukerupert/trackify/internal/store"
)

const (
	FeedLimit          = 50
	RecentCheckInLimit = 5
	SearchLimit        = 10
	SearchMinLength    = 2
	MaxNameLength      = 100
	MaxCategoryLength  = 50
)

type Stores struct {
	Users    *store.UserStore
	Habits   *store.HabitStore
	CheckIns *store.CheckInStore
	Follows  *store.FollowStore
}

type Service struct {
	users    *store.UserStore
	habits   *store.HabitStore
	checkIns *store.CheckInStore
	follows  *store.FollowStore
	cal      calendar.Calendar
	now      func() time.Time
}

func NewService(s Stores, cal calendar.Calendar) *Service {
	return &Service{
		users:    s.Users,
		habits:   s.Habits,
		checkIns: s.CheckIns,
		follows:  s.Follows,
		cal:      cal,
		now:      time.Now,
	}
}

func (s *Service) Calendar() calendar.Calendar { return s.cal }

// Input is the writable part of a habit. Nil fields are left unchanged on
// update and defaulted on create.
type Input struct {
	Name      *string             `json:"name"`
	Frequency *calendar.Frequency `json:"frequency"`
	Category  *string             `json:"category"`
}

func (s *Service) Create(ctx context.Context, userID string, in Input) (*model.Habit, error) {
	h := model.Habit{Frequency: calendar.Daily, Category: model.DefaultCategory}
	if err := apply(&h, in, true); err != nil {
		return nil, err
	}

	created, err := s.habits.Create(ctx, userID, h.Name, h.Frequency, h.Category)
	if errors.Is(err, store.ErrConflict) {
		return nil, ErrDuplicateName
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, userID, habitID string, in Input) (*model.Habit, error) {
	h, err := s.owned(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}
	if err := apply(h, in, false); err != nil {
		return nil, err
	}

	updated, err := s.habits.Update(ctx, h.ID, h.Name, h.Frequency, h.Category)
	if errors.Is(err, store.ErrConflict) {
		return nil, ErrDuplicateName
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the habit and its check-ins.
func (s *Service) Delete(ctx context.Context, userID, habitID string) (*model.Habit, error) {
	h, err := s.owned(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}
	if err := s.habits.Delete(ctx, h.ID); err != nil {
		return nil, err
	}
	return h, nil
}

// List returns the user's habits decorated with progress as of now.
func (s *Service) List(ctx context.Context, userID string) ([]stats.HabitWithStats, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	habits, err := s.habits.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]stats.HabitWithStats, 0, len(habits))
	for _, h := range habits {
		sum, err := stats.Aggregate(ctx, s.checkIns, h, now, s.cal)
		if err != nil {
			return nil, err
		}
		out = append(out, stats.HabitWithStats{Habit: h, Summary: sum})
	}
	return out, nil
}

// CheckIn records a completion of the habit for the current period. At most
// one check-in exists per habit and period; a second attempt, including one
// racing this call, fails with ErrDuplicatePeriod.
func (s *Service) CheckIn(ctx context.Context, userID, habitID string) (*model.CheckIn, error) {
	h, err := s.owned(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	existing, err := s.checkIns.FindInWindow(ctx, h.ID, s.cal.PeriodWindow(h.Frequency, now))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicatePeriod
	}

	c := model.CheckIn{
		ID:        uuid.NewString(),
		HabitID:   h.ID,
		UserID:    userID,
		Timestamp: now.UTC(),
		Date:      s.cal.Day(now),
		PeriodKey: s.cal.PeriodKey(h.Frequency, now),
	}
	if err := s.checkIns.Create(ctx, c); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrDuplicatePeriod
		}
		return nil, err
	}
	return &c, nil
}

// CheckIns returns the habit's check-ins, newest first. Owner only.
func (s *Service) CheckIns(ctx context.Context, userID, habitID string) ([]model.CheckIn, error) {
	h, err := s.owned(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}
	return s.checkIns.ListByHabit(ctx, h.ID)
}

// owned loads the habit and checks it belongs to userID.
func (s *Service) owned(ctx context.Context, userID, habitID string) (*model.Habit, error) {
	if err := validateID("habit", habitID); err != nil {
		return nil, err
	}
	h, err := s.habits.GetByID(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, &NotFoundError{Kind: "Habit"}
	}
	if h.UserID != userID {
		return nil, ErrForbidden
	}
	return h, nil
}

func (s *Service) requireUser(ctx context.Context, userID string) error {
	_, err := s.user(ctx, userID)
	return err
}

func (s *Service) user(ctx context.Context, userID string) (*model.User, error) {
	if err := validateID("user", userID); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, &NotFoundError{Kind: "User"}
	}
	return u, nil
}

func apply(h *model.Habit, in Input, creating bool) error {
	if in.Name != nil || creating {
		var name string
		if in.Name != nil {
			name = strings.TrimSpace(*in.Name)
		}
		if name == "" {
			return invalid("name", "Habit name is required")
		}
		if len(name) > MaxNameLength {
			return invalid("name", fmt.Sprintf("Habit name must be at most %d characters", MaxNameLength))
		}
		h.Name = name
	}
	if in.Frequency != nil {
		if !in.Frequency.Valid() {
			return invalid("frequency", "Frequency must be daily or weekly")
		}
		h.Frequency = *in.Frequency
	}
	if in.Category != nil {
		category := strings.TrimSpace(*in.Category)
		if category == "" {
			category = model.DefaultCategory
		}
		if len(category) > MaxCategoryLength {
			return invalid("category", fmt.Sprintf("Category must be at most %d characters", MaxCategoryLength))
		}
		h.Category = category
	}
	return nil
}

func validateID(kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return invalid("id", fmt.Sprintf("Invalid %s ID", kind))
	}
	return nil
}
