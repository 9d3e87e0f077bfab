package habit

import (
	"context"
	"strings"
	"time"

	"github.com/dukerupert/trackify/internal/model"
	"github.com/dukerupert/trackify/internal/stats"
	"github.com/dukerupert/trackify/internal/store"
)

const (
	DefaultActivityDays = 365
	MaxActivityDays     = 366
)

// Follow makes followerID follow targetID. It reports false when the edge
// already existed.
func (s *Service) Follow(ctx context.Context, followerID, targetID string) (bool, error) {
	if err := validateID("user", targetID); err != nil {
		return false, err
	}
	if followerID == targetID {
		return false, invalid("id", "Cannot follow yourself")
	}
	if err := s.requireUser(ctx, targetID); err != nil {
		return false, err
	}
	return s.follows.Follow(ctx, followerID, targetID)
}

// Unfollow removes the edge if present. It reports false when there was
// nothing to remove.
func (s *Service) Unfollow(ctx context.Context, followerID, targetID string) (bool, error) {
	if err := s.requireUser(ctx, targetID); err != nil {
		return false, err
	}
	return s.follows.Unfollow(ctx, followerID, targetID)
}

// FollowerIDs lists who follows userID, for fanning out live events.
func (s *Service) FollowerIDs(ctx context.Context, userID string) ([]string, error) {
	return s.follows.FollowerIDs(ctx, userID)
}

// Feed returns the latest check-ins of everyone userID follows, each with
// the habit's current streak.
func (s *Service) Feed(ctx context.Context, userID string) ([]model.FeedItem, error) {
	following, err := s.follows.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.checkIns.ListFeed(ctx, following, FeedLimit)
	if err != nil {
		return nil, err
	}

	now := s.now()
	streaks := make(map[string]int)
	for i := range items {
		streak, ok := streaks[items[i].HabitID]
		if !ok {
			streak, err = stats.Streak(ctx, s.checkIns, items[i].HabitID, now, s.cal)
			if err != nil {
				return nil, err
			}
			streaks[items[i].HabitID] = streak
		}
		items[i].Streak = streak
	}
	if items == nil {
		items = []model.FeedItem{}
	}
	return items, nil
}

// Search finds other users by username or email. Queries shorter than
// SearchMinLength return nothing.
func (s *Service) Search(ctx context.Context, callerID, q string) ([]model.UserSummary, error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < SearchMinLength {
		return []model.UserSummary{}, nil
	}
	users, err := s.users.Search(ctx, q, callerID, SearchLimit)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.UserSummary{}
	}
	return users, nil
}

type Profile struct {
	ID             string                `json:"id"`
	Username       string                `json:"username"`
	Email          string                `json:"email"`
	CreatedAt      time.Time             `json:"createdAt"`
	Followers      []model.UserSummary   `json:"followers"`
	Following      []model.UserSummary   `json:"following"`
	Habits         []model.Habit         `json:"habits"`
	RecentCheckIns []store.RecentCheckIn `json:"recentCheckins"`
	IsFollowing    bool                  `json:"isFollowing"`
}

// Profile assembles the public view of userID as seen by viewerID.
func (s *Service) Profile(ctx context.Context, viewerID, userID string) (*Profile, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := &Profile{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt}
	if p.Followers, err = s.follows.ListFollowers(ctx, u.ID); err != nil {
		return nil, err
	}
	if p.Following, err = s.follows.ListFollowing(ctx, u.ID); err != nil {
		return nil, err
	}
	if p.Habits, err = s.habits.ListByUser(ctx, u.ID); err != nil {
		return nil, err
	}
	if p.RecentCheckIns, err = s.checkIns.ListRecentByUser(ctx, u.ID, RecentCheckInLimit); err != nil {
		return nil, err
	}
	if p.IsFollowing, err = s.follows.IsFollowing(ctx, viewerID, u.ID); err != nil {
		return nil, err
	}

	if p.Followers == nil {
		p.Followers = []model.UserSummary{}
	}
	if p.Following == nil {
		p.Following = []model.UserSummary{}
	}
	if p.Habits == nil {
		p.Habits = []model.Habit{}
	}
	if p.RecentCheckIns == nil {
		p.RecentCheckIns = []store.RecentCheckIn{}
	}
	return p, nil
}

// UserCheckIns returns every check-in userID recorded, newest first.
func (s *Service) UserCheckIns(ctx context.Context, userID string) ([]model.CheckIn, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	checkIns, err := s.checkIns.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if checkIns == nil {
		checkIns = []model.CheckIn{}
	}
	return checkIns, nil
}

// Activity returns a dense day-by-day heatmap of the trailing days ending
// today.
func (s *Service) Activity(ctx context.Context, userID string, days int) ([]stats.DayCount, error) {
	if days <= 0 || days > MaxActivityDays {
		return nil, invalid("days", "days must be between 1 and 366")
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	now := s.now()
	since := s.cal.AddDays(s.cal.StartOfDay(now), -(days - 1))
	checkIns, err := s.checkIns.ListByUserSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	return stats.Heatmap(stats.EntriesFromCheckIns(checkIns), now, days, s.cal), nil
}

// Weekly returns the trailing seven-day ring for userID.
func (s *Service) Weekly(ctx context.Context, userID string) ([]stats.RingDay, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	now := s.now()
	since := s.cal.AddDays(s.cal.StartOfDay(now), -6)
	checkIns, err := s.checkIns.ListByUserSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	total, err := s.habits.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return stats.WeeklyRing(stats.EntriesFromCheckIns(checkIns), total, now, s.cal), nil
}

// Overview rolls userID's decorated habits up into profile totals.
func (s *Service) Overview(ctx context.Context, userID string) (stats.Overview, error) {
	habits, err := s.List(ctx, userID)
	if err != nil {
		return stats.Overview{}, err
	}
	return stats.Summarize(habits), nil
}
