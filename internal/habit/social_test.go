package habit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/trackify/internal/calendar"
)

func TestFollowRules(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	if _, err := f.svc.Follow(ctx, alice.ID, alice.ID); !errors.Is(err, ErrValidation) {
		t.Errorf("self follow: err = %v, want ErrValidation", err)
	}
	if _, err := f.svc.Follow(ctx, alice.ID, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown target: err = %v, want ErrNotFound", err)
	}

	added, err := f.svc.Follow(ctx, alice.ID, bob.ID)
	if err != nil || !added {
		t.Fatalf("follow = %v, %v", added, err)
	}
	added, err = f.svc.Follow(ctx, alice.ID, bob.ID)
	if err != nil || added {
		t.Errorf("refollow = %v, %v, want no-op", added, err)
	}

	p, err := f.svc.Profile(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if len(p.Followers) != 1 || p.Followers[0].ID != alice.ID || !p.IsFollowing {
		t.Errorf("profile = %+v", p)
	}

	removed, err := f.svc.Unfollow(ctx, alice.ID, bob.ID)
	if err != nil || !removed {
		t.Errorf("unfollow = %v, %v", removed, err)
	}
	removed, err = f.svc.Unfollow(ctx, alice.ID, bob.ID)
	if err != nil || removed {
		t.Errorf("unfollow again = %v, %v, want no-op", removed, err)
	}
}

func TestFeedCarriesStreak(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	carol := f.user(t, "carol")
	run := f.habit(t, bob.ID, "Run", calendar.Daily)
	swim := f.habit(t, carol.ID, "Swim", calendar.Daily)

	for _, day := range []int{2, 3, 4} {
		f.clock = time.Date(2026, 2, day, 7, 0, 0, 0, time.UTC)
		if _, err := f.svc.CheckIn(ctx, bob.ID, run.ID); err != nil {
			t.Fatalf("check in: %v", err)
		}
	}
	if _, err := f.svc.CheckIn(ctx, carol.ID, swim.ID); err != nil {
		t.Fatalf("check in: %v", err)
	}

	empty, err := f.svc.Feed(ctx, alice.ID)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("feed before following = %d items", len(empty))
	}

	if _, err := f.svc.Follow(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("follow: %v", err)
	}
	feed, err := f.svc.Feed(ctx, alice.ID)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(feed) != 3 {
		t.Fatalf("feed len = %d, want 3", len(feed))
	}
	for _, item := range feed {
		if item.User.ID != bob.ID {
			t.Errorf("item from %s, want only bob", item.User.Username)
		}
		if item.Streak != 3 {
			t.Errorf("streak = %d, want 3", item.Streak)
		}
	}
	if !feed[0].Timestamp.After(feed[1].Timestamp) {
		t.Error("feed not newest first")
	}
}

func TestSearch(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	f.user(t, "alicia")

	short, err := f.svc.Search(ctx, alice.ID, "a")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if short == nil || len(short) != 0 {
		t.Errorf("short query = %v, want empty slice", short)
	}

	got, err := f.svc.Search(ctx, alice.ID, "ALI")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Username != "alicia" {
		t.Errorf("search = %+v", got)
	}
}

func TestActivityAndWeekly(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	read := f.habit(t, alice.ID, "Read", calendar.Daily)
	f.habit(t, alice.ID, "Run", calendar.Daily)

	for _, day := range []int{1, 3, 4} {
		f.clock = time.Date(2026, 2, day, 9, 0, 0, 0, time.UTC)
		if _, err := f.svc.CheckIn(ctx, alice.ID, read.ID); err != nil {
			t.Fatalf("check in: %v", err)
		}
	}

	days, err := f.svc.Activity(ctx, alice.ID, 7)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if len(days) != 7 || days[6].Date != "2026-02-04" || days[6].Count != 1 {
		t.Errorf("activity = %+v", days)
	}
	if days[4].Date != "2026-02-02" || days[4].Count != 0 {
		t.Errorf("gap day = %+v", days[4])
	}

	if _, err := f.svc.Activity(ctx, alice.ID, 400); !errors.Is(err, ErrValidation) {
		t.Errorf("too many days: err = %v, want ErrValidation", err)
	}

	ring, err := f.svc.Weekly(ctx, alice.ID)
	if err != nil {
		t.Fatalf("weekly: %v", err)
	}
	if len(ring) != 7 {
		t.Fatalf("ring len = %d", len(ring))
	}
	today := ring[6]
	if !today.IsToday || today.CompletedCount != 1 || today.TotalHabits != 2 || today.Percentage != 50 {
		t.Errorf("today = %+v", today)
	}
}

func TestProfileUnknownUser(t *testing.T) {
	f := setupService(t)
	alice := f.user(t, "alice")

	if _, err := f.svc.Profile(context.Background(), alice.ID, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.Profile(context.Background(), alice.ID, "nope"); !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}
