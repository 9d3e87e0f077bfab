package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/trackify/internal/calendar"
	"github.com/dukerupert/trackify/internal/model"
)

func checkInAt(h *model.Habit, id string, at time.Time) model.CheckIn {
	cal := calendar.New(time.UTC)
	return model.CheckIn{
		ID:        id,
		HabitID:   h.ID,
		UserID:    h.UserID,
		Timestamp: at,
		Date:      cal.Day(at),
		PeriodKey: cal.PeriodKey(h.Frequency, at),
	}
}

func TestCheckInSamePeriodConflict(t *testing.T) {
	s := setupStores(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	h := mustHabit(t, s, alice.ID, "Run", calendar.Weekly)

	mon := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)
	if err := s.checkIns.Create(ctx, checkInAt(h, "c1", mon)); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Thursday of the same ISO week.
	err := s.checkIns.Create(ctx, checkInAt(h, "c2", mon.Add(72*time.Hour)))
	if !errors.Is(err, ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
	// Following Monday is a new period.
	if err := s.checkIns.Create(ctx, checkInAt(h, "c3", mon.Add(7*24*time.Hour))); err != nil {
		t.Errorf("next week: %v", err)
	}
}

func TestCheckInConcurrentInsertsOneWins(t *testing.T) {
	s := setupStores(t)
	alice := mustUser(t, s, "alice")
	h := mustHabit(t, s, alice.ID, "Run", calendar.Daily)
	at := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, conflicts := 0, 0
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.checkIns.Create(context.Background(), checkInAt(h, fmt.Sprintf("c%d", i), at.Add(time.Duration(i)*time.Minute)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || conflicts != 7 {
		t.Errorf("ok = %d, conflicts = %d, want 1 and 7", ok, conflicts)
	}
}

func TestCheckInQueries(t *testing.T) {
	s := setupStores(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	h := mustHabit(t, s, alice.ID, "Run", calendar.Daily)

	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	for i := range 3 {
		if err := s.checkIns.Create(ctx, checkInAt(h, fmt.Sprintf("c%d", i), base.AddDate(0, 0, i))); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	list, err := s.checkIns.ListByHabit(ctx, h.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].ID != "c2" || list[2].ID != "c0" {
		t.Errorf("list order = %+v, want newest first", list)
	}
	if list[0].Date != "2026-02-03" || !list[0].Timestamp.Equal(base.AddDate(0, 0, 2)) {
		t.Errorf("round trip = %+v", list[0])
	}

	cal := calendar.New(time.UTC)
	found, err := s.checkIns.FindInWindow(ctx, h.ID, cal.DayWindow(base.AddDate(0, 0, 1)))
	if err != nil {
		t.Fatalf("find in window: %v", err)
	}
	if found == nil || found.ID != "c1" {
		t.Errorf("found = %+v, want c1", found)
	}
	none, err := s.checkIns.FindInWindow(ctx, h.ID, cal.DayWindow(base.AddDate(0, 0, 5)))
	if err != nil {
		t.Fatalf("find in window: %v", err)
	}
	if none != nil {
		t.Errorf("expected nothing, got %+v", none)
	}

	latest, err := s.checkIns.MostRecent(ctx, h.ID)
	if err != nil {
		t.Fatalf("most recent: %v", err)
	}
	if latest == nil || latest.ID != "c2" {
		t.Errorf("most recent = %+v", latest)
	}

	n, err := s.checkIns.CountSince(ctx, h.ID, base.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("count since: %v", err)
	}
	if n != 2 {
		t.Errorf("count since = %d, want 2", n)
	}

	since, err := s.checkIns.ListByUserSince(ctx, alice.ID, base.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(since) != 1 {
		t.Errorf("list since = %d, want 1", len(since))
	}
}

func TestCheckInRecentAndFeed(t *testing.T) {
	s := setupStores(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")
	carol := mustUser(t, s, "carol")
	run := mustHabit(t, s, bob.ID, "Run", calendar.Daily)
	swim := mustHabit(t, s, carol.ID, "Swim", calendar.Weekly)
	mustHabit(t, s, alice.ID, "Read", calendar.Daily)

	base := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)
	for _, c := range []model.CheckIn{
		checkInAt(run, "r1", base),
		checkInAt(run, "r2", base.AddDate(0, 0, 1)),
		checkInAt(swim, "s1", base.Add(time.Hour)),
	} {
		if err := s.checkIns.Create(ctx, c); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	feed, err := s.checkIns.ListFeed(ctx, []string{bob.ID, carol.ID}, 2)
	if err != nil {
		t.Fatalf("list feed: %v", err)
	}
	if len(feed) != 2 {
		t.Fatalf("feed len = %d, want 2", len(feed))
	}
	if feed[0].ID != "r2" || feed[0].User.Username != "bob" || feed[0].Habit != "Run" {
		t.Errorf("feed[0] = %+v", feed[0])
	}
	if feed[1].ID != "s1" || feed[1].Frequency != calendar.Weekly {
		t.Errorf("feed[1] = %+v", feed[1])
	}

	empty, err := s.checkIns.ListFeed(ctx, nil, 50)
	if err != nil {
		t.Fatalf("empty feed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty feed, got %d", len(empty))
	}

	recent, err := s.checkIns.ListRecentByUser(ctx, bob.ID, 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].HabitTitle != "Run" || recent[0].ID != "r2" {
		t.Errorf("recent = %+v", recent)
	}
}
