package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/dukerupert/trackify/internal/database"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func setupUserTestDB(t *testing.T) *UserStore {
	t.Helper()
	return NewUserStore(openTestDB(t))
}

func TestUserCreate(t *testing.T) {
	us := setupUserTestDB(t)

	u, err := us.Create(context.Background(), "alice", "Alice@Example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("email = %q, want lowercased", u.Email)
	}
	if u.Username != "alice" {
		t.Errorf("username = %q, want %q", u.Username, "alice")
	}
	if u.ID == "" {
		t.Error("expected an id")
	}
	if u.PasswordHash != "hash" {
		t.Errorf("password hash = %q", u.PasswordHash)
	}
}

func TestUserCreateDuplicate(t *testing.T) {
	us := setupUserTestDB(t)
	ctx := context.Background()

	if _, err := us.Create(ctx, "alice", "alice@example.com", "hash"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := us.Create(ctx, "alice2", "ALICE@example.com", "hash"); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate email: err = %v, want ErrConflict", err)
	}
	if _, err := us.Create(ctx, "alice", "other@example.com", "hash"); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate username: err = %v, want ErrConflict", err)
	}
}

func TestUserGetByIDNotFound(t *testing.T) {
	us := setupUserTestDB(t)

	u, err := us.GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if u != nil {
		t.Error("expected nil for nonexistent user")
	}
}

func TestUserLookups(t *testing.T) {
	us := setupUserTestDB(t)
	ctx := context.Background()

	created, err := us.Create(ctx, "alice", "alice@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	byEmail, err := us.GetByEmail(ctx, "ALICE@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail == nil || byEmail.ID != created.ID {
		t.Errorf("get by email = %+v", byEmail)
	}

	byName, err := us.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if byName == nil || byName.ID != created.ID {
		t.Errorf("get by username = %+v", byName)
	}

	exists, err := us.ExistsByEmailOrUsername(ctx, "nobody@example.com", "alice")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Error("expected username to be taken")
	}
}

func TestUserSearch(t *testing.T) {
	us := setupUserTestDB(t)
	ctx := context.Background()

	me, err := us.Create(ctx, "alison", "me@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	for _, name := range []string{"alice", "Alfred", "bob", "al_x"} {
		if _, err := us.Create(ctx, name, name+"@example.com", "hash"); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	got, err := us.Search(ctx, "AL", me.ID, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3: %+v", len(got), got)
	}
	for _, u := range got {
		if u.ID == me.ID {
			t.Error("search returned the caller")
		}
	}

	// Underscore is literal, not a wildcard.
	got, err = us.Search(ctx, "l_", me.ID, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Username != "al_x" {
		t.Errorf("literal underscore search = %+v", got)
	}

	got, err = us.Search(ctx, "a", me.ID, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("limit ignored: got %d", len(got))
	}
}
