package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dukerupert/trackify/internal/auth"
	"github.com/dukerupert/trackify/internal/calendar"
	"github.com/dukerupert/trackify/internal/database"
	"github.com/dukerupert/trackify/internal/habit"
	"github.com/dukerupert/trackify/internal/metrics"
	"github.com/dukerupert/trackify/internal/model"
	"github.com/dukerupert/trackify/internal/store"
	"github.com/dukerupert/trackify/internal/websocket"
)

type testEnv struct {
	users   *store.UserStore
	follows *store.FollowStore
	tokens  *auth.Tokens
	metrics *metrics.Metrics
	authH   *AuthHandler
	habitH  *HabitHandler
	userH   *UserHandler
}

func setupHandlers(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokens("test-secret-value")
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}

	logger := slog.Default()
	env := &testEnv{
		users:   store.NewUserStore(db),
		follows: store.NewFollowStore(db),
		tokens:  tokens,
		metrics: metrics.New(prometheus.NewRegistry()),
	}
	svc := habit.NewService(habit.Stores{
		Users:    env.users,
		Habits:   store.NewHabitStore(db),
		CheckIns: store.NewCheckInStore(db),
		Follows:  env.follows,
	}, calendar.New(time.UTC))
	hub := websocket.NewHub(logger)

	env.authH = NewAuthHandler(env.users, tokens, logger)
	env.habitH = NewHabitHandler(svc, hub, env.metrics, logger)
	env.userH = NewUserHandler(svc, hub, env.metrics, logger)
	return env
}

func (e *testEnv) user(t *testing.T, name string) *model.User {
	t.Helper()
	hash, err := auth.HashPassword("secret123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u, err := e.users.Create(context.Background(), name, name+"@example.com", hash)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// call runs h as userID with an optional JSON body and {id} path value.
func call(t *testing.T, h http.HandlerFunc, method, target, userID, id string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	if id != "" {
		req.SetPathValue("id", id)
	}
	if userID != "" {
		req = req.WithContext(auth.WithAuth(req.Context(), auth.AuthContext{UserID: userID}))
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}

func TestWriteErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"validation", &habit.ValidationError{Field: "name", Msg: "Habit name is required"}, http.StatusBadRequest, "Habit name is required"},
		{"not found", &habit.NotFoundError{Kind: "Habit"}, http.StatusNotFound, "Habit not found"},
		{"forbidden", habit.ErrForbidden, http.StatusForbidden, "Not authorized to access this habit"},
		{"duplicate period", habit.ErrDuplicatePeriod, http.StatusConflict, "Already checked in for this period"},
		{"duplicate name", habit.ErrDuplicateName, http.StatusConflict, habit.ErrDuplicateName.Error()},
		{"unexpected", context.DeadlineExceeded, http.StatusInternalServerError, "Failed to do thing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, slog.Default(), tt.err, "Failed to do thing")
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := errorOf(t, rec); got != tt.msg {
				t.Errorf("error = %q, want %q", got, tt.msg)
			}
		})
	}
}

func TestDecodeJSONRejectsGarbage(t *testing.T) {
	env := setupHandlers(t)
	u := env.user(t, "alice")

	rec := call(t, env.habitH.Create, "POST", "/api/habits", u.ID, "", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
