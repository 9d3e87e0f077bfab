package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/trackify/internal/auth"
	"github.com/dukerupert/trackify/internal/habit"
	"github.com/dukerupert/trackify/internal/metrics"
	"github.com/dukerupert/trackify/internal/websocket"
)

type UserHandler struct {
	svc    *habit.Service
	events *events
	logger *slog.Logger
}

func NewUserHandler(svc *habit.Service, hub *websocket.Hub, m *metrics.Metrics, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		svc:    svc,
		events: newEvents(svc, hub, m, logger),
		logger: logger,
	}
}

func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.Search(r.Context(), auth.UserID(r.Context()), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, h.logger, err, "Search failed")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.Profile(r.Context(), auth.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err, "Could not load profile")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) Habits(w http.ResponseWriter, r *http.Request) {
	habits, err := h.svc.List(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err, "Could not load habits")
		return
	}
	writeJSON(w, http.StatusOK, habits)
}

func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	overview, err := h.svc.Overview(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err, "Could not load stats")
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (h *UserHandler) Follow(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	targetID := r.PathValue("id")
	added, err := h.svc.Follow(r.Context(), userID, targetID)
	if err != nil {
		writeError(w, h.logger, err, "Failed to follow user")
		return
	}
	if !added {
		writeMessage(w, http.StatusOK, "Already following this user")
		return
	}

	h.events.publish(r, websocket.EventFollowed, userID, map[string]string{"userId": targetID}, targetID)
	writeMessage(w, http.StatusOK, "Followed successfully")
}

func (h *UserHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	targetID := r.PathValue("id")
	removed, err := h.svc.Unfollow(r.Context(), userID, targetID)
	if err != nil {
		writeError(w, h.logger, err, "Failed to unfollow user")
		return
	}
	if removed {
		h.events.publish(r, websocket.EventUnfollowed, userID, map[string]string{"userId": targetID}, targetID)
	}
	writeMessage(w, http.StatusOK, "Unfollowed successfully")
}

func (h *UserHandler) Feed(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Feed(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err, "Failed to load feed")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *UserHandler) CheckIns(w http.ResponseWriter, r *http.Request) {
	checkIns, err := h.svc.UserCheckIns(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err, "Failed to load check-ins")
		return
	}
	writeJSON(w, http.StatusOK, checkIns)
}

func (h *UserHandler) Activity(w http.ResponseWriter, r *http.Request) {
	days := habit.DefaultActivityDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			n = 0
		}
		days = n
	}

	heatmap, err := h.svc.Activity(r.Context(), r.PathValue("id"), days)
	if err != nil {
		writeError(w, h.logger, err, "Failed to load activity")
		return
	}
	writeJSON(w, http.StatusOK, heatmap)
}

func (h *UserHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	ring, err := h.svc.Weekly(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err, "Failed to load weekly progress")
		return
	}
	writeJSON(w, http.StatusOK, ring)
}
