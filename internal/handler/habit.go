package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/trackify/internal/auth"
	"github.com/dukerupert/trackify/internal/habit"
	"github.com/dukerupert/trackify/internal/metrics"
	"github.com/dukerupert/trackify/internal/model"
	"github.com/dukerupert/trackify/internal/websocket"
)

type HabitHandler struct {
	svc     *habit.Service
	events  *events
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewHabitHandler(svc *habit.Service, hub *websocket.Hub, m *metrics.Metrics, logger *slog.Logger) *HabitHandler {
	return &HabitHandler{
		svc:     svc,
		events:  newEvents(svc, hub, m, logger),
		metrics: m,
		logger:  logger,
	}
}

func newEvents(svc *habit.Service, hub *websocket.Hub, m *metrics.Metrics, logger *slog.Logger) *events {
	return &events{
		hub: hub,
		followers: func(r *http.Request, userID string) ([]string, error) {
			return svc.FollowerIDs(r.Context(), userID)
		},
		metrics: m,
		logger:  logger,
	}
}

func (h *HabitHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in habit.Input
	if !decodeJSON(w, r, &in) {
		return
	}

	userID := auth.UserID(r.Context())
	created, err := h.svc.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, h.logger, err, "Failed to create habit")
		return
	}

	h.events.publish(r, websocket.EventHabitCreated, userID, created)
	writeJSON(w, http.StatusCreated, created)
}

func (h *HabitHandler) List(w http.ResponseWriter, r *http.Request) {
	habits, err := h.svc.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err, "Failed to load habits")
		return
	}
	writeJSON(w, http.StatusOK, habits)
}

func (h *HabitHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in habit.Input
	if !decodeJSON(w, r, &in) {
		return
	}

	userID := auth.UserID(r.Context())
	updated, err := h.svc.Update(r.Context(), userID, r.PathValue("id"), in)
	if err != nil {
		writeError(w, h.logger, err, "Failed to update habit")
		return
	}

	h.events.publish(r, websocket.EventHabitUpdated, userID, updated)
	writeJSON(w, http.StatusOK, updated)
}

func (h *HabitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	deleted, err := h.svc.Delete(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err, "Failed to delete habit")
		return
	}

	h.events.publish(r, websocket.EventHabitDeleted, userID, map[string]string{"habitId": deleted.ID})
	writeMessage(w, http.StatusOK, "Habit deleted successfully")
}

type checkInResponse struct {
	Message string         `json:"message"`
	CheckIn *model.CheckIn `json:"checkin"`
}

func (h *HabitHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	checkIn, err := h.svc.CheckIn(r.Context(), userID, r.PathValue("id"))
	h.countCheckIn(err)
	if err != nil {
		writeError(w, h.logger, err, "Failed to check in")
		return
	}

	h.events.publish(r, websocket.EventCheckIn, userID, checkIn)
	writeJSON(w, http.StatusCreated, checkInResponse{Message: "Checked in successfully", CheckIn: checkIn})
}

func (h *HabitHandler) CheckIns(w http.ResponseWriter, r *http.Request) {
	checkIns, err := h.svc.CheckIns(r.Context(), auth.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err, "Failed to load check-ins")
		return
	}
	if checkIns == nil {
		checkIns = []model.CheckIn{}
	}
	writeJSON(w, http.StatusOK, checkIns)
}

func (h *HabitHandler) countCheckIn(err error) {
	if h.metrics == nil {
		return
	}
	result := metrics.CheckInRecorded
	switch {
	case errors.Is(err, habit.ErrDuplicatePeriod):
		result = metrics.CheckInDuplicate
	case err != nil:
		result = metrics.CheckInRejected
	}
	h.metrics.CheckInsTotal.WithLabelValues(result).Inc()
}
