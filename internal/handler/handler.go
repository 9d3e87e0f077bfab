package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/trackify/internal/habit"
	"github.com/dukerupert/trackify/internal/metrics"
	"github.com/dukerupert/trackify/internal/websocket"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeErrorMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps domain errors onto status codes. Anything unrecognised is
// logged and reported as fallback.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error, fallback string) {
	var (
		verr *habit.ValidationError
		nf   *habit.NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		writeErrorMsg(w, http.StatusBadRequest, verr.Msg)
	case errors.As(err, &nf):
		writeErrorMsg(w, http.StatusNotFound, nf.Error())
	case errors.Is(err, habit.ErrNotFound):
		writeErrorMsg(w, http.StatusNotFound, "Not found")
	case errors.Is(err, habit.ErrForbidden):
		writeErrorMsg(w, http.StatusForbidden, "Not authorized to access this habit")
	case errors.Is(err, habit.ErrDuplicatePeriod):
		writeErrorMsg(w, http.StatusConflict, "Already checked in for this period")
	case errors.Is(err, habit.ErrDuplicateName):
		writeErrorMsg(w, http.StatusConflict, habit.ErrDuplicateName.Error())
	default:
		logger.Error(fallback, "error", err)
		writeErrorMsg(w, http.StatusInternalServerError, fallback)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// events fans domain events out to the actor and their followers.
type events struct {
	hub       *websocket.Hub
	followers func(r *http.Request, userID string) ([]string, error)
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func (e *events) publish(r *http.Request, eventType, actorID string, data any, extra ...string) {
	if e == nil || e.hub == nil {
		return
	}
	audience := append([]string{actorID}, extra...)
	if e.followers != nil {
		ids, err := e.followers(r, actorID)
		if err != nil {
			e.logger.Warn("load followers for event", "type", eventType, "error", err)
		}
		audience = append(audience, ids...)
	}
	e.hub.Publish(websocket.NewMessage(eventType, actorID, data), audience...)
	if e.metrics != nil {
		e.metrics.EventsPublishedTotal.WithLabelValues(eventType).Inc()
	}
}
