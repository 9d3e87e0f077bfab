package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/trackify/internal/auth"
	"github.com/dukerupert/trackify/internal/calendar"
	"github.com/dukerupert/trackify/internal/habit"
	"github.com/dukerupert/trackify/internal/handler"
	"github.com/dukerupert/trackify/internal/metrics"
	"github.com/dukerupert/trackify/internal/middleware"
	"github.com/dukerupert/trackify/internal/store"
	ws "github.com/dukerupert/trackify/internal/websocket"
)

const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

type Options struct {
	Calendar       calendar.Calendar
	Tokens         *auth.Tokens
	Metrics        *metrics.Metrics
	Limiter        middleware.Limiter
	ClientIP       *middleware.ClientIP
	AllowedOrigins []string
}

type Server struct {
	hub            *ws.Hub
	authH          *handler.AuthHandler
	habitH         *handler.HabitHandler
	userH          *handler.UserHandler
	userStore      *store.UserStore
	tokens         *auth.Tokens
	metrics        *metrics.Metrics
	limiter        middleware.Limiter
	clientIP       *middleware.ClientIP
	allowedOrigins []string
	logger         *slog.Logger
}

func New(db *sql.DB, opts Options, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	svc := habit.NewService(habit.Stores{
		Users:    userStore,
		Habits:   store.NewHabitStore(db),
		CheckIns: store.NewCheckInStore(db),
		Follows:  store.NewFollowStore(db),
	}, opts.Calendar)

	limiter := opts.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter()
	}

	return &Server{
		hub:            hub,
		authH:          handler.NewAuthHandler(userStore, opts.Tokens, logger.With("component", "auth")),
		habitH:         handler.NewHabitHandler(svc, hub, opts.Metrics, logger.With("component", "habit")),
		userH:          handler.NewUserHandler(svc, hub, opts.Metrics, logger.With("component", "user")),
		userStore:      userStore,
		tokens:         opts.Tokens,
		metrics:        opts.Metrics,
		limiter:        limiter,
		clientIP:       opts.ClientIP,
		allowedOrigins: opts.AllowedOrigins,
		logger:         logger,
	}
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// RateLimiter returns the in-memory rate limiter for cleanup tasks, or nil
// when a shared limiter is in use.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	rl, _ := s.limiter.(*middleware.RateLimiter)
	return rl
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.HandleFunc("GET /{$}", s.healthHandler)
	if s.metrics != nil {
		outerMux.Handle("GET /metrics", s.metrics.Handler())
	}

	// Protected routes, wrapped with RequireAuth
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.tokens, s.userStore, s.logger.With("component", "auth"))
	outerMux.Handle("/api/", authMiddleware(protectedMux))
	outerMux.Handle("GET /ws", authMiddleware(ws.HandleWebSocket(s.hub, s.allowedOrigins, s.logger.With("component", "websocket"))))
	outerMux.HandleFunc("/", notFound)

	return middleware.RequestLogger(s.logger.With("component", "http"), s.clientIP)(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Trackify API", "status": "ok"})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Route not found"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	var onDrop func()
	if s.metrics != nil {
		dropped := s.metrics.RateLimitDroppedTotal.WithLabelValues("auth")
		onDrop = dropped.Inc
	}
	rl := middleware.RateLimit(s.limiter, s.clientIP.Key, authRateLimit, authRateWindow, s.logger.With("component", "ratelimit"), onDrop)
	return rl(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	route := func(pattern string, h http.HandlerFunc) {
		if s.metrics == nil {
			mux.Handle(pattern, h)
			return
		}
		mux.Handle(pattern, s.metrics.Instrument(pattern, h))
	}

	// Habits
	route("POST /api/habits", s.habitH.Create)
	route("GET /api/habits", s.habitH.List)
	route("PUT /api/habits/{id}", s.habitH.Update)
	route("DELETE /api/habits/{id}", s.habitH.Delete)
	route("POST /api/habits/{id}/checkin", s.habitH.CheckIn)
	route("GET /api/habits/{id}/checkins", s.habitH.CheckIns)

	// Users and the follow graph
	route("GET /api/users/search", s.userH.Search)
	route("GET /api/users/feed", s.userH.Feed)
	route("GET /api/users/{id}", s.userH.Profile)
	route("GET /api/users/{id}/habits", s.userH.Habits)
	route("GET /api/users/{id}/stats", s.userH.Stats)
	route("GET /api/users/{id}/checkins", s.userH.CheckIns)
	route("GET /api/users/{id}/activity", s.userH.Activity)
	route("GET /api/users/{id}/weekly", s.userH.Weekly)
	route("POST /api/users/{id}/follow", s.userH.Follow)
	route("POST /api/users/{id}/unfollow", s.userH.Unfollow)

	mux.HandleFunc("/", notFound)
}
