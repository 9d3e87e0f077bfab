package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/dukerupert/trackify/internal/auth"
	"github.com/dukerupert/trackify/internal/model"
	"github.com/dukerupert/trackify/internal/store"
)

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type AuthHandler struct {
	userStore *store.UserStore
	tokens    *auth.Tokens
	logger    *slog.Logger
}

func NewAuthHandler(us *store.UserStore, tokens *auth.Tokens, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{userStore: us, tokens: tokens, logger: logger}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	EmailOrUsername string `json:"emailOrUsername"`
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
}

type authResponse struct {
	Token string            `json:"token"`
	User  model.UserSummary `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	switch {
	case req.Username == "":
		writeErrorMsg(w, http.StatusBadRequest, "Username is required")
		return
	case req.Email == "":
		writeErrorMsg(w, http.StatusBadRequest, "Email is required")
		return
	case !emailPattern.MatchString(req.Email):
		writeErrorMsg(w, http.StatusBadRequest, "Invalid email format")
		return
	case req.Password == "":
		writeErrorMsg(w, http.StatusBadRequest, "Password is required")
		return
	case len(req.Password) < minPasswordLength:
		writeErrorMsg(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	taken, err := h.userStore.ExistsByEmailOrUsername(r.Context(), req.Email, req.Username)
	if err != nil {
		h.logger.Error("register lookup", "error", err)
		writeErrorMsg(w, http.StatusInternalServerError, "Registration failed")
		return
	}
	if taken {
		writeErrorMsg(w, http.StatusConflict, "Email or username already in use")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeErrorMsg(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	user, err := h.userStore.Create(r.Context(), req.Username, req.Email, hash)
	if errors.Is(err, store.ErrConflict) {
		writeErrorMsg(w, http.StatusConflict, "Email or username already in use")
		return
	}
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeErrorMsg(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	h.respondWithToken(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	identifier := strings.TrimSpace(req.EmailOrUsername)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Email)
	}
	if identifier == "" {
		identifier = strings.TrimSpace(req.Username)
	}
	if identifier == "" {
		writeErrorMsg(w, http.StatusBadRequest, "Email/username is required")
		return
	}
	if req.Password == "" {
		writeErrorMsg(w, http.StatusBadRequest, "Password is required")
		return
	}

	var (
		user *model.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = h.userStore.GetByEmail(r.Context(), identifier)
	} else {
		user, err = h.userStore.GetByUsername(r.Context(), identifier)
	}
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeErrorMsg(w, http.StatusInternalServerError, "Login failed")
		return
	}
	if user == nil {
		writeErrorMsg(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	ok, err := auth.CheckPassword(user.PasswordHash, req.Password)
	if err != nil {
		h.logger.Error("check password", "user_id", user.ID, "error", err)
		writeErrorMsg(w, http.StatusInternalServerError, "Login failed")
		return
	}
	if !ok {
		writeErrorMsg(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	h.respondWithToken(w, http.StatusOK, user)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, status int, user *model.User) {
	token, err := h.tokens.Issue(user.ID, user.Username)
	if err != nil {
		h.logger.Error("issue token", "user_id", user.ID, "error", err)
		writeErrorMsg(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	writeJSON(w, status, authResponse{Token: token, User: user.Summary()})
}
