package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dukerupert/trackify/internal/auth"
	"github.com/dukerupert/trackify/internal/model"
)

// UserLookup resolves the token subject to a live account.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// RequireAuth validates the bearer token and populates AuthContext. The
// token comes from the Authorization header, or the token query parameter
// for clients that cannot set headers (browser websockets).
func RequireAuth(tokens *auth.Tokens, users UserLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				unauthorized(w, "No token provided")
				return
			}

			claims, err := tokens.Verify(raw)
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					unauthorized(w, "Token expired")
					return
				}
				unauthorized(w, "Invalid token")
				return
			}

			u, err := users.GetByID(r.Context(), claims.Subject)
			if err != nil {
				logger.Error("auth user lookup", "error", err)
				unauthorized(w, "Authentication failed")
				return
			}
			if u == nil {
				unauthorized(w, "User not found")
				return
			}

			setLogUser(r.Context(), u.ID)
			ctx := auth.WithAuth(r.Context(), auth.AuthContext{UserID: u.ID, Username: u.Username})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		token, found := strings.CutPrefix(h, "Bearer ")
		if !found {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
