package api

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/btafoya/pbxadmin/internal/config"
	"github.com/btafoya/pbxadmin/internal/db"
	"github.com/btafoya/pbxadmin/internal/models"
)

// Context keys
type contextKey string

const contextKeyUser contextKey = "user"

// AuthMiddleware validates session tokens from the session cookie or the
// Authorization header
func AuthMiddleware(deps *Dependencies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string

			// Check cookie first
			if cookie, err := r.Cookie("session"); err == nil {
				token = cookie.Value
			}

			// Check Authorization header as fallback
			if token == "" {
				authHeader := r.Header.Get("Authorization")
				if strings.HasPrefix(authHeader, "Bearer ") {
					token = strings.TrimPrefix(authHeader, "Bearer ")
				}
			}

			if token == "" {
				WriteError(w, http.StatusUnauthorized, ErrCodeAuthentication, "Authentication required", nil)
				return
			}

			user, err := validateSession(r.Context(), deps.DB, token)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, ErrCodeAuthentication, "Invalid or expired session", nil)
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminOnlyMiddleware restricts access to admin users
func AdminOnlyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r.Context())
		if user == nil || !user.IsAdmin() {
			WriteError(w, http.StatusForbidden, ErrCodeAuthorization, "Admin access required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUserFromContext retrieves the authenticated user from context
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(contextKeyUser).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// createSession creates a new persistent session for a user
func createSession(ctx context.Context, database *db.DB, userID int64) (string, error) {
	token, err := generateRandomToken(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}

	now := time.Now()
	session := &models.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(config.SessionDuration),
	}
	if err := database.Sessions.Create(ctx, session); err != nil {
		return "", fmt.Errorf("failed to persist session: %w", err)
	}

	return token, nil
}

// validateSession checks a session token and returns its user
func validateSession(ctx context.Context, database *db.DB, token string) (*models.User, error) {
	session, err := database.Sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, db.ErrSessionNotFound
	}

	if session.Expired(time.Now()) {
		_ = database.Sessions.Delete(ctx, token)
		return nil, db.ErrSessionNotFound
	}

	return database.Users.GetByID(ctx, session.UserID)
}

// deleteSession removes a session
func deleteSession(ctx context.Context, database *db.DB, token string) {
	_ = database.Sessions.Delete(ctx, token)
}

// generateRandomToken creates a cryptographically secure random string token
func generateRandomToken(length int) (string, error) {
	numBytes := (length*3)/4 + 1

	randomBytes := make([]byte, numBytes)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("crypto/rand.Read failed: %w", err)
	}

	token := base64.RawURLEncoding.EncodeToString(randomBytes)
	if len(token) > length {
		token = token[:length]
	}

	return token, nil
}
