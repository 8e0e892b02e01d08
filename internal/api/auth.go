package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/btafoya/pbxadmin/internal/config"
	"github.com/btafoya/pbxadmin/internal/db"
	"github.com/btafoya/pbxadmin/internal/models"
)

// AuthHandler handles authentication-related API endpoints
type AuthHandler struct {
	deps          *Dependencies
	loginAttempts map[string][]time.Time
	attemptsMu    sync.Mutex
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(deps *Dependencies) *AuthHandler {
	return &AuthHandler{
		deps:          deps,
		loginAttempts: make(map[string][]time.Time),
	}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	User  *UserResponse `json:"user"`
	Token string        `json:"token"`
}

// UserResponse represents a user in API responses (without password hash)
type UserResponse struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteValidationError(w, "Invalid request body", nil)
		return
	}

	if req.Email == "" || req.Password == "" {
		WriteValidationError(w, "Email and password are required", []FieldError{
			{Field: "email", Message: "Email is required"},
			{Field: "password", Message: "Password is required"},
		})
		return
	}

	// Check rate limiting
	clientIP := r.RemoteAddr
	if allowed, lockoutRemaining := h.checkLoginAttempt(clientIP); !allowed {
		WriteError(w, http.StatusTooManyRequests, ErrCodeRateLimited,
			"Too many login attempts. Try again in "+lockoutRemaining.String(), nil)
		return
	}

	user, err := h.deps.DB.Users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if err == db.ErrUserNotFound {
			h.recordFailedAttempt(clientIP)
			WriteError(w, http.StatusUnauthorized, ErrCodeAuthentication, "Invalid email or password", nil)
			return
		}
		WriteInternalError(w)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.recordFailedAttempt(clientIP)
		WriteError(w, http.StatusUnauthorized, ErrCodeAuthentication, "Invalid email or password", nil)
		return
	}

	h.clearFailedAttempts(clientIP)
	h.deps.DB.Users.UpdateLastLogin(r.Context(), user.ID)

	token, err := createSession(r.Context(), h.deps.DB, user.ID)
	if err != nil {
		WriteInternalError(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(config.SessionDuration.Seconds()),
	})

	WriteJSON(w, http.StatusOK, LoginResponse{
		User:  toUserResponse(user),
		Token: token,
	})
}

// Logout handles user logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie("session"); err == nil {
		deleteSession(r.Context(), h.deps.DB, cookie.Value)
	} else if auth := r.Header.Get("Authorization"); len(auth) > 7 && auth[:7] == "Bearer " {
		deleteSession(r.Context(), h.deps.DB, auth[7:])
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// GetCurrentUser returns the current authenticated user
func (h *AuthHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		WriteUnauthorizedError(w)
		return
	}

	WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword handles password changes for the current user
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		WriteUnauthorizedError(w)
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteValidationError(w, "Invalid request body", nil)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeValidation, "Current password is incorrect", nil)
		return
	}

	if len(req.NewPassword) < 8 {
		WriteValidationError(w, "Password must be at least 8 characters", []FieldError{
			{Field: "new_password", Message: "Password must be at least 8 characters"},
		})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		WriteInternalError(w)
		return
	}

	if err := h.deps.DB.Users.UpdatePassword(r.Context(), user.ID, string(hash)); err != nil {
		WriteInternalError(w)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}

// Rate limiting helpers

func (h *AuthHandler) checkLoginAttempt(ip string) (bool, time.Duration) {
	h.attemptsMu.Lock()
	defer h.attemptsMu.Unlock()

	now := time.Now()
	cutoff := now.Add(-1 * time.Minute)

	// Clean old attempts
	var recent []time.Time
	for _, attempt := range h.loginAttempts[ip] {
		if attempt.After(cutoff) {
			recent = append(recent, attempt)
		}
	}
	h.loginAttempts[ip] = recent

	// Check if locked out
	if len(recent) >= config.MaxFailedLoginAttempts {
		lockoutEnd := recent[0].Add(config.LoginLockoutDuration)
		if now.Before(lockoutEnd) {
			return false, lockoutEnd.Sub(now)
		}
		h.loginAttempts[ip] = nil
	}

	return true, 0
}

func (h *AuthHandler) recordFailedAttempt(ip string) {
	h.attemptsMu.Lock()
	defer h.attemptsMu.Unlock()
	h.loginAttempts[ip] = append(h.loginAttempts[ip], time.Now())
}

func (h *AuthHandler) clearFailedAttempts(ip string) {
	h.attemptsMu.Lock()
	defer h.attemptsMu.Unlock()
	delete(h.loginAttempts, ip)
}

func toUserResponse(user *models.User) *UserResponse {
	resp := &UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
	if user.LastLogin.Valid {
		t := user.LastLogin.Time
		resp.LastLogin = &t
	}
	return resp
}
