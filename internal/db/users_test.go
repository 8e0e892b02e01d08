package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/btafoya/pbxadmin/internal/models"
)

func TestUserRepository(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	user := &models.User{
		Email:        "admin@example.com",
		PasswordHash: "hash",
		Role:         models.RoleAdmin,
		CreatedAt:    time.Now(),
	}
	if err := database.Users.Create(ctx, user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if user.ID == 0 {
		t.Error("Create() should assign an id")
	}

	t.Run("duplicate email rejected", func(t *testing.T) {
		dup := &models.User{
			Email:        "admin@example.com",
			PasswordHash: "otherhash",
			Role:         models.RoleOperator,
			CreatedAt:    time.Now(),
		}
		if err := database.Users.Create(ctx, dup); !errors.Is(err, ErrUserAlreadyExists) {
			t.Errorf("Create(duplicate) error = %v, want ErrUserAlreadyExists", err)
		}
	})

	t.Run("get by email", func(t *testing.T) {
		got, err := database.Users.GetByEmail(ctx, "admin@example.com")
		if err != nil {
			t.Fatalf("GetByEmail() error = %v", err)
		}
		if got.ID != user.ID || got.Role != models.RoleAdmin {
			t.Errorf("GetByEmail() = %+v", got)
		}
		if !got.IsAdmin() {
			t.Error("IsAdmin() = false, want true")
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		if _, err := database.Users.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("GetByEmail(unknown) error = %v, want ErrUserNotFound", err)
		}
	})

	t.Run("update password", func(t *testing.T) {
		if err := database.Users.UpdatePassword(ctx, user.ID, "newhash"); err != nil {
			t.Fatalf("UpdatePassword() error = %v", err)
		}
		got, err := database.Users.GetByID(ctx, user.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.PasswordHash != "newhash" {
			t.Errorf("PasswordHash = %q, want newhash", got.PasswordHash)
		}
	})

	t.Run("update last login", func(t *testing.T) {
		if err := database.Users.UpdateLastLogin(ctx, user.ID); err != nil {
			t.Fatalf("UpdateLastLogin() error = %v", err)
		}
		got, err := database.Users.GetByID(ctx, user.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if !got.LastLogin.Valid {
			t.Error("LastLogin should be set")
		}
	})

	t.Run("count", func(t *testing.T) {
		count, err := database.Users.Count(ctx)
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if count != 1 {
			t.Errorf("Count() = %d, want 1", count)
		}
	})
}

func TestSessionRepository(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	user := &models.User{Email: "op@example.com", PasswordHash: "h", Role: models.RoleOperator, CreatedAt: time.Now()}
	if err := database.Users.Create(ctx, user); err != nil {
		t.Fatalf("Create(user) error = %v", err)
	}

	live := &models.Session{
		Token:     "live-token",
		UserID:    user.ID,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	stale := &models.Session{
		Token:     "stale-token",
		UserID:    user.ID,
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	for _, s := range []*models.Session{live, stale} {
		if err := database.Sessions.Create(ctx, s); err != nil {
			t.Fatalf("Create(session) error = %v", err)
		}
	}

	t.Run("get by token", func(t *testing.T) {
		got, err := database.Sessions.GetByToken(ctx, "live-token")
		if err != nil {
			t.Fatalf("GetByToken() error = %v", err)
		}
		if got.UserID != user.ID {
			t.Errorf("UserID = %d, want %d", got.UserID, user.ID)
		}
		if got.Expired(time.Now()) {
			t.Error("live session reported expired")
		}
	})

	t.Run("delete expired", func(t *testing.T) {
		if err := database.Sessions.DeleteExpired(ctx); err != nil {
			t.Fatalf("DeleteExpired() error = %v", err)
		}
		if _, err := database.Sessions.GetByToken(ctx, "stale-token"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("stale session error = %v, want ErrSessionNotFound", err)
		}
		if _, err := database.Sessions.GetByToken(ctx, "live-token"); err != nil {
			t.Errorf("live session error = %v, want nil", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := database.Sessions.Delete(ctx, "live-token"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := database.Sessions.GetByToken(ctx, "live-token"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("deleted session error = %v, want ErrSessionNotFound", err)
		}
	})
}
