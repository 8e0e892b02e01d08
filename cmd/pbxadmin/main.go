// Package main is the entry point for the pbxadmin server
package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/btafoya/pbxadmin/internal/api"
	"github.com/btafoya/pbxadmin/internal/certs"
	"github.com/btafoya/pbxadmin/internal/config"
	"github.com/btafoya/pbxadmin/internal/db"
	"github.com/btafoya/pbxadmin/internal/models"
	"github.com/btafoya/pbxadmin/internal/twilio"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize structured logging
	level := slog.LevelInfo
	if cfg.DebugMode {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting pbxadmin", "version", api.Version)

	// Ensure data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		slog.Error("Failed to create data directories", "error", err)
		os.Exit(1)
	}

	// Initialize database
	database, err := db.New(cfg.DBPath())
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	// Create the initial admin account on first start
	if err := ensureAdminUser(context.Background(), database, cfg); err != nil {
		slog.Error("Failed to ensure admin user", "error", err)
		os.Exit(1)
	}

	// Initialize Twilio client for DID sync
	twilioClient := twilio.NewClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken)
	if twilioClient.IsHealthy() {
		slog.Info("Twilio client initialized")
	} else {
		slog.Info("Twilio not configured; DID sync disabled")
	}

	// Optional TLS for the API listener
	certManager, err := certs.NewManager(&cfg.TLS, cfg.CertsPath())
	if err != nil {
		slog.Error("Failed to initialize TLS", "error", err)
		os.Exit(1)
	}

	router := api.NewRouter(&api.Dependencies{
		Config:    cfg,
		DB:        database,
		Twilio:    twilioClient,
		Certs:     certManager,
		StartedAt: time.Now(),
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start HTTP server in goroutine
	go func() {
		var err error
		if certManager != nil {
			httpServer.TLSConfig = certManager.TLSConfig()
			slog.Info("HTTPS server started", "port", cfg.HTTPPort)
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			slog.Info("HTTP server started", "port", cfg.HTTPPort)
			err = httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	// Expired session cleanup
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := database.Sessions.DeleteExpired(ctx); err != nil {
					slog.Warn("Session cleanup failed", "error", err)
				}
			}
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		slog.Info("Shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("pbxadmin shutdown complete")
}

// ensureAdminUser creates the initial admin account when no users exist. If
// no password is configured a random one is generated and logged once.
func ensureAdminUser(ctx context.Context, database *db.DB, cfg *config.Config) error {
	count, err := database.Users.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := cfg.AdminPassword
	generated := false
	if password == "" {
		raw := make([]byte, 12)
		if _, err := rand.Read(raw); err != nil {
			return err
		}
		password = base64.RawURLEncoding.EncodeToString(raw)
		generated = true
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &models.User{
		Email:        cfg.AdminEmail,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		CreatedAt:    time.Now(),
	}
	if err := database.Users.Create(ctx, user); err != nil {
		return err
	}

	if generated {
		slog.Info("Created initial admin user with generated password",
			"email", cfg.AdminEmail, "password", password)
	} else {
		slog.Info("Created initial admin user", "email", cfg.AdminEmail)
	}
	return nil
}
