// Package config provides configuration constants and settings for pbxadmin
package config

import "time"

// Security constants
const (
	MaxFailedLoginAttempts = 5
	LoginLockoutDuration   = 15 * time.Minute
	SessionDuration        = 24 * time.Hour
)

// HTTP server timeouts
const (
	ReadTimeout     = 15 * time.Second
	WriteTimeout    = 30 * time.Second
	IdleTimeout     = 60 * time.Second
	ShutdownTimeout = 10 * time.Second
)

// Console client settings
const (
	ClientRequestTimeout = 15 * time.Second
	ClientUserAgent      = "pbxctl/1.0"
)

// Server defaults
const (
	DefaultHTTPPort   = 8080
	DefaultAdminEmail = "admin@localhost"
)

// Database paths
const (
	DefaultDataDir = "./data"
	DefaultDBFile  = "pbxadmin.db"
	CertsDir       = "certs"
)
