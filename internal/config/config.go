// Package config provides runtime configuration management for pbxadmin
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds the runtime configuration for the pbxadmin server
type Config struct {
	// Server settings
	HTTPPort  int
	DataDir   string
	SIPDomain string // SIP domain embedded in provisioning QR codes

	// Initial admin account, created on first start when no users exist
	AdminEmail    string
	AdminPassword string

	// Twilio credentials for DID sync
	TwilioAccountSID string
	TwilioAuthToken  string

	// TLS settings for the admin API listener
	TLS TLSConfig

	// Feature flags
	DebugMode bool
}

// TLSConfig holds TLS settings for the HTTPS listener
type TLSConfig struct {
	Enabled  bool
	CertMode string // "manual" or "acme"

	// Manual mode
	CertFile string
	KeyFile  string

	// ACME mode
	ACMEEmail          string
	ACMEDomain         string
	ACMEDomains        []string
	ACMECA             string // "staging" or "production"
	CloudflareAPIToken string

	MinVersion string // "1.2" or "1.3"
}

// Load creates a Config from environment variables with defaults
func Load() *Config {
	cfg := &Config{
		HTTPPort:  getEnvInt("PBXADMIN_HTTP_PORT", DefaultHTTPPort),
		DataDir:   getEnv("PBXADMIN_DATA_DIR", DefaultDataDir),
		SIPDomain: getEnv("PBXADMIN_SIP_DOMAIN", "localhost"),

		AdminEmail:    getEnv("PBXADMIN_ADMIN_EMAIL", DefaultAdminEmail),
		AdminPassword: getEnv("PBXADMIN_ADMIN_PASSWORD", ""),

		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),

		TLS: TLSConfig{
			Enabled:            getEnvBool("PBXADMIN_TLS_ENABLED", false),
			CertMode:           getEnv("PBXADMIN_TLS_CERT_MODE", "acme"),
			CertFile:           getEnv("PBXADMIN_TLS_CERT_FILE", ""),
			KeyFile:            getEnv("PBXADMIN_TLS_KEY_FILE", ""),
			ACMEEmail:          getEnv("PBXADMIN_ACME_EMAIL", ""),
			ACMEDomain:         getEnv("PBXADMIN_ACME_DOMAIN", ""),
			ACMEDomains:        getEnvList("PBXADMIN_ACME_DOMAINS"),
			ACMECA:             getEnv("PBXADMIN_ACME_CA", "staging"),
			CloudflareAPIToken: getEnv("CLOUDFLARE_API_TOKEN", ""),
			MinVersion:         getEnv("PBXADMIN_TLS_MIN_VERSION", "1.2"),
		},

		DebugMode: getEnvBool("PBXADMIN_DEBUG", false),
	}

	return cfg
}

// DBPath returns the full path to the SQLite database file
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, DefaultDBFile)
}

// CertsPath returns the path to the certificate storage directory
func (c *Config) CertsPath() string {
	return filepath.Join(c.DataDir, CertsDir)
}

// EnsureDirectories creates all required data directories
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.DataDir,
		c.CertsPath(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
