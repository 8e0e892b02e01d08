// Package certs handles TLS certificate lifecycle for the admin API listener
package certs

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/caddyserver/certmagic"
	"github.com/libdns/cloudflare"

	"github.com/btafoya/pbxadmin/internal/config"
)

// Manager handles TLS certificate lifecycle management
type Manager struct {
	config    *config.TLSConfig
	certsPath string
	tlsConfig *tls.Config
	magic     *certmagic.Config
	mu        sync.RWMutex

	// Certificate info for status reporting
	certExpiry  time.Time
	certIssuer  string
	lastRenewal time.Time
}

// Status represents the current certificate status
type Status struct {
	Enabled     bool      `json:"enabled"`
	CertMode    string    `json:"cert_mode"`
	Domain      string    `json:"domain,omitempty"`
	Domains     []string  `json:"domains,omitempty"`
	CertExpiry  time.Time `json:"cert_expiry,omitempty"`
	CertIssuer  string    `json:"cert_issuer,omitempty"`
	AutoRenewal bool      `json:"auto_renewal"`
	LastRenewal time.Time `json:"last_renewal,omitempty"`
	Valid       bool      `json:"valid"`
}

// NewManager creates a certificate manager. Returns (nil, nil) when TLS is
// disabled.
func NewManager(cfg *config.TLSConfig, certsPath string) (*Manager, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	m := &Manager{
		config:    cfg,
		certsPath: certsPath,
	}

	var err error
	if cfg.CertMode == "manual" {
		err = m.initManual()
	} else {
		err = m.initACME()
	}

	if err != nil {
		return nil, err
	}

	return m, nil
}

// initManual loads certificates from files
func (m *Manager) initManual() error {
	if m.config.CertFile == "" || m.config.KeyFile == "" {
		return fmt.Errorf("certificate and key file paths required for manual mode")
	}

	cert, err := tls.LoadX509KeyPair(m.config.CertFile, m.config.KeyFile)
	if err != nil {
		return fmt.Errorf("load certificate: %w", err)
	}

	// Parse certificate to extract info
	if len(cert.Certificate) > 0 {
		x509Cert, err := x509.ParseCertificate(cert.Certificate[0])
		if err == nil {
			m.certExpiry = x509Cert.NotAfter
			m.certIssuer = x509Cert.Issuer.CommonName
		}
	}

	m.tlsConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   m.tlsMinVersion(),
	}

	slog.Info("TLS initialized with manual certificates",
		"cert_file", m.config.CertFile,
		"expiry", m.certExpiry.Format(time.RFC3339),
	)

	return nil
}

// initACME sets up automatic certificate management with Let's Encrypt
func (m *Manager) initACME() error {
	if m.config.ACMEEmail == "" {
		return fmt.Errorf("ACME email required for automatic certificate management")
	}
	if m.config.ACMEDomain == "" {
		return fmt.Errorf("ACME domain required for automatic certificate management")
	}

	if err := os.MkdirAll(m.certsPath, 0700); err != nil {
		return fmt.Errorf("create certs directory: %w", err)
	}

	// Configure file storage
	certmagic.Default.Storage = &certmagic.FileStorage{
		Path: m.certsPath,
	}

	// Configure DNS-01 challenge with Cloudflare
	if m.config.CloudflareAPIToken != "" {
		cfProvider := &cloudflare.Provider{
			APIToken: m.config.CloudflareAPIToken,
		}

		certmagic.DefaultACME.DNS01Solver = &certmagic.DNS01Solver{
			DNSProvider: cfProvider,
		}
		slog.Info("Configured Cloudflare DNS-01 challenge for ACME")
	}

	certmagic.DefaultACME.Agreed = true
	certmagic.DefaultACME.Email = m.config.ACMEEmail

	if m.config.ACMECA == "production" {
		certmagic.DefaultACME.CA = certmagic.LetsEncryptProductionCA
		slog.Info("Using Let's Encrypt production CA")
	} else {
		certmagic.DefaultACME.CA = certmagic.LetsEncryptStagingCA
		slog.Info("Using Let's Encrypt staging CA")
	}

	m.magic = certmagic.NewDefault()

	domains := []string{m.config.ACMEDomain}
	domains = append(domains, m.config.ACMEDomains...)

	m.magic.OnEvent = func(ctx context.Context, event string, data map[string]any) error {
		switch event {
		case "cert_obtained", "cert_renewed":
			m.mu.Lock()
			m.lastRenewal = time.Now()
			m.mu.Unlock()
			slog.Info("Certificate obtained/renewed", "event", event, "data", data)
		case "cert_failed":
			slog.Error("Certificate operation failed", "event", event, "data", data)
		}
		return nil
	}

	// Obtain certificates asynchronously (don't block startup)
	if err := m.magic.ManageAsync(context.Background(), domains); err != nil {
		return fmt.Errorf("certmagic manage: %w", err)
	}

	m.tlsConfig = m.magic.TLSConfig()
	m.tlsConfig.MinVersion = m.tlsMinVersion()

	slog.Info("TLS initialized with ACME",
		"email", m.config.ACMEEmail,
		"domain", m.config.ACMEDomain,
		"ca", m.config.ACMECA,
	)

	return nil
}

func (m *Manager) tlsMinVersion() uint16 {
	switch m.config.MinVersion {
	case "1.3":
		return tls.VersionTLS13
	default:
		return tls.VersionTLS12
	}
}

// TLSConfig returns the current TLS configuration
func (m *Manager) TLSConfig() *tls.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tlsConfig
}

// GetStatus returns the current certificate status
func (m *Manager) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := Status{
		Enabled:     m.config.Enabled,
		CertMode:    m.config.CertMode,
		Domain:      m.config.ACMEDomain,
		Domains:     m.config.ACMEDomains,
		CertExpiry:  m.certExpiry,
		CertIssuer:  m.certIssuer,
		AutoRenewal: m.config.CertMode == "acme",
		LastRenewal: m.lastRenewal,
	}

	if !m.certExpiry.IsZero() {
		status.Valid = time.Now().Before(m.certExpiry)
	}

	return status
}

// ReloadCertificates reloads certificates from files (manual mode only)
func (m *Manager) ReloadCertificates() error {
	if m.config.CertMode != "manual" {
		return fmt.Errorf("reload only available in manual mode")
	}

	return m.initManual()
}
