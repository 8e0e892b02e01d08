package api

import (
	"fmt"
	"net/http"
)

// TLSHandler serves certificate status for the API listener
type TLSHandler struct {
	deps *Dependencies
}

// NewTLSHandler creates a new TLSHandler
func NewTLSHandler(deps *Dependencies) *TLSHandler {
	return &TLSHandler{deps: deps}
}

// GetStatus returns the current TLS configuration and certificate status.
// When TLS is disabled the manager is nil and only enabled=false is reported.
func (h *TLSHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if h.deps.Certs == nil {
		WriteJSON(w, http.StatusOK, map[string]any{"enabled": false})
		return
	}

	WriteJSON(w, http.StatusOK, h.deps.Certs.GetStatus())
}

// ReloadCertificates reloads certificates from files (manual mode only)
func (h *TLSHandler) ReloadCertificates(w http.ResponseWriter, r *http.Request) {
	if h.deps.Certs == nil {
		WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, "TLS is not enabled", nil)
		return
	}

	if err := h.deps.Certs.ReloadCertificates(); err != nil {
		WriteError(w, http.StatusInternalServerError, ErrCodeInternal,
			fmt.Sprintf("Certificate reload failed: %v", err), nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Certificates reloaded successfully",
	})
}
