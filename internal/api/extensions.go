package api

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"

	"github.com/btafoya/pbxadmin/internal/db"
)

// ExtensionHandler adds the provisioning QR endpoint on top of the standard
// collection handler
type ExtensionHandler struct {
	deps *Dependencies
}

// NewExtensionHandler creates a new ExtensionHandler
func NewExtensionHandler(deps *Dependencies) *ExtensionHandler {
	return &ExtensionHandler{deps: deps}
}

// QRCode renders a provisioning QR code for the extension's SIP account.
// With ?format=png the raw image is returned; otherwise the response is a
// JSON object carrying a base64 data URL.
func (h *ExtensionHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	ext, err := h.deps.DB.Extensions.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, db.ErrResourceNotFound) {
			WriteFailure(w, http.StatusNotFound, "Extension not found")
			return
		}
		WriteInternalError(w)
		return
	}

	// sip URI with embedded credentials, the format softphone apps scan
	uri := fmt.Sprintf("sip:%s:%s@%s", ext.Number, ext.SIPPassword, h.deps.Config.SIPDomain)

	format := r.URL.Query().Get("format")
	qrData, contentType, err := generateQRCode(uri, format)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to generate QR code", nil)
		return
	}

	if format == "png" {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"extension-%s.png\"", ext.Number))
		w.WriteHeader(http.StatusOK)
		w.Write(qrData)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"qr_code":   string(qrData),
		"extension": ext.Number,
		"domain":    h.deps.Config.SIPDomain,
	})
}

// nopCloser wraps an io.Writer with a no-op Close method
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// generateQRCode creates a QR code image for the given content
func generateQRCode(content string, format string) ([]byte, string, error) {
	qrc, err := qrcode.New(content)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create QR code: %w", err)
	}

	var buf bytes.Buffer
	writer := standard.NewWithWriter(nopCloser{&buf}, standard.WithQRWidth(10))

	if err := qrc.Save(writer); err != nil {
		return nil, "", fmt.Errorf("failed to save QR code: %w", err)
	}

	if format == "png" {
		return buf.Bytes(), "image/png", nil
	}

	base64Data := base64.StdEncoding.EncodeToString(buf.Bytes())
	dataURL := fmt.Sprintf("data:image/png;base64,%s", base64Data)
	return []byte(dataURL), "text/plain", nil
}
