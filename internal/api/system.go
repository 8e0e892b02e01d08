package api

import (
	"net/http"
	"time"
)

// SystemHandler serves health and stats endpoints
type SystemHandler struct {
	deps    *Dependencies
	version string
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(deps *Dependencies, version string) *SystemHandler {
	return &SystemHandler{deps: deps, version: version}
}

// Health reports liveness; it never touches the database
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": h.version,
		"uptime":  time.Since(h.deps.StartedAt).Round(time.Second).String(),
	})
}

// Stats reports collection sizes and server info
func (h *SystemHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	counts := map[string]int{}
	for key, count := range map[string]func() (int, error){
		"extensions":   func() (int, error) { return h.deps.DB.Extensions.Count(ctx) },
		"trunks":       func() (int, error) { return h.deps.DB.Trunks.Count(ctx) },
		"dids":         func() (int, error) { return h.deps.DB.DIDs.Count(ctx) },
		"ring_groups":  func() (int, error) { return h.deps.DB.RingGroups.Count(ctx) },
		"sip_profiles": func() (int, error) { return h.deps.DB.SipProfiles.Count(ctx) },
		"codecs":       func() (int, error) { return h.deps.DB.Codecs.Count(ctx) },
		"routes":       func() (int, error) { return h.deps.DB.Routes.Count(ctx) },
	} {
		n, err := count()
		if err != nil {
			WriteInternalError(w)
			return
		}
		counts[key] = n
	}

	twilioConfigured := h.deps.Twilio != nil && h.deps.Twilio.IsHealthy()

	WriteJSON(w, http.StatusOK, map[string]any{
		"version":           h.version,
		"uptime":            time.Since(h.deps.StartedAt).Round(time.Second).String(),
		"collections":       counts,
		"twilio_configured": twilioConfigured,
	})
}
