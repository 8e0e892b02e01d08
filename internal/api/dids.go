package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/btafoya/pbxadmin/internal/models"
)

// DIDHandler adds the provider sync endpoint on top of the standard
// collection handler
type DIDHandler struct {
	deps *Dependencies
}

// NewDIDHandler creates a new DIDHandler
func NewDIDHandler(deps *Dependencies) *DIDHandler {
	return &DIDHandler{deps: deps}
}

// SyncResponse reports the outcome of a provider sync
type SyncResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
}

// SyncFromTwilio imports the provider's owned phone numbers into the DID
// collection. Numbers already present are updated in place; new numbers are
// appended at the end of the ordering.
func (h *DIDHandler) SyncFromTwilio(w http.ResponseWriter, r *http.Request) {
	if h.deps.Twilio == nil || !h.deps.Twilio.IsHealthy() {
		WriteError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Twilio is not configured", nil)
		return
	}

	twilioNumbers, err := h.deps.Twilio.ListIncomingPhoneNumbers(r.Context())
	if err != nil {
		WriteError(w, http.StatusBadGateway, ErrCodeBadGateway, "Failed to fetch phone numbers from Twilio: "+err.Error(), nil)
		return
	}

	existing, err := h.deps.DB.DIDs.List(r.Context())
	if err != nil {
		WriteInternalError(w)
		return
	}

	existingByNumber := make(map[string]*models.DID, len(existing))
	for _, did := range existing {
		existingByNumber[did.Number] = did
	}

	var created, updated int
	nextPriority := len(existing)

	for _, tn := range twilioNumbers {
		if did, ok := existingByNumber[tn.PhoneNumber]; ok {
			did.ProviderSID = tn.SID
			did.SMSEnabled = tn.SMSEnabled
			did.VoiceEnabled = tn.VoiceEnabled
			if did.Name == "" && tn.FriendlyName != "" {
				did.Name = tn.FriendlyName
			}
			if err := h.deps.DB.DIDs.Update(r.Context(), did); err != nil {
				continue
			}
			updated++
		} else {
			did := &models.DID{
				ResourceMeta: models.ResourceMeta{
					ID:       uuid.NewString(),
					Priority: nextPriority,
					Enabled:  true,
				},
				Number:       tn.PhoneNumber,
				Name:         tn.FriendlyName,
				ProviderSID:  tn.SID,
				SMSEnabled:   tn.SMSEnabled,
				VoiceEnabled: tn.VoiceEnabled,
			}
			if err := h.deps.DB.DIDs.Create(r.Context(), did); err != nil {
				continue
			}
			nextPriority++
			created++
		}
	}

	WriteJSON(w, http.StatusOK, SyncResponse{
		Success: true,
		Message: "DIDs synced from Twilio",
		Created: created,
		Updated: updated,
	})
}
