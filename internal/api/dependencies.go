package api

import (
	"context"
	"time"

	"github.com/btafoya/pbxadmin/internal/certs"
	"github.com/btafoya/pbxadmin/internal/config"
	"github.com/btafoya/pbxadmin/internal/db"
	"github.com/btafoya/pbxadmin/internal/twilio"
)

// TwilioClient is the provider surface the DID sync endpoint needs
type TwilioClient interface {
	ListIncomingPhoneNumbers(ctx context.Context) ([]twilio.IncomingPhoneNumber, error)
	IsHealthy() bool
}

// Dependencies holds the shared dependencies for API handlers
type Dependencies struct {
	DB        *db.DB
	Config    *config.Config
	Twilio    TwilioClient
	Certs     *certs.Manager
	StartedAt time.Time
}
