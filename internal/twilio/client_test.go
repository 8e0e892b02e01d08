package twilio

import (
	"context"
	"testing"
)

func TestNewClientWithoutCredentials(t *testing.T) {
	c := NewClient("", "")

	if c.IsHealthy() {
		t.Error("unconfigured client should not report healthy")
	}
	if _, err := c.ListIncomingPhoneNumbers(context.Background()); err == nil {
		t.Error("unconfigured client should refuse API calls")
	}
}

func TestUpdateCredentialsResetsHealth(t *testing.T) {
	c := NewClient("AC123", "token")
	if !c.IsHealthy() {
		t.Fatal("configured client should start healthy")
	}

	// Three consecutive failures mark the client unhealthy.
	for i := 0; i < 3; i++ {
		c.recordFailure()
	}
	if c.IsHealthy() {
		t.Error("client should be unhealthy after repeated failures")
	}

	c.UpdateCredentials("AC456", "newtoken")
	if !c.IsHealthy() {
		t.Error("fresh credentials should reset health")
	}
}

func TestRecordSuccessClearsFailures(t *testing.T) {
	c := NewClient("AC123", "token")

	c.recordFailure()
	c.recordFailure()
	c.recordSuccess()
	c.recordFailure()
	c.recordFailure()

	if !c.IsHealthy() {
		t.Error("a success between failures should reset the count")
	}
}
