// Package twilio wraps the Twilio API client for DID synchronization
package twilio

import (
	"context"
	"fmt"
	"sync"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Client wraps the Twilio REST client with health tracking
type Client struct {
	client       *twilio.RestClient
	accountSID   string
	mu           sync.RWMutex
	healthy      bool
	failureCount int
}

// NewClient creates a new Twilio client. With empty credentials the client
// stays uninitialized and every call reports Twilio as unconfigured.
func NewClient(accountSID, authToken string) *Client {
	c := &Client{}
	if accountSID != "" && authToken != "" {
		c.UpdateCredentials(accountSID, authToken)
	}
	return c
}

// UpdateCredentials updates the Twilio credentials and reinitializes the client
func (c *Client) UpdateCredentials(accountSID, authToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.accountSID = accountSID
	c.client = twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	c.healthy = true
	c.failureCount = 0
}

// IsHealthy returns the current health status of the Twilio connection
func (c *Client) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.healthy && c.client != nil
}

// IncomingPhoneNumber is a phone number owned by the Twilio account
type IncomingPhoneNumber struct {
	SID          string
	PhoneNumber  string
	FriendlyName string
	SMSEnabled   bool
	VoiceEnabled bool
}

// ListIncomingPhoneNumbers returns phone numbers owned by the account
func (c *Client) ListIncomingPhoneNumbers(ctx context.Context) ([]IncomingPhoneNumber, error) {
	c.mu.RLock()
	if c.client == nil {
		c.mu.RUnlock()
		return nil, fmt.Errorf("twilio client not initialized")
	}
	client := c.client
	c.mu.RUnlock()

	params := &twilioApi.ListIncomingPhoneNumberParams{}

	resp, err := client.Api.ListIncomingPhoneNumber(params)
	if err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("twilio API error: %w", err)
	}

	c.recordSuccess()

	var numbers []IncomingPhoneNumber
	for _, n := range resp {
		number := IncomingPhoneNumber{}
		if n.Sid != nil {
			number.SID = *n.Sid
		}
		if n.PhoneNumber != nil {
			number.PhoneNumber = *n.PhoneNumber
		}
		if n.FriendlyName != nil {
			number.FriendlyName = *n.FriendlyName
		}
		if n.Capabilities != nil {
			number.SMSEnabled = n.Capabilities.Sms
			number.VoiceEnabled = n.Capabilities.Voice
		}
		numbers = append(numbers, number)
	}

	return numbers, nil
}

func (c *Client) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.healthy = true
	c.failureCount = 0
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failureCount++
	if c.failureCount >= 3 {
		c.healthy = false
	}
}
