package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/btafoya/pbxadmin/internal/config"
	"github.com/btafoya/pbxadmin/internal/db"
	"github.com/btafoya/pbxadmin/internal/models"
	"github.com/btafoya/pbxadmin/internal/twilio"
)

const (
	testAdminEmail    = "admin@example.com"
	testAdminPassword = "correct horse battery staple"
)

// mockTwilio is a scriptable TwilioClient for handler tests
type mockTwilio struct {
	numbers []twilio.IncomingPhoneNumber
	err     error
	healthy bool
}

func (m *mockTwilio) ListIncomingPhoneNumbers(ctx context.Context) ([]twilio.IncomingPhoneNumber, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.numbers, nil
}

func (m *mockTwilio) IsHealthy() bool { return m.healthy }

// testEnv is a running API server over an in-memory database with one
// authenticated admin user
type testEnv struct {
	server *httptest.Server
	deps   *Dependencies
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithTwilio(t, nil)
}

func newTestEnvWithTwilio(t *testing.T, tw TwilioClient) *testEnv {
	t.Helper()

	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error = %v", err)
	}
	user := &models.User{
		Email:        testAdminEmail,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		CreatedAt:    time.Now(),
	}
	if err := database.Users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user error = %v", err)
	}

	token, err := createSession(context.Background(), database, user.ID)
	if err != nil {
		t.Fatalf("createSession() error = %v", err)
	}

	deps := &Dependencies{
		DB:        database,
		Config:    &config.Config{SIPDomain: "pbx.example.com"},
		Twilio:    tw,
		StartedAt: time.Now(),
	}

	server := httptest.NewServer(NewRouter(deps))
	t.Cleanup(server.Close)

	return &testEnv{server: server, deps: deps, token: token}
}

// do performs an authenticated request and decodes the JSON response into out
func (e *testEnv) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reqBody)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response from %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func testRoute(id, name string, priority int) *models.RoutingRule {
	return &models.RoutingRule{
		ResourceMeta: models.ResourceMeta{ID: id, Priority: priority, Enabled: true},
		Name:         name,
		Pattern:      ".*",
		Destination:  models.Destination{Type: models.DestinationExtension, Value: "1000"},
		Action:       models.ActionAccept,
	}
}
