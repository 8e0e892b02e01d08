package console

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/btafoya/pbxadmin/internal/api"
	"github.com/btafoya/pbxadmin/internal/client"
	"github.com/btafoya/pbxadmin/internal/config"
	"github.com/btafoya/pbxadmin/internal/db"
	"github.com/btafoya/pbxadmin/internal/models"
)

// newTestConsole spins up a real API server over an in-memory database and
// binds a console to it
func newTestConsole(t *testing.T) (*Console, *bytes.Buffer, *db.DB) {
	t.Helper()

	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("operator pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error = %v", err)
	}
	user := &models.User{
		Email:        "op@example.com",
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		CreatedAt:    time.Now(),
	}
	if err := database.Users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user error = %v", err)
	}

	server := httptest.NewServer(api.NewRouter(&api.Dependencies{
		DB:        database,
		Config:    &config.Config{SIPDomain: "pbx.example.com"},
		StartedAt: time.Now(),
	}))
	t.Cleanup(server.Close)

	c := client.New(server.URL)
	if err := c.Login(context.Background(), "op@example.com", "operator pass"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	out := &bytes.Buffer{}
	con := New(c, strings.NewReader(""), out)
	if err := con.RefreshAll(context.Background()); err != nil {
		t.Fatalf("RefreshAll() error = %v", err)
	}
	return con, out, database
}

func mustExecute(t *testing.T, con *Console, line string) {
	t.Helper()
	if _, err := con.Execute(context.Background(), line); err != nil {
		t.Fatalf("Execute(%q) error = %v", line, err)
	}
}

func seedRoute(t *testing.T, database *db.DB, id string, priority int) {
	t.Helper()
	rule := &models.RoutingRule{
		ResourceMeta: models.ResourceMeta{ID: id, Priority: priority, Enabled: true},
		Name:         "rule " + id,
		Pattern:      ".*",
		Destination:  models.Destination{Type: models.DestinationExtension, Value: "1000"},
		Action:       models.ActionAccept,
	}
	if err := database.Routes.Create(context.Background(), rule); err != nil {
		t.Fatalf("seed route %s: %v", id, err)
	}
}

func TestExecuteExit(t *testing.T) {
	con, _, _ := newTestConsole(t)

	for _, cmd := range []string{"exit", "quit", "q"} {
		done, err := con.Execute(context.Background(), cmd)
		if err != nil {
			t.Errorf("Execute(%q) error = %v", cmd, err)
		}
		if !done {
			t.Errorf("Execute(%q) done = false, want true", cmd)
		}
	}
}

func TestExecuteHelp(t *testing.T) {
	con, out, _ := newTestConsole(t)

	done, err := con.Execute(context.Background(), "help")
	if err != nil || done {
		t.Fatalf("Execute(help) = (%v, %v)", done, err)
	}
	for _, want := range []string{"show", "move", "test", "sync dids"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestExecuteUnknownCommand(t *testing.T) {
	con, _, _ := newTestConsole(t)

	if _, err := con.Execute(context.Background(), "frobnicate"); err == nil {
		t.Error("unknown command should error")
	}
}

func TestExecuteUsageErrors(t *testing.T) {
	con, _, _ := newTestConsole(t)
	ctx := context.Background()

	for _, line := range []string{
		"show",
		"move routes onlytwo",
		"move routes x notanumber",
		"enable routes",
		"rm routes",
		"add routes notjson",
		"test onlycaller",
		"sync extensions",
		"show bogus-collection",
	} {
		if _, err := con.Execute(ctx, line); err == nil {
			t.Errorf("Execute(%q) should error", line)
		}
	}
}

func TestLookupAliases(t *testing.T) {
	con, _, _ := newTestConsole(t)

	tests := []struct {
		alias string
		want  string
	}{
		{"ext", "extensions"},
		{"extension", "extensions"},
		{"trunk", "trunks"},
		{"did", "dids"},
		{"groups", "ring-groups"},
		{"ring-group", "ring-groups"},
		{"profiles", "sip-profiles"},
		{"codec", "codecs"},
		{"rules", "routes"},
		{"route", "routes"},
		{"ROUTES", "routes"},
	}

	for _, tt := range tests {
		v, err := con.lookup(tt.alias)
		if err != nil {
			t.Errorf("lookup(%q) error = %v", tt.alias, err)
			continue
		}
		if v.Name() != tt.want {
			t.Errorf("lookup(%q) = %s, want %s", tt.alias, v.Name(), tt.want)
		}
	}

	if _, err := con.lookup("nonsense"); err == nil {
		t.Error("lookup(nonsense) should error")
	}
}

func TestShowRendersCollection(t *testing.T) {
	con, out, database := newTestConsole(t)

	mustExecute(t, con, "show routes")
	if !strings.Contains(out.String(), "no routes") {
		t.Errorf("empty collection output = %q", out.String())
	}

	seedRoute(t, database, "alpha-route", 0)
	mustExecute(t, con, "refresh")

	out.Reset()
	mustExecute(t, con, "show routes")
	rendered := out.String()
	if !strings.Contains(rendered, "rule alpha-route") || !strings.Contains(rendered, "alpha-ro") {
		t.Errorf("show routes output = %q", rendered)
	}
}

func TestAddCreatesOnServer(t *testing.T) {
	con, out, database := newTestConsole(t)

	mustExecute(t, con, `add routes {"name":"office","pattern":"^\\+1","action":"accept","destination":{"type":"Hangup"},"enabled":true}`)
	if !strings.Contains(out.String(), "created ") {
		t.Errorf("add output = %q", out.String())
	}

	rules, err := database.Routes.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(rules) != 1 || rules[0].Name != "office" {
		t.Errorf("server rules = %+v", rules)
	}

	// The local snapshot already carries the new rule.
	if con.views["routes"].Len() != 1 {
		t.Errorf("local snapshot len = %d, want 1", con.views["routes"].Len())
	}
}

func TestAddRejectsInvalidDocument(t *testing.T) {
	con, _, database := newTestConsole(t)

	if _, err := con.Execute(context.Background(),
		`add routes {"name":"broken","pattern":"[","action":"accept","destination":{"type":"Hangup"}}`); err == nil {
		t.Error("invalid rule should be rejected before reaching the server")
	}

	count, err := database.Routes.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Errorf("server count = %d, want 0", count)
	}
}

func TestMoveReordersServerAndSnapshot(t *testing.T) {
	con, _, database := newTestConsole(t)

	for i, id := range []string{"aaa-1", "bbb-2", "ccc-3"} {
		seedRoute(t, database, id, i)
	}
	mustExecute(t, con, "refresh")

	// Prefix resolution finds aaa-1 from "aaa".
	mustExecute(t, con, "move routes aaa 2")

	rules, err := database.Routes.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	got := []string{rules[0].ID, rules[1].ID, rules[2].ID}
	want := []string{"bbb-2", "ccc-3", "aaa-1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("server order = %v, want %v", got, want)
		}
	}

	snapshot := con.routes.Snapshot().Items()
	if snapshot[2].ID != "aaa-1" || snapshot[2].Priority != 2 {
		t.Errorf("snapshot tail = %+v, want aaa-1 at priority 2", snapshot[2])
	}
}

func TestEnableDisable(t *testing.T) {
	con, _, database := newTestConsole(t)

	seedRoute(t, database, "toggle-me", 0)
	mustExecute(t, con, "refresh")

	mustExecute(t, con, "disable routes toggle")
	rule, err := database.Routes.GetByID(context.Background(), "toggle-me")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if rule.Enabled {
		t.Error("rule should be disabled on the server")
	}

	mustExecute(t, con, "enable routes toggle")
	rule, err = database.Routes.GetByID(context.Background(), "toggle-me")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !rule.Enabled {
		t.Error("rule should be enabled again")
	}
}

func TestRemove(t *testing.T) {
	con, _, database := newTestConsole(t)

	seedRoute(t, database, "doomed", 0)
	mustExecute(t, con, "refresh")

	mustExecute(t, con, "rm routes doomed")

	count, err := database.Routes.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Errorf("server count = %d, want 0", count)
	}
}

func TestAmbiguousPrefix(t *testing.T) {
	con, _, database := newTestConsole(t)

	seedRoute(t, database, "shared-prefix-1", 0)
	seedRoute(t, database, "shared-prefix-2", 1)
	mustExecute(t, con, "refresh")

	if _, err := con.Execute(context.Background(), "rm routes shared"); err == nil {
		t.Error("ambiguous prefix should error")
	}
}

func TestCallSimulation(t *testing.T) {
	con, out, database := newTestConsole(t)

	external := &models.RoutingRule{
		ResourceMeta: models.ResourceMeta{ID: "ext-route", Priority: 0, Enabled: true},
		Name:         "external",
		Pattern:      `^\+`,
		Destination:  models.Destination{Type: models.DestinationTrunk, Value: "main"},
		Action:       models.ActionAccept,
	}
	if err := database.Routes.Create(context.Background(), external); err != nil {
		t.Fatalf("seed route: %v", err)
	}
	mustExecute(t, con, "refresh")

	t.Run("server evaluation", func(t *testing.T) {
		out.Reset()
		mustExecute(t, con, "test +15551234567 +442071234567")
		if !strings.Contains(out.String(), `matched "external"`) {
			t.Errorf("output = %q", out.String())
		}
		if !strings.Contains(out.String(), "(server)") {
			t.Errorf("output should name the server source: %q", out.String())
		}
	})

	t.Run("local evaluation agrees", func(t *testing.T) {
		out.Reset()
		mustExecute(t, con, "test -local +15551234567 +442071234567")
		if !strings.Contains(out.String(), `matched "external"`) {
			t.Errorf("output = %q", out.String())
		}
		if !strings.Contains(out.String(), "(local snapshot)") {
			t.Errorf("output should name the local source: %q", out.String())
		}
	})

	t.Run("no match", func(t *testing.T) {
		out.Reset()
		mustExecute(t, con, "test 1000 2000")
		if !strings.Contains(out.String(), "no rule matched") {
			t.Errorf("output = %q", out.String())
		}
	})
}

func TestRunLoop(t *testing.T) {
	con, out, _ := newTestConsole(t)

	con.in = strings.NewReader("show routes\nbadcmd\nexit\n")
	if err := con.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	rendered := out.String()
	if !strings.Contains(rendered, "no routes") {
		t.Errorf("output missing collection render: %q", rendered)
	}
	if !strings.Contains(rendered, "error: unknown command") {
		t.Errorf("output missing command error: %q", rendered)
	}
}
