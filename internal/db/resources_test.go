package db

import (
	"context"
	"errors"
	"testing"

	"github.com/btafoya/pbxadmin/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return database
}

func testRule(id string, priority int) *models.RoutingRule {
	return &models.RoutingRule{
		ResourceMeta: models.ResourceMeta{ID: id, Priority: priority, Enabled: true},
		Name:         "rule " + id,
		Pattern:      ".*",
		Destination:  models.Destination{Type: models.DestinationExtension, Value: "1000"},
		Action:       models.ActionAccept,
	}
}

func ruleIDs(rules []*models.RoutingRule) []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.ID
	}
	return out
}

func assertOrder(t *testing.T, got []*models.RoutingRule, want ...string) {
	t.Helper()
	ids := ruleIDs(got)
	if len(ids) != len(want) {
		t.Fatalf("order = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("order = %v, want %v", ids, want)
		}
	}
}

func TestResourceRepositoryCRUD(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	rule := testRule("r1", 0)
	if err := database.Routes.Create(ctx, rule); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("duplicate id rejected", func(t *testing.T) {
		if err := database.Routes.Create(ctx, testRule("r1", 1)); !errors.Is(err, ErrResourceExists) {
			t.Errorf("Create(duplicate) error = %v, want ErrResourceExists", err)
		}
	})

	t.Run("get by id", func(t *testing.T) {
		got, err := database.Routes.GetByID(ctx, "r1")
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.Name != "rule r1" || got.Pattern != ".*" {
			t.Errorf("GetByID() = %+v", got)
		}
	})

	t.Run("get unknown id", func(t *testing.T) {
		if _, err := database.Routes.GetByID(ctx, "missing"); !errors.Is(err, ErrResourceNotFound) {
			t.Errorf("GetByID(missing) error = %v, want ErrResourceNotFound", err)
		}
	})

	t.Run("update", func(t *testing.T) {
		rule.Name = "renamed"
		rule.Enabled = false
		if err := database.Routes.Update(ctx, rule); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		got, err := database.Routes.GetByID(ctx, "r1")
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.Name != "renamed" || got.Enabled {
			t.Errorf("GetByID() after update = %+v", got)
		}
	})

	t.Run("update unknown id", func(t *testing.T) {
		if err := database.Routes.Update(ctx, testRule("missing", 0)); !errors.Is(err, ErrResourceNotFound) {
			t.Errorf("Update(missing) error = %v, want ErrResourceNotFound", err)
		}
	})

	t.Run("count", func(t *testing.T) {
		count, err := database.Routes.Count(ctx)
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if count != 1 {
			t.Errorf("Count() = %d, want 1", count)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := database.Routes.Delete(ctx, "r1"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if err := database.Routes.Delete(ctx, "r1"); !errors.Is(err, ErrResourceNotFound) {
			t.Errorf("Delete(again) error = %v, want ErrResourceNotFound", err)
		}
	})
}

func TestResourceRepositoryListOrder(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	// Insertion order breaks priority ties.
	for _, r := range []*models.RoutingRule{
		testRule("b", 5),
		testRule("c", 5),
		testRule("a", 0),
	} {
		if err := database.Routes.Create(ctx, r); err != nil {
			t.Fatalf("Create(%s) error = %v", r.ID, err)
		}
	}

	rules, err := database.Routes.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	assertOrder(t, rules, "a", "b", "c")
}

func TestResourceRepositoryListEnabled(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	enabled := testRule("on", 0)
	disabled := testRule("off", 1)
	disabled.Enabled = false

	for _, r := range []*models.RoutingRule{enabled, disabled} {
		if err := database.Routes.Create(ctx, r); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	rules, err := database.Routes.ListEnabled(ctx)
	if err != nil {
		t.Fatalf("ListEnabled() error = %v", err)
	}
	assertOrder(t, rules, "on")
}

func TestResourceRepositoryReorder(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c", "d"} {
		if err := database.Routes.Create(ctx, testRule(id, i)); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}

	reordered, err := database.Routes.Reorder(ctx, 0, 2)
	if err != nil {
		t.Fatalf("Reorder() error = %v", err)
	}
	assertOrder(t, reordered, "b", "c", "a", "d")

	// Priorities are renumbered 0..n-1 to match position.
	for i, r := range reordered {
		if r.Priority != i {
			t.Errorf("reordered[%d].Priority = %d, want %d", i, r.Priority, i)
		}
	}

	// A fresh list reflects the committed order.
	rules, err := database.Routes.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	assertOrder(t, rules, "b", "c", "a", "d")
	for i, r := range rules {
		if r.Priority != i {
			t.Errorf("rules[%d].Priority = %d, want %d", i, r.Priority, i)
		}
	}
}

func TestResourceRepositoryReorderRoundTrip(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c", "d"} {
		if err := database.Routes.Create(ctx, testRule(id, i)); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}

	moved, err := database.Routes.Reorder(ctx, 1, 3)
	if err != nil {
		t.Fatalf("Reorder(1, 3) error = %v", err)
	}
	assertOrder(t, moved, "a", "c", "d", "b")

	// Moving the same item back restores the original ordering exactly.
	restored, err := database.Routes.Reorder(ctx, 3, 1)
	if err != nil {
		t.Fatalf("Reorder(3, 1) error = %v", err)
	}
	assertOrder(t, restored, "a", "b", "c", "d")
	for i, r := range restored {
		if r.Priority != i {
			t.Errorf("restored[%d].Priority = %d, want %d", i, r.Priority, i)
		}
	}

	rules, err := database.Routes.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	assertOrder(t, rules, "a", "b", "c", "d")
}

func TestResourceRepositoryReorderBadIndex(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	if err := database.Routes.Create(ctx, testRule("a", 0)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name     string
		from, to int
	}{
		{"from negative", -1, 0},
		{"from past end", 1, 0},
		{"to negative", 0, -1},
		{"to past end", 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := database.Routes.Reorder(ctx, tt.from, tt.to); !errors.Is(err, ErrIndexOutOfRange) {
				t.Errorf("Reorder(%d, %d) error = %v, want ErrIndexOutOfRange", tt.from, tt.to, err)
			}
		})
	}
}

func TestResourceRepositoryColumnsAreAuthoritative(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	if err := database.Routes.Create(ctx, testRule("a", 0)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Desync the priority column from the stored document.
	if _, err := database.Conn().ExecContext(ctx,
		`UPDATE routes SET priority = 42, enabled = 0 WHERE id = 'a'`); err != nil {
		t.Fatalf("desync update error = %v", err)
	}

	got, err := database.Routes.GetByID(ctx, "a")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Priority != 42 || got.Enabled {
		t.Errorf("columns should win over document: %+v", got.ResourceMeta)
	}
}

func TestResourceRepositoryPreservesDocument(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	ext := &models.Extension{
		ResourceMeta:     models.ResourceMeta{ID: "e1", Enabled: true},
		Number:           "1000",
		Name:             "Front desk",
		VoicemailEnabled: true,
		SIPPassword:      "s3cret",
	}
	if err := database.Extensions.Create(ctx, ext); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := database.Extensions.GetByID(ctx, "e1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Number != "1000" || got.Name != "Front desk" || !got.VoicemailEnabled || got.SIPPassword != "s3cret" {
		t.Errorf("GetByID() = %+v", got)
	}
}
