package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/btafoya/pbxadmin/internal/collection"
	"github.com/btafoya/pbxadmin/internal/models"
	"github.com/btafoya/pbxadmin/internal/routing"
)

// Collection is the typed client for one server-side ordered collection.
// It implements collection.Authority, so a Syncer can commit through it.
type Collection[T collection.Resource] struct {
	c       *Client
	path    string // "/api/v1/routes"
	listKey string // "routes"
}

// NewCollection creates a typed collection client
func NewCollection[T collection.Resource](c *Client, path, listKey string) *Collection[T] {
	return &Collection[T]{c: c, path: path, listKey: listKey}
}

// Fetch returns the collection in server order
func (col *Collection[T]) Fetch(ctx context.Context) ([]T, error) {
	var raw map[string]json.RawMessage
	if err := col.c.do(ctx, http.MethodGet, col.path, nil, &raw); err != nil {
		return nil, err
	}

	payload, ok := raw[col.listKey]
	if !ok {
		return nil, fmt.Errorf("malformed response: missing %q key", col.listKey)
	}

	var items []T
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", col.listKey, err)
	}
	return items, nil
}

// Create posts a new resource
func (col *Collection[T]) Create(ctx context.Context, item T) error {
	return col.c.do(ctx, http.MethodPost, col.path, item, nil)
}

// Update replaces the resource with the same id
func (col *Collection[T]) Update(ctx context.Context, item T) error {
	return col.c.do(ctx, http.MethodPut, col.path+"/"+item.ResourceID(), item, nil)
}

// Delete removes a resource by id
func (col *Collection[T]) Delete(ctx context.Context, id string) error {
	return col.c.do(ctx, http.MethodDelete, col.path+"/"+id, nil, nil)
}

// Reorder moves the item at fromIndex to toIndex and returns the full
// authoritative ordered list from the server
func (col *Collection[T]) Reorder(ctx context.Context, fromIndex, toIndex int) ([]T, error) {
	body := map[string]int{"from_index": fromIndex, "to_index": toIndex}

	var raw map[string]json.RawMessage
	if err := col.c.do(ctx, http.MethodPost, col.path+"/reorder", body, &raw); err != nil {
		return nil, err
	}

	payload, ok := raw[col.listKey]
	if !ok {
		return nil, fmt.Errorf("malformed reorder response: missing %q key", col.listKey)
	}

	var items []T
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("decode reordered %s: %w", col.listKey, err)
	}
	return items, nil
}

// TestRouteResult is the server's decision for a simulated call
type TestRouteResult struct {
	Success     bool                `json:"success"`
	Matched     bool                `json:"matched"`
	RouteID     string              `json:"route_id,omitempty"`
	RouteName   string              `json:"route_name,omitempty"`
	Destination *models.Destination `json:"destination,omitempty"`
	Action      string              `json:"action,omitempty"`
	Message     string              `json:"message,omitempty"`
}

// TestRoute asks the server to evaluate a simulated call attempt
func (c *Client) TestRoute(ctx context.Context, call routing.CallContext) (*TestRouteResult, error) {
	body := map[string]string{
		"caller_id":   call.CallerID,
		"destination": call.Destination,
	}

	var result TestRouteResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/routes/test", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SyncDIDs triggers a provider sync on the server
func (c *Client) SyncDIDs(ctx context.Context) (created, updated int, err error) {
	var resp struct {
		Created int `json:"created"`
		Updated int `json:"updated"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/dids/sync", nil, &resp); err != nil {
		return 0, 0, err
	}
	return resp.Created, resp.Updated, nil
}

// Stats returns the server's stats payload
func (c *Client) Stats(ctx context.Context) (map[string]json.RawMessage, error) {
	var stats map[string]json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/v1/stats", nil, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}
