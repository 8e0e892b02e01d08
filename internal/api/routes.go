package api

import (
	"encoding/json"
	"net/http"

	"github.com/btafoya/pbxadmin/internal/models"
	"github.com/btafoya/pbxadmin/internal/routing"
)

// RouteHandler adds the route-specific endpoints on top of the standard
// collection handler
type RouteHandler struct {
	deps *Dependencies
}

// NewRouteHandler creates a new RouteHandler
func NewRouteHandler(deps *Dependencies) *RouteHandler {
	return &RouteHandler{deps: deps}
}

// TestRouteRequest is a simulated call attempt
type TestRouteRequest struct {
	CallerID    string `json:"caller_id"`
	Destination string `json:"destination"`
}

// TestRouteResponse is the evaluator's decision for a simulated call
type TestRouteResponse struct {
	Success     bool                `json:"success"`
	Matched     bool                `json:"matched"`
	RouteID     string              `json:"route_id,omitempty"`
	RouteName   string              `json:"route_name,omitempty"`
	Destination *models.Destination `json:"destination,omitempty"`
	Action      string              `json:"action,omitempty"`
	Message     string              `json:"message,omitempty"`
}

// Test runs the routing evaluator against the current rule set without
// placing a call. The console's local simulation runs the same evaluator,
// so both always agree.
func (h *RouteHandler) Test(w http.ResponseWriter, r *http.Request) {
	var req TestRouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteFailure(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Destination == "" {
		WriteFailure(w, http.StatusBadRequest, "destination is required")
		return
	}

	rules, err := h.deps.DB.Routes.List(r.Context())
	if err != nil {
		WriteInternalError(w)
		return
	}

	result := routing.NewEvaluator().Evaluate(rules, routing.CallContext{
		CallerID:    req.CallerID,
		Destination: req.Destination,
	})

	resp := TestRouteResponse{
		Success: true,
		Matched: result.Matched,
	}
	if result.Matched {
		resp.RouteID = result.RuleID
		resp.RouteName = result.RuleName
		resp.Action = string(result.Action)
		dest := result.Destination
		resp.Destination = &dest
	} else {
		resp.Message = "No route matched"
	}

	WriteJSON(w, http.StatusOK, resp)
}
