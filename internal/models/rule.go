package models

import (
	"fmt"
	"regexp"
)

// RuleAction is the outcome a routing rule records when it matches
type RuleAction string

const (
	// ActionAccept routes the call to the rule's destination
	ActionAccept RuleAction = "accept"
	// ActionReject refuses the call
	ActionReject RuleAction = "reject"
	// ActionContinue matches without resolving the call; evaluation always
	// proceeds past it
	ActionContinue RuleAction = "continue"
)

// RoutingRule decides how inbound calls are routed. Rules are evaluated in
// ascending priority order; the dialed destination must match Pattern and
// every condition must hold for the rule to apply.
type RoutingRule struct {
	ResourceMeta
	Name            string      `json:"name"`
	Description     string      `json:"description,omitempty"`
	Pattern         string      `json:"pattern"`
	Destination     Destination `json:"destination"`
	Conditions      Conditions  `json:"conditions,omitempty"`
	Action          RuleAction  `json:"action"`
	ContinueOnMatch bool        `json:"continue_on_match"`
}

// Validate reports problems with the rule's fields
func (r *RoutingRule) Validate() []string {
	var problems []string
	if r.Name == "" {
		problems = append(problems, "name is required")
	}
	if r.Pattern == "" {
		problems = append(problems, "pattern is required")
	} else if _, err := regexp.Compile(r.Pattern); err != nil {
		problems = append(problems, "invalid pattern: "+err.Error())
	}
	switch r.Action {
	case ActionAccept, ActionReject, ActionContinue:
	case "":
		problems = append(problems, "action is required")
	default:
		problems = append(problems, fmt.Sprintf("invalid action %q", r.Action))
	}
	problems = append(problems, r.Destination.Validate()...)
	for i, c := range r.Conditions {
		for _, p := range c.Validate() {
			problems = append(problems, fmt.Sprintf("condition %d: %s", i, p))
		}
	}
	return problems
}
