package routing

import (
	"regexp"
	"sort"

	"github.com/btafoya/pbxadmin/internal/models"
)

// CallContext describes a call attempt to evaluate
type CallContext struct {
	CallerID    string
	Destination string
}

// MatchResult is the evaluator's decision for a call attempt
type MatchResult struct {
	Matched     bool
	RuleID      string
	RuleName    string
	Action      models.RuleAction
	Destination models.Destination
}

// Evaluator runs routing rules against call attempts
type Evaluator struct {
	matcher *ConditionMatcher
}

// NewEvaluator creates an evaluator using the system clock
func NewEvaluator() *Evaluator {
	return &Evaluator{matcher: NewConditionMatcher()}
}

// NewEvaluatorWithMatcher creates an evaluator with an explicit matcher,
// used by tests to pin the clock
func NewEvaluatorWithMatcher(m *ConditionMatcher) *Evaluator {
	return &Evaluator{matcher: m}
}

// SortRules returns a copy of rules ordered ascending by priority. The sort
// is stable so rules sharing a priority keep their existing relative order.
func SortRules(rules []*models.RoutingRule) []*models.RoutingRule {
	ordered := make([]*models.RoutingRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})
	return ordered
}

// Evaluate runs the rules against a call attempt and returns the decision.
//
// Rules are considered in ascending priority order; disabled rules are
// skipped. A rule applies when its pattern matches the dialed destination
// and every condition holds. An applying accept or reject rule records a
// candidate decision; a continue rule records nothing and evaluation always
// proceeds past it. When an accept or reject rule with continue_on_match
// unset applies, the latest candidate is returned immediately; otherwise
// evaluation continues and the last recorded candidate wins. With no
// candidate the result is unmatched.
func (e *Evaluator) Evaluate(rules []*models.RoutingRule, call CallContext) MatchResult {
	var candidate *MatchResult

	for _, rule := range SortRules(rules) {
		if !rule.Enabled {
			continue
		}
		if !patternMatches(rule.Pattern, call.Destination) {
			continue
		}
		if !e.matcher.Matches(rule.Conditions, call.CallerID, call.Destination) {
			continue
		}

		if rule.Action == models.ActionContinue {
			continue
		}

		candidate = &MatchResult{
			Matched:     true,
			RuleID:      rule.ID,
			RuleName:    rule.Name,
			Action:      rule.Action,
			Destination: rule.Destination,
		}

		if !rule.ContinueOnMatch {
			return *candidate
		}
	}

	if candidate != nil {
		return *candidate
	}
	return MatchResult{}
}

func patternMatches(pattern, destination string) bool {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(destination)
}
