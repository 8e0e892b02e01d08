// Package routing evaluates routing rules against call attempts. The same
// evaluator backs the server's test endpoint and the console's local
// simulation, so both always reach the same decision.
package routing

import (
	"regexp"
	"time"

	"github.com/btafoya/pbxadmin/internal/models"
)

// Clock supplies the current time to time-sensitive conditions. Production
// code uses the system clock; tests pin a fixed instant.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// ConditionMatcher checks whether a rule's conditions hold for a call
type ConditionMatcher struct {
	clock Clock
}

// NewConditionMatcher creates a matcher using the system clock
func NewConditionMatcher() *ConditionMatcher {
	return &ConditionMatcher{clock: systemClock{}}
}

// NewConditionMatcherWithClock creates a matcher with an explicit clock
func NewConditionMatcherWithClock(clock Clock) *ConditionMatcher {
	return &ConditionMatcher{clock: clock}
}

// Matches reports whether every condition holds for the given caller id and
// dialed destination. An empty condition list always holds.
func (m *ConditionMatcher) Matches(conditions models.Conditions, callerID, destination string) bool {
	for _, c := range conditions {
		if !m.matchCondition(c, callerID, destination) {
			return false
		}
	}
	return true
}

func (m *ConditionMatcher) matchCondition(c models.Condition, callerID, destination string) bool {
	switch cond := c.(type) {
	case models.TimeCondition:
		return m.matchTime(cond)
	case models.DayOfWeekCondition:
		return m.matchDayOfWeek(cond)
	case models.DateRangeCondition:
		return m.matchDateRange(cond)
	case models.CallerIDCondition:
		return matchPattern(cond.Pattern, callerID, cond.Negate)
	case models.DestinationCondition:
		return matchPattern(cond.Pattern, destination, cond.Negate)
	default:
		return false
	}
}

// matchTime checks the current time of day against the half-open window
// [start, end). A window whose end is not after its start never matches.
func (m *ConditionMatcher) matchTime(c models.TimeCondition) bool {
	start, err := models.ParseClockTime(c.StartTime)
	if err != nil {
		return false
	}
	end, err := models.ParseClockTime(c.EndTime)
	if err != nil {
		return false
	}
	if end <= start {
		return false
	}

	now := m.clock.Now()
	cur := now.Hour()*60 + now.Minute()
	return cur >= start && cur < end
}

// matchDayOfWeek checks the current ISO weekday (Monday = 1 .. Sunday = 7)
func (m *ConditionMatcher) matchDayOfWeek(c models.DayOfWeekCondition) bool {
	isoDay := (int(m.clock.Now().Weekday())+6)%7 + 1
	for _, d := range c.Days {
		if d == isoDay {
			return true
		}
	}
	return false
}

// matchDateRange checks the current date against the inclusive range
func (m *ConditionMatcher) matchDateRange(c models.DateRangeCondition) bool {
	start, err := models.ParseDate(c.StartDate)
	if err != nil {
		return false
	}
	end, err := models.ParseDate(c.EndDate)
	if err != nil {
		return false
	}

	now := m.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return !today.Before(start) && !today.After(end)
}

// matchPattern applies a regular expression with an optional negation. A
// pattern that fails to compile never matches, negated or not.
func matchPattern(pattern, value string, negate bool) bool {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	matched := re.MatchString(value)
	if negate {
		return !matched
	}
	return matched
}
