package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// Condition restricts when a routing rule applies. The concrete types below
// are the only implementations; evaluation switches exhaustively on them.
type Condition interface {
	isCondition()

	// Validate reports problems with the condition's fields
	Validate() []string
}

// TimeCondition matches when the local time of day falls inside the
// half-open window [StartTime, EndTime). Times are "HH:MM" 24-hour strings.
// Windows never wrap midnight; EndTime must be strictly after StartTime.
type TimeCondition struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// DayOfWeekCondition matches on ISO weekday numbers, Monday = 1 .. Sunday = 7
type DayOfWeekCondition struct {
	Days []int `json:"days"`
}

// DateRangeCondition matches when the local date falls inside the inclusive
// range [StartDate, EndDate]. Dates are ISO "YYYY-MM-DD" strings.
type DateRangeCondition struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// CallerIDCondition matches the caller id against a regular expression.
// Negate inverts the match.
type CallerIDCondition struct {
	Pattern string `json:"pattern"`
	Negate  bool   `json:"negate"`
}

// DestinationCondition matches the dialed destination against a regular
// expression. Negate inverts the match.
type DestinationCondition struct {
	Pattern string `json:"pattern"`
	Negate  bool   `json:"negate"`
}

func (TimeCondition) isCondition()        {}
func (DayOfWeekCondition) isCondition()   {}
func (DateRangeCondition) isCondition()   {}
func (CallerIDCondition) isCondition()    {}
func (DestinationCondition) isCondition() {}

// Wire tags for the condition union
const (
	conditionTagTime        = "Time"
	conditionTagDayOfWeek   = "DayOfWeek"
	conditionTagDateRange   = "DateRange"
	conditionTagCallerID    = "CallerId"
	conditionTagDestination = "Destination"
)

// Conditions is an ordered condition list with polymorphic JSON encoding.
// Each element is encoded as {"type": "<Tag>", ...fields}.
type Conditions []Condition

// MarshalJSON encodes each condition with its type tag inlined
func (cs Conditions) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(cs))
	for _, c := range cs {
		raw, err := marshalCondition(c)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a list of tagged condition objects
func (cs *Conditions) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return fmt.Errorf("decode conditions: %w", err)
	}

	out := make(Conditions, 0, len(raws))
	for _, raw := range raws {
		c, err := unmarshalCondition(raw)
		if err != nil {
			return err
		}
		out = append(out, c)
	}
	*cs = out
	return nil
}

func marshalCondition(c Condition) ([]byte, error) {
	switch v := c.(type) {
	case TimeCondition:
		return json.Marshal(struct {
			Type string `json:"type"`
			TimeCondition
		}{conditionTagTime, v})
	case DayOfWeekCondition:
		return json.Marshal(struct {
			Type string `json:"type"`
			DayOfWeekCondition
		}{conditionTagDayOfWeek, v})
	case DateRangeCondition:
		return json.Marshal(struct {
			Type string `json:"type"`
			DateRangeCondition
		}{conditionTagDateRange, v})
	case CallerIDCondition:
		return json.Marshal(struct {
			Type string `json:"type"`
			CallerIDCondition
		}{conditionTagCallerID, v})
	case DestinationCondition:
		return json.Marshal(struct {
			Type string `json:"type"`
			DestinationCondition
		}{conditionTagDestination, v})
	default:
		return nil, fmt.Errorf("unknown condition type %T", c)
	}
}

func unmarshalCondition(raw json.RawMessage) (Condition, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("decode condition tag: %w", err)
	}

	switch probe.Type {
	case conditionTagTime:
		var c TimeCondition
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode Time condition: %w", err)
		}
		return c, nil
	case conditionTagDayOfWeek:
		var c DayOfWeekCondition
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode DayOfWeek condition: %w", err)
		}
		return c, nil
	case conditionTagDateRange:
		var c DateRangeCondition
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode DateRange condition: %w", err)
		}
		return c, nil
	case conditionTagCallerID:
		var c CallerIDCondition
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode CallerId condition: %w", err)
		}
		return c, nil
	case conditionTagDestination:
		var c DestinationCondition
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode Destination condition: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown condition type %q", probe.Type)
	}
}

// ParseClockTime parses an "HH:MM" 24-hour time string into minutes since
// midnight
func ParseClockTime(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q (expected HH:MM): %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ParseDate parses an ISO "YYYY-MM-DD" date string
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// Validate checks the window parses and does not wrap midnight
func (c TimeCondition) Validate() []string {
	var problems []string
	start, err := ParseClockTime(c.StartTime)
	if err != nil {
		problems = append(problems, "invalid start_time: "+c.StartTime)
	}
	end, err2 := ParseClockTime(c.EndTime)
	if err2 != nil {
		problems = append(problems, "invalid end_time: "+c.EndTime)
	}
	if err == nil && err2 == nil && end <= start {
		problems = append(problems, "end_time must be after start_time")
	}
	return problems
}

// Validate checks that every day is an ISO weekday number
func (c DayOfWeekCondition) Validate() []string {
	var problems []string
	if len(c.Days) == 0 {
		problems = append(problems, "days must not be empty")
	}
	for _, d := range c.Days {
		if d < 1 || d > 7 {
			problems = append(problems, fmt.Sprintf("invalid day %d (expected 1-7, Monday=1)", d))
		}
	}
	return problems
}

// Validate checks that both dates parse and the range is not inverted
func (c DateRangeCondition) Validate() []string {
	var problems []string
	start, err := ParseDate(c.StartDate)
	if err != nil {
		problems = append(problems, "invalid start_date: "+c.StartDate)
	}
	end, err2 := ParseDate(c.EndDate)
	if err2 != nil {
		problems = append(problems, "invalid end_date: "+c.EndDate)
	}
	if err == nil && err2 == nil && end.Before(start) {
		problems = append(problems, "end_date must not be before start_date")
	}
	return problems
}

// Validate checks the caller id pattern compiles
func (c CallerIDCondition) Validate() []string {
	if _, err := regexp.Compile(c.Pattern); err != nil {
		return []string{"invalid caller id pattern: " + err.Error()}
	}
	return nil
}

// Validate checks the destination pattern compiles
func (c DestinationCondition) Validate() []string {
	if _, err := regexp.Compile(c.Pattern); err != nil {
		return []string{"invalid destination pattern: " + err.Error()}
	}
	return nil
}
