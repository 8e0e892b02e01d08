package models

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestConditionsUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Conditions
		wantErr bool
	}{
		{
			name:  "time condition",
			input: `[{"type":"Time","start_time":"09:00","end_time":"17:00"}]`,
			want:  Conditions{TimeCondition{StartTime: "09:00", EndTime: "17:00"}},
		},
		{
			name:  "day of week condition",
			input: `[{"type":"DayOfWeek","days":[1,2,3,4,5]}]`,
			want:  Conditions{DayOfWeekCondition{Days: []int{1, 2, 3, 4, 5}}},
		},
		{
			name:  "date range condition",
			input: `[{"type":"DateRange","start_date":"2026-12-24","end_date":"2026-12-26"}]`,
			want:  Conditions{DateRangeCondition{StartDate: "2026-12-24", EndDate: "2026-12-26"}},
		},
		{
			name:  "caller id condition with negate",
			input: `[{"type":"CallerId","pattern":"^\\+1","negate":true}]`,
			want:  Conditions{CallerIDCondition{Pattern: `^\+1`, Negate: true}},
		},
		{
			name:  "destination condition",
			input: `[{"type":"Destination","pattern":"^9"}]`,
			want:  Conditions{DestinationCondition{Pattern: "^9"}},
		},
		{
			name: "mixed list keeps order",
			input: `[{"type":"DayOfWeek","days":[6,7]},{"type":"Time","start_time":"00:00","end_time":"08:00"}]`,
			want: Conditions{
				DayOfWeekCondition{Days: []int{6, 7}},
				TimeCondition{StartTime: "00:00", EndTime: "08:00"},
			},
		},
		{
			name:    "unknown tag rejected",
			input:   `[{"type":"Holiday","date":"2026-01-01"}]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Conditions
			err := json.Unmarshal([]byte(tt.input), &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr = %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Unmarshal() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestConditionsRoundTrip(t *testing.T) {
	original := Conditions{
		TimeCondition{StartTime: "09:00", EndTime: "17:00"},
		CallerIDCondition{Pattern: `^\+44`, Negate: true},
		DateRangeCondition{StartDate: "2026-06-01", EndDate: "2026-06-30"},
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded Conditions
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !reflect.DeepEqual(decoded, original) {
		t.Errorf("round trip = %#v, want %#v", decoded, original)
	}
}

func TestConditionValidate(t *testing.T) {
	tests := []struct {
		name   string
		cond   Condition
		wantOK bool
	}{
		{"valid window", TimeCondition{StartTime: "09:00", EndTime: "17:00"}, true},
		{"end equals start rejected", TimeCondition{StartTime: "09:00", EndTime: "09:00"}, false},
		{"wrapping window rejected", TimeCondition{StartTime: "22:00", EndTime: "06:00"}, false},
		{"garbage time rejected", TimeCondition{StartTime: "9am", EndTime: "17:00"}, false},
		{"valid weekdays", DayOfWeekCondition{Days: []int{1, 5, 7}}, true},
		{"day zero rejected", DayOfWeekCondition{Days: []int{0}}, false},
		{"day eight rejected", DayOfWeekCondition{Days: []int{8}}, false},
		{"empty days rejected", DayOfWeekCondition{}, false},
		{"valid range", DateRangeCondition{StartDate: "2026-01-01", EndDate: "2026-12-31"}, true},
		{"inverted range rejected", DateRangeCondition{StartDate: "2026-12-31", EndDate: "2026-01-01"}, false},
		{"valid pattern", CallerIDCondition{Pattern: `^\+1\d{10}$`}, true},
		{"broken pattern rejected", CallerIDCondition{Pattern: "["}, false},
		{"broken destination pattern rejected", DestinationCondition{Pattern: "("}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problems := tt.cond.Validate()
			if (len(problems) == 0) != tt.wantOK {
				t.Errorf("Validate() = %v, want ok = %v", problems, tt.wantOK)
			}
		})
	}
}

func TestRoutingRuleValidate(t *testing.T) {
	valid := func() *RoutingRule {
		return &RoutingRule{
			ResourceMeta: ResourceMeta{ID: "r1", Enabled: true},
			Name:         "office hours",
			Pattern:      `^\+1`,
			Destination:  Destination{Type: DestinationExtension, Value: "1000"},
			Action:       ActionAccept,
		}
	}

	t.Run("valid rule passes", func(t *testing.T) {
		if problems := valid().Validate(); len(problems) != 0 {
			t.Errorf("Validate() = %v, want none", problems)
		}
	})

	t.Run("broken pattern rejected", func(t *testing.T) {
		r := valid()
		r.Pattern = "["
		if problems := r.Validate(); len(problems) == 0 {
			t.Error("Validate() accepted a non-compiling pattern")
		}
	})

	t.Run("unknown action rejected", func(t *testing.T) {
		r := valid()
		r.Action = "forward"
		if problems := r.Validate(); len(problems) == 0 {
			t.Error("Validate() accepted an unknown action")
		}
	})

	t.Run("bad condition surfaces with index", func(t *testing.T) {
		r := valid()
		r.Conditions = Conditions{TimeCondition{StartTime: "17:00", EndTime: "09:00"}}
		problems := r.Validate()
		if len(problems) == 0 {
			t.Fatal("Validate() accepted a wrapping time window")
		}
	})

	t.Run("rule JSON round trip", func(t *testing.T) {
		r := valid()
		r.Conditions = Conditions{DayOfWeekCondition{Days: []int{6, 7}}}
		r.ContinueOnMatch = true

		data, err := json.Marshal(r)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}

		var decoded RoutingRule
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if !reflect.DeepEqual(&decoded, r) {
			t.Errorf("round trip = %+v, want %+v", &decoded, r)
		}
	})
}
