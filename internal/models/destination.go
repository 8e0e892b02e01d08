package models

import (
	"encoding/json"
	"fmt"
)

// DestinationType identifies where a call is sent once a rule resolves it
type DestinationType string

const (
	DestinationExtension DestinationType = "Extension"
	DestinationTrunk     DestinationType = "Trunk"
	DestinationRingGroup DestinationType = "RingGroup"
	DestinationVoicemail DestinationType = "Voicemail"
	DestinationHangup    DestinationType = "Hangup"
	DestinationCustom    DestinationType = "Custom"
)

// Destination is a routing target. All variants except Hangup carry a value:
// an extension number, trunk name, ring group name, voicemail box, or a
// free-form dial string for Custom.
type Destination struct {
	Type  DestinationType
	Value string
}

// destinationJSON is the wire form: {"type": "...", "value": "..."}
type destinationJSON struct {
	Type  DestinationType `json:"type"`
	Value *string         `json:"value,omitempty"`
}

// MarshalJSON encodes the destination as a tagged object. Hangup omits the
// value field entirely.
func (d Destination) MarshalJSON() ([]byte, error) {
	out := destinationJSON{Type: d.Type}
	if d.Type != DestinationHangup {
		v := d.Value
		out.Value = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a tagged destination object. A bare JSON string is
// accepted for compatibility with older exports and decodes as Custom.
func (d *Destination) UnmarshalJSON(data []byte) error {
	var legacy string
	if err := json.Unmarshal(data, &legacy); err == nil {
		d.Type = DestinationCustom
		d.Value = legacy
		return nil
	}

	var raw destinationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode destination: %w", err)
	}

	switch raw.Type {
	case DestinationExtension, DestinationTrunk, DestinationRingGroup,
		DestinationVoicemail, DestinationHangup, DestinationCustom:
	default:
		return fmt.Errorf("unknown destination type %q", raw.Type)
	}

	d.Type = raw.Type
	d.Value = ""
	if raw.Value != nil {
		d.Value = *raw.Value
	}
	return nil
}

// String renders the destination for logs and console output
func (d Destination) String() string {
	if d.Type == DestinationHangup {
		return string(d.Type)
	}
	return fmt.Sprintf("%s %s", d.Type, d.Value)
}

// Validate reports problems with the destination
func (d Destination) Validate() []string {
	var problems []string
	switch d.Type {
	case DestinationHangup:
		// carries no value
	case DestinationExtension, DestinationTrunk, DestinationRingGroup,
		DestinationVoicemail, DestinationCustom:
		if d.Value == "" {
			problems = append(problems, fmt.Sprintf("destination of type %s requires a value", d.Type))
		}
	case "":
		problems = append(problems, "destination type is required")
	default:
		problems = append(problems, fmt.Sprintf("unknown destination type %q", d.Type))
	}
	return problems
}
