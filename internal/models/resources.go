// Package models defines the resource types managed by pbxadmin: the seven
// ordered collections and the condition/destination unions used by routing
// rules.
package models

import (
	"fmt"
	"net"
	"strconv"
)

// ResourceMeta carries the ordering contract shared by every managed
// resource: an opaque id, a priority that determines evaluation and display
// order (ascending), and an enabled flag.
type ResourceMeta struct {
	ID       string `json:"id"`
	Priority int    `json:"priority"`
	Enabled  bool   `json:"enabled"`
}

func (m *ResourceMeta) ResourceID() string       { return m.ID }
func (m *ResourceMeta) ResourcePriority() int    { return m.Priority }
func (m *ResourceMeta) ResourceEnabled() bool    { return m.Enabled }
func (m *ResourceMeta) SetResourceID(id string)  { m.ID = id }
func (m *ResourceMeta) SetPriority(p int)        { m.Priority = p }
func (m *ResourceMeta) SetEnabled(enabled bool)  { m.Enabled = enabled }

// Ordered is implemented by every resource kind that lives in an ordered
// collection. All implementations embed ResourceMeta and add Validate.
type Ordered interface {
	ResourceID() string
	ResourcePriority() int
	ResourceEnabled() bool
	SetResourceID(id string)
	SetPriority(p int)
	SetEnabled(enabled bool)

	// Validate reports field problems; an empty result means the resource
	// may be persisted
	Validate() []string
}

// Extension is a local SIP endpoint (a phone or softphone account)
type Extension struct {
	ResourceMeta
	Number           string `json:"number"`
	Name             string `json:"name"`
	VoicemailEnabled bool   `json:"voicemail_enabled"`
	SIPPassword      string `json:"sip_password,omitempty"`
}

// Validate reports problems with the extension's fields
func (e *Extension) Validate() []string {
	var problems []string
	if e.Number == "" {
		problems = append(problems, "number is required")
	}
	if e.Name == "" {
		problems = append(problems, "name is required")
	}
	return problems
}

// Trunk is an upstream SIP gateway used to place and receive external calls
type Trunk struct {
	ResourceMeta
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Register bool   `json:"register"`
}

// Validate reports problems with the trunk's fields
func (t *Trunk) Validate() []string {
	var problems []string
	if t.Name == "" {
		problems = append(problems, "name is required")
	}
	if t.Host == "" {
		problems = append(problems, "host is required")
	}
	if t.Port < 1 || t.Port > 65535 {
		problems = append(problems, "port must be between 1 and 65535")
	}
	return problems
}

// DID is a provider-owned inbound phone number mapped to a destination
type DID struct {
	ResourceMeta
	Number       string       `json:"number"`
	Name         string       `json:"name"`
	Destination  *Destination `json:"destination,omitempty"`
	ProviderSID  string       `json:"provider_sid,omitempty"`
	SMSEnabled   bool         `json:"sms_enabled"`
	VoiceEnabled bool         `json:"voice_enabled"`
}

// Validate reports problems with the DID's fields
func (d *DID) Validate() []string {
	var problems []string
	if d.Number == "" {
		problems = append(problems, "number is required")
	}
	if d.Destination != nil {
		problems = append(problems, d.Destination.Validate()...)
	}
	return problems
}

// Ring group strategies
const (
	RingSimultaneous = "simultaneous"
	RingSequential   = "sequential"
	RingRoundRobin   = "roundrobin"
)

// RingGroup rings a set of extensions according to a strategy
type RingGroup struct {
	ResourceMeta
	Name        string   `json:"name"`
	Strategy    string   `json:"strategy"`
	Extensions  []string `json:"extensions"`
	RingTimeout int      `json:"ring_timeout"`
}

// Validate reports problems with the ring group's fields
func (g *RingGroup) Validate() []string {
	var problems []string
	if g.Name == "" {
		problems = append(problems, "name is required")
	}
	switch g.Strategy {
	case RingSimultaneous, RingSequential, RingRoundRobin:
	default:
		problems = append(problems, fmt.Sprintf("invalid strategy %q", g.Strategy))
	}
	if len(g.Extensions) == 0 {
		problems = append(problems, "at least one extension is required")
	}
	if g.RingTimeout < 1 {
		problems = append(problems, "ring_timeout must be positive")
	}
	return problems
}

// SipProfile is a listener profile: where the PBX binds and which transports
// it accepts
type SipProfile struct {
	ResourceMeta
	Name        string   `json:"name"`
	BindAddress string   `json:"bind_address"`
	BindPort    int      `json:"bind_port"`
	Domain      string   `json:"domain"`
	Transports  []string `json:"transports"`
}

// Validate reports problems with the profile's fields
func (p *SipProfile) Validate() []string {
	var problems []string
	if p.Name == "" {
		problems = append(problems, "name is required")
	}
	if p.BindAddress != "" && net.ParseIP(p.BindAddress) == nil {
		problems = append(problems, "bind_address must be a valid IP address")
	}
	if p.BindPort < 1 || p.BindPort > 65535 {
		problems = append(problems, "bind_port must be between 1 and 65535")
	}
	for _, tr := range p.Transports {
		switch tr {
		case "udp", "tcp", "tls", "ws", "wss":
		default:
			problems = append(problems, "invalid transport "+strconv.Quote(tr))
		}
	}
	return problems
}

// Codec is a negotiable media codec with its RTP parameters
type Codec struct {
	ResourceMeta
	Name        string `json:"name"`
	PayloadType int    `json:"payload_type"`
	ClockRate   int    `json:"clock_rate"`
	Ptime       int    `json:"ptime,omitempty"`
}

// Validate reports problems with the codec's fields
func (c *Codec) Validate() []string {
	var problems []string
	if c.Name == "" {
		problems = append(problems, "name is required")
	}
	if c.PayloadType < 0 || c.PayloadType > 127 {
		problems = append(problems, "payload_type must be between 0 and 127")
	}
	if c.ClockRate < 1 {
		problems = append(problems, "clock_rate must be positive")
	}
	return problems
}
