// Package action defines the typed mix-action schema shared by the
// decision engine, the safety validator, the approval queue and the
// executor, plus the tolerant JSON codec for LLM responses.
package action

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Kind is the closed set of action variants. The validator and executor
// both switch exhaustively over it.
type Kind int

const (
	SetFader Kind = iota
	SetPan
	SetEqBand
	SetCompressor
	SetGate
	SetHighPass
	SetSendLevel
	MuteChannel
	UnmuteChannel
	NoAction    // LLM decided no change needed
	Observation // LLM notes something but takes no action
)

var kindNames = map[Kind]string{
	SetFader:      "set_fader",
	SetPan:        "set_pan",
	SetEqBand:     "set_eq",
	SetCompressor: "set_comp",
	SetGate:       "set_gate",
	SetHighPass:   "set_hpf",
	SetSendLevel:  "set_send",
	MuteChannel:   "mute",
	UnmuteChannel: "unmute",
	NoAction:      "no_action",
	Observation:   "observation",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, n := range kindNames {
		m[n] = k
	}
	return m
}()

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "no_action"
}

// MarshalJSON writes the wire name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON reads the wire name; unknown names become NoAction.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*k = NoAction
		return nil
	}
	if kind, ok := kindsByName[s]; ok {
		*k = kind
	} else {
		*k = NoAction
	}
	return nil
}

// Urgency governs auto-approval and pending-queue timeouts.
type Urgency int

const (
	Immediate Urgency = iota // feedback, clipping — apply NOW
	Fast                     // audible issue — apply within a tick
	Normal                   // optimization — can wait for approval
	Low                      // suggestion — apply when convenient
)

func (u Urgency) String() string {
	switch u {
	case Immediate:
		return "immediate"
	case Fast:
		return "fast"
	case Low:
		return "low"
	}
	return "normal"
}

func (u Urgency) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

// UnmarshalJSON reads the wire name; unknown names become Normal.
func (u *Urgency) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*u = Normal
		return nil
	}
	switch s {
	case "immediate":
		*u = Immediate
	case "fast":
		*u = Fast
	case "low":
		*u = Low
	default:
		*u = Normal
	}
	return nil
}

// MixAction is one decision: a console adjustment, an observation, or an
// explicit no-op. The meaning of Value/Value2/Value3 depends on Kind:
//
//	SetFader:      Value = fader 0..1
//	SetPan:        Value = pan -1..+1
//	SetEqBand:     Value = freq Hz, Value2 = gain dB, Value3 = Q, Band = 1..6
//	SetCompressor: Value = threshold dB, Value2 = ratio
//	SetGate:       Value = threshold dB
//	SetHighPass:   Value = freq Hz
//	SetSendLevel:  Value = level 0..1, Aux = bus
type MixAction struct {
	ID       string  `json:"-"` // assigned at creation, for execution bookkeeping
	Kind     Kind    `json:"action"`
	Channel  int     `json:"channel"`
	Aux      int     `json:"aux,omitempty"`
	Value    float64 `json:"value"`
	Value2   float64 `json:"value2,omitempty"`
	Value3   float64 `json:"value3,omitempty"`
	Band     int     `json:"band,omitempty"`
	Urgency  Urgency `json:"urgency"`
	RoleName string  `json:"role,omitempty"`
	Reason   string  `json:"reason,omitempty"`
}

// New returns a MixAction of the given kind with a fresh ID and the
// field defaults (Normal urgency, Q 1, band 1).
func New(kind Kind) MixAction {
	return MixAction{ID: uuid.NewString(), Kind: kind, Urgency: Normal, Value3: 1, Band: 1}
}

// Describe renders the action for the approval UI and logs.
func (a MixAction) Describe() string {
	switch a.Kind {
	case SetFader:
		return fmt.Sprintf("Set ch%d (%s) fader to %d%%", a.Channel, a.RoleName, int(a.Value*100))
	case SetPan:
		return fmt.Sprintf("Set ch%d pan to %d", a.Channel, int(a.Value*100))
	case SetEqBand:
		return fmt.Sprintf("Set ch%d EQ band %d: %dHz @ %.1fdB Q=%.1f",
			a.Channel, a.Band, int(a.Value), a.Value2, a.Value3)
	case SetCompressor:
		return fmt.Sprintf("Set ch%d comp threshold=%ddB ratio=%.1f:1",
			a.Channel, int(a.Value), a.Value2)
	case SetGate:
		return fmt.Sprintf("Set ch%d gate threshold=%ddB", a.Channel, int(a.Value))
	case SetHighPass:
		return fmt.Sprintf("Set ch%d HPF to %dHz", a.Channel, int(a.Value))
	case SetSendLevel:
		return fmt.Sprintf("Set ch%d send to bus %d level=%d%%",
			a.Channel, a.Aux, int(a.Value*100))
	case MuteChannel:
		return fmt.Sprintf("Mute ch%d (%s)", a.Channel, a.RoleName)
	case UnmuteChannel:
		return fmt.Sprintf("Unmute ch%d (%s)", a.Channel, a.RoleName)
	case NoAction:
		return "No action needed: " + a.Reason
	case Observation:
		return "Note: " + a.Reason
	}
	return "Unknown action"
}

// FromJSON decodes one action object tolerantly: unknown action names
// become NoAction, unknown urgencies Normal, missing numerics default to
// zero except Value3 (1) and Band (1). Malformed input yields a NoAction
// rather than an error so one bad entry never sinks a whole response.
func FromJSON(data []byte) MixAction {
	a := MixAction{Kind: NoAction, Urgency: Normal, Value3: 1, Band: 1}
	// Unmarshal over the pre-defaulted struct: absent fields keep their
	// defaults, present ones overwrite them.
	if err := json.Unmarshal(data, &a); err != nil {
		return MixAction{ID: uuid.NewString(), Kind: NoAction, Urgency: Normal, Value3: 1, Band: 1}
	}
	a.ID = uuid.NewString()
	return a
}

// ToJSON encodes the action for logging and session memory.
func (a MixAction) ToJSON() []byte {
	data, err := json.Marshal(a)
	if err != nil {
		return []byte("{}")
	}
	return data
}
