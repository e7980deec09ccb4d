package action

import (
	"encoding/json"
	"testing"
)

func TestFromJSONFullEntry(t *testing.T) {
	a := FromJSON([]byte(`{
		"action": "set_eq", "channel": 3, "role": "LeadVocal",
		"value": 1000, "value2": 10, "value3": 2, "band": 1,
		"urgency": "fast", "reason": "tame harshness"
	}`))

	if a.Kind != SetEqBand {
		t.Errorf("Kind = %v, want SetEqBand", a.Kind)
	}
	if a.Channel != 3 || a.Value != 1000 || a.Value2 != 10 || a.Value3 != 2 || a.Band != 1 {
		t.Errorf("fields = %+v", a)
	}
	if a.Urgency != Fast {
		t.Errorf("Urgency = %v, want Fast", a.Urgency)
	}
	if a.RoleName != "LeadVocal" || a.Reason != "tame harshness" {
		t.Errorf("strings = %q / %q", a.RoleName, a.Reason)
	}
	if a.ID == "" {
		t.Error("ID not assigned")
	}
}

func TestFromJSONDefaults(t *testing.T) {
	a := FromJSON([]byte(`{"action": "set_fader", "channel": 5}`))

	if a.Kind != SetFader || a.Channel != 5 {
		t.Errorf("action = %+v", a)
	}
	if a.Value != 0 {
		t.Errorf("Value = %v, want 0", a.Value)
	}
	if a.Value3 != 1 {
		t.Errorf("Value3 = %v, want default 1", a.Value3)
	}
	if a.Band != 1 {
		t.Errorf("Band = %v, want default 1", a.Band)
	}
	if a.Urgency != Normal {
		t.Errorf("Urgency = %v, want default Normal", a.Urgency)
	}
}

func TestFromJSONUnknownStrings(t *testing.T) {
	a := FromJSON([]byte(`{"action": "set_flux_capacitor", "urgency": "yesterday"}`))
	if a.Kind != NoAction {
		t.Errorf("unknown action Kind = %v, want NoAction", a.Kind)
	}
	if a.Urgency != Normal {
		t.Errorf("unknown urgency = %v, want Normal", a.Urgency)
	}
}

func TestFromJSONMalformed(t *testing.T) {
	for _, input := range []string{
		`not json at all`,
		`{"action": 42}`,
		`{"channel": "five"}`,
		`[]`,
		``,
	} {
		a := FromJSON([]byte(input))
		if a.Kind != NoAction {
			t.Errorf("FromJSON(%q).Kind = %v, want NoAction", input, a.Kind)
		}
	}
}

func TestJSONRoundTrip(t *testing.T) {
	actions := []MixAction{
		{Kind: SetFader, Channel: 5, Value: 0.72, Urgency: Immediate, RoleName: "Kick", Reason: "clipping", Value3: 1, Band: 1},
		{Kind: SetEqBand, Channel: 3, Value: 1000, Value2: -3, Value3: 2, Band: 2, Urgency: Normal},
		{Kind: SetSendLevel, Channel: 7, Aux: 4, Value: 0.5, Urgency: Low, Value3: 1, Band: 1},
		{Kind: MuteChannel, Channel: 12, Urgency: Fast, RoleName: "Talkback", Value3: 1, Band: 1},
		{Kind: Observation, Reason: "mix is balanced", Urgency: Normal, Value3: 1, Band: 1},
	}

	for _, orig := range actions {
		data := orig.ToJSON()
		got := FromJSON(data)
		got.ID = orig.ID // IDs are assigned fresh on decode

		if got != orig {
			t.Errorf("round trip changed action:\n  in:  %+v\n  out: %+v\n  json: %s",
				orig, got, data)
		}
	}
}

func TestDescribe(t *testing.T) {
	a := MixAction{Kind: SetFader, Channel: 5, RoleName: "Kick", Value: 0.72}
	want := "Set ch5 (Kick) fader to 72%"
	if got := a.Describe(); got != want {
		t.Errorf("Describe() = %q, want %q", got, want)
	}

	obs := MixAction{Kind: Observation, Reason: "vocals sitting well"}
	if got := obs.Describe(); got != "Note: vocals sitting well" {
		t.Errorf("Describe() = %q", got)
	}
}

func TestNewAssignsIDAndDefaults(t *testing.T) {
	a := New(SetFader)
	b := New(SetFader)
	if a.ID == "" || a.ID == b.ID {
		t.Error("New must assign unique IDs")
	}
	if a.Value3 != 1 || a.Band != 1 {
		t.Errorf("defaults = %+v", a)
	}
}

func TestParsedActionsSerialisableForMemory(t *testing.T) {
	a := FromJSON([]byte(`{"action":"set_comp","channel":2,"value":-20,"value2":4}`))
	var m map[string]any
	if err := json.Unmarshal(a.ToJSON(), &m); err != nil {
		t.Fatalf("ToJSON output not valid JSON: %v", err)
	}
	if m["action"] != "set_comp" {
		t.Errorf("action = %v", m["action"])
	}
}
