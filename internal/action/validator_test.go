package action

import (
	"math"
	"testing"

	"github.com/mixmate/mixmate/internal/console"
)

func validatorState(t *testing.T) *console.State {
	t.Helper()
	s := console.NewState()
	s.Init(8, 4)
	return s
}

func TestValidateFaderDeltaClamp(t *testing.T) {
	v := NewValidator(DefaultLimits())
	s := validatorState(t)
	// Current fader defaults to 0.75.

	tests := []struct {
		name        string
		target      float64
		wantValue   float64
		wantWarning bool
	}{
		{"small move passes", 0.70, 0.70, false},
		{"exact limit passes", 0.60, 0.60, false},
		{"big cut clamps", 0.20, 0.60, true},
		{"big boost clamps", 1.0, 0.90, true},
		{"out of range clamps to unit then delta", 1.8, 0.90, true},
		{"negative clamps to zero then delta", -0.5, 0.60, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := MixAction{Kind: SetFader, Channel: 1, Value: tt.target}
			r := v.Validate(a, s)
			if !r.Valid {
				t.Fatalf("Valid = false: %s", r.Warning)
			}
			if math.Abs(r.Clamped.Value-tt.wantValue) > 1e-9 {
				t.Errorf("clamped value = %v, want %v", r.Clamped.Value, tt.wantValue)
			}
			if (r.Warning != "") != tt.wantWarning {
				t.Errorf("warning = %q, wantWarning = %v", r.Warning, tt.wantWarning)
			}
			// The invariant: never move more than the delta limit.
			if math.Abs(r.Clamped.Value-0.75) > DefaultLimits().MaxFaderDeltaNorm+1e-9 {
				t.Errorf("delta %v exceeds limit", math.Abs(r.Clamped.Value-0.75))
			}
		})
	}
}

func TestValidateFaderInvalidChannel(t *testing.T) {
	v := NewValidator(DefaultLimits())
	s := validatorState(t)

	for _, ch := range []int{0, -3, 9, 100} {
		r := v.Validate(MixAction{Kind: SetFader, Channel: ch, Value: 0.5}, s)
		if r.Valid {
			t.Errorf("channel %d validated", ch)
		}
	}
}

func TestValidateEqClamps(t *testing.T) {
	v := NewValidator(DefaultLimits())
	s := validatorState(t)

	tests := []struct {
		name                       string
		freq, gain, q              float64
		wantFreq, wantGain, wantQ  float64
		wantWarning                bool
	}{
		{"in range untouched", 1000, -4, 2, 1000, -4, 2, false},
		{"boost clamped to +3", 1000, 10, 2, 1000, 3, 2, true},
		{"cut clamped to -12", 500, -20, 1, 500, -12, 1, false},
		{"freq clamped low", 5, 0, 1, 20, 0, 1, false},
		{"freq clamped high", 30000, 0, 1, 20000, 0, 1, false},
		{"q clamped", 1000, 0, 99, 1000, 0, 20, false},
		{"boundary gains pass", 1000, 3, 1, 1000, 3, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := MixAction{Kind: SetEqBand, Channel: 3, Band: 1,
				Value: tt.freq, Value2: tt.gain, Value3: tt.q}
			r := v.Validate(a, s)
			if !r.Valid {
				t.Fatal("Valid = false")
			}
			if r.Clamped.Value != tt.wantFreq || r.Clamped.Value2 != tt.wantGain || r.Clamped.Value3 != tt.wantQ {
				t.Errorf("clamped = (%v, %v, %v), want (%v, %v, %v)",
					r.Clamped.Value, r.Clamped.Value2, r.Clamped.Value3,
					tt.wantFreq, tt.wantGain, tt.wantQ)
			}
			if tt.wantWarning && r.Warning == "" {
				t.Error("expected a clamp warning")
			}
		})
	}
}

func TestValidateCompClamps(t *testing.T) {
	v := NewValidator(DefaultLimits())
	s := validatorState(t)

	r := v.Validate(MixAction{Kind: SetCompressor, Channel: 1, Value: -80, Value2: 50}, s)
	if r.Clamped.Value != -50 {
		t.Errorf("threshold = %v, want -50", r.Clamped.Value)
	}
	if r.Clamped.Value2 != 20 {
		t.Errorf("ratio = %v, want 20", r.Clamped.Value2)
	}

	r = v.Validate(MixAction{Kind: SetCompressor, Channel: 1, Value: 5, Value2: 0.5}, s)
	if r.Clamped.Value != 0 {
		t.Errorf("threshold = %v, want 0", r.Clamped.Value)
	}
	if r.Clamped.Value2 != 1 {
		t.Errorf("ratio = %v, want 1", r.Clamped.Value2)
	}
}

func TestValidateHpfClamps(t *testing.T) {
	v := NewValidator(DefaultLimits())
	s := validatorState(t)

	r := v.Validate(MixAction{Kind: SetHighPass, Channel: 1, Value: 1200}, s)
	if r.Clamped.Value != 400 {
		t.Errorf("HPF = %v, want 400", r.Clamped.Value)
	}
	if r.Warning == "" {
		t.Error("expected clamp warning")
	}

	r = v.Validate(MixAction{Kind: SetHighPass, Channel: 1, Value: 5}, s)
	if r.Clamped.Value != 20 {
		t.Errorf("HPF = %v, want 20", r.Clamped.Value)
	}
}

func TestValidateSendClamps(t *testing.T) {
	v := NewValidator(DefaultLimits())
	s := validatorState(t)

	r := v.Validate(MixAction{Kind: SetSendLevel, Channel: 1, Aux: 2, Value: 1.7}, s)
	if !r.Valid || r.Clamped.Value != 1 {
		t.Errorf("send = %+v", r)
	}

	r = v.Validate(MixAction{Kind: SetSendLevel, Channel: 99, Aux: 2, Value: 0.5}, s)
	if r.Valid {
		t.Error("send to invalid channel validated")
	}
}

func TestValidatePassthroughKinds(t *testing.T) {
	v := NewValidator(DefaultLimits())
	s := validatorState(t)

	for _, k := range []Kind{MuteChannel, UnmuteChannel, NoAction, Observation, SetPan, SetGate} {
		a := MixAction{Kind: k, Channel: 1, Value: 0.3}
		r := v.Validate(a, s)
		if !r.Valid {
			t.Errorf("%v not valid", k)
		}
		if r.Clamped != a {
			t.Errorf("%v modified: %+v", k, r.Clamped)
		}
	}
}
