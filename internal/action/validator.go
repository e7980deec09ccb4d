package action

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/mixmate/mixmate/internal/console"
)

// SafetyLimits bounds what a single action may do to the console.
// Sign convention: MaxEqCutDB is negative and is the LOWER bound on EQ
// gain; MaxEqBoostDB is positive and is the upper bound. Gains inside
// (MaxEqCutDB, MaxEqBoostDB) pass through untouched — cuts are allowed to
// go deeper than boosts.
type SafetyLimits struct {
	MaxFaderDeltaNorm  float64 // ~6dB max fader move per step
	MaxEqBoostDB       float64
	MaxEqCutDB         float64
	MaxCompThresholdDB float64 // threshold floor
	MinCompRatio       float64
	MaxCompRatio       float64
	MaxHpfHz           float64
	MinHpfHz           float64
	MaxSendDelta       float64
}

// DefaultLimits returns the stock safety envelope.
func DefaultLimits() SafetyLimits {
	return SafetyLimits{
		MaxFaderDeltaNorm:  0.15,
		MaxEqBoostDB:       3.0,
		MaxEqCutDB:         -12.0,
		MaxCompThresholdDB: -50.0,
		MinCompRatio:       1.0,
		MaxCompRatio:       20.0,
		MaxHpfHz:           400.0,
		MinHpfHz:           20.0,
		MaxSendDelta:       0.2,
	}
}

// ValidationResult is the validator verdict: the (possibly clamped)
// action, and a warning when clamping occurred.
type ValidationResult struct {
	Valid   bool
	Clamped MixAction
	Warning string
}

// Validator clamps and range-checks actions before they reach the console.
// This is the safety layer — no action bypasses it.
type Validator struct {
	limits SafetyLimits
}

// NewValidator builds a validator with the given limits.
func NewValidator(limits SafetyLimits) *Validator {
	return &Validator{limits: limits}
}

// Validate checks one action against the limits and the current console
// state. It is a pure function of its inputs and safe for concurrent use.
func (v *Validator) Validate(a MixAction, state *console.State) ValidationResult {
	switch a.Kind {
	case SetFader:
		return v.validateFader(a, state)
	case SetEqBand:
		return v.validateEq(a)
	case SetCompressor:
		return v.validateComp(a)
	case SetHighPass:
		return v.validateHpf(a)
	case SetSendLevel:
		return v.validateSend(a, state)
	case MuteChannel, UnmuteChannel:
		log.WithFields(log.Fields{"action": a.Kind.String(), "channel": a.Channel}).
			Info("validator: mute state change")
		return ValidationResult{Valid: true, Clamped: a}
	default:
		// NoAction, Observation, SetPan, SetGate pass through.
		return ValidationResult{Valid: true, Clamped: a}
	}
}

func (v *Validator) validateFader(a MixAction, state *console.State) ValidationResult {
	r := ValidationResult{Valid: true, Clamped: a}

	snap, ok := state.Channel(a.Channel)
	if !ok {
		r.Valid = false
		r.Warning = fmt.Sprintf("Invalid channel %d", a.Channel)
		return r
	}

	current := snap.Fader
	target := clampF(a.Value, 0, 1)

	// Limit step size
	delta := target - current
	if math.Abs(delta) > v.limits.MaxFaderDeltaNorm+1e-9 {
		sign := 1.0
		if delta < 0 {
			sign = -1.0
		}
		target = current + sign*v.limits.MaxFaderDeltaNorm
		r.Warning = fmt.Sprintf("Fader clamped: requested %.2f -> clamped to %.2f",
			a.Value, target)
		log.WithField("warning", r.Warning).Warn("validator")
	}

	r.Clamped.Value = target
	return r
}

func (v *Validator) validateEq(a MixAction) ValidationResult {
	r := ValidationResult{Valid: true, Clamped: a}

	gain := a.Value2
	if gain > v.limits.MaxEqBoostDB {
		gain = v.limits.MaxEqBoostDB
		r.Warning = fmt.Sprintf("EQ boost clamped to %gdB", v.limits.MaxEqBoostDB)
		log.WithField("warning", r.Warning).Warn("validator")
	}
	if gain < v.limits.MaxEqCutDB {
		gain = v.limits.MaxEqCutDB
		r.Warning = fmt.Sprintf("EQ cut clamped to %gdB", v.limits.MaxEqCutDB)
	}

	r.Clamped.Value = clampF(a.Value, 20, 20000)
	r.Clamped.Value2 = gain
	r.Clamped.Value3 = clampF(a.Value3, 0.1, 20)
	return r
}

func (v *Validator) validateComp(a MixAction) ValidationResult {
	r := ValidationResult{Valid: true, Clamped: a}
	r.Clamped.Value = clampF(a.Value, v.limits.MaxCompThresholdDB, 0)
	r.Clamped.Value2 = clampF(a.Value2, v.limits.MinCompRatio, v.limits.MaxCompRatio)
	return r
}

func (v *Validator) validateHpf(a MixAction) ValidationResult {
	r := ValidationResult{Valid: true, Clamped: a}
	freq := clampF(a.Value, v.limits.MinHpfHz, v.limits.MaxHpfHz)
	if freq != a.Value {
		r.Warning = fmt.Sprintf("HPF clamped: %dHz -> %dHz", int(a.Value), int(freq))
		log.WithField("warning", r.Warning).Warn("validator")
	}
	r.Clamped.Value = freq
	return r
}

func (v *Validator) validateSend(a MixAction, state *console.State) ValidationResult {
	r := ValidationResult{Valid: true, Clamped: a}
	if _, ok := state.Channel(a.Channel); !ok {
		r.Valid = false
		r.Warning = "Invalid channel"
		return r
	}
	r.Clamped.Value = clampF(a.Value, 0, 1)
	return r
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
