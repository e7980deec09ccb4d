// Package prefs learns the engineer's taste from their approve/reject
// decisions and standing instructions, and turns it into a compact
// preferences document the LLM reads as "engineer_preferences".
package prefs

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/mixmate/mixmate/internal/action"
)

// roleStats accumulates per-role decision counters.
type roleStats struct {
	TotalApproved int `json:"approved"`
	TotalRejected int `json:"rejected"`

	EqBoostApprovals  int `json:"eq_boost_approved"`
	EqCutApprovals    int `json:"eq_cut_approved"`
	EqBoostRejections int `json:"eq_boost_rejected"`
	EqCutRejections   int `json:"eq_cut_rejected"`

	CompApprovals  int     `json:"comp_approved"`
	CompRejections int     `json:"comp_rejected"`
	CompRatioSum   float64 `json:"comp_ratio_sum"`

	FaderApprovals  []float64 `json:"fader_approvals,omitempty"`
	FaderRejections []float64 `json:"fader_rejections,omitempty"`
	// FaderDirection trends positive when the engineer accepts fader
	// values above 0.5 (mid travel) and negative for values at or below it.
	FaderDirection int `json:"fader_direction"`

	HpfApprovals []float64 `json:"hpf_approvals,omitempty"`
}

// Learner accumulates decisions. All methods are safe for concurrent use.
type Learner struct {
	mu           sync.Mutex
	roleStats    map[string]*roleStats
	instructions []string
	dirty        bool
}

// maxInstructions caps the standing-instruction list; oldest evict first.
const maxInstructions = 20

// NewLearner returns an empty learner.
func NewLearner() *Learner {
	return &Learner{roleStats: make(map[string]*roleStats)}
}

func (l *Learner) statsFor(role string) *roleStats {
	s, ok := l.roleStats[role]
	if !ok {
		s = &roleStats{}
		l.roleStats[role] = s
	}
	return s
}

// RecordApproval notes that the engineer agreed with an action.
func (l *Learner) RecordApproval(a action.MixAction, role string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.statsFor(role)
	s.TotalApproved++

	switch a.Kind {
	case action.SetFader:
		s.FaderApprovals = append(s.FaderApprovals, a.Value)
		if a.Value > 0.5 {
			s.FaderDirection++
		} else {
			s.FaderDirection--
		}
	case action.SetEqBand:
		if a.Value2 > 0 {
			s.EqBoostApprovals++
		} else {
			s.EqCutApprovals++
		}
	case action.SetCompressor:
		s.CompApprovals++
		s.CompRatioSum += a.Value2
	case action.SetHighPass:
		s.HpfApprovals = append(s.HpfApprovals, a.Value)
	}
	l.dirty = true
}

// RecordRejection notes that the engineer disagreed with an action.
func (l *Learner) RecordRejection(a action.MixAction, role string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.statsFor(role)
	s.TotalRejected++

	switch a.Kind {
	case action.SetFader:
		s.FaderRejections = append(s.FaderRejections, a.Value)
	case action.SetEqBand:
		if a.Value2 > 0 {
			s.EqBoostRejections++
		} else {
			s.EqCutRejections++
		}
	case action.SetCompressor:
		s.CompRejections++
	}
	l.dirty = true
}

// RecordInstruction stores a standing instruction, evicting the oldest
// past the cap.
func (l *Learner) RecordInstruction(instruction string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.instructions = append(l.instructions, instruction)
	if len(l.instructions) > maxInstructions {
		l.instructions = l.instructions[len(l.instructions)-maxInstructions:]
	}
	l.dirty = true
}

// Instructions returns the standing instructions, oldest first.
func (l *Learner) Instructions() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.instructions...)
}

// BuildPreferences produces the preferences document for LLM context.
// Returns nil when there is nothing to say yet.
func (l *Learner) BuildPreferences() map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buildPreferencesLocked()
}

func (l *Learner) buildPreferencesLocked() map[string]any {
	if len(l.roleStats) == 0 && len(l.instructions) == 0 {
		return nil
	}

	prefs := map[string]any{}

	var totalApproved, totalRejected int
	var eqBoostApproved, eqCutApproved, eqBoostRejected, eqCutRejected int
	for _, s := range l.roleStats {
		totalApproved += s.TotalApproved
		totalRejected += s.TotalRejected
		eqBoostApproved += s.EqBoostApprovals
		eqCutApproved += s.EqCutApprovals
		eqBoostRejected += s.EqBoostRejections
		eqCutRejected += s.EqCutRejections
	}

	if totalApproved+totalRejected > 5 {
		rate := float64(totalApproved) / float64(totalApproved+totalRejected)
		prefs["overall_approval_rate"] = roundTo(rate, 2)
		if rate < 0.4 {
			prefs["note"] = "Engineer rejects many suggestions — be more conservative"
		} else if rate > 0.8 {
			prefs["note"] = "Engineer trusts AI suggestions — confidence is appropriate"
		}
	}

	if eqBoostApproved+eqCutApproved+eqBoostRejected+eqCutRejected > 3 {
		if eqBoostRejected > eqBoostApproved*2 {
			prefs["eq_tendency"] = "Engineer prefers cuts over boosts — use subtractive EQ"
		} else if eqBoostApproved > eqCutApproved {
			prefs["eq_tendency"] = "Engineer is comfortable with EQ boosts"
		}
	}

	rolePrefs := map[string]any{}
	for role, s := range l.roleStats {
		if s.TotalApproved+s.TotalRejected < 3 {
			continue // not enough data
		}
		rp := map[string]any{}
		rate := float64(s.TotalApproved) / float64(s.TotalApproved+s.TotalRejected)
		rp["approval_rate"] = roundTo(rate, 2)

		if len(s.FaderApprovals) > 0 {
			rp["preferred_fader_range"] = roundTo(average(s.FaderApprovals), 2)
		}
		if s.CompApprovals+s.CompRejections > 2 {
			if s.CompRejections > s.CompApprovals {
				rp["dynamics"] = "engineer prefers less compression on this"
			} else if s.CompApprovals > 0 {
				rp["preferred_comp_ratio"] = roundTo(s.CompRatioSum/float64(s.CompApprovals), 1)
			}
		}
		if len(s.HpfApprovals) > 0 {
			rp["preferred_hpf_hz"] = int(average(s.HpfApprovals))
		}
		if rate < 0.3 {
			rp["warning"] = "engineer frequently rejects changes to this — leave it alone unless asked"
		}
		rolePrefs[role] = rp
	}
	if len(rolePrefs) > 0 {
		prefs["role_preferences"] = rolePrefs
	}

	if len(prefs) == 0 {
		return nil
	}
	return prefs
}

// persistedState is the on-disk schema.
type persistedState struct {
	Instructions []string              `json:"instructions"`
	RoleStats    map[string]*roleStats `json:"role_stats"`
}

// SaveToFile flushes the learner state as a single JSON document.
func (l *Learner) SaveToFile(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.MarshalIndent(persistedState{
		Instructions: l.instructions,
		RoleStats:    l.roleStats,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	l.dirty = false
	return nil
}

// LoadFromFile replaces the learner state from disk.
func (l *Learner) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read preferences: %w", err)
	}
	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("parse preferences: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.instructions = state.Instructions
	l.roleStats = state.RoleStats
	if l.roleStats == nil {
		l.roleStats = make(map[string]*roleStats)
	}
	l.dirty = false
	return nil
}

// Dirty reports unsaved changes.
func (l *Learner) Dirty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dirty
}

// TotalDecisions counts every recorded approval and rejection.
func (l *Learner) TotalDecisions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0
	for _, s := range l.roleStats {
		total += s.TotalApproved + s.TotalRejected
	}
	return total
}

func average(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for _, f := range v {
		sum += f
	}
	return sum / float64(len(v))
}

func roundTo(v float64, decimals int) float64 {
	mult := math.Pow(10, float64(decimals))
	return math.Round(v*mult) / mult
}
