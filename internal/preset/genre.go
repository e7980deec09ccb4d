// Package preset holds genre-specific mix targets that guide the decision
// engine: target levels relative to the mix bus, EQ character hints and
// dynamics guidance per instrument role. The LLM treats them as a
// reference to mix toward, not as hard rules.
package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/mixmate/mixmate/internal/discovery"
)

// RoleTarget describes where one role should sit in the mix.
type RoleTarget struct {
	Role              discovery.Role
	TargetRmsRelative float64 // dB relative to mix bus (0 = same as bus)
	PanTarget         float64 // -1.0 to 1.0, 0 = center
	EqCharacter       string  // e.g. "warm", "bright", "punchy"
	DynamicsHint      string  // e.g. "moderate compression 4:1"
	Notes             string
}

// GenrePreset is a named set of role targets.
type GenrePreset struct {
	Name        string
	Description string
	Targets     []RoleTarget
}

// ToJSON renders the preset for LLM context.
func (p *GenrePreset) ToJSON() map[string]any {
	targets := make([]map[string]any, 0, len(p.Targets))
	for _, t := range p.Targets {
		tj := map[string]any{
			"role":               t.Role.String(),
			"target_db_relative": t.TargetRmsRelative,
		}
		if t.PanTarget != 0 {
			tj["pan"] = t.PanTarget
		}
		if t.EqCharacter != "" {
			tj["eq_character"] = t.EqCharacter
		}
		if t.DynamicsHint != "" {
			tj["dynamics"] = t.DynamicsHint
		}
		if t.Notes != "" {
			tj["notes"] = t.Notes
		}
		targets = append(targets, tj)
	}
	return map[string]any{
		"genre":       p.Name,
		"description": p.Description,
		"targets":     targets,
	}
}

// TargetForRole looks up the target for a role, nil when absent.
func (p *GenrePreset) TargetForRole(role discovery.Role) *RoleTarget {
	for i := range p.Targets {
		if p.Targets[i].Role == role {
			return &p.Targets[i]
		}
	}
	return nil
}

// Library holds the built-in presets plus any loaded from disk.
type Library struct {
	mu      sync.Mutex
	presets map[string]*GenrePreset
}

// NewLibrary builds a library with the built-in presets.
func NewLibrary() *Library {
	l := &Library{presets: make(map[string]*GenrePreset)}
	for _, p := range builtinPresets() {
		l.presets[p.Name] = p
	}
	return l
}

// Get returns the preset by name, nil when unknown.
func (l *Library) Get(name string) *GenrePreset {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.presets[name]
}

// Available lists the preset names, sorted.
func (l *Library) Available() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, 0, len(l.presets))
	for name := range l.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// presetFile is the on-disk JSON schema for custom presets.
type presetFile struct {
	Genre       string `json:"genre"`
	Description string `json:"description"`
	Targets     []struct {
		Role             string  `json:"role"`
		TargetDBRelative float64 `json:"target_db_relative"`
		Pan              float64 `json:"pan"`
		EqCharacter      string  `json:"eq_character"`
		Dynamics         string  `json:"dynamics"`
		Notes            string  `json:"notes"`
	} `json:"targets"`
}

// LoadFromFile adds a custom preset from a JSON document. The preset
// registers under its own "genre" name ("custom" when unnamed) and is
// returned.
func (l *Library) LoadFromFile(path string) (*GenrePreset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset: %w", err)
	}
	var pf presetFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse preset: %w", err)
	}

	p := &GenrePreset{Name: pf.Genre, Description: pf.Description}
	if p.Name == "" {
		p.Name = "custom"
	}
	for _, t := range pf.Targets {
		p.Targets = append(p.Targets, RoleTarget{
			Role:              discovery.RoleFromString(t.Role),
			TargetRmsRelative: t.TargetDBRelative,
			PanTarget:         t.Pan,
			EqCharacter:       t.EqCharacter,
			DynamicsHint:      t.Dynamics,
			Notes:             t.Notes,
		})
	}

	l.mu.Lock()
	l.presets[p.Name] = p
	l.mu.Unlock()
	return p, nil
}
