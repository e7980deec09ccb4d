package analysis

import (
	"math"

	"github.com/mixmate/mixmate/internal/console"
	"github.com/mixmate/mixmate/internal/discovery"
)

// Bridge builds JSON-shaped snapshots of the current mix for the decision
// engine: channel entries joined from the console state and channel map,
// plus the issue summary.
type Bridge struct {
	State *console.State
	Map   *discovery.ChannelMap
}

// BuildMixState assembles the full mix state. Channels with neither a
// name nor signal are omitted to keep the context compact.
func (b *Bridge) BuildMixState(issues []Issue) map[string]any {
	channels := make([]map[string]any, 0, b.Map.Count())

	for _, profile := range b.Map.All() {
		if !profile.Fingerprint.HasSignal && profile.ConsoleName == "" {
			continue
		}
		snap, ok := b.State.Channel(profile.Index)
		if !ok {
			continue
		}

		ch := map[string]any{
			"index":      profile.Index,
			"name":       profile.ConsoleName,
			"role":       profile.Role.String(),
			"group":      profile.Group,
			"fader":      roundTo(snap.Fader, 2),
			"muted":      snap.Muted,
			"pan":        roundTo(snap.Pan, 2),
			"rms_db":     roundTo(snap.RmsDB, 1),
			"peak_db":    roundTo(snap.PeakDB, 1),
			"has_signal": snap.RmsDB > -60.0,
		}

		if profile.StereoPair != 0 {
			ch["stereo_pair"] = profile.StereoPair
		}

		if snap.EqOn {
			eq := make([]map[string]any, 0, 4)
			for band := 0; band < 4; band++ {
				if math.Abs(snap.Eq[band].Gain) > 0.1 {
					eq = append(eq, map[string]any{
						"band": band + 1,
						"freq": snap.Eq[band].Freq,
						"gain": roundTo(snap.Eq[band].Gain, 1),
						"q":    roundTo(snap.Eq[band].Q, 2),
					})
				}
			}
			if len(eq) > 0 {
				ch["eq"] = eq
			}
		}

		if snap.HpfOn && snap.HpfFreq > 20.0 {
			ch["hpf_hz"] = roundTo(snap.HpfFreq, 0)
		}

		if snap.Comp.On {
			ch["comp"] = map[string]any{
				"threshold": roundTo(snap.Comp.Threshold, 1),
				"ratio":     roundTo(snap.Comp.Ratio, 1),
				"attack":    roundTo(snap.Comp.Attack, 1),
				"release":   roundTo(snap.Comp.Release, 0),
			}
		}

		if snap.Gate.On {
			ch["gate"] = map[string]any{
				"threshold": roundTo(snap.Gate.Threshold, 1),
				"range":     roundTo(snap.Gate.Range, 1),
			}
		}

		channels = append(channels, ch)
	}

	state := map[string]any{"channels": channels}

	if len(issues) > 0 {
		list := make([]map[string]any, 0, len(issues))
		for _, issue := range issues {
			ij := map[string]any{
				"type":        issue.Type.String(),
				"channel":     issue.Channel,
				"severity":    roundTo(issue.Severity, 2),
				"description": issue.Description,
			}
			if issue.Channel2 > 0 {
				ij["channel2"] = issue.Channel2
			}
			if issue.FreqHz > 0 {
				ij["freq_hz"] = int(issue.FreqHz)
			}
			list = append(list, ij)
		}
		state["issues"] = list
	}

	return state
}

// BuildCompactState is the small periodic snapshot recorded into session
// memory: active channels only, terse keys.
func (b *Bridge) BuildCompactState() map[string]any {
	channels := make([]map[string]any, 0)
	for _, profile := range b.Map.Active() {
		snap, ok := b.State.Channel(profile.Index)
		if !ok {
			continue
		}
		channels = append(channels, map[string]any{
			"i":  profile.Index,
			"r":  profile.Role.String(),
			"f":  roundTo(snap.Fader, 2),
			"db": roundTo(snap.RmsDB, 0),
			"pk": roundTo(snap.PeakDB, 0),
		})
	}
	return map[string]any{"ch": channels}
}

func roundTo(v float64, decimals int) float64 {
	mult := math.Pow(10, float64(decimals))
	return math.Round(v*mult) / mult
}
