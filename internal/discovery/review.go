package discovery

import (
	"encoding/json"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// RawCaller is the slice of the LLM engine the review pass needs.
type RawCaller interface {
	CallRaw(systemPrompt, userMessage string) (string, error)
}

// Reviewer asks the LLM to sanity-check the locally detected channel map:
// correct probable misclassifications, spot missed stereo pairs, and flag
// suspicious settings. Its output refines profiles; it never blocks the
// live pipeline.
type Reviewer struct {
	LLM RawCaller
}

const reviewSystemPrompt = `You are an experienced live sound engineer reviewing a channel map
that was automatically detected from a mixing console.

Your job is to:
1. Identify any channels that are probably misclassified
2. Spot likely stereo pairs that weren't detected
3. Identify the overall band/show type from the channel layout
4. Flag any channels with suspicious settings (e.g. phantom on a dynamic mic)

Respond ONLY with valid JSON:
{
  "show_type": "rock_band|jazz_quartet|musical_theatre|conference|dj_set|...",
  "show_confidence": 0.85,
  "observations": "brief overall assessment",
  "corrections": [
    {
      "channel": 5,
      "current_role": "Unknown",
      "suggested_role": "ElectricGuitar",
      "reason": "named 'GTR1', spectral profile matches guitar",
      "confidence": 0.9
    }
  ],
  "stereo_pairs": [
    { "left": 15, "right": 16, "reason": "named GTR L/R, same role" }
  ],
  "concerns": [
    {
      "channel": 3,
      "issue": "phantom_48v_on_dynamic",
      "detail": "channel named 'Snare' has 48V phantom — likely a mistake"
    }
  ]
}`

type reviewChannel struct {
	Channel      int     `json:"channel"`
	Name         string  `json:"name"`
	InferredRole string  `json:"inferred_role"`
	Confidence   string  `json:"confidence"`
	HasSignal    bool    `json:"has_signal"`
	FaderNorm    float64 `json:"fader_norm"`
	Muted        bool    `json:"muted"`
	Phantom48V   bool    `json:"phantom_48v"`
	PhaseInvert  bool    `json:"phase_invert"`
	HpfHz        float64 `json:"hpf_hz"`
	Spectral     struct {
		DominantHz   float64 `json:"dominant_hz"`
		BassEnergy   float64 `json:"bass_energy"`
		MidEnergy    float64 `json:"mid_energy"`
		HighEnergy   float64 `json:"high_energy"`
		CrestFactor  float64 `json:"crest_factor"`
		IsPercussive bool    `json:"is_percussive"`
	} `json:"spectral"`
}

type reviewResponse struct {
	ShowType       string  `json:"show_type"`
	ShowConfidence float64 `json:"show_confidence"`
	Observations   string  `json:"observations"`
	Corrections    []struct {
		Channel       int    `json:"channel"`
		SuggestedRole string `json:"suggested_role"`
		Reason        string `json:"reason"`
	} `json:"corrections"`
	StereoPairs []struct {
		Left  int `json:"left"`
		Right int `json:"right"`
	} `json:"stereo_pairs"`
	Concerns []struct {
		Channel int    `json:"channel"`
		Issue   string `json:"issue"`
		Detail  string `json:"detail"`
	} `json:"concerns"`
}

// Review sends the profiles for review and returns the corrected set.
func (r *Reviewer) Review(profiles []ChannelProfile) ([]ChannelProfile, error) {
	prompt, err := r.buildPrompt(profiles)
	if err != nil {
		return profiles, err
	}

	response, err := r.LLM.CallRaw(reviewSystemPrompt, prompt)
	if err != nil {
		return profiles, fmt.Errorf("review call: %w", err)
	}

	return applyReview(response, profiles)
}

func (r *Reviewer) buildPrompt(profiles []ChannelProfile) (string, error) {
	channels := make([]reviewChannel, 0, len(profiles))
	for _, p := range profiles {
		if !p.Fingerprint.HasSignal && p.ConsoleName == "" {
			continue
		}
		rc := reviewChannel{
			Channel:      p.Index,
			Name:         p.ConsoleName,
			InferredRole: p.Role.String(),
			Confidence:   p.Confidence.String(),
			HasSignal:    p.Fingerprint.HasSignal,
			FaderNorm:    p.FaderNorm,
			Muted:        p.Muted,
			Phantom48V:   p.PhantomPower,
			PhaseInvert:  p.PhaseInvert,
			HpfHz:        p.HighPassHz,
		}
		rc.Spectral.DominantHz = p.Fingerprint.DominantFreqHz
		rc.Spectral.BassEnergy = p.Fingerprint.BassEnergy
		rc.Spectral.MidEnergy = p.Fingerprint.MidEnergy
		rc.Spectral.HighEnergy = p.Fingerprint.PresenceEnergy
		rc.Spectral.CrestFactor = p.Fingerprint.CrestFactor
		rc.Spectral.IsPercussive = p.Fingerprint.IsPercussive
		channels = append(channels, rc)
	}

	body, err := json.Marshal(map[string]any{"channels": channels})
	if err != nil {
		return "", fmt.Errorf("marshal review prompt: %w", err)
	}
	return string(body), nil
}

// applyReview parses the LLM's response and applies corrections and pairs
// to the profile set. Role corrections skip manually overridden profiles;
// stereo pairs are applied to any profile.
func applyReview(response string, profiles []ChannelProfile) ([]ChannelProfile, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return profiles, fmt.Errorf("review response contains no JSON object")
	}

	var rr reviewResponse
	if err := json.Unmarshal([]byte(response[start:end+1]), &rr); err != nil {
		return profiles, fmt.Errorf("parse review response: %w", err)
	}

	log.WithFields(log.Fields{
		"show_type":  rr.ShowType,
		"confidence": rr.ShowConfidence,
	}).Info("LLM identified show type")
	if rr.Observations != "" {
		log.WithField("observations", rr.Observations).Info("LLM review observations")
	}

	for _, c := range rr.Corrections {
		if c.Channel < 1 || c.Channel > len(profiles) {
			continue
		}
		p := &profiles[c.Channel-1]
		if p.ManuallyOverridden {
			continue
		}
		p.Role = RoleFromString(c.SuggestedRole)
		p.Confidence = ConfidenceMedium
		p.LLMNotes = c.Reason
		log.WithFields(log.Fields{
			"channel": c.Channel,
			"name":    p.ConsoleName,
			"role":    c.SuggestedRole,
		}).Info("LLM corrected channel role")
	}

	for _, pair := range rr.StereoPairs {
		if pair.Left < 1 || pair.Left > len(profiles) {
			continue
		}
		if pair.Right < 1 || pair.Right > len(profiles) {
			continue
		}
		profiles[pair.Left-1].StereoPair = pair.Right
		profiles[pair.Right-1].StereoPair = pair.Left
		log.WithFields(log.Fields{
			"left":  pair.Left,
			"right": pair.Right,
		}).Info("LLM detected stereo pair")
	}

	for _, concern := range rr.Concerns {
		log.WithFields(log.Fields{
			"channel": concern.Channel,
			"issue":   concern.Issue,
			"detail":  concern.Detail,
		}).Warn("discovery concern")
	}

	return profiles, nil
}
