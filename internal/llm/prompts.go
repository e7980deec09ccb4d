package llm

import (
	"fmt"
	"os"
	"path/filepath"
)

// mixSystemPrompt is the compact built-in prompt used when no prompt
// directory is configured.
const mixSystemPrompt = `You are an expert live sound engineer AI assistant.
You are given the current state of a live mixing console and recent history.
Analyse the mix and suggest specific, safe adjustments.

RULES:
- Never change faders by more than 6dB in a single step
- Never boost EQ by more than 3dB in a single step — cuts are safer than boosts
- For feedback risks, suggest CUTS, never boosts
- Always prioritize vocal clarity
- Lead vocals should sit 4-6dB above backing vocals in the mix
- If something sounds fine, respond with no_action
- Kick and bass should not mask each other — use HPF separation or EQ notching
- Be conservative — small changes that compound over time
- CRITICAL: If "engineer_instructions" are present in the mix state, those are
  direct instructions from the human engineer. Follow them. They take priority
  over your own analysis. If the engineer says "leave the drums alone", do not
  suggest any drum changes. If the engineer says "more vocals", prioritize that.

Respond with a JSON array of actions:
[
  {
    "action": "set_fader|set_pan|set_eq|set_comp|set_gate|set_hpf|set_send|mute|unmute|no_action|observation",
    "channel": 1,
    "role": "Kick",
    "value": 0.75,
    "value2": 0.0,
    "value3": 1.0,
    "band": 1,
    "aux": 0,
    "urgency": "immediate|fast|normal|low",
    "reason": "brief explanation"
  }
]

For set_eq: value=frequency_hz, value2=gain_db, value3=q_factor, band=1-6
For set_comp: value=threshold_db, value2=ratio
For set_hpf: value=frequency_hz
For set_fader: value=0.0-1.0 normalized`

// chatSystemPrompt frames free-text engineer messages.
const chatSystemPrompt = `You are an expert live sound engineer AI assistant.
The engineer has sent you a message. Respond conversationally AND suggest
specific mix actions if appropriate.

If the message is a question about the current mix, answer it based on the
mix state provided.

If the message is an instruction (e.g. "bring up the vocals", "leave the
drums alone", "more reverb on the snare"), acknowledge it and produce actions.

Respond with JSON:
{
  "reply": "Your conversational response to the engineer",
  "actions": [
    {
      "action": "set_fader|set_eq|set_comp|set_hpf|set_send|mute|unmute|no_action|observation",
      "channel": 1, "role": "Kick", "value": 0.75,
      "value2": 0.0, "value3": 1.0, "band": 1, "aux": 0,
      "urgency": "normal", "reason": "explanation"
    }
  ]
}`

// promptFiles holds system-prompt content loaded from a prompt directory.
type promptFiles struct {
	core            string
	balanceRef      string
	troubleshooting string
	genre           string
}

// loaded reports whether a core prompt was found on disk.
func (p promptFiles) loaded() bool { return p.core != "" }

// loadPromptFiles reads the prompt overlay files from dir. Only the core
// file is required; the rest enrich the prompt when present.
func loadPromptFiles(dir, genre string) (promptFiles, error) {
	var pf promptFiles
	core, err := os.ReadFile(filepath.Join(dir, "mix_core.txt"))
	if err != nil {
		return pf, fmt.Errorf("load core prompt: %w", err)
	}
	pf.core = string(core)

	if data, err := os.ReadFile(filepath.Join(dir, "balance_reference.txt")); err == nil {
		pf.balanceRef = string(data)
	}
	if data, err := os.ReadFile(filepath.Join(dir, "troubleshooting.txt")); err == nil {
		pf.troubleshooting = string(data)
	}
	if genre != "" {
		if data, err := os.ReadFile(filepath.Join(dir, "genre_"+genre+".txt")); err == nil {
			pf.genre = string(data)
		}
	}
	return pf, nil
}

// systemPrompt assembles the decision prompt from the loaded files, or
// falls back to the built-in prompt.
func (p promptFiles) systemPrompt() string {
	if !p.loaded() {
		return mixSystemPrompt
	}
	prompt := p.core
	if p.balanceRef != "" {
		prompt += "\n\n" + p.balanceRef
	}
	if p.troubleshooting != "" {
		prompt += "\n\n" + p.troubleshooting
	}
	if p.genre != "" {
		prompt += "\n\n" + p.genre
	}
	return prompt
}
