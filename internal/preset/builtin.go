package preset

import "github.com/mixmate/mixmate/internal/discovery"

// builtinPresets returns the stock genre references.
func builtinPresets() []*GenrePreset {
	return []*GenrePreset{
		{
			Name:        "rock",
			Description: "Punchy drums, driving guitars, vocals above the band",
			Targets: []RoleTarget{
				{discovery.RoleKick, -6, 0, "punchy, tight low-end", "moderate compression 4:1, fast attack", "HPF around 50Hz, cut boxiness at 300-400Hz"},
				{discovery.RoleSnare, -4, 0, "crack with body", "medium compression 3:1", "boost attack at 2-5kHz, body at 200Hz"},
				{discovery.RoleHiHat, -14, 0.3, "crisp not harsh", "", "HPF at 300Hz, tame harshness at 3-4kHz"},
				{discovery.RoleTom, -8, 0, "full, round attack", "light compression", "cut mud at 300-500Hz"},
				{discovery.RoleOverhead, -10, 0, "natural cymbals, room", "", "HPF at 200Hz"},
				{discovery.RoleBassGuitar, -6, 0, "warm and defined", "moderate compression 4:1", "separate from kick in low-mid, DI+amp blend"},
				{discovery.RoleElectricGuitar, -8, -0.3, "mid-forward, biting", "light compression", "don't compete with vocal 2-4kHz range"},
				{discovery.RoleAcousticGuitar, -10, 0.3, "open, strummy", "", "HPF at 100Hz, presence boost"},
				{discovery.RoleLeadVocal, 0, 0, "clear, upfront, present", "moderate compression 3:1", "this is the star — sits above everything, de-ess if sibilant"},
				{discovery.RoleBackingVocal, -6, 0, "supportive, blended", "medium compression", "4-6dB below lead vocal"},
				{discovery.RoleKeys, -10, 0.2, "pad underneath", "", "stay out of vocal range"},
			},
		},
		{
			Name:        "jazz",
			Description: "Natural, dynamic, piano/bass/drums trio feel, minimal processing",
			Targets: []RoleTarget{
				{discovery.RoleKick, -10, 0, "warm, natural", "very light or none", "let dynamics breathe, no heavy gating"},
				{discovery.RoleSnare, -8, 0, "warm brush or stick", "very light", "no harsh processing"},
				{discovery.RoleHiHat, -14, 0.3, "natural sizzle", "", ""},
				{discovery.RoleOverhead, -6, 0, "primary drum image", "", "these carry the kit sound in jazz"},
				{discovery.RoleBassGuitar, -4, 0, "warm, full, walking", "very light", "upright bass needs body, HPF only at 30Hz"},
				{discovery.RolePiano, 0, 0, "full, dynamic, rich", "none or very light", "often the lead — let it breathe"},
				{discovery.RoleKeys, -4, 0, "natural, dynamic", "", ""},
				{discovery.RoleElectricGuitar, -6, 0.3, "clean, warm", "", "jazz guitar sits behind piano"},
				{discovery.RoleLeadVocal, -2, 0, "intimate, warm", "very light 2:1", "jazz vocals are conversational, not arena"},
				{discovery.RoleSaxophone, -2, 0, "rich, honky character", "", "don't over-EQ, natural is better"},
				{discovery.RoleTrumpet, -4, 0, "bright but not harsh", "", "watch for harshness in upper register"},
			},
		},
		{
			Name:        "worship",
			Description: "Big pads, clear vocals, emotional dynamics, atmospheric",
			Targets: []RoleTarget{
				{discovery.RoleKick, -8, 0, "modern click + sub", "moderate 4:1", "tight, controlled low-end, sub emphasis"},
				{discovery.RoleSnare, -6, 0, "fat, reverbed", "moderate 3:1", "generous reverb, big snare sound"},
				{discovery.RoleBassGuitar, -6, 0, "sub-heavy, smooth", "moderate compression", "stay below 200Hz primarily"},
				{discovery.RoleElectricGuitar, -10, 0.4, "ambient, washed", "", "lots of delay/reverb, textural not rhythmic"},
				{discovery.RoleAcousticGuitar, -8, 0.3, "bright, rhythmic", "", "drives the rhythm in quieter sections"},
				{discovery.RoleKeys, -6, 0, "big pads, atmospheric", "", "synth pads are foundational — warm and wide"},
				{discovery.RolePiano, -6, 0, "emotional, dynamic", "light", "let it lead in quiet moments"},
				{discovery.RoleLeadVocal, 0, 0, "clear, emotional, present", "moderate 3:1", "the most important element — always intelligible"},
				{discovery.RoleBackingVocal, -6, 0, "blended, lush", "moderate", "tight harmonies, cohesive with lead"},
				{discovery.RoleChoir, -8, 0, "full, blended wash", "", "congregation feel, not individual voices"},
			},
		},
		{
			Name:        "edm",
			Description: "Loud, punchy, bass-heavy, everything compressed and controlled",
			Targets: []RoleTarget{
				{discovery.RoleKick, -2, 0, "huge sub + transient click", "heavy compression 8:1", "sidechain everything to this"},
				{discovery.RoleSnare, -4, 0, "layered, big clap/snare", "heavy compression", "reverb tail adds size"},
				{discovery.RoleHiHat, -12, 0.3, "crisp, cutting", "", "precise, mechanical feel"},
				{discovery.RoleBassGuitar, -2, 0, "massive sub, distorted mid", "heavy compression", "sidechain to kick, dominate the low-end"},
				{discovery.RoleSynth, -6, 0, "leads bright, pads wide", "moderate", "automate filter sweeps"},
				{discovery.RoleKeys, -8, 0.4, "pads: warm stereo, stabs: mono punch", "", ""},
				{discovery.RoleLeadVocal, -2, 0, "processed, effected, upfront", "heavy compression 6:1", "autotune/vocoder acceptable, always audible"},
				{discovery.RolePlayback, -4, 0, "full, matched to live elements", "", "blend seamlessly with live instruments"},
			},
		},
		{
			Name:        "acoustic",
			Description: "Intimate, natural, vocal-forward with minimal instrumentation",
			Targets: []RoleTarget{
				{discovery.RoleAcousticGuitar, -4, 0, "natural, warm, body", "light compression 2:1", "primary instrument — full range"},
				{discovery.RoleLeadVocal, 0, 0, "intimate, clear, present", "light compression 2:1", "the whole show — above everything else"},
				{discovery.RolePiano, -4, 0, "natural, unprocessed", "none or very light", "pair with voice naturally"},
				{discovery.RoleBassGuitar, -8, 0, "warm support", "light", "subtle foundation"},
				{discovery.RoleViolin, -6, 0.2, "singing, expressive", "", "complement the vocal"},
				{discovery.RoleBackingVocal, -8, 0, "gentle harmony", "light", "well behind the lead"},
			},
		},
	}
}
