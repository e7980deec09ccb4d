package discovery

import "testing"

func pairProfiles(specs ...ChannelProfile) []ChannelProfile {
	for i := range specs {
		if specs[i].Index == 0 {
			specs[i].Index = i + 1
		}
	}
	return specs
}

func TestDetectStereoPairsGuitarLR(t *testing.T) {
	channels := pairProfiles(
		ChannelProfile{Index: 15, ConsoleName: "Gtr L", Role: RoleElectricGuitar,
			Fingerprint: Fingerprint{HasSignal: true, DominantFreqHz: 440}},
		ChannelProfile{Index: 16, ConsoleName: "Gtr R", Role: RoleElectricGuitar,
			Fingerprint: Fingerprint{HasSignal: true, DominantFreqHz: 445}},
	)

	pairs := DetectStereoPairs(channels)
	if len(pairs) != 1 {
		t.Fatalf("got %d pairs, want 1", len(pairs))
	}
	p := pairs[0]
	if p.Left != 15 || p.Right != 16 {
		t.Errorf("pair = (%d,%d), want (15,16)", p.Left, p.Right)
	}
	// Name root (0.6) + same role (0.2) + near-identical dominant
	// frequency (~0.2) must land at or above 0.8.
	if p.Confidence < 0.8 {
		t.Errorf("confidence = %.2f, want >= 0.8", p.Confidence)
	}
}

func TestDetectStereoPairsNumericSuffix(t *testing.T) {
	channels := pairProfiles(
		ChannelProfile{Index: 9, ConsoleName: "Keys 1", Role: RoleKeys},
		ChannelProfile{Index: 10, ConsoleName: "Keys 2", Role: RoleKeys},
	)

	pairs := DetectStereoPairs(channels)
	if len(pairs) != 1 {
		t.Fatalf("got %d pairs, want 1", len(pairs))
	}
}

func TestDetectStereoPairsNonAdjacentIndices(t *testing.T) {
	// Indices 3 and 5 are not consecutive even though the profiles are
	// adjacent in the slice.
	channels := []ChannelProfile{
		{Index: 3, ConsoleName: "OH L", Role: RoleOverhead},
		{Index: 5, ConsoleName: "OH R", Role: RoleOverhead},
	}
	if pairs := DetectStereoPairs(channels); len(pairs) != 0 {
		t.Fatalf("got %d pairs across non-consecutive indices, want 0", len(pairs))
	}
}

func TestDetectStereoPairsUnrelatedChannels(t *testing.T) {
	channels := pairProfiles(
		ChannelProfile{Index: 1, ConsoleName: "Kick", Role: RoleKick},
		ChannelProfile{Index: 2, ConsoleName: "Snare", Role: RoleSnare},
	)
	if pairs := DetectStereoPairs(channels); len(pairs) != 0 {
		t.Fatalf("Kick/Snare paired: %+v", pairs)
	}
}

func TestDetectStereoPairsChannelInAtMostOnePair(t *testing.T) {
	// Three same-role adjacent channels with pairable names: the first
	// pair wins and the middle channel cannot join a second pair.
	channels := pairProfiles(
		ChannelProfile{Index: 1, ConsoleName: "BV 1", Role: RoleBackingVocal},
		ChannelProfile{Index: 2, ConsoleName: "BV 2", Role: RoleBackingVocal},
		ChannelProfile{Index: 3, ConsoleName: "BV 1", Role: RoleBackingVocal},
	)

	pairs := DetectStereoPairs(channels)
	if len(pairs) != 1 {
		t.Fatalf("got %d pairs, want 1", len(pairs))
	}
	if pairs[0].Left != 1 || pairs[0].Right != 2 {
		t.Errorf("pair = (%d,%d), want first pair (1,2)", pairs[0].Left, pairs[0].Right)
	}
}

func TestStripPairSuffix(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"gtr l", "gtr"},
		{"gtr r", "gtr"},
		{"gtr-l", "gtr"},
		{"keys1", "keys"},
		{"keys 2", "keys"},
		{"oh_l", "oh"},
		{"vox", "vox"}, // only trailing l/r/1/2 strip
		{"kick", "kick"},
	}
	for _, tt := range tests {
		if got := stripPairSuffix(tt.in); got != tt.want {
			t.Errorf("stripPairSuffix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
