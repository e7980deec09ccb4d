package discovery

import (
	"math"
	"strings"
)

// StereoPair links two adjacent channels carrying the left/right halves of
// one source.
type StereoPair struct {
	Left, Right int
	Confidence  float64
}

// DetectStereoPairs scans adjacent channel pairs and scores the evidence
// that they belong together: a shared name root after stripping L/R
// suffixes (0.6), a shared non-Unknown role (0.2), and dominant-frequency
// similarity (up to 0.2). Pairs scoring above 0.5 are emitted; a channel
// joins at most one pair, first match wins.
func DetectStereoPairs(channels []ChannelProfile) []StereoPair {
	var pairs []StereoPair
	paired := make(map[int]bool)

	for i := 0; i+1 < len(channels); i++ {
		a, b := channels[i], channels[i+1]
		if b.Index != a.Index+1 {
			continue
		}
		if paired[a.Index] || paired[b.Index] {
			continue
		}

		score := 0.0
		if nameImpliesPair(a.ConsoleName, b.ConsoleName) {
			score += 0.6
		}
		if a.Role == b.Role && a.Role != RoleUnknown {
			score += 0.2
		}
		score += spectralSimilarity(a.Fingerprint, b.Fingerprint) * 0.2

		if score > 0.5 {
			pairs = append(pairs, StereoPair{a.Index, b.Index, score})
			paired[a.Index] = true
			paired[b.Index] = true
		}
	}
	return pairs
}

func nameImpliesPair(a, b string) bool {
	normA := strings.ToLower(a)
	normB := strings.ToLower(b)
	if normA == "" || normB == "" {
		return false
	}
	rootA := stripPairSuffix(normA)
	rootB := stripPairSuffix(normB)
	return rootA != "" && rootA == rootB
}

// stripPairSuffix removes a trailing L/R/1/2 plus any separators so
// "gtr l"/"gtr r" and "keys1"/"keys2" share a root.
func stripPairSuffix(s string) string {
	trimSep := func(s string) string {
		return strings.TrimRight(s, " -/_")
	}
	s = trimSep(s)
	if s == "" {
		return s
	}
	switch s[len(s)-1] {
	case 'l', 'r', '1', '2':
		s = trimSep(s[:len(s)-1])
	}
	return s
}

func spectralSimilarity(a, b Fingerprint) float64 {
	if !a.HasSignal || !b.HasSignal {
		return 0
	}
	maxFreq := math.Max(a.DominantFreqHz, b.DominantFreqHz)
	if maxFreq < 1.0 {
		return 0
	}
	diff := math.Abs(a.DominantFreqHz-b.DominantFreqHz) / maxFreq
	return math.Max(0, 1.0-diff)
}
