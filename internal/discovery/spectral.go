package discovery

import "math"

// bandExpectation is an expected energy window for one band with its
// scoring weight. A weight of zero disables the band for the profile.
type bandExpectation struct {
	minDB, maxDB float64
	weight       float64
}

// spectralProfile describes what a role is expected to look like in four
// bands plus a crest-factor window.
type spectralProfile struct {
	role     Role
	group    string
	sub      bandExpectation // 20-80 Hz
	bass     bandExpectation // 80-250 Hz
	mid      bandExpectation // 500 Hz-2 kHz
	presence bandExpectation // 6-10 kHz
	minCrest float64
	maxCrest float64
}

// SpectralClassifier guesses a channel's role from its fingerprint alone.
// It is the fallback when the console name tells us nothing.
type SpectralClassifier struct {
	profiles []spectralProfile
}

// SpectralResult carries the winning role and its match score in [0,1].
type SpectralResult struct {
	Role       Role
	Group      string
	MatchScore float64
}

// NewSpectralClassifier builds the reference profile set.
func NewSpectralClassifier() *SpectralClassifier {
	return &SpectralClassifier{profiles: []spectralProfile{
		// Kick: strong sub/bass, percussive, minimal high end
		{RoleKick, "drums",
			bandExpectation{-10, 0, 2.0},
			bandExpectation{-10, 0, 2.0},
			bandExpectation{-30, -10, 1.0},
			bandExpectation{-40, -15, 0.5},
			8.0, 30.0},
		// Snare: strong mid, percussive
		{RoleSnare, "drums",
			bandExpectation{-40, -20, 1.0},
			bandExpectation{-20, -5, 1.0},
			bandExpectation{-10, 2, 2.0},
			bandExpectation{-20, -5, 1.5},
			10.0, 35.0},
		// Hi-hat: mostly high frequency energy
		{RoleHiHat, "drums",
			bandExpectation{-70, -40, 1.0},
			bandExpectation{-60, -30, 1.0},
			bandExpectation{-30, -10, 1.0},
			bandExpectation{-5, 5, 2.5},
			15.0, 40.0},
		// Bass guitar: strong bass/low-mid, sustained
		{RoleBassGuitar, "bass",
			bandExpectation{-5, 5, 1.5},
			bandExpectation{-5, 5, 2.0},
			bandExpectation{-20, -5, 1.0},
			bandExpectation{-45, -20, 0.5},
			2.0, 8.0},
		// Lead vocal: concentrated mid/upper-mid
		{RoleLeadVocal, "vocals",
			bandExpectation{-50, -25, 0.5},
			bandExpectation{-25, -5, 1.0},
			bandExpectation{-10, 3, 2.0},
			bandExpectation{-20, -5, 1.5},
			4.0, 12.0},
		// Electric guitar: mid-heavy
		{RoleElectricGuitar, "guitars",
			bandExpectation{-60, -30, 1.0},
			bandExpectation{-30, -10, 1.0},
			bandExpectation{-5, 5, 2.0},
			bandExpectation{-20, -5, 1.0},
			3.0, 10.0},
		// Acoustic guitar: broad midrange
		{RoleAcousticGuitar, "guitars",
			bandExpectation{-50, -30, 1.0},
			bandExpectation{-20, -5, 1.5},
			bandExpectation{-10, 3, 2.0},
			bandExpectation{-15, 0, 1.5},
			4.0, 12.0},
		// Piano: broad, full range
		{RolePiano, "keys",
			bandExpectation{-30, -10, 1.0},
			bandExpectation{-15, -5, 1.5},
			bandExpectation{-10, 0, 2.0},
			bandExpectation{-15, -5, 1.5},
			5.0, 15.0},
		// Overheads: broadband, lots of high end
		{RoleOverhead, "drums",
			bandExpectation{-30, -10, 1.0},
			bandExpectation{-25, -10, 1.0},
			bandExpectation{-15, -5, 1.5},
			bandExpectation{-5, 5, 2.0},
			6.0, 20.0},
		// Tom: similar to kick but more mid
		{RoleTom, "drums",
			bandExpectation{-15, -5, 1.5},
			bandExpectation{-10, 0, 2.0},
			bandExpectation{-15, 0, 1.5},
			bandExpectation{-30, -10, 0.5},
			8.0, 25.0},
	}}
}

// crestWeight is the fixed scoring weight of the crest-factor window.
const crestWeight = 2.0

// Classify scores the fingerprint against every profile and returns the
// best match. Scores under 0.4 are reported as Unknown.
func (s *SpectralClassifier) Classify(fp Fingerprint) SpectralResult {
	if !fp.HasSignal {
		return SpectralResult{RoleNoSignal, "inactive", 0}
	}

	best := SpectralResult{RoleUnknown, "unknown", 0}
	for _, p := range s.profiles {
		if score := matchScore(fp, p); score > best.MatchScore {
			best = SpectralResult{p.role, p.group, score}
		}
	}

	if best.MatchScore < 0.4 {
		return SpectralResult{RoleUnknown, "unknown", best.MatchScore}
	}
	return best
}

func matchScore(fp Fingerprint, p spectralProfile) float64 {
	var totalWeight, weightedScore float64

	scoreBand := func(energy float64, exp bandExpectation) {
		if exp.weight == 0 {
			return
		}
		var score float64
		if energy >= exp.minDB && energy <= exp.maxDB {
			score = 1.0
		} else {
			dist := math.Min(math.Abs(energy-exp.minDB), math.Abs(energy-exp.maxDB))
			score = math.Max(0, 1.0-dist/12.0)
		}
		weightedScore += score * exp.weight
		totalWeight += exp.weight
	}

	scoreBand(fp.SubBassEnergy, p.sub)
	scoreBand(fp.BassEnergy, p.bass)
	scoreBand(fp.MidEnergy, p.mid)
	scoreBand(fp.PresenceEnergy, p.presence)

	if fp.CrestFactor >= p.minCrest && fp.CrestFactor <= p.maxCrest {
		weightedScore += crestWeight
	}
	totalWeight += crestWeight

	if totalWeight == 0 {
		return 0
	}
	return weightedScore / totalWeight
}
