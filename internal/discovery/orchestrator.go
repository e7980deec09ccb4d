package discovery

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/mixmate/mixmate/internal/console"
)

// Orchestrator composes the discovery pipeline: full console sync,
// fingerprint capture, local classification, stereo-pair detection, commit
// to the channel map, and an optional asynchronous LLM review.
type Orchestrator struct {
	Adapter console.Adapter
	State   *console.State
	Map     *ChannelMap

	// WaitSync blocks until the full-sync parameter dump has completed or
	// the timeout elapses, returning false on timeout. The supervisor owns
	// the adapter callbacks and supplies this closure. Nil skips waiting.
	WaitSync func(timeout time.Duration) bool

	// Reviewer runs the asynchronous LLM review pass. Nil disables it.
	Reviewer *Reviewer

	// SyncTimeout and SettleDelay default to 10s and 500ms.
	SyncTimeout time.Duration
	SettleDelay time.Duration

	nameClassifier     *NameClassifier
	spectralClassifier *SpectralClassifier
}

// Run executes the discovery pipeline. It blocks for the local stages; the
// LLM review continues in the background and commits its own corrections.
func (o *Orchestrator) Run() {
	if o.nameClassifier == nil {
		o.nameClassifier = NewNameClassifier()
	}
	if o.spectralClassifier == nil {
		o.spectralClassifier = NewSpectralClassifier()
	}
	if o.SyncTimeout == 0 {
		o.SyncTimeout = 10 * time.Second
	}
	if o.SettleDelay == 0 {
		o.SettleDelay = 500 * time.Millisecond
	}

	caps := o.Adapter.Capabilities()
	log.WithFields(log.Fields{
		"console":  caps.Model,
		"channels": caps.ChannelCount,
		"buses":    caps.BusCount,
	}).Info("starting channel discovery")

	// 1. Full state sync
	o.Adapter.RequestFullSync()
	if o.WaitSync != nil && !o.WaitSync(o.SyncTimeout) {
		log.Warn("partial sync — some channels may be missing data")
	}

	// 2. Let audio settle before fingerprinting
	time.Sleep(o.SettleDelay)

	// 3+4. Fingerprints and initial profiles
	now := time.Now()
	profiles := make([]ChannelProfile, caps.ChannelCount)
	for ch := 1; ch <= caps.ChannelCount; ch++ {
		snap, ok := o.State.Channel(ch)
		if !ok {
			continue
		}
		p := ChannelProfile{
			Index:          ch,
			ConsoleName:    snap.Name,
			NormalisedName: NormaliseName(snap.Name),
			FaderNorm:      snap.Fader,
			Muted:          snap.Muted,
			GainDB:         snap.GainDB,
			PhantomPower:   snap.Phantom,
			PhaseInvert:    snap.Phase,
			HighPassHz:     snap.HpfFreq,
			Fingerprint:    fingerprintFromSnapshot(snap),
			DiscoveredAt:   now,
			LastUpdated:    now,
		}

		// 5. Name classification (fast, local)
		nameResult := o.nameClassifier.Classify(snap.Name)
		p.Role = nameResult.Role
		p.Group = nameResult.Group
		p.Confidence = nameResult.Confidence

		// 6. Spectral override when the name told us nothing
		if p.Confidence <= ConfidenceLow && p.Fingerprint.HasSignal {
			spectral := o.spectralClassifier.Classify(p.Fingerprint)
			if spectral.MatchScore >= 0.6 {
				p.Role = spectral.Role
				p.Group = spectral.Group
				p.Confidence = ConfidenceMedium
				log.WithFields(log.Fields{
					"channel": ch,
					"name":    snap.Name,
					"role":    spectral.Role.String(),
					"score":   spectral.MatchScore,
				}).Debug("spectral classification adopted")
			}
		}

		profiles[ch-1] = p
	}

	// 7. Stereo pair detection
	for _, pair := range DetectStereoPairs(profiles) {
		profiles[pair.Left-1].StereoPair = pair.Right
		profiles[pair.Right-1].StereoPair = pair.Left
		log.WithFields(log.Fields{
			"left":       pair.Left,
			"right":      pair.Right,
			"confidence": pair.Confidence,
		}).Info("detected stereo pair")
	}

	// 8. Commit local classifications immediately
	for _, p := range profiles {
		o.Map.Update(p)
	}
	log.Info("channel discovery complete (local)")
	o.logChannelMap()

	// 9. LLM review pass — async, never blocks the live pipeline
	if o.Reviewer != nil {
		go func(profiles []ChannelProfile) {
			log.Info("starting LLM discovery review")
			reviewed, err := o.Reviewer.Review(profiles)
			if err != nil {
				log.WithError(err).Warn("LLM discovery review failed — keeping local classification")
				return
			}
			for _, p := range reviewed {
				// Re-check the override flag at commit time: the engineer
				// may have corrected a role while the review was running.
				if current, ok := o.Map.Get(p.Index); ok && current.ManuallyOverridden {
					continue
				}
				o.Map.Update(p)
			}
			log.Info("LLM discovery review complete")
			o.logChannelMap()
		}(append([]ChannelProfile(nil), profiles...))
	}
}

// fingerprintFromSnapshot builds a discovery fingerprint from the console
// state's spectral slice and meters. When real FFT data has been flowing,
// the spectral slice already reflects it.
func fingerprintFromSnapshot(snap console.ChannelSnapshot) Fingerprint {
	fp := Fingerprint{
		AverageRMS:       snap.RmsDB,
		HasSignal:        snap.RmsDB > -60.0,
		BassEnergy:       snap.Spectral.Bass,
		MidEnergy:        snap.Spectral.Mid,
		PresenceEnergy:   snap.Spectral.Presence,
		CrestFactor:      snap.Spectral.CrestFactor,
		DominantFreqHz:   snap.Spectral.SpectralCentroid,
		SpectralCentroid: snap.Spectral.SpectralCentroid,
	}
	fp.IsPercussive = fp.CrestFactor > 10.0
	return fp
}

func (o *Orchestrator) logChannelMap() {
	for _, p := range o.Map.All() {
		if p.ConsoleName == "" && !p.Fingerprint.HasSignal {
			continue
		}
		entry := log.WithFields(log.Fields{
			"channel":    p.Index,
			"name":       p.ConsoleName,
			"role":       p.Role.String(),
			"confidence": p.Confidence.String(),
		})
		if p.StereoPair != 0 {
			entry = entry.WithField("pair", p.StereoPair)
		}
		entry.Info("channel map entry")
	}
}
