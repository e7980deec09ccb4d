// Package analysis turns meter and spectral data into actionable findings.
// The Analyser runs on the DSP loop at ~50ms intervals; its issue detector
// produces the compact vocabulary the decision engine acts on. The LLM
// never sees raw spectra — the heavy DSP happens here and only conclusions
// travel.
package analysis

import (
	"fmt"
	"math"
	"sync"

	"github.com/mixmate/mixmate/internal/audio"
	"github.com/mixmate/mixmate/internal/console"
)

// ChannelAnalysis is the per-tick analysis of one channel.
type ChannelAnalysis struct {
	Channel        int
	RmsDB          float64
	PeakDB         float64
	CrestFactor    float64 // peak - rms (dB)
	IsClipping     bool    // peak > -0.5 dBFS
	IsFeedbackRisk bool    // sustained narrow-band energy spike
	DominantFreqHz float64
	SpectralCentroid float64

	// Band energies (from FFT when available, else console metering)
	SubBass  float64
	Bass     float64
	LowMid   float64
	Mid      float64
	UpperMid float64
	Presence float64
	Air      float64

	HasFFTData bool
}

// MixAnalysis is the whole-desk result of one analysis tick.
type MixAnalysis struct {
	Channels []ChannelAnalysis

	MainRmsDB    float64
	MainPeakDB   float64
	MainClipping bool

	Warnings        []string
	HasFeedbackRisk bool
	HasClipping     bool
	ClippingChannel int
}

// IssueType is the closed issue vocabulary.
type IssueType int

const (
	IssueClipping IssueType = iota
	IssueFeedbackRisk
	IssueMasking
	IssueBoomy      // excess low-mid energy
	IssueHarsh      // excess upper-mid energy
	IssueThin       // lacking presence relative to bass
	IssueMuddy      // excess bass buildup across the mix
	IssueNoHeadroom // main bus close to clipping
)

func (t IssueType) String() string {
	switch t {
	case IssueClipping:
		return "clipping"
	case IssueFeedbackRisk:
		return "feedback_risk"
	case IssueMasking:
		return "masking"
	case IssueBoomy:
		return "boomy"
	case IssueHarsh:
		return "harsh"
	case IssueThin:
		return "thin"
	case IssueMuddy:
		return "muddy"
	case IssueNoHeadroom:
		return "no_headroom"
	}
	return "unknown"
}

// Issue is one concise, actionable finding for LLM consumption.
type Issue struct {
	Type        IssueType
	Channel     int
	Channel2    int     // second channel for masking
	FreqHz      float64 // relevant frequency
	Severity    float64 // 0-1
	Description string
}

// Analyser merges console meters with per-channel FFT results and detects
// mix issues. FFT results arrive from the DSP loop via UpdateFFT; without
// them it degrades to meter-only analysis and skips FFT-dependent issues.
type Analyser struct {
	fftMu      sync.Mutex
	fftResults []audio.Result
	hasFFTData bool
}

// NewAnalyser returns an empty analyser.
func NewAnalyser() *Analyser { return &Analyser{} }

// UpdateFFT stores the latest FFT result for a channel (1-based).
func (a *Analyser) UpdateFFT(channel int, result audio.Result) {
	a.fftMu.Lock()
	defer a.fftMu.Unlock()
	if channel < 1 {
		return
	}
	if channel > len(a.fftResults) {
		grown := make([]audio.Result, channel)
		copy(grown, a.fftResults)
		a.fftResults = grown
	}
	a.fftResults[channel-1] = result
	a.fftResults[channel-1].HasSignal = true
	a.hasFFTData = true
}

// HasFFTData reports whether real FFT data has ever arrived.
func (a *Analyser) HasFFTData() bool {
	a.fftMu.Lock()
	defer a.fftMu.Unlock()
	return a.hasFFTData
}

func (a *Analyser) fftFor(ch int) (audio.Result, bool) {
	a.fftMu.Lock()
	defer a.fftMu.Unlock()
	if ch <= len(a.fftResults) && a.fftResults[ch-1].HasSignal {
		return a.fftResults[ch-1], true
	}
	return audio.Result{}, false
}

// Analyse builds a MixAnalysis for channels 1..channelCount from the
// console state plus any FFT data.
func (a *Analyser) Analyse(state *console.State, channelCount int) MixAnalysis {
	result := MixAnalysis{MainRmsDB: -96, MainPeakDB: -96}

	for ch := 1; ch <= channelCount; ch++ {
		snap, ok := state.Channel(ch)
		if !ok {
			continue
		}
		ca := ChannelAnalysis{
			Channel:     ch,
			RmsDB:       snap.RmsDB,
			PeakDB:      snap.PeakDB,
			CrestFactor: snap.PeakDB - snap.RmsDB,
			IsClipping:  snap.PeakDB > -0.5,
			SubBass:     -96, Bass: -96, LowMid: -96, Mid: -96,
			UpperMid: -96, Presence: -96, Air: -96,
		}

		fft, haveFFT := a.fftFor(ch)
		if haveFFT {
			ca.HasFFTData = true
			ca.DominantFreqHz = fft.DominantFreqHz
			ca.SpectralCentroid = fft.SpectralCentroid
			ca.SubBass = fft.Bands.SubBass
			ca.Bass = fft.Bands.Bass
			ca.LowMid = fft.Bands.LowMid
			ca.Mid = fft.Bands.Mid
			ca.UpperMid = fft.Bands.UpperMid
			ca.Presence = fft.Bands.Presence
			ca.Air = fft.Bands.Air
			// The capture path measures levels more accurately than
			// console meters when it has real data.
			if fft.RmsDB > -95 {
				ca.RmsDB = fft.RmsDB
				ca.PeakDB = fft.PeakDB
				ca.CrestFactor = fft.CrestFactor
				ca.IsClipping = fft.PeakDB > -0.5
			}
		} else {
			// Fall back to the console model's spectral slice
			ca.DominantFreqHz = snap.Spectral.SpectralCentroid
			ca.SpectralCentroid = snap.Spectral.SpectralCentroid
			ca.Bass = snap.Spectral.Bass
			ca.Mid = snap.Spectral.Mid
			ca.Presence = snap.Spectral.Presence
		}

		// Feedback: a sustained near-sinusoidal tone at high level.
		// Low crest factor (peak ~ RMS) is the tell; without FFT we
		// require a slightly hotter level before we trust the meters.
		if haveFFT {
			if ca.RmsDB > -12.0 && ca.CrestFactor < 3.0 {
				ca.IsFeedbackRisk = true
				result.HasFeedbackRisk = true
				result.Warnings = append(result.Warnings, fmt.Sprintf(
					"Feedback risk ch%d @%.0fHz (crest=%.0fdB)",
					ch, ca.DominantFreqHz, ca.CrestFactor))
			}
		} else if snap.RmsDB > -10.0 && ca.CrestFactor < 3.0 {
			ca.IsFeedbackRisk = true
			result.HasFeedbackRisk = true
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"Possible feedback ch%d", ch))
		}

		if ca.IsClipping {
			result.HasClipping = true
			result.ClippingChannel = ch
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"Clipping ch%d (peak=%.0fdBFS)", ch, ca.PeakDB))
		}

		result.Channels = append(result.Channels, ca)
	}

	return result
}

// DetectIssues converts a MixAnalysis into the issue list. Silent
// channels produce nothing; the spectral issues require real FFT data.
func (a *Analyser) DetectIssues(analysis MixAnalysis) []Issue {
	var issues []Issue

	for _, ch := range analysis.Channels {
		if ch.RmsDB < -60.0 {
			continue
		}

		if ch.IsClipping {
			issues = append(issues, Issue{
				Type:     IssueClipping,
				Channel:  ch.Channel,
				Severity: clamp01((ch.PeakDB + 3.0) / 3.0),
				Description: fmt.Sprintf("ch%d clipping (peak %.1fdB)",
					ch.Channel, ch.PeakDB),
			})
		}

		if ch.IsFeedbackRisk {
			issues = append(issues, Issue{
				Type:     IssueFeedbackRisk,
				Channel:  ch.Channel,
				FreqHz:   ch.DominantFreqHz,
				Severity: clamp01((-ch.CrestFactor + 6.0) / 6.0),
				Description: fmt.Sprintf("ch%d feedback risk @%.0fHz",
					ch.Channel, ch.DominantFreqHz),
			})
		}

		if !ch.HasFFTData {
			continue
		}

		// Boomy: excess low-mid energy
		if ch.LowMid > -12.0 && ch.LowMid > ch.Mid+6.0 {
			issues = append(issues, Issue{
				Type:     IssueBoomy,
				Channel:  ch.Channel,
				FreqHz:   350,
				Severity: clamp01((ch.LowMid + 6.0) / 12.0),
				Description: fmt.Sprintf("ch%d boomy (low-mid %.1fdB)",
					ch.Channel, ch.LowMid),
			})
		}

		// Harsh: excess upper-mid (2-6kHz) energy
		if ch.UpperMid > -10.0 && ch.UpperMid > ch.Mid+4.0 {
			issues = append(issues, Issue{
				Type:     IssueHarsh,
				Channel:  ch.Channel,
				FreqHz:   3500,
				Severity: clamp01((ch.UpperMid + 6.0) / 12.0),
				Description: fmt.Sprintf("ch%d harsh (upper-mid %.1fdB)",
					ch.Channel, ch.UpperMid),
			})
		}

		// Thin: lacking presence relative to bass
		if ch.Presence < -30.0 && ch.Bass > -15.0 && ch.Bass-ch.Presence > 15.0 {
			issues = append(issues, Issue{
				Type:     IssueThin,
				Channel:  ch.Channel,
				FreqHz:   5000,
				Severity: clamp01((ch.Bass - ch.Presence) / 20.0),
				Description: fmt.Sprintf("ch%d thin (presence %.1fdB)",
					ch.Channel, ch.Presence),
			})
		}
	}

	// Masking: compare every active channel pair with FFT data.
	for i := 0; i < len(analysis.Channels); i++ {
		a1 := analysis.Channels[i]
		if a1.RmsDB < -40.0 || !a1.HasFFTData {
			continue
		}
		for j := i + 1; j < len(analysis.Channels); j++ {
			a2 := analysis.Channels[j]
			if a2.RmsDB < -40.0 || !a2.HasFFTData {
				continue
			}
			for _, hit := range checkMasking(a1, a2) {
				issues = append(issues, Issue{
					Type:     IssueMasking,
					Channel:  a1.Channel,
					Channel2: a2.Channel,
					FreqHz:   hit.suggestedCutHz,
					Severity: clamp01((hit.overlapDB + 12.0) / 12.0),
					Description: fmt.Sprintf("ch%d & ch%d masking @%.0fHz",
						a1.Channel, a2.Channel, hit.suggestedCutHz),
				})
			}
		}
	}

	return issues
}

// maskingHit describes one band where two channels fight for the same
// spectral space.
type maskingHit struct {
	overlapDB      float64
	suggestedCutHz float64
	suggestedCutDB float64
}

// checkMasking reports every band where both channels carry comparable,
// loud energy: bass (kick vs bass guitar), low-mid (guitar vs keys), and
// mid (guitar vs vocal).
func checkMasking(a, b ChannelAnalysis) []maskingHit {
	var hits []maskingHit

	bassOverlap := math.Min(a.Bass, b.Bass)
	if bassOverlap > -15.0 && math.Abs(a.Bass-b.Bass) < 6.0 {
		hits = append(hits, maskingHit{bassOverlap, 200, -3.0})
	}

	lowMidOverlap := math.Min(a.LowMid, b.LowMid)
	if lowMidOverlap > -12.0 && math.Abs(a.LowMid-b.LowMid) < 5.0 {
		hits = append(hits, maskingHit{lowMidOverlap, 400, -2.5})
	}

	midOverlap := math.Min(a.Mid, b.Mid)
	if midOverlap > -12.0 && math.Abs(a.Mid-b.Mid) < 4.0 {
		hits = append(hits, maskingHit{midOverlap, 2000, -2.0})
	}

	return hits
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
