package console

import "sync"

// EqBand is one parametric EQ band on a channel.
type EqBand struct {
	Freq float64
	Gain float64
	Q    float64
	Type int // 0=bell, 1=shelf, 2=hpf, 3=lpf
}

// Compressor holds the channel compressor state.
type Compressor struct {
	Threshold float64
	Ratio     float64
	Attack    float64
	Release   float64
	Makeup    float64
	On        bool
}

// Gate holds the channel gate state.
type Gate struct {
	Threshold float64
	Range     float64
	Attack    float64
	Hold      float64
	Release   float64
	On        bool
}

// SpectralData is the per-channel spectral slice written by the DSP loop.
type SpectralData struct {
	Bass             float64
	Mid              float64
	Presence         float64
	CrestFactor      float64
	SpectralCentroid float64
}

// ChannelSnapshot is the full mirrored state of one input channel.
// Snapshots are returned by value; a caller can never observe a
// half-applied update.
type ChannelSnapshot struct {
	Index   int // 1-based
	Name    string
	Fader   float64 // 0.0-1.0 normalized
	Muted   bool
	Pan     float64 // -1.0 (L) to +1.0 (R)
	GainDB  float64
	Phantom bool
	Phase   bool

	EqOn    bool
	Eq      [6]EqBand
	HpfFreq float64
	HpfOn   bool

	Comp Compressor
	Gate Gate

	// Metering (updated by the meter subscription)
	RmsDB  float64
	PeakDB float64

	// Spectral analysis data (updated by the DSP loop)
	Spectral SpectralData

	// Send levels to buses, indexed 0..busCount-1 for buses 1..busCount.
	Sends []float64
}

// BusSnapshot is the mirrored state of one mix bus.
type BusSnapshot struct {
	Index int
	Name  string
	Fader float64
	Muted bool
	Pan   float64
}

func defaultChannel(index, busCount int) ChannelSnapshot {
	ch := ChannelSnapshot{
		Index: index,
		Fader: 0.75,
		EqOn:  true,
		Comp: Compressor{
			Ratio:   1,
			Attack:  10,
			Release: 100,
		},
		Gate: Gate{
			Threshold: -80,
			Range:     -80,
			Attack:    0.5,
			Hold:      50,
			Release:   200,
		},
		RmsDB:  -96,
		PeakDB: -96,
		Spectral: SpectralData{
			Bass: -96, Mid: -96, Presence: -96,
		},
		Sends: make([]float64, busCount),
	}
	for b := range ch.Eq {
		ch.Eq[b] = EqBand{Freq: 1000, Q: 1}
	}
	return ch
}

// State is the single source of truth for mirrored console state.
// Updated by adapter callbacks and the DSP loop, read by the decision and
// UI paths. Many readers may hold snapshots concurrently; writes are
// exclusive.
type State struct {
	mu       sync.RWMutex
	channels []ChannelSnapshot
	buses    []BusSnapshot
}

// NewState returns an empty state; call Init once after connecting.
func NewState() *State { return &State{} }

// Init sizes the model. Called once, at connection time, with the counts
// from the adapter capabilities.
func (s *State) Init(channelCount, busCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels = make([]ChannelSnapshot, channelCount)
	for i := range s.channels {
		s.channels[i] = defaultChannel(i+1, busCount)
	}
	s.buses = make([]BusSnapshot, busCount)
	for i := range s.buses {
		s.buses[i] = BusSnapshot{Index: i + 1, Fader: 0.75}
	}
}

// Channel returns a copy of channel ch (1-based). ok is false when the
// index is out of range.
func (s *State) Channel(ch int) (ChannelSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ch < 1 || ch > len(s.channels) {
		return ChannelSnapshot{}, false
	}
	snap := s.channels[ch-1]
	snap.Sends = append([]float64(nil), snap.Sends...)
	return snap, true
}

// Bus returns a copy of bus b (1-based).
func (s *State) Bus(b int) (BusSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b < 1 || b > len(s.buses) {
		return BusSnapshot{}, false
	}
	return s.buses[b-1], true
}

// ChannelCount reports the fixed channel count.
func (s *State) ChannelCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.channels)
}

// BusCount reports the fixed bus count.
func (s *State) BusCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buses)
}

// ApplyUpdate applies one incoming parameter update. Out-of-range indices
// are dropped; protocol layers can emit spurious updates during reconnect.
func (s *State) ApplyUpdate(u ParameterUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch u.Target {
	case TargetChannel:
		if u.Index < 1 || u.Index > len(s.channels) {
			return
		}
		applyChannelParam(&s.channels[u.Index-1], u)
	case TargetBus:
		if u.Index < 1 || u.Index > len(s.buses) {
			return
		}
		applyBusParam(&s.buses[u.Index-1], u)
	}
}

// UpdateMeter stores fresh meter values for channel ch.
func (s *State) UpdateMeter(ch int, rmsDB, peakDB float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch < 1 || ch > len(s.channels) {
		return
	}
	s.channels[ch-1].RmsDB = rmsDB
	s.channels[ch-1].PeakDB = peakDB
}

// UpdateSpectral stores the DSP loop's spectral slice for channel ch.
func (s *State) UpdateSpectral(ch int, data SpectralData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch < 1 || ch > len(s.channels) {
		return
	}
	s.channels[ch-1].Spectral = data
}

// AllChannels returns a copy of every channel snapshot.
func (s *State) AllChannels() []ChannelSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ChannelSnapshot, len(s.channels))
	copy(out, s.channels)
	for i := range out {
		out[i].Sends = append([]float64(nil), out[i].Sends...)
	}
	return out
}

func applyChannelParam(ch *ChannelSnapshot, u ParameterUpdate) {
	switch u.Param {
	case ParamFader:
		ch.Fader = u.FloatVal
	case ParamMute:
		ch.Muted = u.BoolVal
	case ParamPan:
		ch.Pan = u.FloatVal
	case ParamName:
		ch.Name = u.StrVal
	case ParamGain:
		ch.GainDB = u.FloatVal
	case ParamPhantomPower:
		ch.Phantom = u.BoolVal
	case ParamPhaseInvert:
		ch.Phase = u.BoolVal
	case ParamEqOn:
		ch.EqOn = u.BoolVal
	case ParamHighPassFreq:
		ch.HpfFreq = u.FloatVal
	case ParamHighPassOn:
		ch.HpfOn = u.BoolVal
	case ParamCompThreshold:
		ch.Comp.Threshold = u.FloatVal
	case ParamCompRatio:
		ch.Comp.Ratio = u.FloatVal
	case ParamCompAttack:
		ch.Comp.Attack = u.FloatVal
	case ParamCompRelease:
		ch.Comp.Release = u.FloatVal
	case ParamCompMakeup:
		ch.Comp.Makeup = u.FloatVal
	case ParamCompOn:
		ch.Comp.On = u.BoolVal
	case ParamGateThreshold:
		ch.Gate.Threshold = u.FloatVal
	case ParamGateRange:
		ch.Gate.Range = u.FloatVal
	case ParamGateAttack:
		ch.Gate.Attack = u.FloatVal
	case ParamGateHold:
		ch.Gate.Hold = u.FloatVal
	case ParamGateRelease:
		ch.Gate.Release = u.FloatVal
	case ParamGateOn:
		ch.Gate.On = u.BoolVal
	case ParamSendLevel:
		if u.AuxIndex >= 1 && u.AuxIndex <= len(ch.Sends) {
			ch.Sends[u.AuxIndex-1] = u.FloatVal
		}
	default:
		if band, field, ok := eqBandParam(u.Param); ok {
			switch field {
			case eqFreq:
				ch.Eq[band].Freq = u.FloatVal
			case eqGain:
				ch.Eq[band].Gain = u.FloatVal
			case eqQ:
				ch.Eq[band].Q = u.FloatVal
			case eqType:
				ch.Eq[band].Type = int(u.FloatVal)
			}
		}
	}
}

func applyBusParam(bus *BusSnapshot, u ParameterUpdate) {
	// Bus updates reuse the channel parameter vocabulary.
	switch u.Param {
	case ParamFader:
		bus.Fader = u.FloatVal
	case ParamMute:
		bus.Muted = u.BoolVal
	case ParamPan:
		bus.Pan = u.FloatVal
	case ParamName:
		bus.Name = u.StrVal
	}
}

type eqField int

const (
	eqFreq eqField = iota
	eqGain
	eqQ
	eqType
)

// eqBandParam maps an EQ band parameter to its 0-based band index and field.
func eqBandParam(p ChannelParam) (band int, field eqField, ok bool) {
	switch p {
	case ParamEqBand1Freq:
		return 0, eqFreq, true
	case ParamEqBand1Gain:
		return 0, eqGain, true
	case ParamEqBand1Q:
		return 0, eqQ, true
	case ParamEqBand1Type:
		return 0, eqType, true
	case ParamEqBand2Freq:
		return 1, eqFreq, true
	case ParamEqBand2Gain:
		return 1, eqGain, true
	case ParamEqBand2Q:
		return 1, eqQ, true
	case ParamEqBand2Type:
		return 1, eqType, true
	case ParamEqBand3Freq:
		return 2, eqFreq, true
	case ParamEqBand3Gain:
		return 2, eqGain, true
	case ParamEqBand3Q:
		return 2, eqQ, true
	case ParamEqBand3Type:
		return 2, eqType, true
	case ParamEqBand4Freq:
		return 3, eqFreq, true
	case ParamEqBand4Gain:
		return 3, eqGain, true
	case ParamEqBand4Q:
		return 3, eqQ, true
	case ParamEqBand4Type:
		return 3, eqType, true
	case ParamEqBand5Freq:
		return 4, eqFreq, true
	case ParamEqBand5Gain:
		return 4, eqGain, true
	case ParamEqBand5Q:
		return 4, eqQ, true
	case ParamEqBand6Freq:
		return 5, eqFreq, true
	case ParamEqBand6Gain:
		return 5, eqGain, true
	case ParamEqBand6Q:
		return 5, eqQ, true
	}
	return 0, 0, false
}

// EqBandParams returns the freq/gain/Q write parameters for a 1-based EQ
// band, used by the executor.
func EqBandParams(band int) (freq, gain, q ChannelParam, ok bool) {
	switch band {
	case 1:
		return ParamEqBand1Freq, ParamEqBand1Gain, ParamEqBand1Q, true
	case 2:
		return ParamEqBand2Freq, ParamEqBand2Gain, ParamEqBand2Q, true
	case 3:
		return ParamEqBand3Freq, ParamEqBand3Gain, ParamEqBand3Q, true
	case 4:
		return ParamEqBand4Freq, ParamEqBand4Gain, ParamEqBand4Q, true
	case 5:
		return ParamEqBand5Freq, ParamEqBand5Gain, ParamEqBand5Q, true
	case 6:
		return ParamEqBand6Freq, ParamEqBand6Gain, ParamEqBand6Q, true
	}
	return 0, 0, 0, false
}
