package agent

import (
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mixmate/mixmate/internal/action"
	"github.com/mixmate/mixmate/internal/approval"
	"github.com/mixmate/mixmate/internal/console"
	"github.com/mixmate/mixmate/internal/discovery"
)

// simAdapter is a scriptable console: writes echo back through the
// handlers like a real desk confirming changes, and tests inject meter
// values directly.
type simAdapter struct {
	mu       sync.Mutex
	handlers console.Handlers
	names    []string
	busCount int
	floats   []simWrite
}

type simWrite struct {
	ch    int
	param console.ChannelParam
	value float64
}

func newSimAdapter(names []string, busCount int) *simAdapter {
	return &simAdapter{names: names, busCount: busCount}
}

func (s *simAdapter) Connect(string, int) error { return nil }
func (s *simAdapter) Disconnect()               {}
func (s *simAdapter) IsConnected() bool         { return true }
func (s *simAdapter) Capabilities() console.Capabilities {
	return console.Capabilities{
		Model: "sim", ChannelCount: len(s.names), BusCount: s.busCount,
		EqBands: 6, MeterUpdateRateMs: 50,
	}
}

func (s *simAdapter) RequestFullSync() {
	h := s.handlersCopy()
	if h.ParameterUpdate == nil {
		return
	}
	go func() {
		for i, name := range s.names {
			h.ParameterUpdate(console.ParameterUpdate{
				Target: console.TargetChannel, Index: i + 1,
				Param: console.ParamName, StrVal: name,
			})
		}
		for b := 1; b <= s.busCount; b++ {
			h.ParameterUpdate(console.ParameterUpdate{
				Target: console.TargetBus, Index: b,
				Param: console.ParamName, StrVal: "",
			})
		}
	}()
}

func (s *simAdapter) SetChannelFloat(ch int, p console.ChannelParam, v float64) {
	s.mu.Lock()
	s.floats = append(s.floats, simWrite{ch, p, v})
	s.mu.Unlock()
	if h := s.handlersCopy(); h.ParameterUpdate != nil {
		h.ParameterUpdate(console.ParameterUpdate{
			Target: console.TargetChannel, Index: ch, Param: p, FloatVal: v,
		})
	}
}

func (s *simAdapter) SetChannelBool(ch int, p console.ChannelParam, v bool) {
	if h := s.handlersCopy(); h.ParameterUpdate != nil {
		h.ParameterUpdate(console.ParameterUpdate{
			Target: console.TargetChannel, Index: ch, Param: p, BoolVal: v,
		})
	}
}

func (s *simAdapter) SetChannelString(ch int, p console.ChannelParam, v string) {
	if h := s.handlersCopy(); h.ParameterUpdate != nil {
		h.ParameterUpdate(console.ParameterUpdate{
			Target: console.TargetChannel, Index: ch, Param: p, StrVal: v,
		})
	}
}

func (s *simAdapter) SetSendLevel(ch, bus int, level float64) {
	if h := s.handlersCopy(); h.ParameterUpdate != nil {
		h.ParameterUpdate(console.ParameterUpdate{
			Target: console.TargetChannel, Index: ch, AuxIndex: bus,
			Param: console.ParamSendLevel, FloatVal: level,
		})
	}
}

func (s *simAdapter) SetBusParam(int, console.BusParam, float64) {}
func (s *simAdapter) SubscribeMeter(int)                         {}
func (s *simAdapter) UnsubscribeMeter()                          {}
func (s *simAdapter) Tick()                                      {}

func (s *simAdapter) SetHandlers(h console.Handlers) {
	s.mu.Lock()
	s.handlers = h
	s.mu.Unlock()
}

func (s *simAdapter) handlersCopy() console.Handlers {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handlers
}

// fireMeter pushes one meter reading through the handler.
func (s *simAdapter) fireMeter(ch int, rms, peak float64) {
	if h := s.handlersCopy(); h.MeterUpdate != nil {
		h.MeterUpdate(ch, rms, peak)
	}
}

// fireParam pushes a parameter update as if the console sent it.
func (s *simAdapter) fireParam(u console.ParameterUpdate) {
	if h := s.handlersCopy(); h.ParameterUpdate != nil {
		h.ParameterUpdate(u)
	}
}

func (s *simAdapter) faderWrites(ch int) []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []float64
	for _, w := range s.floats {
		if w.ch == ch && w.param == console.ParamFader {
			out = append(out, w.value)
		}
	}
	return out
}

func (s *simAdapter) writesFor(ch int, p console.ChannelParam) []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []float64
	for _, w := range s.floats {
		if w.ch == ch && w.param == p {
			out = append(out, w.value)
		}
	}
	return out
}

// stubDecider returns a fixed action list, once.
type stubDecider struct {
	mu      sync.Mutex
	actions []action.MixAction
	err     error
	calls   int
}

func (d *stubDecider) DecideMixActions(mixState, sessionContext any) ([]action.MixAction, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.calls > 1 {
		return nil, d.err
	}
	return d.actions, d.err
}

// CallRaw returns prose (no JSON object), so the discovery review pass
// keeps the local classification and chat replies stay plain text.
func (d *stubDecider) CallRaw(system, user string) (string, error) {
	return "no suggestions", nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DSPInterval = 10 * time.Millisecond
	cfg.LLMInterval = 30 * time.Millisecond
	cfg.LLMStartupDelay = 10 * time.Millisecond
	return cfg
}

var defaultNames = []string{"Kick", "Snare", "", "", "Vox", "", "", ""}

func startAgent(t *testing.T, adapter *simAdapter, decider Decider, cfg Config) *Agent {
	t.Helper()
	a := New(adapter, decider, cfg)
	if err := a.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(a.Stop)
	return a
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// Clipping emergency: peak over -0.5 dBFS triggers an Immediate fader
// reduction that bypasses the LLM, auto-approves, and ramps down.
func TestClippingEmergency(t *testing.T) {
	adapter := newSimAdapter(defaultNames, 2)
	a := startAgent(t, adapter, &stubDecider{}, testConfig())

	// Channel 5 at fader 0.8, slamming the preamp.
	adapter.fireParam(console.ParameterUpdate{
		Target: console.TargetChannel, Index: 5,
		Param: console.ParamFader, FloatVal: 0.8,
	})
	adapter.fireMeter(5, -3, 0.2)

	// 0.8 * 0.9 = 0.72, delta 0.08 within the 0.15 limit: the exact
	// target must appear among the fader writes.
	waitFor(t, 3*time.Second, func() bool {
		for _, w := range adapter.faderWrites(5) {
			if math.Abs(w-0.72) < 1e-9 {
				return true
			}
		}
		return false
	}, "emergency fader reduction to 0.72")

	// Quiet the meter so the emergency stops re-firing.
	adapter.fireMeter(5, -30, -20)
	_ = a
}

// Name-driven reclassification: a rename from the console updates the
// channel profile unless it was manually overridden.
func TestRenameReclassifies(t *testing.T) {
	adapter := newSimAdapter(defaultNames, 2)
	a := startAgent(t, adapter, &stubDecider{}, testConfig())

	waitFor(t, time.Second, func() bool {
		p, _ := a.ChannelMap().Get(7)
		return p.Index == 7
	}, "channel map ready")

	adapter.fireParam(console.ParameterUpdate{
		Target: console.TargetChannel, Index: 7,
		Param: console.ParamName, StrVal: "Kick",
	})

	waitFor(t, time.Second, func() bool {
		p, _ := a.ChannelMap().Get(7)
		return p.Role == discovery.RoleKick
	}, "reclassification to Kick")

	p, _ := a.ChannelMap().Get(7)
	if p.Group != "drums" || p.Confidence != discovery.ConfidenceHigh {
		t.Errorf("profile = role %v group %q confidence %v", p.Role, p.Group, p.Confidence)
	}
}

func TestRenameRespectsManualOverride(t *testing.T) {
	adapter := newSimAdapter(defaultNames, 2)
	a := startAgent(t, adapter, &stubDecider{}, testConfig())

	waitFor(t, time.Second, func() bool {
		p, _ := a.ChannelMap().Get(3)
		return p.Index == 3
	}, "channel map ready")

	p, _ := a.ChannelMap().Get(3)
	p.Role = discovery.RoleSaxophone
	p.ManuallyOverridden = true
	a.ChannelMap().Update(p)

	adapter.fireParam(console.ParameterUpdate{
		Target: console.TargetChannel, Index: 3,
		Param: console.ParamName, StrVal: "Kick",
	})
	time.Sleep(50 * time.Millisecond)

	p, _ = a.ChannelMap().Get(3)
	if p.Role != discovery.RoleSaxophone {
		t.Errorf("overridden role changed to %v", p.Role)
	}
}

// LLM boost clamp: an excessive EQ boost from the model is clamped to
// +3dB on its way to the console.
func TestLLMBoostClamp(t *testing.T) {
	boost := action.New(action.SetEqBand)
	boost.Channel = 3
	boost.Value = 1000
	boost.Value2 = 10
	boost.Value3 = 2
	boost.Band = 1
	boost.Urgency = action.Fast // auto-approved under AutoUrgent

	adapter := newSimAdapter(defaultNames, 2)
	cfg := testConfig()
	startAgent(t, adapter, &stubDecider{actions: []action.MixAction{boost}}, cfg)

	waitFor(t, 3*time.Second, func() bool {
		return len(adapter.writesFor(3, console.ParamEqBand1Gain)) > 0
	}, "EQ write")

	gains := adapter.writesFor(3, console.ParamEqBand1Gain)
	if gains[0] != 3 {
		t.Errorf("gain written = %v, want clamped 3", gains[0])
	}
	if freqs := adapter.writesFor(3, console.ParamEqBand1Freq); len(freqs) == 0 || freqs[0] != 1000 {
		t.Errorf("freq writes = %v, want [1000]", freqs)
	}
	if qs := adapter.writesFor(3, console.ParamEqBand1Q); len(qs) == 0 || qs[0] != 2 {
		t.Errorf("q writes = %v, want [2]", qs)
	}
}

// Normal-urgency actions queue for approval; approving one executes it
// on the executor loop.
func TestQueuedActionExecutesOnApproval(t *testing.T) {
	fader := action.New(action.SetFader)
	fader.Channel = 2
	fader.Value = 0.7
	fader.Urgency = action.Normal
	fader.RoleName = "Snare"

	adapter := newSimAdapter(defaultNames, 2)
	a := startAgent(t, adapter, &stubDecider{actions: []action.MixAction{fader}}, testConfig())

	waitFor(t, 3*time.Second, func() bool {
		return a.Queue().PendingCount() == 1
	}, "action to queue")

	if writes := adapter.faderWrites(2); len(writes) != 0 {
		t.Fatalf("fader written before approval: %v", writes)
	}

	a.Queue().Approve(0)

	waitFor(t, 3*time.Second, func() bool {
		writes := adapter.faderWrites(2)
		return len(writes) > 0 && writes[len(writes)-1] == 0.7
	}, "approved action execution")
}

// Observations go to session memory instead of the console.
func TestObservationRecordedNotExecuted(t *testing.T) {
	obs := action.New(action.Observation)
	obs.Reason = "mix is balanced"

	adapter := newSimAdapter(defaultNames, 2)
	a := startAgent(t, adapter, &stubDecider{actions: []action.MixAction{obs}}, testConfig())

	waitFor(t, 3*time.Second, func() bool {
		for _, e := range a.Memory().BuildContext(50) {
			if e["type"] == "observation" && e["note"] == "mix is balanced" {
				return true
			}
		}
		return false
	}, "observation in session memory")
}

// Discovery classifies the synced channel names.
func TestStartRunsDiscovery(t *testing.T) {
	adapter := newSimAdapter(defaultNames, 2)
	a := startAgent(t, adapter, &stubDecider{}, testConfig())

	p, ok := a.ChannelMap().Get(1)
	if !ok || p.Role != discovery.RoleKick {
		t.Errorf("ch1 after discovery = %+v", p)
	}
	p, _ = a.ChannelMap().Get(5)
	if p.Role != discovery.RoleLeadVocal {
		t.Errorf("ch5 role = %v, want LeadVocal", p.Role)
	}
}

// Dirty preferences flush to disk on shutdown.
func TestStopFlushesPreferences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	cfg := testConfig()
	cfg.PreferencesFile = path

	adapter := newSimAdapter(defaultNames, 2)
	a := New(adapter, &stubDecider{}, cfg)
	if err := a.Start(); err != nil {
		t.Fatal(err)
	}
	a.OnChatMessage("keep the kick punchy") // marks the learner dirty
	time.Sleep(50 * time.Millisecond)
	a.Stop()

	restored := New(adapter, &stubDecider{}, cfg)
	if err := restored.learner.LoadFromFile(path); err != nil {
		t.Fatalf("preferences not written: %v", err)
	}
	instructions := restored.learner.Instructions()
	if len(instructions) != 1 || instructions[0] != "keep the kick punchy" {
		t.Errorf("instructions = %v", instructions)
	}
}

// DenyAll mode rejects everything and the learner hears about it.
func TestDenyAllFeedsLearner(t *testing.T) {
	fader := action.New(action.SetFader)
	fader.Channel = 1
	fader.Value = 0.7
	fader.RoleName = "Kick"
	fader.Urgency = action.Immediate

	cfg := testConfig()
	cfg.ApprovalMode = approval.ModeDenyAll

	adapter := newSimAdapter(defaultNames, 2)
	a := startAgent(t, adapter, &stubDecider{actions: []action.MixAction{fader}}, cfg)

	waitFor(t, 3*time.Second, func() bool {
		return a.learner.TotalDecisions() == 1
	}, "rejection to reach the learner")

	if writes := adapter.faderWrites(1); len(writes) != 0 {
		t.Errorf("denied action still wrote: %v", writes)
	}
}
