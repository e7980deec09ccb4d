package discovery

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mixmate/mixmate/internal/console"
)

// runDiscovery wires a demo adapter to a state model the way the
// supervisor does, then runs the orchestrator.
func runDiscovery(t *testing.T, reviewer *Reviewer) (*ChannelMap, *console.State) {
	t.Helper()

	adapter := console.NewDemoAdapter(12, 4)
	state := console.NewState()
	caps := adapter.Capabilities()
	state.Init(caps.ChannelCount, caps.BusCount)

	var nameCount atomic.Int32
	synced := make(chan struct{})
	expected := int32(caps.ChannelCount + caps.BusCount)
	adapter.SetHandlers(console.Handlers{
		ParameterUpdate: func(u console.ParameterUpdate) {
			state.ApplyUpdate(u)
			if u.Param == console.ParamName {
				if nameCount.Add(1) == expected {
					close(synced)
				}
			}
		},
	})
	if err := adapter.Connect("", 0); err != nil {
		t.Fatal(err)
	}

	m := NewChannelMap(caps.ChannelCount)
	o := &Orchestrator{
		Adapter: adapter,
		State:   state,
		Map:     m,
		WaitSync: func(timeout time.Duration) bool {
			select {
			case <-synced:
				return true
			case <-time.After(timeout):
				return false
			}
		},
		Reviewer:    reviewer,
		SyncTimeout: 2 * time.Second,
		SettleDelay: time.Millisecond,
	}
	o.Run()
	return m, state
}

func TestDiscoveryClassifiesNamedChannels(t *testing.T) {
	m, _ := runDiscovery(t, nil)

	wantRoles := map[int]Role{
		1:  RoleKick,
		2:  RoleSnare,
		3:  RoleHiHat,
		6:  RoleBassGuitar,
		10: RoleLeadVocal,
	}
	for ch, want := range wantRoles {
		p, ok := m.Get(ch)
		if !ok {
			t.Fatalf("Get(%d) not ok", ch)
		}
		if p.Role != want {
			t.Errorf("ch%d (%q) role = %v, want %v", ch, p.ConsoleName, p.Role, want)
		}
		if p.Confidence != ConfidenceHigh {
			t.Errorf("ch%d confidence = %v, want High", ch, p.Confidence)
		}
	}
}

func TestDiscoveryDetectsStereoPairs(t *testing.T) {
	m, _ := runDiscovery(t, nil)

	// Demo layout has "OH L"/"OH R" on 4/5 and "Gtr L"/"Gtr R" on 7/8.
	ohL, _ := m.Get(4)
	ohR, _ := m.Get(5)
	if ohL.StereoPair != 5 || ohR.StereoPair != 4 {
		t.Errorf("OH pair = (%d,%d), want (5,4)", ohL.StereoPair, ohR.StereoPair)
	}

	gL, _ := m.Get(7)
	gR, _ := m.Get(8)
	if gL.StereoPair != 8 || gR.StereoPair != 7 {
		t.Errorf("Gtr pair = (%d,%d), want (8,7)", gL.StereoPair, gR.StereoPair)
	}
}

type stubCaller struct {
	response string
	err      error
	calls    atomic.Int32
}

func (s *stubCaller) CallRaw(system, user string) (string, error) {
	s.calls.Add(1)
	return s.response, s.err
}

func TestDiscoveryReviewAppliesCorrections(t *testing.T) {
	stub := &stubCaller{response: `{
		"show_type": "rock_band",
		"show_confidence": 0.9,
		"corrections": [
			{"channel": 9, "suggested_role": "Synth", "reason": "pad-heavy spectrum"}
		],
		"stereo_pairs": [{"left": 11, "right": 12}]
	}`}

	m, _ := runDiscovery(t, &Reviewer{LLM: stub})

	deadline := time.After(2 * time.Second)
	for {
		p, _ := m.Get(9)
		if p.Role == RoleSynth {
			if p.Confidence != ConfidenceMedium {
				t.Errorf("corrected confidence = %v, want Medium", p.Confidence)
			}
			l, _ := m.Get(11)
			r, _ := m.Get(12)
			if l.StereoPair != 12 || r.StereoPair != 11 {
				t.Errorf("LLM pair = (%d,%d), want (12,11)", l.StereoPair, r.StereoPair)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("review corrections never landed; ch9 = %+v", p)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestDiscoveryReviewFailureKeepsLocalResult(t *testing.T) {
	stub := &stubCaller{err: errors.New("llm offline")}
	m, _ := runDiscovery(t, &Reviewer{LLM: stub})

	// Give the async review a moment to fail.
	time.Sleep(50 * time.Millisecond)

	p, _ := m.Get(1)
	if p.Role != RoleKick {
		t.Errorf("ch1 role = %v after failed review, want Kick", p.Role)
	}
}

func TestApplyReviewSkipsManualOverride(t *testing.T) {
	profiles := []ChannelProfile{
		{Index: 1, Role: RoleKick, ManuallyOverridden: true},
	}
	out, err := applyReview(`{"corrections":[{"channel":1,"suggested_role":"Snare"}]}`, profiles)
	if err != nil {
		t.Fatal(err)
	}
	if out[0].Role != RoleKick {
		t.Errorf("manually overridden role changed to %v", out[0].Role)
	}
}

func TestApplyReviewGarbageResponse(t *testing.T) {
	profiles := []ChannelProfile{{Index: 1, Role: RoleKick}}
	if _, err := applyReview("sorry, I can't help with that", profiles); err == nil {
		t.Error("want error for response without JSON")
	}
}
