package console

import (
	"sync"
	"testing"
)

func newTestState(channels, buses int) *State {
	s := NewState()
	s.Init(channels, buses)
	return s
}

func TestApplyUpdateChangesOnlyTargetField(t *testing.T) {
	tests := []struct {
		name   string
		update ParameterUpdate
		check  func(ChannelSnapshot) bool
	}{
		{
			"fader",
			ParameterUpdate{Target: TargetChannel, Index: 3, Param: ParamFader, FloatVal: 0.42},
			func(c ChannelSnapshot) bool { return c.Fader == 0.42 },
		},
		{
			"mute",
			ParameterUpdate{Target: TargetChannel, Index: 3, Param: ParamMute, BoolVal: true},
			func(c ChannelSnapshot) bool { return c.Muted },
		},
		{
			"name",
			ParameterUpdate{Target: TargetChannel, Index: 3, Param: ParamName, StrVal: "Kick"},
			func(c ChannelSnapshot) bool { return c.Name == "Kick" },
		},
		{
			"eq band 2 gain",
			ParameterUpdate{Target: TargetChannel, Index: 3, Param: ParamEqBand2Gain, FloatVal: -4.5},
			func(c ChannelSnapshot) bool { return c.Eq[1].Gain == -4.5 },
		},
		{
			"eq band 6 freq",
			ParameterUpdate{Target: TargetChannel, Index: 3, Param: ParamEqBand6Freq, FloatVal: 8000},
			func(c ChannelSnapshot) bool { return c.Eq[5].Freq == 8000 },
		},
		{
			"comp threshold",
			ParameterUpdate{Target: TargetChannel, Index: 3, Param: ParamCompThreshold, FloatVal: -22},
			func(c ChannelSnapshot) bool { return c.Comp.Threshold == -22 },
		},
		{
			"gate range",
			ParameterUpdate{Target: TargetChannel, Index: 3, Param: ParamGateRange, FloatVal: -40},
			func(c ChannelSnapshot) bool { return c.Gate.Range == -40 },
		},
		{
			"hpf freq",
			ParameterUpdate{Target: TargetChannel, Index: 3, Param: ParamHighPassFreq, FloatVal: 80},
			func(c ChannelSnapshot) bool { return c.HpfFreq == 80 },
		},
		{
			"send level",
			ParameterUpdate{Target: TargetChannel, Index: 3, AuxIndex: 2, Param: ParamSendLevel, FloatVal: 0.6},
			func(c ChannelSnapshot) bool { return c.Sends[1] == 0.6 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestState(8, 4)
			before, _ := s.Channel(3)
			s.ApplyUpdate(tt.update)
			after, _ := s.Channel(3)

			if !tt.check(after) {
				t.Fatalf("update did not land: %+v", after)
			}

			// The neighbouring channel must be untouched.
			other, _ := s.Channel(4)
			if other.Fader != before.Fader || other.Name != "" {
				t.Errorf("update leaked onto channel 4: %+v", other)
			}
		})
	}
}

func TestApplyUpdateOutOfRangeIsNoOp(t *testing.T) {
	s := newTestState(4, 2)

	for _, idx := range []int{0, -1, 5, 100} {
		s.ApplyUpdate(ParameterUpdate{
			Target: TargetChannel, Index: idx, Param: ParamFader, FloatVal: 0.1,
		})
	}
	for ch := 1; ch <= 4; ch++ {
		snap, ok := s.Channel(ch)
		if !ok {
			t.Fatalf("Channel(%d) not ok", ch)
		}
		if snap.Fader != 0.75 {
			t.Errorf("ch%d fader = %v after out-of-range updates, want default 0.75", ch, snap.Fader)
		}
	}

	// Send with aux out of range is dropped too.
	s.ApplyUpdate(ParameterUpdate{
		Target: TargetChannel, Index: 1, AuxIndex: 3, Param: ParamSendLevel, FloatVal: 0.9,
	})
	snap, _ := s.Channel(1)
	for i, v := range snap.Sends {
		if v != 0 {
			t.Errorf("send %d = %v, want 0", i+1, v)
		}
	}
}

func TestSendVectorSizedToBusCount(t *testing.T) {
	s := newTestState(2, 6)
	snap, _ := s.Channel(1)
	if len(snap.Sends) != 6 {
		t.Fatalf("len(Sends) = %d, want busCount 6", len(snap.Sends))
	}
}

func TestMeterAndSpectralUpdates(t *testing.T) {
	s := newTestState(4, 2)

	s.UpdateMeter(2, -12.5, -3.25)
	s.UpdateSpectral(2, SpectralData{Bass: -10, Mid: -14, Presence: -20, CrestFactor: 9, SpectralCentroid: 850})

	snap, _ := s.Channel(2)
	if snap.RmsDB != -12.5 || snap.PeakDB != -3.25 {
		t.Errorf("meter = (%v, %v), want (-12.5, -3.25)", snap.RmsDB, snap.PeakDB)
	}
	if snap.Spectral.SpectralCentroid != 850 {
		t.Errorf("centroid = %v, want 850", snap.Spectral.SpectralCentroid)
	}

	// Out-of-range meter updates are dropped silently.
	s.UpdateMeter(99, 0, 0)
	s.UpdateSpectral(0, SpectralData{})
}

func TestBusUpdates(t *testing.T) {
	s := newTestState(2, 3)

	s.ApplyUpdate(ParameterUpdate{Target: TargetBus, Index: 2, Param: ParamName, StrVal: "Monitor"})
	s.ApplyUpdate(ParameterUpdate{Target: TargetBus, Index: 2, Param: ParamFader, FloatVal: 0.5})

	bus, ok := s.Bus(2)
	if !ok {
		t.Fatal("Bus(2) not ok")
	}
	if bus.Name != "Monitor" || bus.Fader != 0.5 {
		t.Errorf("bus = %+v", bus)
	}
}

func TestConcurrentReadersAndWriter(t *testing.T) {
	s := newTestState(16, 4)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				for ch := 1; ch <= 16; ch++ {
					if snap, ok := s.Channel(ch); ok && snap.Index != ch {
						t.Errorf("snapshot index %d for channel %d", snap.Index, ch)
						return
					}
				}
				s.AllChannels()
			}
		}()
	}

	for i := 0; i < 2000; i++ {
		s.ApplyUpdate(ParameterUpdate{
			Target: TargetChannel, Index: i%16 + 1,
			Param: ParamFader, FloatVal: float64(i%100) / 100,
		})
		s.UpdateMeter(i%16+1, -20, -8)
	}
	close(stop)
	wg.Wait()
}

func TestSnapshotIsolation(t *testing.T) {
	s := newTestState(2, 2)

	snap, _ := s.Channel(1)
	snap.Sends[0] = 0.9 // mutating the copy must not reach the model

	fresh, _ := s.Channel(1)
	if fresh.Sends[0] != 0 {
		t.Error("snapshot sends alias the model's slice")
	}
}
