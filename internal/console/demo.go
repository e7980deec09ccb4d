package console

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// demoChannel seeds one simulated input.
type demoChannel struct {
	name  string
	rmsDB float64
}

// defaultDemoLayout is a small rock-band patch used when no layout is given.
var defaultDemoLayout = []demoChannel{
	{"Kick", -18}, {"Snare", -20}, {"HiHat", -26}, {"OH L", -24},
	{"OH R", -24}, {"Bass DI", -16}, {"Gtr L", -19}, {"Gtr R", -19},
	{"Keys", -22}, {"Vox", -14}, {"BV 1", -25}, {"BV 2", -25},
}

// DemoAdapter simulates a console in-process: it echoes parameter writes
// back as updates, answers a full sync from its seeded layout, and runs a
// meter feed. It lets the whole pipeline run without hardware; the real
// wire adapters live outside the core.
type DemoAdapter struct {
	mu        sync.Mutex
	handlers  Handlers
	names     []string
	levels    []float64
	busCount  int
	connected atomic.Bool

	meterStop chan struct{}
}

// NewDemoAdapter builds a simulated desk. channelCount beyond the seeded
// layout is filled with unnamed silent channels.
func NewDemoAdapter(channelCount, busCount int) *DemoAdapter {
	d := &DemoAdapter{
		names:    make([]string, channelCount),
		levels:   make([]float64, channelCount),
		busCount: busCount,
	}
	for i := 0; i < channelCount; i++ {
		if i < len(defaultDemoLayout) {
			d.names[i] = defaultDemoLayout[i].name
			d.levels[i] = defaultDemoLayout[i].rmsDB
		} else {
			d.levels[i] = -96
		}
	}
	return d
}

func (d *DemoAdapter) SetHandlers(h Handlers) {
	d.mu.Lock()
	d.handlers = h
	d.mu.Unlock()
}

func (d *DemoAdapter) Connect(host string, port int) error {
	d.connected.Store(true)
	if cb := d.connectionHandler(); cb != nil {
		cb(true)
	}
	return nil
}

func (d *DemoAdapter) Disconnect() {
	d.UnsubscribeMeter()
	d.connected.Store(false)
	if cb := d.connectionHandler(); cb != nil {
		cb(false)
	}
}

func (d *DemoAdapter) IsConnected() bool { return d.connected.Load() }

func (d *DemoAdapter) Capabilities() Capabilities {
	return Capabilities{
		Model:             "demo",
		Firmware:          "sim-1.0",
		ChannelCount:      len(d.names),
		BusCount:          d.busCount,
		MatrixCount:       0,
		DCACount:          8,
		FxSlots:           4,
		EqBands:           6,
		HasMotorizedFaders: true,
		MeterUpdateRateMs: 50,
	}
}

// RequestFullSync replays the seeded state. Name arrives last per channel
// so name-counting sync trackers see a channel as complete only once its
// other parameters are in.
func (d *DemoAdapter) RequestFullSync() {
	cb := d.updateHandler()
	if cb == nil {
		return
	}
	d.mu.Lock()
	names := append([]string(nil), d.names...)
	d.mu.Unlock()
	go func() {
		for i, name := range names {
			ch := i + 1
			cb(ParameterUpdate{Target: TargetChannel, Index: ch, Param: ParamFader, FloatVal: 0.75})
			cb(ParameterUpdate{Target: TargetChannel, Index: ch, Param: ParamMute, BoolVal: false})
			cb(ParameterUpdate{Target: TargetChannel, Index: ch, Param: ParamPan, FloatVal: 0})
			cb(ParameterUpdate{Target: TargetChannel, Index: ch, Param: ParamName, StrVal: name})
		}
		for b := 1; b <= d.busCount; b++ {
			cb(ParameterUpdate{Target: TargetBus, Index: b, Param: ParamFader, FloatVal: 0.75})
			cb(ParameterUpdate{Target: TargetBus, Index: b, Param: ParamName, StrVal: ""})
		}
	}()
}

func (d *DemoAdapter) SetChannelFloat(ch int, p ChannelParam, v float64) {
	d.echo(ParameterUpdate{Target: TargetChannel, Index: ch, Param: p, FloatVal: v})
}

func (d *DemoAdapter) SetChannelBool(ch int, p ChannelParam, v bool) {
	d.echo(ParameterUpdate{Target: TargetChannel, Index: ch, Param: p, BoolVal: v})
}

func (d *DemoAdapter) SetChannelString(ch int, p ChannelParam, v string) {
	if p == ParamName && ch >= 1 && ch <= len(d.names) {
		d.mu.Lock()
		d.names[ch-1] = v
		d.mu.Unlock()
	}
	d.echo(ParameterUpdate{Target: TargetChannel, Index: ch, Param: p, StrVal: v})
}

func (d *DemoAdapter) SetSendLevel(ch, bus int, level float64) {
	d.echo(ParameterUpdate{
		Target: TargetChannel, Index: ch, AuxIndex: bus,
		Param: ParamSendLevel, FloatVal: level,
	})
}

func (d *DemoAdapter) SetBusParam(bus int, p BusParam, v float64) {
	u := ParameterUpdate{Target: TargetBus, Index: bus, FloatVal: v}
	switch p {
	case BusFader:
		u.Param = ParamFader
	case BusMute:
		u.Param = ParamMute
		u.BoolVal = v != 0
	case BusPan:
		u.Param = ParamPan
	default:
		return
	}
	d.echo(u)
}

// SubscribeMeter starts the simulated meter feed. Levels wobble a little
// around each channel's seed so the analysis pipeline sees motion.
func (d *DemoAdapter) SubscribeMeter(refreshMs int) {
	d.UnsubscribeMeter()
	if refreshMs < 10 {
		refreshMs = 10
	}
	stop := make(chan struct{})
	d.mu.Lock()
	d.meterStop = stop
	d.mu.Unlock()

	go func() {
		ticker := time.NewTicker(time.Duration(refreshMs) * time.Millisecond)
		defer ticker.Stop()
		t := 0.0
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				cb := d.meterHandler()
				if cb == nil {
					continue
				}
				t += float64(refreshMs) / 1000.0
				for i, base := range d.levels {
					if base <= -96 {
						cb(i+1, -96, -96)
						continue
					}
					wobble := 2.0 * math.Sin(t*2.0+float64(i))
					rms := base + wobble
					cb(i+1, rms, rms+12)
				}
			}
		}
	}()
}

func (d *DemoAdapter) UnsubscribeMeter() {
	d.mu.Lock()
	if d.meterStop != nil {
		close(d.meterStop)
		d.meterStop = nil
	}
	d.mu.Unlock()
}

func (d *DemoAdapter) Tick() {}

func (d *DemoAdapter) echo(u ParameterUpdate) {
	if cb := d.updateHandler(); cb != nil {
		cb(u)
	}
}

func (d *DemoAdapter) updateHandler() func(ParameterUpdate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handlers.ParameterUpdate
}

func (d *DemoAdapter) meterHandler() func(int, float64, float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handlers.MeterUpdate
}

func (d *DemoAdapter) connectionHandler() func(bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handlers.ConnectionChange
}
