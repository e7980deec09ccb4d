package action

import (
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/mixmate/mixmate/internal/console"
)

// ExecutionResult reports what a write actually did. Errors are returned,
// never panicked — the caller decides whether to retry or log.
type ExecutionResult struct {
	Success     bool
	ActualValue float64
	Err         error
}

// Executor applies validated actions to the console. Fader moves are
// ramped over multiple steps to avoid audible jumps; everything else is a
// one-shot write.
type Executor struct {
	adapter console.Adapter
	state   *console.State

	// rampSteps/rampStepDelay shape the fader ramp: 10 steps of 20ms
	// covers the move in about 200ms.
	rampSteps     int
	rampStepDelay time.Duration
}

// NewExecutor builds an executor writing through the given adapter.
func NewExecutor(adapter console.Adapter, state *console.State) *Executor {
	return &Executor{
		adapter:       adapter,
		state:         state,
		rampSteps:     10,
		rampStepDelay: 20 * time.Millisecond,
	}
}

// Execute applies one action.
func (e *Executor) Execute(a MixAction) ExecutionResult {
	switch a.Kind {
	case SetFader:
		return e.executeFader(a)
	case SetPan:
		e.adapter.SetChannelFloat(a.Channel, console.ParamPan, a.Value)
		log.WithFields(log.Fields{"channel": a.Channel, "pan": a.Value}).Info("executed: pan")
		return ExecutionResult{Success: true, ActualValue: a.Value}
	case SetEqBand:
		return e.executeEq(a)
	case SetCompressor:
		e.adapter.SetChannelFloat(a.Channel, console.ParamCompThreshold, a.Value)
		e.adapter.SetChannelFloat(a.Channel, console.ParamCompRatio, a.Value2)
		e.adapter.SetChannelBool(a.Channel, console.ParamCompOn, true)
		log.WithFields(log.Fields{
			"channel": a.Channel, "threshold": a.Value, "ratio": a.Value2,
		}).Info("executed: compressor")
		return ExecutionResult{Success: true, ActualValue: a.Value}
	case SetGate:
		e.adapter.SetChannelFloat(a.Channel, console.ParamGateThreshold, a.Value)
		e.adapter.SetChannelBool(a.Channel, console.ParamGateOn, true)
		log.WithFields(log.Fields{
			"channel": a.Channel, "threshold": a.Value,
		}).Info("executed: gate")
		return ExecutionResult{Success: true, ActualValue: a.Value}
	case SetHighPass:
		e.adapter.SetChannelFloat(a.Channel, console.ParamHighPassFreq, a.Value)
		e.adapter.SetChannelBool(a.Channel, console.ParamHighPassOn, true)
		log.WithFields(log.Fields{"channel": a.Channel, "freq": a.Value}).Info("executed: HPF")
		return ExecutionResult{Success: true, ActualValue: a.Value}
	case SetSendLevel:
		e.adapter.SetSendLevel(a.Channel, a.Aux, a.Value)
		log.WithFields(log.Fields{
			"channel": a.Channel, "bus": a.Aux, "level": a.Value,
		}).Info("executed: send level")
		return ExecutionResult{Success: true, ActualValue: a.Value}
	case MuteChannel:
		e.adapter.SetChannelBool(a.Channel, console.ParamMute, true)
		log.WithField("channel", a.Channel).Info("executed: mute")
		return ExecutionResult{Success: true, ActualValue: 1}
	case UnmuteChannel:
		e.adapter.SetChannelBool(a.Channel, console.ParamMute, false)
		log.WithField("channel", a.Channel).Info("executed: unmute")
		return ExecutionResult{Success: true}
	case NoAction, Observation:
		return ExecutionResult{Success: true}
	}
	return ExecutionResult{Err: fmt.Errorf("unknown action kind %d", a.Kind)}
}

// executeFader ramps towards the target. Small deltas are written in one
// step; larger moves interpolate linearly and finish with an exact write.
func (e *Executor) executeFader(a MixAction) ExecutionResult {
	snap, ok := e.state.Channel(a.Channel)
	if !ok {
		return ExecutionResult{Err: fmt.Errorf("invalid channel %d", a.Channel)}
	}
	current := snap.Fader
	target := a.Value
	delta := target - current

	if math.Abs(delta) < 0.02 {
		e.adapter.SetChannelFloat(a.Channel, console.ParamFader, target)
		log.WithFields(log.Fields{
			"channel": a.Channel, "from": current, "to": target,
		}).Info("executed: fader")
		return ExecutionResult{Success: true, ActualValue: target}
	}

	step := delta / float64(e.rampSteps)
	val := current
	for i := 0; i < e.rampSteps; i++ {
		val += step
		e.adapter.SetChannelFloat(a.Channel, console.ParamFader, val)
		time.Sleep(e.rampStepDelay)
	}
	e.adapter.SetChannelFloat(a.Channel, console.ParamFader, target)

	log.WithFields(log.Fields{
		"channel": a.Channel, "from": current, "to": target, "ramped": true,
	}).Info("executed: fader")
	return ExecutionResult{Success: true, ActualValue: target}
}

func (e *Executor) executeEq(a MixAction) ExecutionResult {
	freqParam, gainParam, qParam, ok := console.EqBandParams(a.Band)
	if !ok {
		return ExecutionResult{Err: fmt.Errorf("invalid EQ band %d", a.Band)}
	}
	e.adapter.SetChannelFloat(a.Channel, freqParam, a.Value)
	e.adapter.SetChannelFloat(a.Channel, gainParam, a.Value2)
	e.adapter.SetChannelFloat(a.Channel, qParam, a.Value3)
	log.WithFields(log.Fields{
		"channel": a.Channel, "band": a.Band,
		"freq": a.Value, "gain": a.Value2, "q": a.Value3,
	}).Info("executed: EQ band")
	return ExecutionResult{Success: true, ActualValue: a.Value2}
}
