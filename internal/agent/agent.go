package agent

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/mixmate/mixmate/internal/action"
	"github.com/mixmate/mixmate/internal/analysis"
	"github.com/mixmate/mixmate/internal/approval"
	"github.com/mixmate/mixmate/internal/audio"
	"github.com/mixmate/mixmate/internal/console"
	"github.com/mixmate/mixmate/internal/discovery"
	"github.com/mixmate/mixmate/internal/llm"
	"github.com/mixmate/mixmate/internal/memory"
	"github.com/mixmate/mixmate/internal/prefs"
	"github.com/mixmate/mixmate/internal/preset"
)

// Decider is the slice of the LLM engine the supervisor depends on.
type Decider interface {
	DecideMixActions(mixState, sessionContext any) ([]action.MixAction, error)
	CallRaw(systemPrompt, userMessage string) (string, error)
}

// Agent composes the whole pipeline. All mutable state is reachable from
// it and torn down with it; there are no package-level singletons.
type Agent struct {
	adapter    console.Adapter
	state      *console.State
	channelMap *discovery.ChannelMap
	llm        Decider
	memory     *memory.Session
	analyser   *analysis.Analyser
	bridge     *analysis.Bridge
	validator  *action.Validator
	executor   *action.Executor
	queue      *approval.Queue
	nameClass  *discovery.NameClassifier
	learner    *prefs.Learner
	library    *preset.Library
	activePreset *preset.GenrePreset
	events     Events
	cfg        Config

	capture audio.Capture
	fft     *audio.Analyser
	rings   []*audio.RingBuffer
	scratch []float32

	issuesMu     sync.Mutex
	latestIssues []analysis.Issue

	// Full-sync tracking for discovery.
	syncActive   atomic.Bool
	syncExpected int32
	syncCount    atomic.Int32
	syncDone     chan struct{}
	syncOnce     sync.Once

	running atomic.Bool
	wg      sync.WaitGroup
}

// New builds an agent around a connected adapter and decision engine.
func New(adapter console.Adapter, decider Decider, cfg Config) *Agent {
	a := &Agent{
		adapter:    adapter,
		state:      console.NewState(),
		channelMap: discovery.NewChannelMap(0),
		llm:        decider,
		memory:     memory.NewSession(cfg.MemoryEntries),
		analyser:   analysis.NewAnalyser(),
		validator:  action.NewValidator(action.DefaultLimits()),
		queue:      approval.NewQueue(cfg.ApprovalMode),
		nameClass:  discovery.NewNameClassifier(),
		learner:    prefs.NewLearner(),
		library:    preset.NewLibrary(),
		events:     NopEvents{},
		cfg:        cfg,
		capture:    audio.NullCapture{},
	}
	a.executor = action.NewExecutor(adapter, a.state)
	a.bridge = &analysis.Bridge{State: a.state, Map: a.channelMap}
	return a
}

// SetEvents installs the UI publisher. Call before Start.
func (a *Agent) SetEvents(e Events) {
	if e != nil {
		a.events = e
	}
}

// SetCapture injects an audio capture backend. Call before Start.
func (a *Agent) SetCapture(c audio.Capture) {
	if c != nil {
		a.capture = c
	}
}

// Queue exposes the approval queue for the UI.
func (a *Agent) Queue() *approval.Queue { return a.queue }

// ChannelMap exposes the channel map for the UI.
func (a *Agent) ChannelMap() *discovery.ChannelMap { return a.channelMap }

// Memory exposes the session memory.
func (a *Agent) Memory() *memory.Session { return a.memory }

// Learner exposes the preference learner.
func (a *Agent) Learner() *prefs.Learner { return a.learner }

// IsRunning reports whether the loops are live.
func (a *Agent) IsRunning() bool { return a.running.Load() }

// Start initialises state from the console capabilities, runs discovery,
// and launches the DSP, LLM and executor loops.
func (a *Agent) Start() error {
	caps := a.adapter.Capabilities()
	if caps.ChannelCount < 1 {
		return fmt.Errorf("console reports no channels")
	}

	a.state.Init(caps.ChannelCount, caps.BusCount)
	a.channelMap.Resize(caps.ChannelCount)

	log.WithFields(log.Fields{
		"console":  caps.Model,
		"channels": caps.ChannelCount,
		"buses":    caps.BusCount,
	}).Info("agent starting")

	a.loadGenrePreset()
	a.loadPreferences()

	// Wire adapter upcalls. The single handler applies updates to the
	// state model first so every downstream consumer sees fresh state.
	a.syncDone = make(chan struct{})
	a.syncExpected = int32(caps.ChannelCount + caps.BusCount)
	a.adapter.SetHandlers(console.Handlers{
		ParameterUpdate: func(u console.ParameterUpdate) {
			a.state.ApplyUpdate(u)
			if a.syncActive.Load() && u.Param == console.ParamName {
				if a.syncCount.Add(1) >= a.syncExpected {
					a.syncOnce.Do(func() { close(a.syncDone) })
				}
			}
			a.onParameterUpdate(u)
		},
		MeterUpdate: func(ch int, rmsDB, peakDB float64) {
			a.state.UpdateMeter(ch, rmsDB, peakDB)
		},
		ConnectionChange: func(connected bool) {
			if connected {
				a.events.Status("Connected")
			} else {
				log.Error("console disconnected")
				a.events.Status("DISCONNECTED")
			}
			a.refreshConnectionStatus()
		},
	})

	a.adapter.SubscribeMeter(a.cfg.MeterRefreshMs)
	a.startCapture()

	// Rejections feed the preference learner.
	a.queue.OnRejected = func(rejected action.MixAction) {
		a.learner.RecordRejection(rejected, rejected.RoleName)
		a.events.PendingChanged()
	}

	// Channel discovery, local stages blocking.
	a.runDiscovery()

	a.running.Store(true)
	a.wg.Add(3)
	go a.dspLoop()
	go a.llmLoop()
	go a.execLoop()

	a.refreshConnectionStatus()
	a.events.Status("Running")
	log.WithFields(log.Fields{
		"dsp_interval": a.cfg.DSPInterval,
		"llm_interval": a.cfg.LLMInterval,
		"audio":        a.capture.IsRunning(),
	}).Info("agent running")
	return nil
}

// Stop signals the loops, joins them, and flushes dirty preferences.
func (a *Agent) Stop() {
	if !a.running.Swap(false) {
		return
	}
	log.Info("agent stopping")

	a.adapter.UnsubscribeMeter()
	if a.capture.IsRunning() {
		a.capture.Stop()
	}
	a.wg.Wait()

	if a.cfg.PreferencesFile != "" && a.learner.Dirty() {
		if err := a.learner.SaveToFile(a.cfg.PreferencesFile); err != nil {
			log.WithError(err).Warn("failed to save preferences")
		} else {
			log.WithField("path", a.cfg.PreferencesFile).Info("saved preferences")
		}
	}
	log.Info("agent stopped")
}

func (a *Agent) loadGenrePreset() {
	if a.cfg.Genre == "" {
		return
	}
	if p := a.library.Get(a.cfg.Genre); p != nil {
		a.activePreset = p
		log.WithFields(log.Fields{"genre": p.Name, "description": p.Description}).
			Info("genre preset active")
		return
	}
	// Not a built-in name: try it as a file path.
	if p, err := a.library.LoadFromFile(a.cfg.Genre); err == nil {
		a.activePreset = p
		log.WithField("path", a.cfg.Genre).Info("loaded custom genre preset")
	} else {
		log.WithField("genre", a.cfg.Genre).Warn("unknown genre preset")
	}
}

func (a *Agent) loadPreferences() {
	if a.cfg.PreferencesFile == "" {
		return
	}
	if err := a.learner.LoadFromFile(a.cfg.PreferencesFile); err == nil {
		log.WithFields(log.Fields{
			"decisions": a.learner.TotalDecisions(),
			"path":      a.cfg.PreferencesFile,
		}).Info("loaded preference history")
	}
}

func (a *Agent) startCapture() {
	if a.cfg.AudioChannels <= 0 {
		log.Info("audio capture disabled — using console meters only")
		return
	}

	cfg := audio.Config{
		DeviceID:       a.cfg.AudioDeviceID,
		ChannelCount:   a.cfg.AudioChannels,
		SampleRate:     a.cfg.AudioSampleRate,
		FramesPerBlock: a.cfg.AudioFFTSize,
	}
	if err := a.capture.Open(cfg); err != nil {
		log.WithError(err).Warn("audio device open failed — falling back to console meters only")
		return
	}

	// Per-channel rings sized for several FFT blocks of headroom. The
	// capture callback only writes rings — nothing else happens on the
	// audio thread.
	a.rings = make([]*audio.RingBuffer, a.cfg.AudioChannels)
	for i := range a.rings {
		a.rings[i] = audio.NewRingBuffer(a.cfg.AudioFFTSize * 8)
	}
	a.capture.SetCallback(func(channelData [][]float32, channelCount, frameCount int) {
		for ch := 0; ch < channelCount && ch < len(a.rings); ch++ {
			a.rings[ch].Write(channelData[ch][:frameCount])
		}
	})

	if err := a.capture.Start(); err != nil {
		log.WithError(err).Warn("audio capture failed to start — falling back to console meters only")
		return
	}

	a.fft = audio.NewAnalyser(a.cfg.AudioFFTSize)
	a.scratch = make([]float32, a.cfg.AudioFFTSize)
	log.WithFields(log.Fields{
		"backend":     a.capture.BackendName(),
		"channels":    a.cfg.AudioChannels,
		"sample_rate": a.cfg.AudioSampleRate,
		"fft":         a.cfg.AudioFFTSize,
	}).Info("audio capture started")
}

func (a *Agent) runDiscovery() {
	a.syncActive.Store(true)
	defer a.syncActive.Store(false)

	o := &discovery.Orchestrator{
		Adapter: a.adapter,
		State:   a.state,
		Map:     a.channelMap,
		WaitSync: func(timeout time.Duration) bool {
			select {
			case <-a.syncDone:
				return true
			case <-time.After(timeout):
				return false
			}
		},
	}
	if a.llm != nil {
		o.Reviewer = &discovery.Reviewer{LLM: a.llm}
	}
	o.Run()
}

// ── DSP loop (50ms) ────────────────────────────────────────────────────

func (a *Agent) dspLoop() {
	defer a.wg.Done()
	log.Debug("DSP loop started")

	caps := a.adapter.Capabilities()
	ticker := time.NewTicker(a.cfg.DSPInterval)
	defer ticker.Stop()

	lastSnapshot := time.Now()
	lastStatus := time.Now()

	for a.running.Load() {
		<-ticker.C

		a.adapter.Tick()
		a.drainAudio()

		mixAnalysis := a.analyser.Analyse(a.state, caps.ChannelCount)
		issues := a.analyser.DetectIssues(mixAnalysis)
		a.issuesMu.Lock()
		a.latestIssues = issues
		a.issuesMu.Unlock()

		if mixAnalysis.HasClipping {
			a.emergencyClippingFix(mixAnalysis.ClippingChannel)
		}
		if mixAnalysis.HasFeedbackRisk {
			for _, warning := range mixAnalysis.Warnings {
				a.events.Log("!! " + warning)
			}
		}
		for _, issue := range issues {
			switch issue.Type {
			case analysis.IssueBoomy, analysis.IssueHarsh, analysis.IssueThin, analysis.IssueMasking:
				a.events.Log("DSP: " + issue.Description)
			}
		}

		now := time.Now()
		if now.Sub(lastSnapshot) > a.cfg.SnapshotInterval {
			a.memory.RecordSnapshot(a.bridge.BuildCompactState())
			lastSnapshot = now
		}
		if now.Sub(lastStatus) > 5*time.Second {
			a.refreshConnectionStatus()
			lastStatus = now
		}
	}
	log.Debug("DSP loop stopped")
}

// drainAudio consumes buffered capture audio, one FFT per channel per
// tick at most.
func (a *Agent) drainAudio() {
	if a.fft == nil {
		return
	}
	for ch, ring := range a.rings {
		if ring.Available() < a.cfg.AudioFFTSize {
			continue
		}
		n := ring.Read(a.scratch)
		result := a.fft.Analyse(a.scratch[:n], a.cfg.AudioSampleRate)
		a.analyser.UpdateFFT(ch+1, result)
		a.state.UpdateSpectral(ch+1, console.SpectralData{
			Bass:             result.Bands.Bass,
			Mid:              result.Bands.Mid,
			Presence:         result.Bands.Presence,
			CrestFactor:      result.CrestFactor,
			SpectralCentroid: result.SpectralCentroid,
		})
	}
}

// emergencyClippingFix bypasses the LLM: pull the clipping channel's
// fader down 10% with Immediate urgency. Auto-approved submissions are
// executed inline — the queue never re-delivers them, so the fix runs
// exactly once.
func (a *Agent) emergencyClippingFix(channel int) {
	snap, ok := a.state.Channel(channel)
	if !ok {
		return
	}

	fix := action.New(action.SetFader)
	fix.Channel = channel
	fix.Urgency = action.Immediate
	fix.Value = snap.Fader * 0.9 // roughly -1dB
	fix.Reason = "Clipping detected — reducing level"
	if profile, ok := a.channelMap.Get(channel); ok {
		fix.RoleName = profile.Role.String()
	}

	if a.queue.Submit(fix) {
		vr := a.validator.Validate(fix, a.state)
		if vr.Valid {
			a.executor.Execute(vr.Clamped)
			a.events.Log("Emergency: " + vr.Clamped.Describe())
		}
	}
}

// ── LLM loop (5s) ──────────────────────────────────────────────────────

func (a *Agent) llmLoop() {
	defer a.wg.Done()
	log.Debug("LLM loop started")

	// Give discovery's review and first meters a moment before the
	// first decision tick.
	a.sleepWhileRunning(a.cfg.LLMStartupDelay)

	ticker := time.NewTicker(a.cfg.LLMInterval)
	defer ticker.Stop()

	for a.running.Load() {
		<-ticker.C
		if !a.running.Load() {
			break
		}
		a.llmTick()
	}
	log.Debug("LLM loop stopped")
}

func (a *Agent) llmTick() {
	mixContext := a.buildMixContext()
	sessionContext := a.memory.BuildContext(20)

	actions, err := a.llm.DecideMixActions(mixContext, sessionContext)
	if err != nil {
		log.WithError(err).Error("LLM tick failed")
		return
	}
	log.WithField("count", len(actions)).Debug("LLM returned actions")

	for _, act := range actions {
		a.dispatchAction(act, mixContext, "Auto: ")
	}
}

// dispatchAction routes one LLM-proposed action: observations go to
// memory, real actions go through the queue; auto-approved ones are
// validated and executed inline.
func (a *Agent) dispatchAction(act action.MixAction, mixContext map[string]any, logPrefix string) {
	switch act.Kind {
	case action.NoAction:
		log.WithField("reason", act.Reason).Debug("LLM: no action needed")
		return
	case action.Observation:
		a.memory.RecordObservation(act.Reason)
		a.events.Log("LLM: " + act.Reason)
		return
	}

	if a.queue.Submit(act) {
		vr := a.validator.Validate(act, a.state)
		if !vr.Valid {
			log.WithField("warning", vr.Warning).Warn("validation failed")
			return
		}
		er := a.executor.Execute(vr.Clamped)
		if er.Success {
			a.memory.RecordAction(vr.Clamped, mixContext)
			a.events.Log(logPrefix + vr.Clamped.Describe())
		} else {
			log.WithError(er.Err).Warn("execution failed")
		}
	} else {
		a.events.Log("Queued: " + act.Describe())
		a.events.PendingChanged()
	}
}

// ── Executor loop ──────────────────────────────────────────────────────

func (a *Agent) execLoop() {
	defer a.wg.Done()
	log.Debug("executor loop started")

	for a.running.Load() {
		entry, ok := a.queue.PopApproved(200 * time.Millisecond)
		if !ok {
			continue
		}
		a.events.PendingChanged()

		vr := a.validator.Validate(entry.Action, a.state)
		if !vr.Valid {
			log.WithField("warning", vr.Warning).Warn("validation failed for approved action")
			a.memory.RecordRejection(entry.Action, vr.Warning)
			continue
		}

		er := a.executor.Execute(vr.Clamped)
		if !er.Success {
			log.WithError(er.Err).Warn("execution failed")
			a.events.Log("Failed: " + errString(er.Err))
			continue
		}

		a.memory.RecordAction(vr.Clamped, a.bridge.BuildCompactState())
		if entry.Expired {
			a.events.Log("Expired->applied: " + vr.Clamped.Describe())
		} else {
			a.events.Log("Approved: " + vr.Clamped.Describe())
		}
		a.learner.RecordApproval(vr.Clamped, vr.Clamped.RoleName)
	}
	log.Debug("executor loop stopped")
}

// ── Live reclassification ──────────────────────────────────────────────

// onParameterUpdate reacts to console-side changes; a rename triggers
// reclassification unless the engineer pinned the role by hand.
func (a *Agent) onParameterUpdate(u console.ParameterUpdate) {
	if u.Target != console.TargetChannel || u.Param != console.ParamName {
		return
	}
	profile, ok := a.channelMap.Get(u.Index)
	if !ok || profile.ManuallyOverridden {
		return
	}

	result := a.nameClass.Classify(u.StrVal)
	profile.ConsoleName = u.StrVal
	profile.NormalisedName = discovery.NormaliseName(u.StrVal)
	profile.Role = result.Role
	profile.Group = result.Group
	profile.Confidence = result.Confidence
	profile.LastUpdated = time.Now()
	a.channelMap.Update(profile)

	log.WithFields(log.Fields{
		"channel": u.Index, "name": u.StrVal, "role": result.Role.String(),
	}).Info("channel reclassified after rename")
	a.events.Log(fmt.Sprintf("Reclassified ch%d -> %s", u.Index, result.Role))
}

// ── Chat handler ───────────────────────────────────────────────────────

// OnChatMessage handles a free-text message from the engineer. The LLM
// call runs on its own goroutine so the UI never blocks on the network.
func (a *Agent) OnChatMessage(message string) {
	log.WithField("message", message).Info("engineer chat")
	a.memory.RecordInstruction(message)
	a.learner.RecordInstruction(message)

	go func() {
		mixContext := a.buildMixContext()
		prompt, err := json.Marshal(map[string]any{
			"mix_state":      mixContext,
			"recent_history": a.memory.BuildContext(10),
			"engineer_says":  message,
		})
		if err != nil {
			log.WithError(err).Error("chat prompt build failed")
			return
		}

		response, err := a.llm.CallRaw(llm.ChatSystemPrompt(), string(prompt))
		if err != nil {
			log.WithError(err).Error("chat LLM call failed")
			a.events.ChatResponse("Error: couldn't reach the LLM — " + err.Error())
			return
		}

		parsed := llm.ParseChatResponse(response)
		if parsed.Reply != "" {
			a.events.ChatResponse(parsed.Reply)
		}
		for _, act := range parsed.Actions {
			a.dispatchAction(act, mixContext, "Chat: ")
		}
	}()
}

// ── LLM context builder ────────────────────────────────────────────────

// buildMixContext assembles the decision prompt payload: state, issues,
// standing instructions, analysis source, genre targets and learned
// preferences.
func (a *Agent) buildMixContext() map[string]any {
	a.issuesMu.Lock()
	issues := append([]analysis.Issue(nil), a.latestIssues...)
	a.issuesMu.Unlock()

	state := a.bridge.BuildMixState(issues)

	if instructions := a.memory.ActiveInstructions(10); len(instructions) > 0 {
		state["engineer_instructions"] = instructions
	}

	if a.analyser.HasFFTData() {
		state["analysis_source"] = "fft_audio"
	} else {
		state["analysis_source"] = "console_meters"
	}

	if a.activePreset != nil {
		state["genre_preset"] = a.activePreset.ToJSON()
	}
	if p := a.learner.BuildPreferences(); p != nil {
		state["engineer_preferences"] = p
	}
	return state
}

func (a *Agent) refreshConnectionStatus() {
	caps := a.adapter.Capabilities()
	a.events.Connection(ConnectionStatus{
		ConsoleConnected: a.adapter.IsConnected(),
		ConsoleModel:     caps.Model,
		AudioConnected:   a.capture.IsRunning(),
		AudioBackend:     a.capture.BackendName(),
		AudioChannels:    a.cfg.AudioChannels,
		AudioSampleRate:  a.cfg.AudioSampleRate,
		LLMConnected:     true,
	})
}

// sleepWhileRunning sleeps in short slices so shutdown isn't delayed.
func (a *Agent) sleepWhileRunning(d time.Duration) {
	deadline := time.Now().Add(d)
	for a.running.Load() && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
