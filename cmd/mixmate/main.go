package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/mixmate/mixmate/internal/agent"
	"github.com/mixmate/mixmate/internal/approval"
	"github.com/mixmate/mixmate/internal/audio"
	"github.com/mixmate/mixmate/internal/cli"
	"github.com/mixmate/mixmate/internal/console"
	"github.com/mixmate/mixmate/internal/llm"
	"github.com/mixmate/mixmate/internal/report"
	"github.com/mixmate/mixmate/internal/ui"
)

var version = "0.1.0"

// CLI defines the command-line interface
type CLI struct {
	Version bool `short:"v" help:"Show version information"`

	Console string `default:"demo" help:"Console type (demo, or an external adapter name)"`
	Host    string `default:"192.168.1.100" help:"Console IP address"`
	Port    int    `default:"0" help:"Console port (0 = protocol default)"`

	Genre        string `help:"Genre preset name (rock, jazz, worship, edm, acoustic) or preset JSON path"`
	ApprovalMode string `default:"auto_urgent" enum:"auto_urgent,approve_all,auto_all,deny_all" help:"Approval policy"`

	AudioChannels int     `default:"0" help:"Capture channel count (0 disables audio capture)"`
	AudioDevice   int     `default:"-1" help:"Capture device id (-1 = system default)"`
	SampleRate    float64 `default:"48000" help:"Capture sample rate"`
	FFTSize       int     `default:"1024" help:"FFT block size (power of two)"`
	ListDevices   bool    `help:"List capture devices and exit"`

	Prefs     string `type:"path" help:"Preferences file (learned engineer taste, persisted across shows)"`
	PromptDir string `type:"path" help:"Directory of prompt .txt overlays for the LLM"`
	Report    string `type:"path" help:"Write a session report to this path on exit"`

	Headless bool   `help:"Run without the terminal UI"`
	LogLevel string `default:"info" enum:"debug,info,warn,error" help:"Log verbosity"`
	LogFile  string `default:"mixmate.log" type:"path" help:"Log file (keeps the TUI clean)"`
}

func main() {
	cliArgs := &CLI{}
	kong.Parse(cliArgs,
		kong.Name("mixmate"),
		kong.Description("AI co-pilot for live sound engineers"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	if cliArgs.Version {
		cli.PrintVersion(version)
		os.Exit(0)
	}

	setupLogging(cliArgs)

	if cliArgs.ListDevices {
		os.Exit(listDevices())
	}

	if err := run(cliArgs); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}

func setupLogging(cliArgs *CLI) {
	level, err := log.ParseLevel(cliArgs.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if f, err := os.OpenFile(cliArgs.LogFile,
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
		log.SetOutput(f)
	}
}

func listDevices() int {
	capture, err := audio.NewPortAudioCapture()
	if err != nil {
		cli.PrintError(err.Error())
		return 1
	}
	defer capture.Close()

	devices, err := capture.ListDevices()
	if err != nil {
		cli.PrintError(err.Error())
		return 1
	}
	for _, d := range devices {
		fmt.Printf("%3d  %-40s  %d in @ %.0f Hz\n",
			d.ID, d.Name, d.MaxInputChannels, d.DefaultSampleRate)
	}
	return 0
}

func run(cliArgs *CLI) error {
	adapter, err := buildAdapter(cliArgs.Console)
	if err != nil {
		return err
	}
	if err := adapter.Connect(cliArgs.Host, cliArgs.Port); err != nil {
		return fmt.Errorf("connect to console: %w", err)
	}
	defer adapter.Disconnect()

	engine := llm.NewEngine(buildLLMConfig(cliArgs))

	cfg := agent.DefaultConfig()
	cfg.ApprovalMode = approval.ModeFromString(cliArgs.ApprovalMode)
	cfg.Genre = cliArgs.Genre
	cfg.PreferencesFile = cliArgs.Prefs
	cfg.AudioChannels = cliArgs.AudioChannels
	cfg.AudioDeviceID = cliArgs.AudioDevice
	cfg.AudioSampleRate = cliArgs.SampleRate
	cfg.AudioFFTSize = cliArgs.FFTSize

	a := agent.New(adapter, engine, cfg)

	if cliArgs.AudioChannels > 0 {
		capture, err := audio.NewPortAudioCapture()
		if err != nil {
			log.WithError(err).Warn("PortAudio unavailable — console meters only")
		} else {
			defer capture.Close()
			a.SetCapture(capture)
		}
	}

	startTime := time.Now()

	var runErr error
	if cliArgs.Headless {
		runErr = runHeadless(a)
	} else {
		runErr = runWithUI(a)
	}

	a.Stop()

	if cliArgs.Report != "" {
		writeSessionReport(cliArgs, adapter, a, engine, startTime)
	}
	return runErr
}

// buildAdapter resolves the console type. Wire-protocol adapters (X32,
// Wing, Avantis) ship separately; the built-in demo console simulates a
// desk so the pipeline runs anywhere.
func buildAdapter(consoleType string) (console.Adapter, error) {
	switch consoleType {
	case "demo":
		return console.NewDemoAdapter(16, 4), nil
	default:
		return nil, fmt.Errorf("unknown console type %q (built-in: demo)", consoleType)
	}
}

func buildLLMConfig(cliArgs *CLI) llm.Config {
	cfg := llm.DefaultConfig()
	cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	if model := os.Getenv("MIXMATE_MODEL"); model != "" {
		cfg.AnthropicModel = model
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		cfg.OllamaHost = host
	}
	if model := os.Getenv("MIXMATE_FALLBACK_MODEL"); model != "" {
		cfg.OllamaModel = model
	}
	if temp := os.Getenv("MIXMATE_LLM_TEMPERATURE"); temp != "" {
		if v, err := strconv.ParseFloat(temp, 64); err == nil {
			cfg.Temperature = v
		}
	}
	cfg.PromptDir = cliArgs.PromptDir
	cfg.ActiveGenre = cliArgs.Genre

	// Without an API key, run fully local against Ollama.
	if cfg.AnthropicAPIKey == "" {
		cfg.OllamaPrimary = true
		log.Info("no ANTHROPIC_API_KEY set — using Ollama as primary LLM")
	}
	return cfg
}

func runHeadless(a *agent.Agent) error {
	if err := a.Start(); err != nil {
		return fmt.Errorf("start agent: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.WithField("signal", sig.String()).Info("shutting down")
	return nil
}

func runWithUI(a *agent.Agent) error {
	model := ui.NewModel(a.Queue(), a.OnChatMessage)
	p := tea.NewProgram(model, tea.WithAltScreen())

	a.SetEvents(ui.NewPublisher(p, a.Queue()))

	// The agent starts in the background so the UI is live during the
	// discovery sync.
	startErr := make(chan error, 1)
	go func() {
		startErr <- a.Start()
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("UI error: %w", err)
	}
	if err := <-startErr; err != nil {
		return fmt.Errorf("start agent: %w", err)
	}
	return nil
}

func writeSessionReport(cliArgs *CLI, adapter console.Adapter, a *agent.Agent, engine *llm.Engine, startTime time.Time) {
	caps := adapter.Capabilities()
	total, failed, avgLatency := engine.Stats()

	data := report.SessionData{
		StartTime:     startTime,
		EndTime:       time.Now(),
		ConsoleModel:  caps.Model,
		ChannelCount:  caps.ChannelCount,
		BusCount:      caps.BusCount,
		Genre:         cliArgs.Genre,
		ApprovalMode:  cliArgs.ApprovalMode,
		Profiles:      a.ChannelMap().All(),
		History:       a.Memory().Entries(),
		LLMCalls:      total,
		LLMFailures:   failed,
		LLMAvgLatency: avgLatency,
		Decisions:     a.Learner().TotalDecisions(),
	}
	if cliArgs.AudioChannels > 0 {
		data.AudioBackend = "portaudio"
	}

	if err := report.Generate(cliArgs.Report, data); err != nil {
		log.WithError(err).Warn("failed to write session report")
	} else {
		log.WithField("path", cliArgs.Report).Info("session report written")
	}
}
