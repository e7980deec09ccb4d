// Package agent is the pipeline supervisor: it owns the DSP, LLM and
// executor loops, wires the adapter callbacks into the state model and
// channel map, and carries every long-lived component from start to
// shutdown.
package agent

import (
	"time"

	"github.com/mixmate/mixmate/internal/approval"
)

// Config shapes the supervisor's loops and optional audio capture.
type Config struct {
	DSPInterval      time.Duration // analysis cadence
	LLMInterval      time.Duration // decision cadence
	LLMStartupDelay  time.Duration // settle time before the first decision tick
	SnapshotInterval time.Duration // session-memory snapshot cadence
	MeterRefreshMs   int

	// Audio capture. AudioChannels 0 disables capture and the system
	// degrades to console-meter analysis.
	AudioDeviceID   int
	AudioChannels   int
	AudioSampleRate float64
	AudioFFTSize    int

	ApprovalMode    approval.Mode
	Genre           string // preset name or path to a preset JSON file
	PreferencesFile string
	MemoryEntries   int
}

// DefaultConfig returns the stock supervisor configuration.
func DefaultConfig() Config {
	return Config{
		DSPInterval:      50 * time.Millisecond,
		LLMInterval:      5 * time.Second,
		LLMStartupDelay:  2 * time.Second,
		SnapshotInterval: time.Minute,
		MeterRefreshMs:   50,
		AudioDeviceID:    -1,
		AudioSampleRate:  48000,
		AudioFFTSize:     1024,
		ApprovalMode:     approval.ModeAutoUrgent,
		MemoryEntries:    200,
	}
}

// ConnectionStatus is the indicator block published to the UI.
type ConnectionStatus struct {
	ConsoleConnected bool
	ConsoleModel     string
	AudioConnected   bool
	AudioBackend     string
	AudioChannels    int
	AudioSampleRate  float64
	LLMConnected     bool
}
