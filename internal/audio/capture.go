package audio

// Callback receives one block of deinterleaved float32 samples per channel.
// channelData[ch] holds frameCount samples in [-1, +1]. Called on the
// capture backend's own thread — implementations must not block in it.
type Callback func(channelData [][]float32, channelCount, frameCount int)

// DeviceInfo describes an enumerable capture device.
type DeviceInfo struct {
	ID                int
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
}

// Config selects the device and stream geometry for a capture session.
type Config struct {
	DeviceID       int // -1 = system default
	ChannelCount   int
	SampleRate     float64
	FramesPerBlock int
}

// DefaultConfig returns the capture geometry used when nothing is specified.
func DefaultConfig() Config {
	return Config{
		DeviceID:       -1,
		ChannelCount:   32,
		SampleRate:     48000,
		FramesPerBlock: 1024,
	}
}

// Capture is the contract every capture backend implements.
// Backends: PortAudioCapture (real devices), NullCapture (meter-only mode).
type Capture interface {
	Open(cfg Config) error
	Start() error
	Stop()
	IsRunning() bool
	SetCallback(cb Callback)
	ListDevices() ([]DeviceInfo, error)
	BackendName() string
}

// NullCapture is the no-op backend used when audio capture is disabled or
// unavailable. The system then degrades to console-meter-only analysis.
type NullCapture struct{}

func (NullCapture) Open(Config) error               { return nil }
func (NullCapture) Start() error                    { return nil }
func (NullCapture) Stop()                           {}
func (NullCapture) IsRunning() bool                 { return false }
func (NullCapture) SetCallback(Callback)            {}
func (NullCapture) ListDevices() ([]DeviceInfo, error) { return nil, nil }
func (NullCapture) BackendName() string             { return "null" }
