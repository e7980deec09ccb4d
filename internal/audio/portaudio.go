package audio

import (
	"fmt"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
)

// PortAudioCapture captures multichannel input through PortAudio.
// The stream callback deinterleaves into per-channel slices and hands them
// to the configured Callback; the usual consumer writes each channel into
// its RingBuffer and does nothing else on the capture thread.
type PortAudioCapture struct {
	cfg     Config
	stream  *portaudio.Stream
	cb      atomic.Pointer[Callback]
	planes  [][]float32
	running atomic.Bool
	opened  bool
}

// NewPortAudioCapture initialises the PortAudio library.
func NewPortAudioCapture() (*PortAudioCapture, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}
	return &PortAudioCapture{}, nil
}

// Open configures the input stream. The stream is not started yet.
func (p *PortAudioCapture) Open(cfg Config) error {
	dev, err := p.inputDevice(cfg.DeviceID)
	if err != nil {
		return err
	}

	channels := cfg.ChannelCount
	if channels > dev.MaxInputChannels {
		channels = dev.MaxInputChannels
	}
	if channels < 1 {
		return fmt.Errorf("device %q has no input channels", dev.Name)
	}
	cfg.ChannelCount = channels
	p.cfg = cfg

	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = channels
	params.SampleRate = cfg.SampleRate
	params.FramesPerBuffer = cfg.FramesPerBlock

	// Scratch planes reused on every callback so the capture thread never
	// allocates.
	p.planes = make([][]float32, channels)
	for i := range p.planes {
		p.planes[i] = make([]float32, cfg.FramesPerBlock)
	}

	stream, err := portaudio.OpenStream(params, p.streamCallback)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	p.stream = stream
	p.opened = true
	return nil
}

// streamCallback runs on the PortAudio thread. in is interleaved.
func (p *PortAudioCapture) streamCallback(in []float32) {
	cb := p.cb.Load()
	if cb == nil {
		return
	}
	channels := p.cfg.ChannelCount
	frames := len(in) / channels
	if frames > p.cfg.FramesPerBlock {
		frames = p.cfg.FramesPerBlock
	}
	for ch := 0; ch < channels; ch++ {
		plane := p.planes[ch]
		for f := 0; f < frames; f++ {
			plane[f] = in[f*channels+ch]
		}
	}
	(*cb)(p.planes, channels, frames)
}

func (p *PortAudioCapture) Start() error {
	if !p.opened {
		return fmt.Errorf("capture not opened")
	}
	if err := p.stream.Start(); err != nil {
		return fmt.Errorf("start stream: %w", err)
	}
	p.running.Store(true)
	return nil
}

func (p *PortAudioCapture) Stop() {
	if p.running.Swap(false) && p.stream != nil {
		p.stream.Stop()
	}
}

func (p *PortAudioCapture) IsRunning() bool { return p.running.Load() }

func (p *PortAudioCapture) SetCallback(cb Callback) {
	p.cb.Store(&cb)
}

// ListDevices enumerates devices with at least one input channel.
func (p *PortAudioCapture) ListDevices() ([]DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	var out []DeviceInfo
	for i, d := range devices {
		if d.MaxInputChannels < 1 {
			continue
		}
		out = append(out, DeviceInfo{
			ID:                i,
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
		})
	}
	return out, nil
}

func (p *PortAudioCapture) BackendName() string { return "portaudio" }

// Close stops the stream and terminates the library.
func (p *PortAudioCapture) Close() {
	p.Stop()
	if p.stream != nil {
		p.stream.Close()
		p.stream = nil
	}
	portaudio.Terminate()
}

func (p *PortAudioCapture) inputDevice(id int) (*portaudio.DeviceInfo, error) {
	if id < 0 {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("default input device: %w", err)
		}
		return dev, nil
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	if id >= len(devices) {
		return nil, fmt.Errorf("no such device id %d", id)
	}
	return devices[id], nil
}
