package device

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/warble/pkg/audiodevice"
	"github.com/go-audio/audio"
)

const defaultDummyBufferFrames = 512

// DefaultDummyConfigs is a mono float32 device accepting any common sample rate.
func DefaultDummyConfigs() []audiodevice.SupportedConfig {
	return []audiodevice.SupportedConfig{
		{Channels: 1, MinSampleRate: 8000, MaxSampleRate: 192000, Format: audiodevice.SampleFormatF32},
	}
}

// A Host with a single in-process output device that pulls audio without any hardware.
//
// A minimal example of the architecture of a Host, useful in testing and on headless machines.
type DummyHost struct {
	device *DummyOutputDevice
}

// NewDummyHost creates a host whose default output device is device.
// With a nil device DefaultOutputDevice fails with ErrNoOutputDevice.
func NewDummyHost(device *DummyOutputDevice) *DummyHost {
	return &DummyHost{device: device}
}

func (h *DummyHost) Name() string {
	return "dummy"
}

func (h *DummyHost) DefaultOutputDevice() (audiodevice.Device, error) {
	if h.device == nil {
		return nil, audiodevice.ErrNoOutputDevice
	}
	return h.device, nil
}

func (h *DummyHost) Close() error {
	return nil
}

// --------------------------------------------------------------------------------

// An output device that consumes audio on a ticker, at the cadence a real device
// with the same sample rate and buffer size would.
//
// Unless DummyRealtime is given no goroutine is started and buffers are only
// pulled by Tick.
type DummyOutputDevice struct {
	name         string
	configs      []audiodevice.SupportedConfig
	configsErr   error
	realtime     bool
	captureLimit int

	mu      sync.Mutex
	streams []*DummyOutputStream
}

type DummyOption func(*DummyOutputDevice)

// DummyConfigs overrides the configurations the device reports.
func DummyConfigs(configs ...audiodevice.SupportedConfig) DummyOption {
	return func(d *DummyOutputDevice) { d.configs = configs }
}

// DummyConfigsError makes SupportedOutputConfigs fail.
func DummyConfigsError(err error) DummyOption {
	return func(d *DummyOutputDevice) { d.configsErr = err }
}

// DummyRealtime pulls one buffer every buffer duration.
func DummyRealtime() DummyOption {
	return func(d *DummyOutputDevice) { d.realtime = true }
}

// DummyCapture keeps up to frames frames of played audio, see Captured.
func DummyCapture(frames int) DummyOption {
	return func(d *DummyOutputDevice) { d.captureLimit = frames }
}

func NewDummyOutputDevice(name string, opts ...DummyOption) *DummyOutputDevice {
	d := &DummyOutputDevice{
		name:    name,
		configs: DefaultDummyConfigs(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *DummyOutputDevice) Name() string {
	return d.name
}

func (d *DummyOutputDevice) SupportedOutputConfigs() ([]audiodevice.SupportedConfig, error) {
	if d.configsErr != nil {
		return nil, d.configsErr
	}
	return d.configs, nil
}

func (d *DummyOutputDevice) BuildOutputStream(
	config audiodevice.StreamConfig,
	fill audiodevice.FillFunc,
	onError audiodevice.ErrorFunc,
) (audiodevice.Stream, error) {
	bufferFrames := config.BufferFrames
	if bufferFrames <= 0 {
		bufferFrames = defaultDummyBufferFrames
	}

	s := &DummyOutputStream{
		config:       config,
		fill:         fill,
		onError:      onError,
		buf:          make([]float32, bufferFrames*config.Channels),
		captureLimit: d.captureLimit * config.Channels,
		capture: &audio.Float32Buffer{
			Format:         &audio.Format{NumChannels: config.Channels, SampleRate: config.SampleRate},
			SourceBitDepth: 32,
		},
		done: make(chan struct{}),
	}

	if d.realtime {
		period := time.Duration(bufferFrames) * time.Second / time.Duration(config.SampleRate)
		s.wg.Add(1)
		go s.run(period)
	}

	d.mu.Lock()
	d.streams = append(d.streams, s)
	d.mu.Unlock()
	return s, nil
}

// Streams returns every stream built on this device, in build order.
func (d *DummyOutputDevice) Streams() []*DummyOutputStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*DummyOutputStream(nil), d.streams...)
}

// --------------------------------------------------------------------------------

type DummyOutputStream struct {
	config  audiodevice.StreamConfig
	fill    audiodevice.FillFunc
	onError audiodevice.ErrorFunc
	buf     []float32

	playing atomic.Bool
	closed  atomic.Bool
	plays   atomic.Int64
	pauses  atomic.Int64
	pulls   atomic.Int64

	captureMu    sync.Mutex
	capture      *audio.Float32Buffer
	captureLimit int

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func (s *DummyOutputStream) run(period time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick pulls one buffer if the stream is playing and reports whether it did.
// It must not be called on a stream of a DummyRealtime device.
func (s *DummyOutputStream) Tick() bool {
	if s.closed.Load() || !s.playing.Load() {
		return false
	}
	s.fill(s.buf)
	s.pulls.Add(1)

	s.captureMu.Lock()
	if room := s.captureLimit - len(s.capture.Data); room > 0 {
		n := min(room, len(s.buf))
		s.capture.Data = append(s.capture.Data, s.buf[:n]...)
	}
	s.captureMu.Unlock()
	return true
}

// InjectError reports err through the stream's error callback, as a driver would.
func (s *DummyOutputStream) InjectError(err error) {
	s.onError(&audiodevice.StreamError{Backend: "dummy", Err: err})
}

func (s *DummyOutputStream) Play() error {
	if s.closed.Load() {
		return audiodevice.ErrStreamClosed
	}
	s.plays.Add(1)
	s.playing.Store(true)
	return nil
}

func (s *DummyOutputStream) Pause() error {
	if s.closed.Load() {
		return audiodevice.ErrStreamClosed
	}
	s.pauses.Add(1)
	s.playing.Store(false)
	return nil
}

func (s *DummyOutputStream) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.playing.Store(false)
		close(s.done)
		s.wg.Wait()
	})
	return nil
}

func (s *DummyOutputStream) Playing() bool { return s.playing.Load() }
func (s *DummyOutputStream) Closed() bool  { return s.closed.Load() }
func (s *DummyOutputStream) Plays() int64  { return s.plays.Load() }
func (s *DummyOutputStream) Pauses() int64 { return s.pauses.Load() }
func (s *DummyOutputStream) Pulls() int64  { return s.pulls.Load() }

// Captured returns a copy of the audio played so far, interleaved.
func (s *DummyOutputStream) Captured() *audio.Float32Buffer {
	s.captureMu.Lock()
	defer s.captureMu.Unlock()
	return &audio.Float32Buffer{
		Format:         s.capture.Format,
		Data:           append([]float32(nil), s.capture.Data...),
		SourceBitDepth: s.capture.SourceBitDepth,
	}
}
