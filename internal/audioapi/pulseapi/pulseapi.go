// Package pulseapi is the PulseAudio backend, talking the native protocol in pure Go.
package pulseapi

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Honorable-Knights-of-the-Roundtable/warble/pkg/audiodevice"
	"github.com/jfreymuth/pulse"
)

const (
	backendName   = "pulse"
	minSampleRate = 1
	maxSampleRate = 384000
	mediaName     = "tone"
)

var errUnderflow = errors.New("buffer underflow")

type Host struct {
	logger *slog.Logger
	client *pulse.Client
}

// NewHost connects to the PulseAudio server named by PULSE_SERVER, or the
// per-user default socket.
func NewHost(appName string, logger *slog.Logger) (*Host, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := pulse.NewClient(pulse.ClientApplicationName(appName))
	if err != nil {
		logger.Error("failed to connect to pulseaudio", "err", err)
		return nil, fmt.Errorf("failed to connect to pulseaudio: %w", err)
	}
	return &Host{logger: logger.With("backend", backendName), client: client}, nil
}

func (h *Host) Name() string {
	return backendName
}

func (h *Host) DefaultOutputDevice() (audiodevice.Device, error) {
	sink, err := h.client.DefaultSink()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", audiodevice.ErrNoOutputDevice, err)
	}
	h.logger.Info("playing audio via default sink", "sink", sink.Name(), "id", sink.ID())
	return &Device{client: h.client, sink: sink}, nil
}

func (h *Host) Close() error {
	h.client.Close()
	return nil
}

// --------------------------------------------------------------------------------

type Device struct {
	client *pulse.Client
	sink   *pulse.Sink
}

func (d *Device) Name() string {
	return d.sink.Name()
}

// SupportedOutputConfigs lists the client stream encodings a playback stream can
// be created with. The server converts them to the sink's own format.
func (d *Device) SupportedOutputConfigs() ([]audiodevice.SupportedConfig, error) {
	formats := []audiodevice.SampleFormat{
		audiodevice.SampleFormatF32,
		audiodevice.SampleFormatI32,
		audiodevice.SampleFormatI16,
		audiodevice.SampleFormatU8,
	}
	configs := make([]audiodevice.SupportedConfig, len(formats))
	for i, format := range formats {
		configs[i] = audiodevice.SupportedConfig{
			Channels:      1,
			MinSampleRate: minSampleRate,
			MaxSampleRate: maxSampleRate,
			Format:        format,
		}
	}
	return configs, nil
}

func (d *Device) BuildOutputStream(
	config audiodevice.StreamConfig,
	fill audiodevice.FillFunc,
	onError audiodevice.ErrorFunc,
) (audiodevice.Stream, error) {
	opts := []pulse.PlaybackOption{
		pulse.PlaybackSampleRate(config.SampleRate),
		pulse.PlaybackSink(d.sink),
		pulse.PlaybackMediaName(mediaName),
	}
	if config.Channels == 2 {
		opts = append(opts, pulse.PlaybackStereo)
	} else {
		opts = append(opts, pulse.PlaybackMono)
	}
	if config.BufferFrames > 0 {
		opts = append(opts, pulse.PlaybackLatency(float64(config.BufferFrames)/float64(config.SampleRate)))
	}

	r := pulse.Float32Reader(func(out []float32) (int, error) {
		fill(out)
		return len(out), nil
	})

	stream, err := d.client.NewPlayback(r, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pulseaudio playback: %w", err)
	}
	return &Stream{stream: stream, onError: onError}, nil
}

// --------------------------------------------------------------------------------

// Stream wraps a playback stream, which is created corked. The first Play starts
// it, later ones resume it.
type Stream struct {
	mu      sync.Mutex
	stream  *pulse.PlaybackStream
	onError audiodevice.ErrorFunc
	started bool
	playing bool
	closed  bool
}

func (s *Stream) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return audiodevice.ErrStreamClosed
	}
	if s.playing {
		return nil
	}
	if s.started {
		s.stream.Resume()
	} else {
		s.stream.Start()
		s.started = true
	}
	s.playing = true
	return nil
}

func (s *Stream) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return audiodevice.ErrStreamClosed
	}
	if !s.playing {
		return nil
	}
	s.stream.Pause()
	s.playing = false
	s.checkErr()
	return nil
}

func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.checkErr()
	s.stream.Close()
	return nil
}

func (s *Stream) checkErr() {
	if err := s.stream.Error(); err != nil {
		s.onError(&audiodevice.StreamError{Backend: backendName, Err: err})
	}
	if s.stream.Underflow() {
		s.onError(&audiodevice.StreamError{Backend: backendName, Err: errUnderflow})
	}
}
