// Package portaudioapi is the PortAudio backend: a callback-driven output stream
// on the default PortAudio output device.
package portaudioapi

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Honorable-Knights-of-the-Roundtable/warble/pkg/audiodevice"
	"github.com/gordonklaus/portaudio"
)

const backendName = "portaudio"

// Rates probed with IsFormatSupported when listing configurations.
var probeSampleRates = []int{8000, 11025, 16000, 22050, 32000, 44100, 48000, 88200, 96000, 176400, 192000}

var (
	errOutputUnderflow = errors.New("output underflow")
	errOutputOverflow  = errors.New("output overflow")
)

type Host struct {
	logger *slog.Logger
}

// NewHost initializes PortAudio. Close must be called to terminate it.
func NewHost(logger *slog.Logger) (*Host, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := portaudio.Initialize(); err != nil {
		logger.Error("failed to initialize portaudio", "err", err)
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	logger.Debug("initialized portaudio", "version", portaudio.VersionText())
	return &Host{logger: logger.With("backend", backendName)}, nil
}

func (h *Host) Name() string {
	return backendName
}

func (h *Host) DefaultOutputDevice() (audiodevice.Device, error) {
	info, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", audiodevice.ErrNoOutputDevice, err)
	}
	if info == nil || info.MaxOutputChannels == 0 {
		return nil, audiodevice.ErrNoOutputDevice
	}

	h.logger.Info("playing audio via default output device", "device", info.Name)
	return &Device{logger: h.logger, info: info}, nil
}

func (h *Host) Close() error {
	return portaudio.Terminate()
}

// --------------------------------------------------------------------------------

type Device struct {
	logger *slog.Logger
	info   *portaudio.DeviceInfo
}

func (d *Device) Name() string {
	return d.info.Name
}

// SupportedOutputConfigs probes mono float32 output at the common sample rates.
// The binding exchanges samples as float32 whenever the callback takes []float32,
// so float32 is the only format reported.
func (d *Device) SupportedOutputConfigs() ([]audiodevice.SupportedConfig, error) {
	probe := func(out []float32) {}

	configs := make([]audiodevice.SupportedConfig, 0, len(probeSampleRates))
	for _, rate := range probeSampleRates {
		params := portaudio.LowLatencyParameters(nil, d.info)
		params.Output.Channels = 1
		params.SampleRate = float64(rate)
		if err := portaudio.IsFormatSupported(params, probe); err != nil {
			d.logger.Debug("sample rate not supported", "sampleRate", rate, "err", err)
			continue
		}
		configs = append(configs, audiodevice.SupportedConfig{
			Channels:      1,
			MinSampleRate: rate,
			MaxSampleRate: rate,
			Format:        audiodevice.SampleFormatF32,
		})
	}
	return configs, nil
}

func (d *Device) BuildOutputStream(
	config audiodevice.StreamConfig,
	fill audiodevice.FillFunc,
	onError audiodevice.ErrorFunc,
) (audiodevice.Stream, error) {
	params := portaudio.LowLatencyParameters(nil, d.info)
	params.Output.Channels = config.Channels
	params.SampleRate = float64(config.SampleRate)
	params.FramesPerBuffer = config.BufferFrames

	// Built once; the callback must not allocate.
	underflow := &audiodevice.StreamError{Backend: backendName, Err: errOutputUnderflow}
	overflow := &audiodevice.StreamError{Backend: backendName, Err: errOutputOverflow}

	cb := func(out []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
		if flags&portaudio.OutputUnderflow != 0 {
			onError(underflow)
		}
		if flags&portaudio.OutputOverflow != 0 {
			onError(overflow)
		}
		fill(out)
	}

	stream, err := portaudio.OpenStream(params, cb)
	if err != nil {
		return nil, fmt.Errorf("failed to open portaudio stream: %w", err)
	}
	return &Stream{stream: stream}, nil
}

// --------------------------------------------------------------------------------

// Stream tracks whether the PortAudio stream is started so that repeated Play
// and Pause calls are no-ops.
type Stream struct {
	mu      sync.Mutex
	stream  *portaudio.Stream
	started bool
	closed  bool
}

func (s *Stream) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return audiodevice.ErrStreamClosed
	}
	if s.started {
		return nil
	}
	if err := s.stream.Start(); err != nil {
		return err
	}
	s.started = true
	return nil
}

func (s *Stream) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return audiodevice.ErrStreamClosed
	}
	if !s.started {
		return nil
	}
	if err := s.stream.Stop(); err != nil {
		return err
	}
	s.started = false
	return nil
}

func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var stopErr error
	if s.started {
		stopErr = s.stream.Stop()
		s.started = false
	}
	return errors.Join(stopErr, s.stream.Close())
}
