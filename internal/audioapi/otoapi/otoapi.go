// Package otoapi is the oto backend. oto has no device model: it always plays on
// the system default output, pulling samples through an io.Reader.
package otoapi

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/warble/pkg/audiodevice"
	"github.com/ebitengine/oto/v3"
)

const (
	backendName   = "oto"
	deviceName    = "oto default output"
	minSampleRate = 8000
	maxSampleRate = 192000
)

var errContextInUse = errors.New("oto context already created with another configuration")

// oto allows one context per process.
var (
	contextMu        sync.Mutex
	otoContext       *oto.Context
	otoContextConfig audiodevice.StreamConfig
)

func getContext(config audiodevice.StreamConfig) (*oto.Context, error) {
	contextMu.Lock()
	defer contextMu.Unlock()

	if otoContext != nil {
		if otoContextConfig.SampleRate != config.SampleRate || otoContextConfig.Channels != config.Channels {
			return nil, errContextInUse
		}
		return otoContext, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   config.SampleRate,
		ChannelCount: config.Channels,
		Format:       oto.FormatFloat32LE,
	}
	if config.BufferFrames > 0 {
		op.BufferSize = time.Duration(config.BufferFrames) * time.Second / time.Duration(config.SampleRate)
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	otoContext, otoContextConfig = ctx, config
	return ctx, nil
}

type Host struct {
	logger *slog.Logger
}

func NewHost(logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{logger: logger.With("backend", backendName)}
}

func (h *Host) Name() string {
	return backendName
}

func (h *Host) DefaultOutputDevice() (audiodevice.Device, error) {
	return &Device{logger: h.logger}, nil
}

func (h *Host) Close() error {
	return nil
}

// --------------------------------------------------------------------------------

type Device struct {
	logger *slog.Logger
}

func (d *Device) Name() string {
	return deviceName
}

// SupportedOutputConfigs lists the encodings oto can play, float32 first.
func (d *Device) SupportedOutputConfigs() ([]audiodevice.SupportedConfig, error) {
	configs := make([]audiodevice.SupportedConfig, 0, 6)
	for _, format := range []audiodevice.SampleFormat{audiodevice.SampleFormatF32, audiodevice.SampleFormatI16, audiodevice.SampleFormatU8} {
		for _, channels := range []int{1, 2} {
			configs = append(configs, audiodevice.SupportedConfig{
				Channels:      channels,
				MinSampleRate: minSampleRate,
				MaxSampleRate: maxSampleRate,
				Format:        format,
			})
		}
	}
	return configs, nil
}

func (d *Device) BuildOutputStream(
	config audiodevice.StreamConfig,
	fill audiodevice.FillFunc,
	onError audiodevice.ErrorFunc,
) (audiodevice.Stream, error) {
	ctx, err := getContext(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}

	bufferFrames := config.BufferFrames
	if bufferFrames <= 0 {
		bufferFrames = 1024
	}
	r := &reader{
		fill:     fill,
		channels: config.Channels,
		samples:  make([]float32, max(bufferFrames, 1)*config.Channels),
	}
	return &Stream{
		player:  ctx.NewPlayer(r),
		onError: onError,
	}, nil
}

// --------------------------------------------------------------------------------

// reader encodes the fill callback's float32 samples as little endian bytes.
// Read runs on oto's audio goroutine.
type reader struct {
	fill     audiodevice.FillFunc
	channels int
	samples  []float32
}

func (r *reader) Read(p []byte) (int, error) {
	frameBytes := 4 * r.channels
	n := len(p) / frameBytes * frameBytes
	if n == 0 {
		return 0, nil
	}

	// Requests larger than the sample buffer are filled in whole-frame chunks.
	chunk := len(r.samples) / r.channels * r.channels
	for off := 0; off < n; {
		numSamples := min((n-off)/4, chunk)
		samples := r.samples[:numSamples]
		r.fill(samples)
		for i, v := range samples {
			binary.LittleEndian.PutUint32(p[off+4*i:], math.Float32bits(v))
		}
		off += 4 * numSamples
	}
	return n, nil
}

// --------------------------------------------------------------------------------

type Stream struct {
	mu      sync.Mutex
	player  *oto.Player
	onError audiodevice.ErrorFunc
	closed  bool
}

func (s *Stream) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return audiodevice.ErrStreamClosed
	}
	s.player.Play()
	return nil
}

func (s *Stream) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return audiodevice.ErrStreamClosed
	}
	s.player.Pause()
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
	return s.player.Close()
}

// checkErr forwards an error the player stopped on. oto reports them lazily.
func (s *Stream) checkErr() {
	if err := s.player.Err(); err != nil {
		s.onError(&audiodevice.StreamError{Backend: backendName, Err: err})
	}
}
