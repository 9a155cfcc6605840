package audiodevice

import (
	"fmt"
	"strings"
)

// SampleFormat is the encoding of the samples a device consumes.
type SampleFormat int

const (
	SampleFormatUnknown SampleFormat = iota
	SampleFormatU8
	SampleFormatI16
	SampleFormatU16
	SampleFormatI32
	SampleFormatF32
)

func (f SampleFormat) String() string {
	switch f {
	case SampleFormatU8:
		return "u8"
	case SampleFormatI16:
		return "i16"
	case SampleFormatU16:
		return "u16"
	case SampleFormatI32:
		return "i32"
	case SampleFormatF32:
		return "f32"
	default:
		return "unknown"
	}
}

// SupportedConfig is one output configuration a device reports it can run with.
// Any sample rate in [MinSampleRate, MaxSampleRate] may be requested.
type SupportedConfig struct {
	Channels      int
	MinSampleRate int
	MaxSampleRate int
	Format        SampleFormat
}

func (c SupportedConfig) SupportsSampleRate(sampleRate int) bool {
	return c.MinSampleRate <= sampleRate && sampleRate <= c.MaxSampleRate
}

// WithSampleRate fixes the sample rate of the configuration.
func (c SupportedConfig) WithSampleRate(sampleRate int) StreamConfig {
	return StreamConfig{
		Channels:   c.Channels,
		SampleRate: sampleRate,
		Format:     c.Format,
	}
}

func (c SupportedConfig) String() string {
	return fmt.Sprintf("%dch %d-%dHz %s", c.Channels, c.MinSampleRate, c.MaxSampleRate, c.Format)
}

// StreamConfig is the negotiated configuration an output stream is built with.
type StreamConfig struct {
	Channels   int
	SampleRate int
	Format     SampleFormat

	// Requested frames per callback. Zero lets the backend decide.
	BufferFrames int
}

// FillFunc is called from the backend's real-time thread with an interleaved
// buffer of len(out)/Channels frames to fill. It must not block, allocate or
// perform I/O.
type FillFunc func(out []float32)

// ErrorFunc receives runtime errors reported by a running stream.
// Backends may call it from any goroutine, including the real-time thread.
type ErrorFunc func(err error)

// Host is an audio API (PortAudio, PulseAudio, ...) able to produce output devices.
type Host interface {
	Name() string

	// DefaultOutputDevice returns the system default output device,
	// or an error matching ErrNoOutputDevice if there is none.
	DefaultOutputDevice() (Device, error)

	// Close releases the host API. Streams must be closed first.
	Close() error
}

// Device is an output device of a Host.
type Device interface {
	Name() string

	SupportedOutputConfigs() ([]SupportedConfig, error)

	// BuildOutputStream opens a stream in the stopped state. Audio is requested
	// through fill only after Play.
	BuildOutputStream(config StreamConfig, fill FillFunc, onError ErrorFunc) (Stream, error)
}

// Stream is an open output stream owned by a Device.
//
// Play and Pause are idempotent. Close releases the hardware handle; the stream
// cannot be used afterwards.
type Stream interface {
	Play() error
	Pause() error
	Close() error
}

func formatConfigs(configs []SupportedConfig) string {
	parts := make([]string, len(configs))
	for i, c := range configs {
		parts[i] = c.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
