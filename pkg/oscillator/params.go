package oscillator

import (
	"fmt"
	"math"
)

const (
	DefaultSampleRate     = 48_000
	DefaultCarrierHz      = 1.3
	DefaultScale          = 400.0
	DefaultMinFrequencyHz = 1.0
	DefaultAmplitude      = 1.0
)

// Params describe the modulated tone.
type Params struct {
	// Sample rate of the stream in Hz. Constant for the lifetime of a Stream.
	SampleRate int

	// Frequency of the low-frequency carrier in Hz.
	CarrierHz float64

	// Upper bound of the band the carrier is mapped into, in Hz.
	// 400 gives the classic arcade warble, 4000 a much wider sweep.
	Scale float64

	// Lowest instantaneous frequency the audible oscillator may be driven at.
	MinFrequencyHz float64

	// Output gain in (0, 1].
	Amplitude float64
}

func DefaultParams() Params {
	return Params{
		SampleRate:     DefaultSampleRate,
		CarrierHz:      DefaultCarrierHz,
		Scale:          DefaultScale,
		MinFrequencyHz: DefaultMinFrequencyHz,
		Amplitude:      DefaultAmplitude,
	}
}

// ConfigurationError reports a parameter that cannot produce a valid stream.
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid oscillator %s %v: %s", e.Field, e.Value, e.Reason)
}

func (p Params) FrequencyMap() FrequencyMap {
	return FrequencyMap{Scale: p.Scale, FloorHz: p.MinFrequencyHz}
}

// Validate returns a *ConfigurationError for the first invalid field.
func (p Params) Validate() error {
	finite := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

	switch {
	case p.SampleRate <= 0:
		return &ConfigurationError{"sample rate", p.SampleRate, "must be positive"}
	case !finite(p.CarrierHz) || p.CarrierHz < 0:
		return &ConfigurationError{"carrier frequency", p.CarrierHz, "must be finite and not negative"}
	case !finite(p.Scale) || p.Scale <= 0:
		return &ConfigurationError{"scale", p.Scale, "must be finite and positive"}
	case !finite(p.MinFrequencyHz) || p.MinFrequencyHz <= 0:
		return &ConfigurationError{"minimum frequency", p.MinFrequencyHz, "must be finite and positive"}
	case !finite(p.Amplitude) || p.Amplitude <= 0 || p.Amplitude > 1:
		return &ConfigurationError{"amplitude", p.Amplitude, "must be in (0, 1]"}
	}

	nyquist := float64(p.SampleRate) / 2
	if peak := p.FrequencyMap().PeakHz(); peak >= nyquist {
		return &ConfigurationError{"scale", p.Scale, fmt.Sprintf("peak frequency %gHz reaches nyquist %gHz", peak, nyquist)}
	}
	if p.CarrierHz >= nyquist {
		return &ConfigurationError{"carrier frequency", p.CarrierHz, fmt.Sprintf("reaches nyquist %gHz", nyquist)}
	}
	return nil
}
