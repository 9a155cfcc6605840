package oscillator

import (
	"github.com/go-audio/audio"
)

// Stream is the infinite sample sequence of the modulated tone.
//
// A Stream has exactly one consumer: once handed to an output device, only the
// device callback may call Next or Fill. It cannot be rewound; build a new Stream
// to start again from sample zero.
type Stream struct {
	params    Params
	carrier   *Sine
	frequency *ModulatedHz
	tone      *Sine
	position  uint64
}

// NewStream validates params and builds the oscillator graph:
// a constant carrier, mapped into a frequency band, driving an audible sine.
func NewStream(params Params) (*Stream, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	rate := float64(params.SampleRate)
	carrier := NewSine(ConstHz(rate, params.CarrierHz))
	frequency := NewModulatedHz(rate, NewMap(carrier, params.FrequencyMap().Apply))

	return &Stream{
		params:    params,
		carrier:   carrier,
		frequency: frequency,
		tone:      NewSine(frequency),
	}, nil
}

// Next returns the next sample, in [-Amplitude, Amplitude].
func (s *Stream) Next() float32 {
	s.position++
	return float32(s.params.Amplitude * s.tone.Next())
}

// Fill writes one sample into every element of out.
func (s *Stream) Fill(out []float32) {
	for i := range out {
		out[i] = s.Next()
	}
}

// Render pulls the next frames samples into a mono buffer.
// It allocates and must not be called from a real-time callback.
func (s *Stream) Render(frames int) *audio.Float32Buffer {
	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  s.params.SampleRate,
		},
		Data:           make([]float32, frames),
		SourceBitDepth: 32,
	}
	s.Fill(buf.Data)
	return buf
}

// Position is the number of samples pulled so far.
func (s *Stream) Position() uint64 {
	return s.position
}

// InstantaneousHz is the frequency the audible oscillator used for the most
// recent sample. It is zero before the first sample.
func (s *Stream) InstantaneousHz() float64 {
	return s.frequency.Hz()
}
