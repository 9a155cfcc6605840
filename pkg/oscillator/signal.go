package oscillator

import "math"

// Signal is an infinite source of values, advanced one sample per call to Next.
//
// Sine signals produce values in [-1.0, 1.0].
// A Signal is not safe for concurrent use.
type Signal interface {
	Next() float64
}

// Stepper yields the phase increment of an oscillator for the next sample,
// expressed as a fraction of one cycle (hz / sampleRate).
type Stepper interface {
	Step() float64
}

// --------------------------------------------------------------------------------

type constHz struct {
	step float64
	hz   float64
}

// ConstHz steps an oscillator at a fixed frequency.
func ConstHz(sampleRate float64, hz float64) Stepper {
	return &constHz{step: hz / sampleRate, hz: hz}
}

func (c *constHz) Step() float64 {
	return c.step
}

// ModulatedHz reads the instantaneous frequency of an oscillator from another
// signal, one value per sample. The frequency signal must yield values in Hz.
type ModulatedHz struct {
	sampleRate float64
	frequency  Signal
	last       float64
}

func NewModulatedHz(sampleRate float64, frequency Signal) *ModulatedHz {
	return &ModulatedHz{sampleRate: sampleRate, frequency: frequency}
}

func (m *ModulatedHz) Step() float64 {
	m.last = m.frequency.Next()
	return m.last / m.sampleRate
}

// Hz returns the frequency used for the most recent step.
func (m *ModulatedHz) Hz() float64 {
	return m.last
}

// --------------------------------------------------------------------------------

// Phase accumulates the steps of a Stepper, wrapped into [0, 1).
type Phase struct {
	stepper Stepper
	phase   float64
}

// next returns the current phase, then advances by one step.
func (p *Phase) next() float64 {
	current := p.phase
	p.phase = math.Mod(p.phase+p.stepper.Step(), 1)
	return current
}

// Sine is a sine oscillator whose frequency is given by a Stepper.
// The first value of every Sine is sin(0) = 0.
type Sine struct {
	phase Phase
}

func NewSine(stepper Stepper) *Sine {
	return &Sine{phase: Phase{stepper: stepper}}
}

func (s *Sine) Next() float64 {
	return math.Sin(2 * math.Pi * s.phase.next())
}

// --------------------------------------------------------------------------------

// Map applies fn to every value of the source signal.
type Map struct {
	source Signal
	fn     func(float64) float64
}

func NewMap(source Signal, fn func(float64) float64) *Map {
	return &Map{source: source, fn: fn}
}

func (m *Map) Next() float64 {
	return m.fn(m.source.Next())
}
