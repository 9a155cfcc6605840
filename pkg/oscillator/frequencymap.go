package oscillator

import "math"

// FrequencyMap remaps a bipolar amplitude in [-1.0, 1.0] into a strictly
// positive frequency band:
//
//	+1.0         _                          _
//	           /  \                       /  \     /
//	         /     \                    /     \  /
//	      ----------+---------       ----------_------
//	                 \    /
//	                  \  /
//	-1.0               -
//
// The wave is crushed in half, shifted up half a step and multiplied by Scale,
// giving (x/2 + 0.5) * Scale. Results below FloorHz are raised to FloorHz, so the
// audible oscillator never sees a zero or negative frequency.
type FrequencyMap struct {
	Scale   float64
	FloorHz float64
}

func (f FrequencyMap) Apply(x float64) float64 {
	x = math.Max(-1, math.Min(1, x))
	return math.Max(f.FloorHz, (x/2+0.5)*f.Scale)
}

// PeakHz is the highest frequency the map can produce.
func (f FrequencyMap) PeakHz() float64 {
	return math.Max(f.FloorHz, f.Scale)
}
