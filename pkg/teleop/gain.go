package teleop

import "math"

// gainScale is the grid gains are rounded to after each step, so that
// repeated decimal steps land on the decimal value (0.4 + 16*0.1 == 2.0).
const gainScale = 1e9

// Gain is a scalar bounded by [Min, Max].
type Gain struct {
	Value float64 `json:"value"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// GainState holds the two independent gains.
type GainState struct {
	Linear  Gain `json:"linear"`
	Angular Gain `json:"angular"`
}

// Increase adds step if the result stays within Max. Reports whether it changed.
func (g *Gain) Increase(step float64) bool {
	next := snap(g.Value + step)
	if next > snap(g.Max) {
		return false
	}
	g.Value = next
	return true
}

// Decrease subtracts step if the result stays within Min. Reports whether it changed.
func (g *Gain) Decrease(step float64) bool {
	next := snap(g.Value - step)
	if next < snap(g.Min) {
		return false
	}
	g.Value = next
	return true
}

func snap(v float64) float64 {
	return math.Round(v*gainScale) / gainScale
}
