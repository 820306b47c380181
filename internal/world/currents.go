package world

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// Currents is a slowly shifting pull on each room, sampled from 2D simplex
// noise over (room index, tick). Wandering guests drift toward rooms whose
// current is strong this tick, so the hotel has tides instead of uniform
// random traffic.
type Currents struct {
	noise     opensimplex.Noise
	frequency float64
}

// NewCurrents creates a deterministic current field from seed.
func NewCurrents(seed int64) *Currents {
	return &Currents{
		noise:     opensimplex.NewNormalized(seed),
		frequency: 0.15,
	}
}

// Pull returns the strength of the current toward room at tick, in [0, 1].
func (c *Currents) Pull(room string, tick int64) float64 {
	idx := -1
	for i, r := range Rooms {
		if r.ID == room {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0
	}
	// Rooms are spaced far apart on the x axis so their tides are independent.
	return c.noise.Eval2(float64(idx)*7.3, float64(tick)*c.frequency)
}

// Choose picks a room from candidates with probability proportional to its
// pull at tick. roll is a uniform draw in [0, 1). A nil Currents or an empty
// field falls back to uniform choice.
func (c *Currents) Choose(candidates []string, tick int64, roll float64) string {
	if len(candidates) == 0 {
		return ""
	}
	uniform := candidates[int(roll*float64(len(candidates)))%len(candidates)]
	if c == nil {
		return uniform
	}

	weights := make([]float64, len(candidates))
	total := 0.0
	for i, id := range candidates {
		// Floor keeps every room reachable even at low tide.
		w := 0.1 + c.Pull(id, tick)
		weights[i] = w
		total += w
	}
	if total <= 0 {
		return uniform
	}

	target := roll * total
	for i, w := range weights {
		if target < w {
			return candidates[i]
		}
		target -= w
	}
	return candidates[len(candidates)-1]
}
