package dp

import "slices"

const (
	// Violated marks a channel that left the last mode of its sequence
	// before its minimum dwell time elapsed.
	Violated = -2.0
	// dwellEps keeps a freshly reset timer strictly positive after the
	// next decrement when the duration is a multiple of the time step.
	dwellEps = 1e-9
)

// Constraint is a minimum dwell time constraint.
//
// Sequence is the ordered list of mode values a channel is allowed to
// progress through. Durations holds the minimum dwell time per channel.
type Constraint struct {
	Sequence  []float64
	Durations []float64
}

// advance evolves timers y of every channel over the transition vi -> vni.
// It returns a new slice; y is left untouched.
func (c Constraint) advance(y, vi, vni []float64, dt float64) []float64 {
	last := c.Sequence[len(c.Sequence)-1]
	next := make([]float64, len(y))

	for k := range y {
		yk := y[k] - dt
		next[k] = yk
		if yk <= 0 {
			next[k] = 0
		}

		if vni[k] == vi[k] {
			continue
		}

		if yk > 0 && vi[k] == last {
			next[k] = Violated
			continue
		}

		switch pos := slices.Index(c.Sequence, vni[k]); {
		case pos == 0:
			next[k] = c.Durations[k] + dwellEps
		case pos > 0 && c.Sequence[pos-1] != vi[k]:
			next[k] = 0
		}
	}

	return next
}

// violated reports whether any timer carries the violation mark.
func violated(timers [][]float64) bool {
	for _, y := range timers {
		if slices.Contains(y, Violated) {
			return true
		}
	}
	return false
}
