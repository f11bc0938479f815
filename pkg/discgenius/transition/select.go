// Package transition turns candidate scores into transition points and
// sample-frame boundaries.
package transition

import (
	"errors"
	"math"

	"github.com/himanishpuri/discgenius/pkg/models"
)

// SelectBest returns the index of the lowest score. Ties resolve to the
// lowest index.
func SelectBest(scores []float64) (int, error) {
	if len(scores) == 0 {
		return 0, errors.New("no candidates to select from")
	}
	best := 0
	for i, v := range scores[1:] {
		if v < scores[best] {
			best = i + 1
		}
	}
	return best, nil
}

// FromWindows takes c, d and e from the outgoing window and a from the
// start of the incoming one. b and x follow so that both tracks spend the
// same time in each half of the transition.
func FromWindows(outgoing, incoming models.Window) models.TransitionPoints {
	p := models.TransitionPoints{
		C: outgoing.Start,
		D: outgoing.Midpoint,
		E: outgoing.End,
		A: incoming.Start,
	}
	p.B = p.A + (p.D - p.C)
	p.X = p.A + (p.E - p.C)
	return p
}

// Derive completes caller-supplied points. b and x are rounded to the
// millisecond.
func Derive(a, c, d, e float64) models.TransitionPoints {
	return models.TransitionPoints{
		A: a,
		B: roundMillis(a + (d - c)),
		X: roundMillis(a + (e - c)),
		C: c,
		D: d,
		E: e,
	}
}

func roundMillis(t float64) float64 {
	return math.Round(t*1000) / 1000
}
