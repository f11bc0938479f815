package transition

import (
	"math"

	"github.com/himanishpuri/discgenius/pkg/models"
)

// ComputeFrames converts every point to a frame index at sampleRate.
func ComputeFrames(sampleRate int, p models.TransitionPoints) (models.FrameSpan, error) {
	if sampleRate <= 0 {
		return models.FrameSpan{}, &models.ParamError{Param: "sample_rate", Value: sampleRate, Reason: "must be positive"}
	}
	names := [...]string{"a", "b", "x", "c", "d", "e"}
	for i, v := range [...]float64{p.A, p.B, p.X, p.C, p.D, p.E} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return models.FrameSpan{}, &models.ParamError{Param: names[i], Value: v, Reason: "must be a finite, non-negative time"}
		}
	}

	sr := float64(sampleRate)
	toFrame := func(t float64) int { return int(math.Round(t * sr)) }

	f := models.FrameSpan{
		UntilA: toFrame(p.A),
		UntilB: toFrame(p.B),
		UntilC: toFrame(p.C),
		UntilD: toFrame(p.D),
		UntilE: toFrame(p.E),
		UntilX: toFrame(p.X),
	}
	f.BetweenCAndD = f.UntilD - f.UntilC
	f.BetweenDAndE = f.UntilE - f.UntilD
	return f, nil
}

// CheckBounds fails when the span runs past either track.
func CheckBounds(f models.FrameSpan, framesA, framesB, sampleRate int) error {
	if f.UntilE > framesA {
		return &models.BoundsError{
			Track:    "A",
			Boundary: float64(f.UntilE) / float64(sampleRate),
			Duration: float64(framesA) / float64(sampleRate),
		}
	}
	if f.UntilX > framesB {
		return &models.BoundsError{
			Track:    "B",
			Boundary: float64(f.UntilX) / float64(sampleRate),
			Duration: float64(framesB) / float64(sampleRate),
		}
	}
	return nil
}
