package beat

import (
	"fmt"
	"math"

	"github.com/himanishpuri/discgenius/pkg/discgenius/spectral"
)

// logCompression is γ in log(1 + γ|X|).
const logCompression = 100

// OnsetEnvelope returns the positive spectral flux of mono, one value per
// hop. Frames are centered, and the flux is delayed by windowSize/(2*hop)
// frames so a peak lines up with the transient rather than with the moment
// it enters the analysis window.
func OnsetEnvelope(mono []float64, windowSize, hopSize int) ([]float64, error) {
	frames, err := spectral.CenteredSTFT(mono, windowSize, hopSize)
	if err != nil {
		return nil, fmt.Errorf("failed to compute spectrogram: %w", err)
	}

	for _, f := range frames {
		for k, v := range f {
			f[k] = math.Log1p(logCompression * v)
		}
	}

	shift := windowSize / (2 * hopSize)
	env := make([]float64, len(frames))
	for t := 1; t < len(frames); t++ {
		idx := t + shift
		if idx >= len(env) {
			break
		}
		var flux float64
		for k, v := range frames[t] {
			if d := v - frames[t-1][k]; d > 0 {
				flux += d
			}
		}
		env[idx] = flux
	}
	return env, nil
}
