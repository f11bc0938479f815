package beat

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// EstimateTempo picks the autocorrelation lag of env with the highest
// weight under a log-normal prior (one octave wide) centered on hintBPM.
// framesPerSecond is sampleRate/hop. It returns 0 when env carries no
// periodicity in [minBPM, maxBPM].
func EstimateTempo(env []float64, framesPerSecond, hintBPM, minBPM, maxBPM float64) float64 {
	if hintBPM <= 0 {
		hintBPM = 120
	}
	minLag := int(math.Floor(60 * framesPerSecond / maxBPM))
	maxLag := int(math.Ceil(60 * framesPerSecond / minBPM))
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(env)-1 {
		maxLag = len(env) - 2
	}
	if maxLag <= minLag {
		return 0
	}

	mean := stat.Mean(env, nil)
	centered := make([]float64, len(env))
	for i, v := range env {
		centered[i] = v - mean
	}

	weighted := make([]float64, maxLag+2)
	best := -1
	for lag := minLag; lag <= maxLag+1 && lag < len(env); lag++ {
		var ac float64
		for t := 0; t+lag < len(centered); t++ {
			ac += centered[t] * centered[t+lag]
		}
		ac /= float64(len(centered) - lag)

		bpm := 60 * framesPerSecond / float64(lag)
		prior := math.Exp(-0.5 * math.Pow(math.Log2(bpm)-math.Log2(hintBPM), 2))
		weighted[lag] = ac * prior
		if lag <= maxLag && ac > 0 && (best < 0 || weighted[lag] > weighted[best]) {
			best = lag
		}
	}
	if best < 0 {
		return 0
	}

	lag := float64(best)
	if best > minLag && best+1 < len(weighted) {
		y0, y1, y2 := weighted[best-1], weighted[best], weighted[best+1]
		if denom := y0 - 2*y1 + y2; denom < 0 {
			lag += 0.5 * (y0 - y2) / denom
		}
	}
	return 60 * framesPerSecond / lag
}
