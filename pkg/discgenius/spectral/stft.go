// Package spectral provides the short-time Fourier transform used by beat
// tracking and clip fingerprinting.
package spectral

import (
	"errors"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	WindowSize = 2048
	HopSize    = 512
)

// Hamming returns an n-point Hamming window.
func Hamming(n int) []float64 {
	return window.Hamming(n)
}

// MagnitudeSpectrum returns |X[k]| for the non-negative frequencies,
// including the Nyquist bin.
func MagnitudeSpectrum(spectrum []complex128) []float64 {
	half := len(spectrum)/2 + 1
	if half > len(spectrum) {
		half = len(spectrum)
	}
	mag := make([]float64, half)
	for i := 0; i < half; i++ {
		mag[i] = cmplx.Abs(spectrum[i])
	}
	return mag
}

// STFT returns magnitude frames indexed [frame][bin]. Frames start at
// multiples of hopSize and never run past the end of samples.
func STFT(samples []float64, windowSize, hopSize int, win []float64) ([][]float64, error) {
	if len(win) != windowSize {
		return nil, errors.New("window length must equal windowSize")
	}
	if hopSize <= 0 {
		return nil, errors.New("hop size must be positive")
	}
	if len(samples) < windowSize {
		return nil, errors.New("input shorter than window size")
	}

	frames := make([][]float64, 0, (len(samples)-windowSize)/hopSize+1)
	frame := make([]float64, windowSize)
	for start := 0; start+windowSize <= len(samples); start += hopSize {
		for i := 0; i < windowSize; i++ {
			frame[i] = samples[start+i] * win[i]
		}
		frames = append(frames, MagnitudeSpectrum(fft.FFTReal(frame)))
	}
	return frames, nil
}

// CenteredSTFT zero-pads windowSize/2 samples on both sides so that frame t
// is centered on sample t*hopSize. Any non-empty input yields at least one
// frame.
func CenteredSTFT(samples []float64, windowSize, hopSize int) ([][]float64, error) {
	if len(samples) == 0 {
		return nil, errors.New("samples cannot be empty")
	}
	pad := windowSize / 2
	padded := make([]float64, len(samples)+2*pad)
	copy(padded[pad:], samples)
	return STFT(padded, windowSize, hopSize, Hamming(windowSize))
}

// AverageSpectrum collapses the time axis, returning the mean magnitude of
// each bin.
func AverageSpectrum(frames [][]float64) []float64 {
	if len(frames) == 0 {
		return nil
	}
	avg := make([]float64, len(frames[0]))
	for _, f := range frames {
		for k, v := range f {
			avg[k] += v
		}
	}
	n := float64(len(frames))
	for k := range avg {
		avg[k] /= n
	}
	return avg
}
