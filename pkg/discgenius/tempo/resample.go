// Package tempo changes a track's tempo by resampling it and keeping the
// original sample rate, which shifts pitch together with speed.
package tempo

import (
	"errors"
	"math"

	"github.com/himanishpuri/discgenius/pkg/models"
	"github.com/mjibson/go-dsp/window"
	"golang.org/x/sync/errgroup"
)

const (
	zeroCrossings = 32
	phases        = 512
)

// kernel holds one side of a Blackman-tapered sinc sampled at phases
// points per zero crossing.
var kernel = buildKernel()

func buildKernel() []float64 {
	n := zeroCrossings*phases + 1
	taper := window.Blackman(2*n - 1)

	k := make([]float64, n+1)
	k[0] = 1
	for i := 1; i < n; i++ {
		x := math.Pi * float64(i) / phases
		k[i] = math.Sin(x) / x * taper[n-1+i]
	}
	return k
}

func kernelAt(s float64) float64 {
	pos := s * phases
	i := int(pos)
	if i >= zeroCrossings*phases {
		return 0
	}
	frac := pos - float64(i)
	return kernel[i] + frac*(kernel[i+1]-kernel[i])
}

// Resample converts x from fromRate to toRate with a band-limited
// windowed-sinc interpolator. When downsampling the cutoff follows the
// target Nyquist frequency.
func Resample(x []float64, fromRate, toRate int) ([]float64, error) {
	if fromRate <= 0 || toRate <= 0 {
		return nil, errors.New("sample rates must be positive")
	}
	if fromRate == toRate {
		out := make([]float64, len(x))
		copy(out, x)
		return out, nil
	}

	outLen := int(int64(len(x)) * int64(toRate) / int64(fromRate))
	out := make([]float64, outLen)

	step := float64(fromRate) / float64(toRate)
	cutoff := math.Min(1, float64(toRate)/float64(fromRate))
	halfWidth := float64(zeroCrossings) / cutoff

	for j := range out {
		t := float64(j) * step
		lo := max(int(math.Ceil(t-halfWidth)), 0)
		hi := min(int(math.Floor(t+halfWidth)), len(x)-1)

		var acc float64
		for i := lo; i <= hi; i++ {
			acc += x[i] * kernelAt(math.Abs(t-float64(i))*cutoff)
		}
		out[j] = acc * cutoff
	}
	return out, nil
}

// resampleChannels runs Resample on both channels of track concurrently.
// A mono track yields a nil right channel.
func resampleChannels(track *models.Track, fromRate, toRate int) (left, right []float64, err error) {
	var g errgroup.Group
	g.Go(func() error {
		var err error
		left, err = Resample(track.Left, fromRate, toRate)
		return err
	})
	if track.Channels == 2 {
		g.Go(func() error {
			var err error
			right, err = Resample(track.Right, fromRate, toRate)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

// ResampleTrack converts track to sampleRate without changing its tempo.
func ResampleTrack(track *models.Track, sampleRate int) (*models.Track, error) {
	if track.SampleRate == sampleRate {
		return track, nil
	}
	left, right, err := resampleChannels(track, track.SampleRate, sampleRate)
	if err != nil {
		return nil, err
	}
	return models.NewTrack(track.Name, left, right, sampleRate, track.BPM)
}
