package beat

import (
	"fmt"
	"math"
	"sort"

	"github.com/himanishpuri/discgenius/pkg/discgenius/spectral"
	"gonum.org/v1/gonum/stat"
)

// Tracker finds beat onsets in a mono signal. Times are seconds from the
// start of mono. bpmHint is the expected tempo, or 0 if unknown.
type Tracker interface {
	Track(mono []float64, sampleRate int, bpmHint float64) (beats []float64, bpm float64, err error)
}

// DPTracker is a dynamic-programming beat tracker over a spectral-flux
// onset envelope (Ellis, "Beat Tracking by Dynamic Programming", 2007).
type DPTracker struct {
	WindowSize int
	HopSize    int
	// Tightness penalizes deviation from the estimated period.
	Tightness float64
	MinBPM    float64
	MaxBPM    float64
}

func NewDPTracker() *DPTracker {
	return &DPTracker{
		WindowSize: spectral.WindowSize,
		HopSize:    spectral.HopSize,
		Tightness:  100,
		MinBPM:     40,
		MaxBPM:     240,
	}
}

func (d *DPTracker) Track(mono []float64, sampleRate int, bpmHint float64) ([]float64, float64, error) {
	if sampleRate <= 0 {
		return nil, 0, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if len(mono) == 0 {
		return nil, 0, nil
	}

	env, err := OnsetEnvelope(mono, d.WindowSize, d.HopSize)
	if err != nil {
		return nil, 0, err
	}

	fps := float64(sampleRate) / float64(d.HopSize)
	tempo := EstimateTempo(env, fps, bpmHint, d.MinBPM, d.MaxBPM)
	if tempo == 0 {
		return nil, 0, nil
	}

	frames, local := trackBeats(env, 60*fps/tempo, d.Tightness)
	beats := make([]float64, len(frames))
	hop := float64(d.HopSize) / float64(sampleRate)
	for i, f := range frames {
		beats[i] = refineFrame(local, f) * hop
		if i > 0 && beats[i] <= beats[i-1] {
			beats[i] = float64(f) * hop
		}
	}

	if bpm := GridBPM(beats); bpm > 0 {
		tempo = bpm
	}
	return beats, tempo, nil
}

// refineFrame moves a beat frame to the vertex of the parabola through the
// local score around it. The offset stays within half a frame.
func refineFrame(local []float64, f int) float64 {
	if f <= 0 || f >= len(local)-1 {
		return float64(f)
	}
	a, b, c := local[f-1], local[f], local[f+1]
	den := a - 2*b + c
	if den >= 0 {
		return float64(f)
	}
	offset := 0.5 * (a - c) / den
	return float64(f) + math.Max(-0.5, math.Min(0.5, offset))
}

// GridBPM fits beat time against beat index by least squares and converts
// the slope to a tempo. Quantization to analysis frames averages out over
// the grid, unlike a per-interval estimate.
func GridBPM(beats []float64) float64 {
	if len(beats) < 2 {
		return 0
	}
	idx := make([]float64, len(beats))
	for i := range idx {
		idx[i] = float64(i)
	}
	_, period := stat.LinearRegression(idx, beats, nil, false)
	if period <= 0 || math.IsNaN(period) {
		return 0
	}
	return 60 / period
}

// trackBeats returns beat frame indices for an onset envelope and a beat
// period in frames, along with the local score they were picked from.
func trackBeats(env []float64, period, tightness float64) ([]int, []float64) {
	std := stat.StdDev(env, nil)
	if std == 0 || math.IsNaN(std) || period < 1 {
		return nil, nil
	}

	norm := make([]float64, len(env))
	for i, v := range env {
		norm[i] = v / std
	}
	local := localScore(norm, period)

	cum, back := cumulativeScore(local, period, tightness)

	last := lastBeat(cum)
	if last < 0 {
		return nil, nil
	}

	beats := []int{last}
	for b := back[last]; b >= 0; b = back[b] {
		beats = append(beats, b)
	}
	for i, j := 0, len(beats)-1; i < j; i, j = i+1, j-1 {
		beats[i], beats[j] = beats[j], beats[i]
	}
	return trimBeats(local, beats), local
}

// localScore smooths the envelope with a Gaussian of std period/32.
func localScore(env []float64, period float64) []float64 {
	half := int(math.Round(period))
	kernel := make([]float64, 2*half+1)
	for j := -half; j <= half; j++ {
		x := float64(j) * 32 / period
		kernel[j+half] = math.Exp(-0.5 * x * x)
	}

	out := make([]float64, len(env))
	for t := range env {
		var s float64
		for j, w := range kernel {
			if i := t + j - half; i >= 0 && i < len(env) {
				s += w * env[i]
			}
		}
		out[t] = s
	}
	return out
}

func cumulativeScore(local []float64, period, tightness float64) ([]float64, []int) {
	n := len(local)
	cum := make([]float64, n)
	back := make([]int, n)

	maxLocal := 0.0
	for _, v := range local {
		maxLocal = math.Max(maxLocal, v)
	}

	from := int(math.Round(2 * period))
	to := int(math.Round(period / 2))
	firstBeat := true

	for t := 0; t < n; t++ {
		best := math.Inf(-1)
		bestIdx := -1
		for tau := t - from; tau <= t-to; tau++ {
			penalty := math.Log(float64(t-tau) / period)
			score := -tightness * penalty * penalty
			if tau >= 0 {
				score += cum[tau]
			}
			if score > best {
				best, bestIdx = score, tau
			}
		}

		cum[t] = local[t] + best
		if (firstBeat && local[t] < 0.01*maxLocal) || bestIdx < 0 {
			back[t] = -1
		} else {
			back[t] = bestIdx
			firstBeat = false
		}
	}
	return cum, back
}

// lastBeat is the latest local maximum of cum above half the median of all
// local maxima.
func lastBeat(cum []float64) int {
	var peaks []int
	for t := 1; t < len(cum)-1; t++ {
		if cum[t] > cum[t-1] && cum[t] >= cum[t+1] {
			peaks = append(peaks, t)
		}
	}
	if len(peaks) == 0 {
		return -1
	}

	values := make([]float64, len(peaks))
	for i, p := range peaks {
		values[i] = cum[p]
	}
	sort.Float64s(values)
	med := stat.Quantile(0.5, stat.Empirical, values, nil)

	for i := len(peaks) - 1; i >= 0; i-- {
		if 2*cum[peaks[i]] > med {
			return peaks[i]
		}
	}
	return -1
}

// trimBeats drops weak leading and trailing beats: those whose
// Hann-smoothed local score is below half the RMS.
func trimBeats(local []float64, beats []int) []int {
	if len(beats) == 0 {
		return beats
	}

	vals := make([]float64, len(beats))
	for i, b := range beats {
		vals[i] = local[b]
	}
	smooth := make([]float64, len(vals))
	var sumSq float64
	for i := range vals {
		s := vals[i]
		if i > 0 {
			s += 0.5 * vals[i-1]
		}
		if i+1 < len(vals) {
			s += 0.5 * vals[i+1]
		}
		smooth[i] = s
		sumSq += s * s
	}
	threshold := 0.5 * math.Sqrt(sumSq/float64(len(smooth)))

	lo, hi := 0, len(beats)-1
	for lo <= hi && smooth[lo] < threshold {
		lo++
	}
	for hi >= lo && smooth[hi] < threshold {
		hi--
	}
	return beats[lo : hi+1]
}
