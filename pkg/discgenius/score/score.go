// Package score rates candidate transition windows by how little the
// spectrum changes inside each half of the window.
package score

import (
	"fmt"

	"github.com/himanishpuri/discgenius/pkg/discgenius/segment"
	"github.com/himanishpuri/discgenius/pkg/discgenius/spectral"
	"github.com/himanishpuri/discgenius/pkg/logger"
	"github.com/himanishpuri/discgenius/pkg/models"
	"gonum.org/v1/gonum/floats"
)

const DefaultSentinel = 1000

// Bias selects which end of a track may host the transition.
type Bias int

const (
	// Incoming tracks are mixed in near their start.
	Incoming Bias = iota
	// Outgoing tracks are mixed out near their end.
	Outgoing
)

func (b Bias) String() string {
	if b == Outgoing {
		return "outgoing"
	}
	return "incoming"
}

type Params struct {
	segment.Params
	// MixArea is the fraction of candidates, counted from the biased end,
	// that may be scored.
	MixArea float64
	// Sentinel is assigned to every candidate outside the mix area.
	Sentinel float64
}

// Scores is indexed by candidate ordinal. Lower is better.
type Scores []float64

type Scorer struct {
	WindowSize int
	HopSize    int
	log        logger.Interface
}

func NewScorer(log logger.Interface) *Scorer {
	if log == nil {
		log = logger.Discard()
	}
	return &Scorer{WindowSize: spectral.WindowSize, HopSize: spectral.HopSize, log: log}
}

// Zone returns the half-open range of eligible ordinals among n
// candidates. It is never empty when n > 0.
func Zone(n int, mixArea float64, bias Bias) (lo, hi int) {
	if n == 0 {
		return 0, 0
	}
	if bias == Outgoing {
		lo = min(max(int(float64(n)*(1-mixArea)), 0), n-1)
		return lo, n
	}
	hi = min(max(int(float64(n)*mixArea), 1), n)
	return 0, hi
}

// Score rates every candidate of seg. Inside the zone a candidate's score
// is the summed distance of every clip in the first half to the clip at
// the window start, plus the same for the second half anchored at the
// midpoint. Anchors are not compared with themselves.
func (s *Scorer) Score(seg *segment.Segmentation, p Params, bias Bias) (Scores, error) {
	if err := p.Params.Validate(); err != nil {
		return nil, err
	}
	if p.MixArea <= 0 || p.MixArea > 1 {
		return nil, &models.ParamError{Param: "mix_area", Value: p.MixArea, Reason: "must be in (0, 1]"}
	}

	n := len(seg.Candidates())
	lo, hi := Zone(n, p.MixArea, bias)
	s.log.Debugf("Scoring %d of %d %s candidates", hi-lo, n, bias)

	fp := &fingerprints{scorer: s, clips: seg.Clips, memo: make(map[int][]float64)}
	scores := make(Scores, n)
	for si := range scores {
		if si < lo || si >= hi {
			scores[si] = p.Sentinel
			continue
		}

		base := si * seg.Step
		first, err := fp.spread(base, p.Midpoint, p.ClipSize)
		if err != nil {
			return nil, err
		}
		second, err := fp.spread(base+p.Midpoint, p.TransitionLength-p.Midpoint, p.ClipSize)
		if err != nil {
			return nil, err
		}
		scores[si] = first + second
	}
	return scores, nil
}

// Distance is the mean absolute per-bin difference of two fingerprints.
func Distance(a, b []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	return floats.Distance(a, b, 1) / float64(len(a))
}

// Fingerprint is the per-bin mean magnitude spectrum of clip. An empty
// clip yields a zero spectrum.
func (s *Scorer) Fingerprint(clip []float64) ([]float64, error) {
	if len(clip) == 0 {
		return make([]float64, s.WindowSize/2+1), nil
	}
	frames, err := spectral.CenteredSTFT(clip, s.WindowSize, s.HopSize)
	if err != nil {
		return nil, err
	}
	return spectral.AverageSpectrum(frames), nil
}

type fingerprints struct {
	scorer *Scorer
	clips  map[int][]float64
	memo   map[int][]float64
}

func (f *fingerprints) get(i int) ([]float64, error) {
	if v, ok := f.memo[i]; ok {
		return v, nil
	}
	clip, ok := f.clips[i]
	if !ok {
		return nil, fmt.Errorf("no clip at beat %d", i)
	}
	v, err := f.scorer.Fingerprint(clip)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint clip %d: %w", i, err)
	}
	f.memo[i] = v
	return v, nil
}

// spread sums the distances from the anchor clip to each later clip that
// starts inside span beats.
func (f *fingerprints) spread(anchor, span, clipSize int) (float64, error) {
	ref, err := f.get(anchor)
	if err != nil {
		return 0, err
	}
	var total float64
	for k := 1; k < span/clipSize; k++ {
		other, err := f.get(anchor + k*clipSize)
		if err != nil {
			return 0, err
		}
		total += Distance(ref, other)
	}
	return total, nil
}
