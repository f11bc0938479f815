// Package segment cuts a beat grid into fixed-length clips and the
// candidate transition windows built from them.
package segment

import (
	"fmt"
	"sort"

	"github.com/himanishpuri/discgenius/pkg/models"
)

// Params are counted in beats.
type Params struct {
	ClipSize         int
	StepSize         int
	TransitionLength int
	Midpoint         int
}

func (p Params) Validate() error {
	switch {
	case p.ClipSize < 1:
		return &models.ParamError{Param: "clip_size", Value: p.ClipSize, Reason: "must be at least 1"}
	case p.StepSize < 1:
		return &models.ParamError{Param: "step_size", Value: p.StepSize, Reason: "must be at least 1"}
	case p.TransitionLength < 2:
		return &models.ParamError{Param: "transition_length", Value: p.TransitionLength, Reason: "must be at least 2"}
	case p.Midpoint <= 0 || p.Midpoint >= p.TransitionLength:
		return &models.ParamError{Param: "midpoint", Value: p.Midpoint, Reason: "must lie strictly inside the transition"}
	}
	return nil
}

// Segmentation maps beat indices to clips and candidate windows.
// Clip slices share the track's backing array.
type Segmentation struct {
	Clips map[int][]float64
	Areas map[int]models.Window
	Step  int
	keys  []int
}

// Segment builds clips of p.ClipSize beats starting on every beat, and a
// window every p.StepSize beats wherever a full transition still fits.
func Segment(grid *models.BeatGrid, mono []float64, sampleRate int, p Params) (*Segmentation, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if sampleRate <= 0 {
		return nil, &models.ParamError{Param: "sample_rate", Value: sampleRate, Reason: "must be positive"}
	}
	beats := grid.Beats

	seg := &Segmentation{
		Clips: make(map[int][]float64),
		Areas: make(map[int]models.Window),
		Step:  p.StepSize,
	}

	for i := 0; i < len(beats)-p.ClipSize; i++ {
		start := clamp(int(beats[i]*float64(sampleRate)), len(mono))
		end := clamp(int(beats[i+p.ClipSize]*float64(sampleRate)), len(mono))
		seg.Clips[i] = mono[start:end:end]
	}

	for i := 0; i < len(beats)-p.TransitionLength-p.ClipSize; i++ {
		if i%p.StepSize != 0 {
			continue
		}
		seg.Areas[i] = models.Window{
			Start:      beats[i],
			Midpoint:   beats[i+p.Midpoint],
			End:        beats[i+p.TransitionLength],
			StartIndex: i,
		}
		seg.keys = append(seg.keys, i)
	}

	if len(seg.Areas) == 0 {
		return nil, &models.BeatDetectionError{
			Found: len(beats),
			Need:  p.TransitionLength + p.ClipSize + 1,
		}
	}
	return seg, nil
}

func clamp(i, n int) int {
	return min(max(i, 0), n)
}

// Candidates returns the area keys in ascending order. Candidate ordinal
// si corresponds to key si*Step.
func (s *Segmentation) Candidates() []int {
	if s.keys == nil {
		s.keys = make([]int, 0, len(s.Areas))
		for k := range s.Areas {
			s.keys = append(s.keys, k)
		}
		sort.Ints(s.keys)
	}
	return s.keys
}

// Window returns the area for candidate ordinal si.
func (s *Segmentation) Window(si int) (models.Window, error) {
	w, ok := s.Areas[si*s.Step]
	if !ok {
		return models.Window{}, fmt.Errorf("no candidate window at ordinal %d", si)
	}
	return w, nil
}
