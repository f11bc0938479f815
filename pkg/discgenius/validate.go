package discgenius

import (
	"fmt"
	"math"

	"github.com/himanishpuri/discgenius/pkg/models"
)

const maxTransitionLength = 256

func (c *Config) validate() error {
	switch {
	case c.ClipSize < 1:
		return &models.ParamError{Param: "clip_size", Value: c.ClipSize, Reason: "must be at least 1"}
	case c.StepSize < 1:
		return &models.ParamError{Param: "step_size", Value: c.StepSize, Reason: "must be at least 1"}
	case c.MixArea <= 0 || c.MixArea > 1:
		return &models.ParamError{Param: "mix_area", Value: c.MixArea, Reason: "must be in (0, 1]"}
	case c.MinBPM <= 0 || c.MaxBPM <= c.MinBPM:
		return &models.ParamError{Param: "bpm_limits", Value: [2]float64{c.MinBPM, c.MaxBPM}, Reason: "need 0 < min < max"}
	case c.MaxBPMDiff < 0:
		return &models.ParamError{Param: "max_bpm_diff", Value: c.MaxBPMDiff, Reason: "must not be negative"}
	}
	return nil
}

// validateRequest checks everything that does not depend on a track's
// tempo. It runs before any analysis.
func (s *discService) validateRequest(req TransitionRequest) error {
	if req.TrackA == nil || req.TrackA.Frames() == 0 {
		return &models.ParamError{Param: "track_a", Value: nil, Reason: "must contain audio"}
	}
	if req.TrackB == nil || req.TrackB.Frames() == 0 {
		return &models.ParamError{Param: "track_b", Value: nil, Reason: "must contain audio"}
	}

	fractions := [...]string{"entry_fraction", "exit_fraction"}
	for i, f := range [...]float64{req.EntryFraction, req.ExitFraction} {
		if math.IsNaN(f) || f < 0 || f > 1 {
			return &models.ParamError{Param: fractions[i], Value: f, Reason: "must be in [0, 1]"}
		}
	}
	if req.DesiredBPM < 0 || math.IsNaN(req.DesiredBPM) {
		return &models.ParamError{Param: "desired_bpm", Value: req.DesiredBPM, Reason: "must not be negative"}
	}
	if req.DesiredBPM > 0 {
		if err := s.checkBPMRange("desired_bpm", req.DesiredBPM); err != nil {
			return err
		}
	}

	if req.Points != nil {
		return s.validatePoints(*req.Points)
	}

	l, m := req.TransitionLength, req.Midpoint
	if l < 2 || l > maxTransitionLength {
		return &models.ParamError{Param: "transition_length", Value: l, Reason: fmt.Sprintf("must be in [2, %d]", maxTransitionLength)}
	}
	if m <= 0 || m >= l {
		return &models.ParamError{Param: "midpoint", Value: m, Reason: fmt.Sprintf("must be in (0, %d)", l)}
	}
	if s.cfg.ClipSize > m {
		return &models.ParamError{Param: "clip_size", Value: s.cfg.ClipSize, Reason: fmt.Sprintf("must not exceed the midpoint (%d)", m)}
	}
	return nil
}

func (s *discService) validatePoints(p models.TransitionPoints) error {
	names := [...]string{"a", "c", "d", "e"}
	for i, v := range [...]float64{p.A, p.C, p.D, p.E} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return &models.ParamError{Param: names[i], Value: v, Reason: "must be a finite, non-negative time"}
		}
	}
	minTime := s.cfg.MinSegmentTime
	if p.D-p.C < minTime {
		return &models.ParamError{Param: "d", Value: p.D, Reason: fmt.Sprintf("must be at least %gs after c", minTime)}
	}
	if p.E-p.D < minTime {
		return &models.ParamError{Param: "e", Value: p.E, Reason: fmt.Sprintf("must be at least %gs after d", minTime)}
	}
	if p.C >= p.D || p.D >= p.E {
		return &models.ParamError{Param: "c,d,e", Value: p.C, Reason: "must satisfy c < d < e"}
	}
	return nil
}

func (s *discService) checkBPMRange(name string, bpm float64) error {
	if bpm < s.cfg.MinBPM || bpm > s.cfg.MaxBPM {
		return &models.ParamError{
			Param:  name,
			Value:  bpm,
			Reason: fmt.Sprintf("must be between %g and %g", s.cfg.MinBPM, s.cfg.MaxBPM),
		}
	}
	return nil
}

// checkKnownTempos rejects out-of-range tempos before any track without
// one goes through beat tracking.
func (s *discService) checkKnownTempos(a, b *models.Track) error {
	if a.BPM > 0 {
		if err := s.checkBPMRange("bpm_a", a.BPM); err != nil {
			return err
		}
	}
	if b.BPM > 0 {
		if err := s.checkBPMRange("bpm_b", b.BPM); err != nil {
			return err
		}
	}
	return nil
}

// resolveDesiredBPM checks both tempos and returns the mix tempo.
func (s *discService) resolveDesiredBPM(bpmA, bpmB, desired float64) (float64, error) {
	if err := s.checkBPMRange("bpm_a", bpmA); err != nil {
		return 0, err
	}
	if err := s.checkBPMRange("bpm_b", bpmB); err != nil {
		return 0, err
	}
	if desired == 0 {
		desired = bpmA
	}

	maxDiff := s.cfg.MaxBPMDiff
	if math.Abs(bpmA-bpmB) > maxDiff {
		return 0, &models.ParamError{
			Param:  "bpm_b",
			Value:  bpmB,
			Reason: fmt.Sprintf("differs from %g by more than %g", bpmA, maxDiff),
		}
	}
	if math.Abs(bpmA-desired) > maxDiff || math.Abs(bpmB-desired) > maxDiff {
		return 0, &models.ParamError{
			Param:  "desired_bpm",
			Value:  desired,
			Reason: fmt.Sprintf("is more than %g away from a track tempo", maxDiff),
		}
	}
	return desired, nil
}
