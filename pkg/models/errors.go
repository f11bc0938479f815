package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientBeats means the analyzed range did not yield enough
	// beats to build a single candidate window.
	ErrInsufficientBeats = errors.New("insufficient beat data")
	// ErrInvalidParameters means the request was rejected before analysis.
	ErrInvalidParameters = errors.New("invalid parameters")
	// ErrOutOfBounds means a transition boundary lies past the end of a track.
	ErrOutOfBounds = errors.New("transition window out of bounds")
)

// BeatDetectionError reports how many beats were found for a track.
type BeatDetectionError struct {
	Track string
	Found int
	Need  int
}

func (e *BeatDetectionError) Error() string {
	return fmt.Sprintf("%s: track %q has %d beats, need at least %d", ErrInsufficientBeats, e.Track, e.Found, e.Need)
}

func (e *BeatDetectionError) Unwrap() error { return ErrInsufficientBeats }

// ParamError names the offending request parameter.
type ParamError struct {
	Param  string
	Value  any
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: %s=%v %s", ErrInvalidParameters, e.Param, e.Value, e.Reason)
}

func (e *ParamError) Unwrap() error { return ErrInvalidParameters }

// BoundsError carries the boundary that overran the track.
type BoundsError struct {
	Track    string
	Boundary float64
	Duration float64
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("%s: track %s boundary %.3f exceeds duration %.3f", ErrOutOfBounds, e.Track, e.Boundary, e.Duration)
}

func (e *BoundsError) Unwrap() error { return ErrOutOfBounds }

// MustMatchSampleRate panics when two tracks disagree on sample rate. Every
// caller aligns both tracks to one rate first, so a mismatch is a bug.
func MustMatchSampleRate(a, b *Track) int {
	if a.SampleRate != b.SampleRate {
		panic(fmt.Sprintf("sample rate mismatch: %q=%d %q=%d", a.Name, a.SampleRate, b.Name, b.SampleRate))
	}
	return a.SampleRate
}
