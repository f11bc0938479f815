package models

import (
	"errors"
	"fmt"
	"math"
)

// Track is a decoded stereo audio buffer. Left, Right and Mono always have
// the same length; samples are normalized to [-1, 1].
type Track struct {
	Name       string    // Stable identifier, usually the file name without extension
	Left       []float64 // Left channel
	Right      []float64 // Right channel
	Mono       []float64 // (Left+Right)/2
	SampleRate int       // Hz
	Channels   int       // 1 or 2, as decoded
	BPM        float64   // Source tempo
}

// NewTrack builds a Track and derives its mono mix. A nil right channel
// duplicates the left one.
func NewTrack(name string, left, right []float64, sampleRate int, bpm float64) (*Track, error) {
	channels := 2
	if right == nil {
		right = left
		channels = 1
	}
	if len(left) != len(right) {
		return nil, fmt.Errorf("channel length mismatch: left=%d right=%d", len(left), len(right))
	}
	if sampleRate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}

	mono := make([]float64, len(left))
	for i := range left {
		mono[i] = (left[i] + right[i]) * 0.5
	}

	return &Track{
		Name:       name,
		Left:       left,
		Right:      right,
		Mono:       mono,
		SampleRate: sampleRate,
		Channels:   channels,
		BPM:        bpm,
	}, nil
}

// Frames returns the number of sample frames per channel.
func (t *Track) Frames() int {
	return len(t.Left)
}

// Duration returns the track length in seconds.
func (t *Track) Duration() float64 {
	if t.SampleRate == 0 {
		return 0
	}
	return float64(len(t.Left)) / float64(t.SampleRate)
}

// BeatGrid is a strictly increasing list of beat onsets in seconds together
// with the tempo that produced it. The JSON form is the on-disk cache record.
type BeatGrid struct {
	BPM   float64   `json:"bpm"`
	Beats []float64 `json:"beats"`
}

// Validate reports whether the grid can be segmented.
func (g *BeatGrid) Validate() error {
	if g == nil {
		return errors.New("beat grid is nil")
	}
	if len(g.Beats) < 2 {
		return fmt.Errorf("beat grid has %d beats, need at least 2", len(g.Beats))
	}
	for i, b := range g.Beats {
		if math.IsNaN(b) || math.IsInf(b, 0) || b < 0 {
			return fmt.Errorf("beat %d is not a valid time: %v", i, b)
		}
		if i > 0 && b <= g.Beats[i-1] {
			return fmt.Errorf("beat %d (%.4fs) does not follow beat %d (%.4fs)", i, b, i-1, g.Beats[i-1])
		}
	}
	return nil
}

// Window is one candidate transition span on a beat grid.
type Window struct {
	Start      float64 // beats[i]
	Midpoint   float64 // beats[i+midpoint]
	End        float64 // beats[i+length]
	StartIndex int     // i
}

// TransitionPoints are the six transition timestamps in seconds.
// C, D, E lie on song A's timeline; A, B, X on song B's.
type TransitionPoints struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	X float64 `json:"x"`
	C float64 `json:"c"`
	D float64 `json:"d"`
	E float64 `json:"e"`
}

// Validate checks chronological order and that every point lies inside its
// track. durationA and durationB are in seconds.
func (p TransitionPoints) Validate(durationA, durationB float64) error {
	names := [...]string{"a", "b", "x", "c", "d", "e"}
	for i, v := range [...]float64{p.A, p.B, p.X, p.C, p.D, p.E} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return &ParamError{Param: names[i], Value: v, Reason: "must be a finite, non-negative time"}
		}
	}
	if !(p.C < p.D && p.D < p.E) {
		return &ParamError{Param: "c,d,e", Value: p.C, Reason: "must satisfy c < d < e"}
	}
	if !(p.A < p.B && p.B < p.X) {
		return &ParamError{Param: "a,b,x", Value: p.A, Reason: "must satisfy a < b < x"}
	}
	if p.E > durationA {
		return &BoundsError{Track: "A", Boundary: p.E, Duration: durationA}
	}
	if p.X > durationB {
		return &BoundsError{Track: "B", Boundary: p.X, Duration: durationB}
	}
	return nil
}

// FrameSpan holds the transition points as sample-frame indices.
type FrameSpan struct {
	UntilA       int
	UntilB       int
	UntilC       int
	UntilD       int
	UntilE       int
	UntilX       int
	BetweenCAndD int
	BetweenDAndE int
}

// WithinBounds reports whether the span fits both tracks.
func (f FrameSpan) WithinBounds(framesA, framesB int) bool {
	for _, v := range []int{f.UntilA, f.UntilB, f.UntilC, f.UntilD, f.UntilE, f.UntilX, f.BetweenCAndD, f.BetweenDAndE} {
		if v < 0 {
			return false
		}
	}
	return f.UntilE <= framesA && f.UntilX <= framesB
}
