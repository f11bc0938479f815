package mix

import (
	"fmt"
	"sort"
)

const (
	bassCutoffHz = 200.0
	bassCutDB    = -26.0
)

// Segment is one half of a transition for one channel. A and B have the
// same length.
type Segment struct {
	A, B       []float64
	Part       int // 1 for C-D, 2 for D-E
	Offset     int // frames from the start of the transition
	Total      int // frames in the whole transition
	SampleRate int
}

// Scenario blends the outgoing and incoming audio of a segment. A and B
// may be modified.
type Scenario interface {
	Name() string
	Blend(seg Segment) []float64
}

var scenarios = map[string]Scenario{
	"CF_1.0":  crossfade{},
	"VFF_1.0": volumeFade{factors: []float64{0.8, 0.7, 0.6, 0.5}},
	"EQ_1.0": eqSwap{
		gainsA: []float64{0, -0.5, -1, -1.7, -2.8, -3.8, -5.5, -7.5, -9.5, -20},
		gainsB: []float64{-20, -20, -16, -10, -7.5, -6, -4.5, -2.8, -1.2, 0},
	},
	"EQ_2.0": bassSwap{},
}

// Lookup returns the scenario registered under name.
func Lookup(name string) (Scenario, error) {
	sc, ok := scenarios[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q (have %v)", name, Names())
	}
	return sc, nil
}

func Names() []string {
	names := make([]string, 0, len(scenarios))
	for n := range scenarios {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func sum(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

// chunks splits n frames into parts runs and calls fn for each [start, end).
// The last run absorbs the remainder.
func chunks(n, parts int, fn func(i, start, end int)) {
	size := n / parts
	for i := 0; i < parts; i++ {
		start := i * size
		end := start + size
		if i == parts-1 {
			end = n
		}
		fn(i, start, end)
	}
}

// crossfade fades A out and B in along a smoothstep over the transition.
type crossfade struct{}

func (crossfade) Name() string { return "CF_1.0" }

func (crossfade) Blend(seg Segment) []float64 {
	out := make([]float64, len(seg.A))
	total := float64(max(seg.Total, 1))
	for i := range out {
		g := Smoothstep(float64(seg.Offset+i) / total)
		out[i] = seg.A[i]*(1-g) + seg.B[i]*g
	}
	return out
}

// volumeFade steps both volumes through factors, half of them per segment,
// and high-passes whichever track is not carrying the bass.
type volumeFade struct {
	factors []float64
}

func (volumeFade) Name() string { return "VFF_1.0" }

func (v volumeFade) Blend(seg Segment) []float64 {
	n := len(v.factors)
	steps := n / 2
	chunks(len(seg.A), steps, func(i, start, end int) {
		fa, fb := v.factors[i], v.factors[n-i-1]
		if seg.Part == 2 {
			fa, fb = fb, fa
		}
		scale(seg.A[start:end], fa)
		scale(seg.B[start:end], fb)
	})

	if seg.Part == 1 {
		highPass(seg.B, seg.SampleRate, bassCutoffHz)
	} else {
		highPass(seg.A, seg.SampleRate, bassCutoffHz)
	}
	return sum(seg.A, seg.B)
}

// eqSwap moves the mids and highs from A to B in steps of gainsA/gainsB
// (dB, half per segment) and swaps the bass at the midpoint.
type eqSwap struct {
	gainsA, gainsB []float64
}

func (eqSwap) Name() string { return "EQ_1.0" }

func (e eqSwap) Blend(seg Segment) []float64 {
	steps := len(e.gainsA) / 2
	first := 0
	if seg.Part == 2 {
		first = steps
	}

	var fa, fb Biquad
	chunks(len(seg.A), steps, func(i, start, end int) {
		fa.SetHighShelf(seg.SampleRate, bassCutoffHz, e.gainsA[first+i])
		fb.SetHighShelf(seg.SampleRate, bassCutoffHz, e.gainsB[first+i])
		fa.Process(seg.A[start:end])
		fb.Process(seg.B[start:end])
	})

	if seg.Part == 1 {
		lowShelf(seg.B, seg.SampleRate, bassCutoffHz, bassCutDB)
	} else {
		lowShelf(seg.A, seg.SampleRate, bassCutoffHz, bassCutDB)
	}
	return sum(seg.A, seg.B)
}

// bassSwap plays both tracks at full volume and keeps only one bass line:
// A's until the midpoint, B's after it.
type bassSwap struct{}

func (bassSwap) Name() string { return "EQ_2.0" }

func (bassSwap) Blend(seg Segment) []float64 {
	if seg.Part == 1 {
		lowShelf(seg.B, seg.SampleRate, bassCutoffHz, bassCutDB)
	} else {
		lowShelf(seg.A, seg.SampleRate, bassCutoffHz, bassCutDB)
	}
	return sum(seg.A, seg.B)
}
