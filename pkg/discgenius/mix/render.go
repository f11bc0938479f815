// Package mix renders the audio of a transition found between two
// tempo-aligned tracks.
package mix

import (
	"fmt"
	"slices"

	"github.com/himanishpuri/discgenius/pkg/models"
)

// Render returns A up to C, the two blended transition segments, then B
// from X to its end. Both tracks must share a sample rate.
func Render(name string, a, b *models.Track, span models.FrameSpan, sc Scenario) (*models.Track, error) {
	sr := models.MustMatchSampleRate(a, b)

	cd, de := span.BetweenCAndD, span.BetweenDAndE
	if span.UntilC+cd+de > a.Frames() {
		return nil, &models.BoundsError{Track: "A", Boundary: float64(span.UntilC+cd+de) / float64(sr), Duration: a.Duration()}
	}
	if span.UntilA+cd > b.Frames() || span.UntilB+de > b.Frames() || span.UntilX > b.Frames() {
		return nil, &models.BoundsError{Track: "B", Boundary: float64(span.UntilX) / float64(sr), Duration: b.Duration()}
	}

	left, err := renderChannel(a.Left, b.Left, span, sr, sc)
	if err != nil {
		return nil, err
	}
	right, err := renderChannel(a.Right, b.Right, span, sr, sc)
	if err != nil {
		return nil, err
	}
	return models.NewTrack(name, left, right, sr, a.BPM)
}

func renderChannel(a, b []float64, span models.FrameSpan, sr int, sc Scenario) ([]float64, error) {
	cd, de := span.BetweenCAndD, span.BetweenDAndE
	out := make([]float64, 0, span.UntilC+cd+de+len(b)-span.UntilX)
	out = append(out, a[:span.UntilC]...)

	seg1 := sc.Blend(Segment{
		A:          slices.Clone(a[span.UntilC : span.UntilC+cd]),
		B:          slices.Clone(b[span.UntilA : span.UntilA+cd]),
		Part:       1,
		Offset:     0,
		Total:      cd + de,
		SampleRate: sr,
	})
	seg2 := sc.Blend(Segment{
		A:          slices.Clone(a[span.UntilD : span.UntilD+de]),
		B:          slices.Clone(b[span.UntilB : span.UntilB+de]),
		Part:       2,
		Offset:     cd,
		Total:      cd + de,
		SampleRate: sr,
	})
	if len(seg1) != cd || len(seg2) != de {
		return nil, fmt.Errorf("scenario %s returned %d+%d frames, want %d+%d", sc.Name(), len(seg1), len(seg2), cd, de)
	}

	out = append(out, seg1...)
	out = append(out, seg2...)
	out = append(out, b[span.UntilX:]...)
	return out, nil
}
