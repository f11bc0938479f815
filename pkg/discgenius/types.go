package discgenius

import (
	"github.com/himanishpuri/discgenius/pkg/discgenius/score"
	"github.com/himanishpuri/discgenius/pkg/models"
)

// TransitionRequest describes a transition from TrackA (outgoing) into
// TrackB (incoming).
type TransitionRequest struct {
	TrackA *models.Track
	TrackB *models.Track

	TransitionLength int // beats
	Midpoint         int // beats from the window start

	DesiredBPM float64 // 0 keeps TrackA's tempo

	// EntryFraction restricts beat analysis of TrackB, ExitFraction that
	// of TrackA. Fractions up to 0.5 keep the head of the track, larger
	// ones the tail; 0 and 1 analyze everything.
	EntryFraction float64
	ExitFraction  float64

	// Points skips the search. Only A, C, D and E are read.
	Points *models.TransitionPoints
}

type TransitionResult struct {
	Points models.TransitionPoints
	Frames models.FrameSpan

	// Both are nil when the points were given.
	ScoresA score.Scores
	ScoresB score.Scores

	WindowA models.Window
	WindowB models.Window

	TransitionLength int
	Midpoint         int
	BPM              float64

	// Tempo-aligned tracks the frames refer to.
	TrackA *models.Track
	TrackB *models.Track
}

type MixRequest struct {
	TransitionRequest

	Scenario  string // see mix.Names
	OutputDir string
	Name      string // defaults to mix_<uuid>
	MP3       bool
}

type MixResult struct {
	Path       string
	Duration   float64
	Scenario   string
	Transition *TransitionResult
}
