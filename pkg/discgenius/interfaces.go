package discgenius

import (
	"context"

	"github.com/himanishpuri/discgenius/pkg/models"
)

type Service interface {
	LoadTrack(ctx context.Context, path string) (*models.Track, error)
	ExtractBeats(track *models.Track, rangeFraction float64) (*models.BeatGrid, error)
	AlignTempo(track *models.Track, desiredBPM float64) (*models.Track, error)
	FindTransition(ctx context.Context, req TransitionRequest) (*TransitionResult, error)
	Mix(ctx context.Context, req MixRequest) (*MixResult, error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
