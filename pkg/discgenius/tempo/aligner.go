package tempo

import (
	"fmt"
	"math"

	"github.com/himanishpuri/discgenius/pkg/logger"
	"github.com/himanishpuri/discgenius/pkg/models"
	"github.com/himanishpuri/discgenius/pkg/utils"
)

const bpmEpsilon = 1e-6

// AudioCache stores aligned tracks by name.
type AudioCache interface {
	Load(name string) (*models.Track, bool, error)
	Store(track *models.Track) error
}

type Aligner struct {
	cache AudioCache
	log   logger.Interface
}

// NewAligner returns an Aligner. Both arguments may be nil.
func NewAligner(cache AudioCache, log logger.Interface) *Aligner {
	if log == nil {
		log = logger.Discard()
	}
	return &Aligner{cache: cache, log: log}
}

// AlignedName is the cache name of track once aligned to bpm.
func AlignedName(trackName string, bpm float64) string {
	return utils.BaseName(trackName) + "_" + models.FormatBPM(bpm)
}

// Align returns track played at desiredBPM. The input is never modified;
// when it is already at desiredBPM the same pointer comes back.
func (a *Aligner) Align(track *models.Track, desiredBPM float64) (*models.Track, error) {
	if desiredBPM <= 0 || math.IsNaN(desiredBPM) || math.IsInf(desiredBPM, 0) {
		return nil, &models.ParamError{Param: "desired_bpm", Value: desiredBPM, Reason: "must be positive"}
	}
	if track.BPM <= 0 {
		return nil, &models.ParamError{Param: "bpm", Value: track.BPM, Reason: fmt.Sprintf("track %s has no tempo", track.Name)}
	}
	if math.Abs(track.BPM-desiredBPM) < bpmEpsilon {
		return track, nil
	}

	name := AlignedName(track.Name, desiredBPM)
	if cached := a.lookup(name, track.SampleRate); cached != nil {
		a.log.Debugf("Aligned audio cache hit for %s", name)
		return cached, nil
	}

	ratio := track.BPM / desiredBPM
	newRate := int(float64(track.SampleRate) * ratio)
	a.log.Infof("Aligning %s from %s to %s BPM (ratio %.4f)", track.Name, models.FormatBPM(track.BPM), models.FormatBPM(desiredBPM), ratio)

	left, right, err := resampleChannels(track, track.SampleRate, newRate)
	if err != nil {
		return nil, fmt.Errorf("failed to resample %s: %w", track.Name, err)
	}

	// Playback rate stays the same so the resampled audio plays faster or slower.
	aligned, err := models.NewTrack(name, left, right, track.SampleRate, desiredBPM)
	if err != nil {
		return nil, err
	}

	if a.cache != nil {
		if err := a.cache.Store(aligned); err != nil {
			a.log.Warnf("Failed to cache aligned audio %s: %v", name, err)
		}
	}
	return aligned, nil
}

func (a *Aligner) lookup(name string, sampleRate int) *models.Track {
	if a.cache == nil {
		return nil
	}
	cached, ok, err := a.cache.Load(name)
	if err != nil {
		a.log.Warnf("Failed to read aligned audio %s: %v", name, err)
		return nil
	}
	if !ok {
		return nil
	}
	if cached.SampleRate != sampleRate {
		a.log.Warnf("Cached %s has sample rate %d, want %d; recomputing", name, cached.SampleRate, sampleRate)
		return nil
	}
	return cached
}

// AlignToFirst brings b to a's tempo.
func (a *Aligner) AlignToFirst(first, second *models.Track) (*models.Track, *models.Track, error) {
	aligned, err := a.Align(second, first.BPM)
	if err != nil {
		return nil, nil, err
	}
	return first, aligned, nil
}

// AlignToDesired brings both tracks to desiredBPM.
func (a *Aligner) AlignToDesired(first, second *models.Track, desiredBPM float64) (*models.Track, *models.Track, error) {
	alignedFirst, err := a.Align(first, desiredBPM)
	if err != nil {
		return nil, nil, err
	}
	alignedSecond, err := a.Align(second, desiredBPM)
	if err != nil {
		return nil, nil, err
	}
	return alignedFirst, alignedSecond, nil
}
