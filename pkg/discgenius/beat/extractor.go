// Package beat extracts beat grids from tracks, with a read-through cache.
package beat

import (
	"fmt"

	"github.com/himanishpuri/discgenius/pkg/logger"
	"github.com/himanishpuri/discgenius/pkg/models"
	"github.com/himanishpuri/discgenius/pkg/utils"
)

// Cache persists beat grids. Load reports found=false on a miss.
type Cache interface {
	Load(key models.BeatGridKey) (grid *models.BeatGrid, found bool, err error)
	Store(key models.BeatGridKey, grid *models.BeatGrid) error
}

type Extractor struct {
	tracker Tracker
	cache   Cache
	log     logger.Interface
}

// NewExtractor returns an Extractor. A nil tracker uses NewDPTracker, a nil
// cache disables caching.
func NewExtractor(tracker Tracker, cache Cache, log logger.Interface) *Extractor {
	if tracker == nil {
		tracker = NewDPTracker()
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Extractor{tracker: tracker, cache: cache, log: log}
}

// NormalizeRange maps a range fraction to the value used in cache keys:
// anything outside (0, 1) means "whole track" and becomes 0.
func NormalizeRange(fraction float64) float64 {
	if fraction <= 0 || fraction >= 1 {
		return 0
	}
	return fraction
}

// AnalysisRange returns the sample range [start, end) analyzed for a
// fraction: the head up to the cut for fractions <= 0.5, the tail from the
// cut otherwise.
func AnalysisRange(n int, fraction float64) (start, end int) {
	fraction = NormalizeRange(fraction)
	if fraction == 0 {
		return 0, n
	}
	cut := int(fraction * float64(n))
	if fraction <= 0.5 {
		return 0, cut
	}
	return cut, n
}

// Key returns the cache key for a track analyzed with fraction. A "_<bpm>"
// suffix on the track name is dropped since the key carries the tempo.
func Key(track *models.Track, fraction float64) models.BeatGridKey {
	return models.BeatGridKey{Track: utils.BaseName(track.Name), BPM: track.BPM, Range: NormalizeRange(fraction)}
}

// Extract returns the beat grid of track's mono signal, restricted by
// rangeFraction. Beat times are always track-global.
func (e *Extractor) Extract(track *models.Track, rangeFraction float64) (*models.BeatGrid, error) {
	key := Key(track, rangeFraction)

	if grid, ok := e.load(key); ok {
		return grid, nil
	}

	start, end := AnalysisRange(len(track.Mono), rangeFraction)
	offset := float64(start) / float64(track.SampleRate)
	e.log.Infof("Tracking beats for %s over %.1fs-%.1fs", track.Name, offset, float64(end)/float64(track.SampleRate))

	local, bpm, err := e.tracker.Track(track.Mono[start:end], track.SampleRate, track.BPM)
	if err != nil {
		return nil, fmt.Errorf("beat tracking failed for %s: %w", track.Name, err)
	}

	beats := make([]float64, 0, len(local))
	for _, b := range local {
		t := b + offset
		if len(beats) > 0 && t <= beats[len(beats)-1] {
			continue
		}
		beats = append(beats, t)
	}
	if len(beats) < 2 {
		return nil, &models.BeatDetectionError{Track: track.Name, Found: len(beats), Need: 2}
	}

	grid := &models.BeatGrid{BPM: bpm, Beats: beats}
	e.log.Infof("Found %d beats at %.2f BPM in %s", len(beats), bpm, track.Name)

	if e.cache != nil {
		if err := e.cache.Store(key, grid); err != nil {
			e.log.Warnf("Failed to cache beat grid %s: %v", key.FileName(), err)
		}
	}
	return grid, nil
}

func (e *Extractor) load(key models.BeatGridKey) (*models.BeatGrid, bool) {
	if e.cache == nil {
		return nil, false
	}
	grid, ok, err := e.cache.Load(key)
	if err != nil {
		e.log.Warnf("Failed to read beat grid %s, recomputing: %v", key.FileName(), err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	if err := grid.Validate(); err != nil {
		e.log.Warnf("Discarding cached beat grid %s: %v", key.FileName(), err)
		return nil, false
	}
	e.log.Debugf("Beat grid cache hit: %s", key.FileName())
	return grid, true
}
