package discgenius

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"

	"github.com/himanishpuri/discgenius/pkg/discgenius/audio"
	"github.com/himanishpuri/discgenius/pkg/discgenius/beat"
	"github.com/himanishpuri/discgenius/pkg/discgenius/cache"
	"github.com/himanishpuri/discgenius/pkg/discgenius/mix"
	"github.com/himanishpuri/discgenius/pkg/discgenius/score"
	"github.com/himanishpuri/discgenius/pkg/discgenius/segment"
	"github.com/himanishpuri/discgenius/pkg/discgenius/storage"
	"github.com/himanishpuri/discgenius/pkg/discgenius/tempo"
	"github.com/himanishpuri/discgenius/pkg/discgenius/transition"
	"github.com/himanishpuri/discgenius/pkg/logger"
	"github.com/himanishpuri/discgenius/pkg/models"
	"github.com/himanishpuri/discgenius/pkg/utils"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// discService is the default implementation of the Service interface.
type discService struct {
	cfg       *Config
	log       Logger
	extractor *beat.Extractor
	aligner   *tempo.Aligner
	scorer    *score.Scorer
	closers   []io.Closer

	// Collapses concurrent work on the same cache key.
	group singleflight.Group
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Set default logger if none provided
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	s := &discService{cfg: cfg, log: cfg.Logger}

	grids := cfg.BeatGridCache
	if grids == nil {
		if cfg.DBPath != "" {
			store, err := storage.NewBeatGridStore(cfg.DBPath)
			if err != nil {
				return nil, fmt.Errorf("failed to create storage: %w", err)
			}
			s.closers = append(s.closers, store)
			grids = store
		} else {
			grids = cache.NewBeatGridFiles(cfg.AnalysisDir)
		}
	}

	aligned := cfg.AudioCache
	if aligned == nil {
		aligned = cache.NewAudioFiles(cfg.AlignedDir)
	}

	s.extractor = beat.NewExtractor(cfg.Tracker, grids, named(cfg.Logger, "beat"))
	s.aligner = tempo.NewAligner(aligned, named(cfg.Logger, "tempo"))
	s.scorer = score.NewScorer(named(cfg.Logger, "score"))
	return s, nil
}

func named(log Logger, component string) Logger {
	if l, ok := log.(*logger.Logger); ok {
		return l.Named(component)
	}
	return log
}

func (s *discService) progress(percent int, stage string) {
	if s.cfg.Progress != nil {
		s.cfg.Progress(percent, stage)
	}
}

// LoadTrack decodes path and resamples it to the configured rate.
func (s *discService) LoadTrack(ctx context.Context, path string) (*models.Track, error) {
	track, err := audio.Load(ctx, path, audio.LoadOptions{
		TempDir:       s.cfg.TempDir,
		SampleRate:    s.cfg.SampleRate,
		ProbeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	if s.cfg.SampleRate > 0 && track.SampleRate != s.cfg.SampleRate {
		s.log.Infof("Resampling %s from %d Hz to %d Hz", track.Name, track.SampleRate, s.cfg.SampleRate)
		track, err = tempo.ResampleTrack(track, s.cfg.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("failed to resample %s: %w", path, err)
		}
	}
	s.log.Infof("Loaded %s: %.1fs at %d Hz, %s BPM", track.Name, track.Duration(), track.SampleRate, models.FormatBPM(track.BPM))
	return track, nil
}

func (s *discService) ExtractBeats(track *models.Track, rangeFraction float64) (*models.BeatGrid, error) {
	key := beat.Key(track, rangeFraction)
	v, err, _ := s.group.Do("beats:"+key.FileName(), func() (any, error) {
		return s.extractor.Extract(track, rangeFraction)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.BeatGrid), nil
}

func (s *discService) AlignTempo(track *models.Track, desiredBPM float64) (*models.Track, error) {
	name := tempo.AlignedName(track.Name, desiredBPM)
	v, err, _ := s.group.Do(fmt.Sprintf("align:%s@%d", name, track.SampleRate), func() (any, error) {
		return s.aligner.Align(track, desiredBPM)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Track), nil
}

// withTempo fills in an unknown BPM from a whole-track beat grid. The
// caller's track is not modified.
func (s *discService) withTempo(track *models.Track) (*models.Track, error) {
	if track.BPM > 0 {
		return track, nil
	}
	s.log.Infof("No BPM for %s, estimating from its beats", track.Name)
	grid, err := s.ExtractBeats(track, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to estimate tempo of %s: %w", track.Name, err)
	}
	estimated := *track
	estimated.BPM = math.Round(grid.BPM*100) / 100
	return &estimated, nil
}

// FindTransition searches for the steadiest outgoing window of TrackA and
// incoming window of TrackB, or uses the given points, and returns the
// transition in seconds and frames of the tempo-aligned tracks.
func (s *discService) FindTransition(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	// 1. Validate request
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	if err := s.checkKnownTempos(req.TrackA, req.TrackB); err != nil {
		return nil, err
	}
	trackA, err := s.withTempo(req.TrackA)
	if err != nil {
		return nil, err
	}
	trackB, err := s.withTempo(req.TrackB)
	if err != nil {
		return nil, err
	}
	desired, err := s.resolveDesiredBPM(trackA.BPM, trackB.BPM, req.DesiredBPM)
	if err != nil {
		return nil, err
	}

	// 2. Align tempo
	s.log.Infof("Finding transition %s -> %s at %s BPM", trackA.Name, trackB.Name, models.FormatBPM(desired))
	alignedA, err := s.AlignTempo(trackA, desired)
	if err != nil {
		return nil, fmt.Errorf("failed to align %s: %w", trackA.Name, err)
	}
	alignedB, err := s.AlignTempo(trackB, desired)
	if err != nil {
		return nil, fmt.Errorf("failed to align %s: %w", trackB.Name, err)
	}
	if alignedB.SampleRate != alignedA.SampleRate {
		s.log.Infof("Resampling %s from %d Hz to %d Hz to match %s", alignedB.Name, alignedB.SampleRate, alignedA.SampleRate, alignedA.Name)
		resampled, err := tempo.ResampleTrack(alignedB, alignedA.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("failed to resample %s: %w", alignedB.Name, err)
		}
		alignedB = resampled
	}
	sr := models.MustMatchSampleRate(alignedA, alignedB)
	s.progress(20, "aligned")

	if req.Points != nil {
		return s.fromPoints(req, alignedA, alignedB, desired)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 3. Extract beat grids
	var gridA, gridB *models.BeatGrid
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		gridA, err = s.ExtractBeats(alignedA, req.ExitFraction)
		return err
	})
	g.Go(func() error {
		var err error
		gridB, err = s.ExtractBeats(alignedB, req.EntryFraction)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.progress(40, "beats")

	// 4. Segment both tracks
	params := score.Params{
		Params: segment.Params{
			ClipSize:         s.cfg.ClipSize,
			StepSize:         s.cfg.StepSize,
			TransitionLength: req.TransitionLength,
			Midpoint:         req.Midpoint,
		},
		MixArea:  s.cfg.MixArea,
		Sentinel: s.cfg.Sentinel,
	}
	segA, err := segmentTrack(alignedA, gridA, sr, params.Params)
	if err != nil {
		return nil, err
	}
	segB, err := segmentTrack(alignedB, gridB, sr, params.Params)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 5. Score candidates
	scoresA, err := s.scorer.Score(segA, params, score.Outgoing)
	if err != nil {
		return nil, fmt.Errorf("failed to score %s: %w", alignedA.Name, err)
	}
	scoresB, err := s.scorer.Score(segB, params, score.Incoming)
	if err != nil {
		return nil, fmt.Errorf("failed to score %s: %w", alignedB.Name, err)
	}
	s.progress(60, "scored")

	// 6. Select the best windows
	bestA, err := transition.SelectBest(scoresA)
	if err != nil {
		return nil, err
	}
	bestB, err := transition.SelectBest(scoresB)
	if err != nil {
		return nil, err
	}
	windowA, err := segA.Window(bestA)
	if err != nil {
		return nil, err
	}
	windowB, err := segB.Window(bestB)
	if err != nil {
		return nil, err
	}
	points := transition.FromWindows(windowA, windowB)
	s.log.Infof("Selected A candidate %d (score %.4f) and B candidate %d (score %.4f)", bestA, scoresA[bestA], bestB, scoresB[bestB])
	s.progress(80, "points")

	// 7. Compute frames
	frames, err := s.frames(points, alignedA, alignedB, sr)
	if err != nil {
		return nil, err
	}
	s.progress(100, "frames")

	s.log.Infof("Transition C=%.3fs D=%.3fs E=%.3fs in A, A=%.3fs B=%.3fs X=%.3fs in B",
		points.C, points.D, points.E, points.A, points.B, points.X)

	return &TransitionResult{
		Points:           points,
		Frames:           frames,
		ScoresA:          scoresA,
		ScoresB:          scoresB,
		WindowA:          windowA,
		WindowB:          windowB,
		TransitionLength: req.TransitionLength,
		Midpoint:         req.Midpoint,
		BPM:              desired,
		TrackA:           alignedA,
		TrackB:           alignedB,
	}, nil
}

func segmentTrack(track *models.Track, grid *models.BeatGrid, sr int, p segment.Params) (*segment.Segmentation, error) {
	seg, err := segment.Segment(grid, track.Mono, sr, p)
	if err != nil {
		var bde *models.BeatDetectionError
		if errors.As(err, &bde) {
			bde.Track = track.Name
		}
		return nil, err
	}
	return seg, nil
}

// fromPoints completes caller-given points on the aligned tracks and
// derives the transition length in beats.
func (s *discService) fromPoints(req TransitionRequest, alignedA, alignedB *models.Track, bpm float64) (*TransitionResult, error) {
	given := *req.Points
	points := transition.Derive(given.A, given.C, given.D, given.E)
	if err := points.Validate(alignedA.Duration(), alignedB.Duration()); err != nil {
		return nil, err
	}
	s.progress(80, "points")

	sr := alignedA.SampleRate
	frames, err := s.frames(points, alignedA, alignedB, sr)
	if err != nil {
		return nil, err
	}
	s.progress(100, "frames")

	beatLen := 60 / bpm
	return &TransitionResult{
		Points:           points,
		Frames:           frames,
		TransitionLength: int(math.Round((points.E - points.C) / beatLen)),
		Midpoint:         int(math.Round((points.D - points.C) / beatLen)),
		BPM:              bpm,
		TrackA:           alignedA,
		TrackB:           alignedB,
	}, nil
}

func (s *discService) frames(points models.TransitionPoints, a, b *models.Track, sr int) (models.FrameSpan, error) {
	frames, err := transition.ComputeFrames(sr, points)
	if err != nil {
		return models.FrameSpan{}, err
	}
	if err := transition.CheckBounds(frames, a.Frames(), b.Frames(), sr); err != nil {
		return models.FrameSpan{}, err
	}
	return frames, nil
}

// Mix finds the transition and renders the mixed track to disk.
func (s *discService) Mix(ctx context.Context, req MixRequest) (*MixResult, error) {
	name := req.Scenario
	if name == "" {
		name = "EQ_1.0"
	}
	sc, err := mix.Lookup(name)
	if err != nil {
		return nil, &models.ParamError{Param: "scenario", Value: req.Scenario, Reason: err.Error()}
	}

	result, err := s.FindTransition(ctx, req.TransitionRequest)
	if err != nil {
		return nil, err
	}

	mixName := req.Name
	if mixName == "" {
		mixName = utils.UniqueName("mix")
	}
	s.log.Infof("Mixing %s with scenario %s", mixName, sc.Name())

	mixed, err := mix.Render(mixName, result.TrackA, result.TrackB, result.Frames, sc)
	if err != nil {
		return nil, fmt.Errorf("failed to render mix: %w", err)
	}

	outDir := req.OutputDir
	if outDir == "" {
		outDir = "."
	}
	wavPath := filepath.Join(outDir, mixName+".wav")
	if err := audio.WriteWAV(wavPath, mixed); err != nil {
		return nil, fmt.Errorf("failed to write mix: %w", err)
	}

	path := wavPath
	if req.MP3 {
		path = filepath.Join(outDir, mixName+".mp3")
		if err := audio.ConvertToMP3(ctx, wavPath, path, 0); err != nil {
			return nil, fmt.Errorf("failed to encode mp3: %w", err)
		}
	}

	s.log.Infof("Mix written to %s (%.1fs)", path, mixed.Duration())
	return &MixResult{
		Path:       path,
		Duration:   mixed.Duration(),
		Scenario:   sc.Name(),
		Transition: result,
	}, nil
}

// Close releases all resources held by the service.
func (s *discService) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
