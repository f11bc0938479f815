package discgenius

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/himanishpuri/discgenius/internal/synth"
	"github.com/himanishpuri/discgenius/pkg/discgenius/beat"
	"github.com/himanishpuri/discgenius/pkg/logger"
	"github.com/himanishpuri/discgenius/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spyTracker struct {
	inner beat.Tracker
	calls atomic.Int32
}

func (s *spyTracker) Track(mono []float64, sr int, bpm float64) ([]float64, float64, error) {
	s.calls.Add(1)
	return s.inner.Track(mono, sr, bpm)
}

type testEnv struct {
	svc         Service
	spy         *spyTracker
	analysisDir string
	alignedDir  string
	progress    []int
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	env := &testEnv{
		spy:         &spyTracker{inner: beat.NewDPTracker()},
		analysisDir: t.TempDir(),
		alignedDir:  t.TempDir(),
	}
	base := []Option{
		WithAnalysisDir(env.analysisDir),
		WithAlignedDir(env.alignedDir),
		WithTempDir(t.TempDir()),
		WithLogger(logger.Discard()),
		WithBeatTracker(env.spy),
		WithProgress(func(p int, _ string) { env.progress = append(env.progress, p) }),
	}
	svc, err := NewService(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	env.svc = svc
	return env
}

func synthTrack(t *testing.T, name string, o synth.Options) *models.Track {
	t.Helper()
	track, err := synth.Track(name, o)
	require.NoError(t, err)
	return track
}

func shortTrack(t *testing.T, name string, bpm float64, seconds float64) *models.Track {
	t.Helper()
	o := synth.DefaultOptions()
	o.BPM = bpm
	o.Duration = seconds
	return synthTrack(t, name, o)
}

func TestFindTransitionLocatesStablePassages(t *testing.T) {
	if testing.Short() {
		t.Skip("renders two four-minute tracks")
	}

	optsA := synth.DefaultOptions()
	optsA.StableBeat = optsA.BeatAt(0.75)
	optsA.Seed = 1
	optsB := synth.DefaultOptions()
	optsB.StableBeat = optsB.BeatAt(0.10)
	optsB.Seed = 2

	trackA := synthTrack(t, "a_120", optsA)
	trackB := synthTrack(t, "b_120", optsB)
	// Each stable passage sits in the middle of its analyzed range.
	env := newTestEnv(t, WithMixArea(0.5))

	res, err := env.svc.FindTransition(context.Background(), TransitionRequest{
		TrackA:           trackA,
		TrackB:           trackB,
		TransitionLength: 32,
		Midpoint:         16,
		EntryFraction:    0.3,
		ExitFraction:     0.55,
	})
	require.NoError(t, err)

	p := res.Points
	twoBeats := 2 * optsA.BeatPeriod()
	assert.InDelta(t, optsA.BeatTime(optsA.StableBeat), p.C, twoBeats, "c should start on A's stable passage")
	assert.InDelta(t, optsB.BeatTime(optsB.StableBeat), p.A, twoBeats, "a should start on B's stable passage")

	assert.InDelta(t, p.D-p.C, p.B-p.A, 1e-9)
	assert.InDelta(t, p.E-p.D, p.X-p.B, 1e-9)
	assert.True(t, p.C < p.D && p.D < p.E)
	assert.True(t, res.Frames.WithinBounds(trackA.Frames(), trackB.Frames()))
	assert.InDelta(t, res.Frames.BetweenCAndD, res.Frames.UntilB-res.Frames.UntilA, 1)

	assert.Equal(t, []int{20, 40, 60, 80, 100}, env.progress)
	assert.Equal(t, int32(2), env.spy.calls.Load())
	assert.FileExists(t, filepath.Join(env.analysisDir, "a_120_r0.55.json"))
	assert.FileExists(t, filepath.Join(env.analysisDir, "b_120_r0.3.json"))

	// Cached grids make the second run skip beat tracking.
	_, err = env.svc.FindTransition(context.Background(), TransitionRequest{
		TrackA:           trackA,
		TrackB:           trackB,
		TransitionLength: 32,
		Midpoint:         16,
		EntryFraction:    0.3,
		ExitFraction:     0.55,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), env.spy.calls.Load())
}

func TestFindTransitionRejectsMidpointAtLength(t *testing.T) {
	env := newTestEnv(t)
	a := shortTrack(t, "a_120", 120, 5)
	b := shortTrack(t, "b_120", 120, 5)

	_, err := env.svc.FindTransition(context.Background(), TransitionRequest{
		TrackA:           a,
		TrackB:           b,
		TransitionLength: 32,
		Midpoint:         32,
	})

	require.ErrorIs(t, err, models.ErrInvalidParameters)
	var pe *models.ParamError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "midpoint", pe.Param)
	assert.Zero(t, env.spy.calls.Load(), "no beat tracking before validation")
	assert.Empty(t, env.progress)
}

func TestFindTransitionValidation(t *testing.T) {
	env := newTestEnv(t)
	a := shortTrack(t, "a_120", 120, 5)
	b := shortTrack(t, "b_120", 120, 5)
	fast := shortTrack(t, "fast_150", 150, 5)

	tests := []struct {
		name  string
		req   TransitionRequest
		param string
	}{
		{"length too long", TransitionRequest{TrackA: a, TrackB: b, TransitionLength: 300, Midpoint: 16}, "transition_length"},
		{"length too short", TransitionRequest{TrackA: a, TrackB: b, TransitionLength: 1, Midpoint: 0}, "transition_length"},
		{"zero midpoint", TransitionRequest{TrackA: a, TrackB: b, TransitionLength: 32, Midpoint: 0}, "midpoint"},
		{"midpoint below clip", TransitionRequest{TrackA: a, TrackB: b, TransitionLength: 32, Midpoint: 2}, "clip_size"},
		{"bad fraction", TransitionRequest{TrackA: a, TrackB: b, TransitionLength: 32, Midpoint: 16, ExitFraction: 1.5}, "exit_fraction"},
		{"bpm too far apart", TransitionRequest{TrackA: a, TrackB: fast, TransitionLength: 32, Midpoint: 16}, "bpm_b"},
		{"desired out of range", TransitionRequest{TrackA: a, TrackB: b, TransitionLength: 32, Midpoint: 16, DesiredBPM: 250}, "desired_bpm"},
		{"desired too far", TransitionRequest{TrackA: a, TrackB: b, TransitionLength: 32, Midpoint: 16, DesiredBPM: 145}, "desired_bpm"},
		{"missing track", TransitionRequest{TrackA: a, TransitionLength: 32, Midpoint: 16}, "track_b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.FindTransition(context.Background(), tt.req)
			var pe *models.ParamError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.param, pe.Param)
		})
	}
	assert.Zero(t, env.spy.calls.Load())
}

func TestFindTransitionWithPoints(t *testing.T) {
	env := newTestEnv(t)
	a := shortTrack(t, "a_120", 120, 20)
	b := shortTrack(t, "b_120", 120, 20)

	res, err := env.svc.FindTransition(context.Background(), TransitionRequest{
		TrackA: a,
		TrackB: b,
		Points: &models.TransitionPoints{A: 2, C: 10, D: 14, E: 18},
	})
	require.NoError(t, err)

	assert.Equal(t, models.TransitionPoints{A: 2, B: 6, X: 10, C: 10, D: 14, E: 18}, res.Points)
	assert.Equal(t, 16, res.TransitionLength)
	assert.Equal(t, 8, res.Midpoint)
	assert.Equal(t, 44100, res.Frames.BetweenCAndD)
	assert.Equal(t, res.Frames.BetweenCAndD, res.Frames.UntilB-res.Frames.UntilA)
	assert.Nil(t, res.ScoresA)
	assert.Zero(t, env.spy.calls.Load())
	assert.Equal(t, []int{20, 80, 100}, env.progress)
}

func TestFindTransitionPointsOutOfBounds(t *testing.T) {
	env := newTestEnv(t)
	a := shortTrack(t, "a_120", 120, 20)
	b := shortTrack(t, "b_120", 120, 20)

	_, err := env.svc.FindTransition(context.Background(), TransitionRequest{
		TrackA: a,
		TrackB: b,
		Points: &models.TransitionPoints{A: 15, C: 10, D: 14, E: 18},
	})

	var be *models.BoundsError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "B", be.Track)
	assert.ErrorIs(t, err, models.ErrOutOfBounds)
}

func TestFindTransitionPointsTooClose(t *testing.T) {
	env := newTestEnv(t, WithMinSegmentTime(2))
	a := shortTrack(t, "a_120", 120, 20)
	b := shortTrack(t, "b_120", 120, 20)

	_, err := env.svc.FindTransition(context.Background(), TransitionRequest{
		TrackA: a,
		TrackB: b,
		Points: &models.TransitionPoints{A: 2, C: 10, D: 11, E: 18},
	})
	assert.ErrorIs(t, err, models.ErrInvalidParameters)
}

func TestFindTransitionAlignsIncomingTrack(t *testing.T) {
	env := newTestEnv(t)
	a := shortTrack(t, "a_120", 120, 20)
	b := shortTrack(t, "b_125", 125, 20)

	res, err := env.svc.FindTransition(context.Background(), TransitionRequest{
		TrackA: a,
		TrackB: b,
		Points: &models.TransitionPoints{A: 2, C: 10, D: 14, E: 18},
	})
	require.NoError(t, err)

	assert.Same(t, a, res.TrackA, "track already at the mix tempo is not copied")
	assert.Equal(t, "b_120", res.TrackB.Name)
	assert.Equal(t, 120.0, res.TrackB.BPM)
	assert.InDelta(t, 20*125.0/120, res.TrackB.Duration(), 0.01)
	assert.FileExists(t, filepath.Join(env.alignedDir, "b_120.wav"))
	assert.Equal(t, 125.0, b.BPM, "input track unchanged")
}

func TestMixWritesWAV(t *testing.T) {
	env := newTestEnv(t)
	a := shortTrack(t, "a_120", 120, 20)
	b := shortTrack(t, "b_120", 120, 20)
	out := t.TempDir()

	res, err := env.svc.Mix(context.Background(), MixRequest{
		TransitionRequest: TransitionRequest{
			TrackA: a,
			TrackB: b,
			Points: &models.TransitionPoints{A: 2, C: 10, D: 14, E: 18},
		},
		Scenario:  "CF_1.0",
		OutputDir: out,
		Name:      "set",
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(out, "set.wav"), res.Path)
	assert.InDelta(t, 10+8+(20-10), res.Duration, 0.01)
	info, err := os.Stat(res.Path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(44))
}

func TestMixRejectsUnknownScenario(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Mix(context.Background(), MixRequest{Scenario: "nope"})
	assert.ErrorIs(t, err, models.ErrInvalidParameters)
}

func TestNewServiceRejectsBadOptions(t *testing.T) {
	_, err := NewService(WithMixArea(0), WithAnalysisDir(t.TempDir()))
	assert.ErrorIs(t, err, models.ErrInvalidParameters)

	_, err = NewService(WithBPMLimits(200, 60, 20))
	assert.ErrorIs(t, err, models.ErrInvalidParameters)
}

func TestNewServiceWithSQLiteCache(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "grids.sqlite3")
	env := newTestEnv(t, WithSQLiteCache(dbPath))
	track := shortTrack(t, "loop_120", 120, 20)

	grid, err := env.svc.ExtractBeats(track, 0)
	require.NoError(t, err)
	require.NoError(t, grid.Validate())

	_, err = env.svc.ExtractBeats(track, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(1), env.spy.calls.Load(), "second extraction served from SQLite")
	assert.FileExists(t, dbPath)
	assert.NoFileExists(t, filepath.Join(env.analysisDir, "loop_120.json"))
}

type memGrids struct {
	mu    sync.Mutex
	grids map[models.BeatGridKey]*models.BeatGrid
}

func (m *memGrids) Load(key models.BeatGridKey) (*models.BeatGrid, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.grids[key]
	return g, ok, nil
}

func (m *memGrids) Store(key models.BeatGridKey, grid *models.BeatGrid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grids[key] = grid
	return nil
}

type memAudio struct {
	mu     sync.Mutex
	tracks map[string]*models.Track
}

func (m *memAudio) Load(name string) (*models.Track, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tracks[name]
	return t, ok, nil
}

func (m *memAudio) Store(track *models.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracks[track.Name] = track
	return nil
}

func TestCustomCaches(t *testing.T) {
	grids := &memGrids{grids: make(map[models.BeatGridKey]*models.BeatGrid)}
	aligned := &memAudio{tracks: make(map[string]*models.Track)}
	env := newTestEnv(t, WithBeatGridCache(grids), WithAudioCache(aligned), WithSentinel(1e6))
	track := shortTrack(t, "loop_120", 120, 20)

	_, err := env.svc.ExtractBeats(track, 0.25)
	require.NoError(t, err)
	assert.Contains(t, grids.grids, models.BeatGridKey{Track: "loop", BPM: 120, Range: 0.25})

	slow, err := env.svc.AlignTempo(track, 110)
	require.NoError(t, err)
	assert.Same(t, slow, aligned.tracks["loop_110"])

	entries, err := os.ReadDir(env.alignedDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	entries, err = os.ReadDir(env.analysisDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClipAndStepOptions(t *testing.T) {
	env := newTestEnv(t, WithClipSize(10), WithStepSize(2))
	a := shortTrack(t, "a_120", 120, 5)
	b := shortTrack(t, "b_120", 120, 5)

	_, err := env.svc.FindTransition(context.Background(), TransitionRequest{
		TrackA: a, TrackB: b, TransitionLength: 32, Midpoint: 8,
	})
	var pe *models.ParamError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "clip_size", pe.Param)

	_, err = NewService(WithStepSize(0))
	assert.ErrorIs(t, err, models.ErrInvalidParameters)
}

func TestFindTransitionResamplesMismatchedRates(t *testing.T) {
	env := newTestEnv(t, WithSampleRate(0))
	a := shortTrack(t, "a_120", 120, 20)
	o := synth.DefaultOptions()
	o.Duration = 20
	o.SampleRate = 8000
	b := synthTrack(t, "b_120", o)

	res, err := env.svc.FindTransition(context.Background(), TransitionRequest{
		TrackA: a,
		TrackB: b,
		Points: &models.TransitionPoints{A: 2, C: 10, D: 14, E: 18},
	})
	require.NoError(t, err)

	assert.Equal(t, a.SampleRate, res.TrackB.SampleRate)
	assert.InDelta(t, 20, res.TrackB.Duration(), 0.01)
	assert.Equal(t, 44100, res.Frames.BetweenCAndD)
	assert.Equal(t, res.Frames.BetweenCAndD, res.Frames.UntilB-res.Frames.UntilA)
	assert.Equal(t, 8000, b.SampleRate, "input track unchanged")
}

func TestFindTransitionChecksKnownTempoFirst(t *testing.T) {
	env := newTestEnv(t)
	mono := shortTrack(t, "a", 120, 20).Mono
	unknown, err := models.NewTrack("a", mono, nil, 11025, 0)
	require.NoError(t, err)
	tooFast, err := models.NewTrack("b_250", mono, nil, 11025, 250)
	require.NoError(t, err)

	_, err = env.svc.FindTransition(context.Background(), TransitionRequest{
		TrackA:           unknown,
		TrackB:           tooFast,
		TransitionLength: 32,
		Midpoint:         16,
	})

	var pe *models.ParamError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "bpm_b", pe.Param)
	assert.Zero(t, env.spy.calls.Load(), "no tempo estimation for a rejected request")
}

func TestWithTempoEstimatesGridTempo(t *testing.T) {
	env := newTestEnv(t)
	mono := shortTrack(t, "loop", 120, 60).Mono
	track, err := models.NewTrack("loop", mono, nil, 11025, 0)
	require.NoError(t, err)

	estimated, err := env.svc.(*discService).withTempo(track)
	require.NoError(t, err)

	assert.InDelta(t, 120, estimated.BPM, 0.5)
	assert.Zero(t, track.BPM, "input track unchanged")
	assert.Equal(t, int32(1), env.spy.calls.Load())
}
