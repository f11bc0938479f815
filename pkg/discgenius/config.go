package discgenius

import (
	"github.com/himanishpuri/discgenius/pkg/discgenius/beat"
	"github.com/himanishpuri/discgenius/pkg/discgenius/score"
	"github.com/himanishpuri/discgenius/pkg/discgenius/tempo"
)

// ProgressFunc receives coarse progress after each pipeline stage.
type ProgressFunc func(percent int, stage string)

type Config struct {
	AnalysisDir string
	AlignedDir  string
	TempDir     string
	// DBPath switches the beat grid cache to SQLite when set.
	DBPath     string
	SampleRate int
	Logger     Logger

	Tracker       beat.Tracker
	BeatGridCache beat.Cache
	AudioCache    tempo.AudioCache

	ClipSize int
	StepSize int
	MixArea  float64
	Sentinel float64

	MinBPM         float64
	MaxBPM         float64
	MaxBPMDiff     float64
	MinSegmentTime float64 // seconds, explicit points only

	Progress ProgressFunc
}

type Option func(*Config)

func WithAnalysisDir(dir string) Option {
	return func(c *Config) {
		c.AnalysisDir = dir
	}
}

func WithAlignedDir(dir string) Option {
	return func(c *Config) {
		c.AlignedDir = dir
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

// WithSampleRate sets the rate every loaded track is resampled to. Zero
// keeps each file's own rate; a transition between tracks at different
// rates then resamples the incoming track to the outgoing one.
func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithBeatTracker(t beat.Tracker) Option {
	return func(c *Config) {
		c.Tracker = t
	}
}

func WithBeatGridCache(cache beat.Cache) Option {
	return func(c *Config) {
		c.BeatGridCache = cache
	}
}

func WithAudioCache(cache tempo.AudioCache) Option {
	return func(c *Config) {
		c.AudioCache = cache
	}
}

// WithSQLiteCache keeps beat grids in the SQLite database at path instead
// of JSON files.
func WithSQLiteCache(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithMixArea(fraction float64) Option {
	return func(c *Config) {
		c.MixArea = fraction
	}
}

func WithSentinel(v float64) Option {
	return func(c *Config) {
		c.Sentinel = v
	}
}

func WithClipSize(beats int) Option {
	return func(c *Config) {
		c.ClipSize = beats
	}
}

func WithStepSize(beats int) Option {
	return func(c *Config) {
		c.StepSize = beats
	}
}

func WithBPMLimits(minBPM, maxBPM, maxDiff float64) Option {
	return func(c *Config) {
		c.MinBPM = minBPM
		c.MaxBPM = maxBPM
		c.MaxBPMDiff = maxDiff
	}
}

func WithMinSegmentTime(seconds float64) Option {
	return func(c *Config) {
		c.MinSegmentTime = seconds
	}
}

func WithProgress(fn ProgressFunc) Option {
	return func(c *Config) {
		c.Progress = fn
	}
}

func defaultConfig() *Config {
	return &Config{
		AnalysisDir:    "analysis",
		AlignedDir:     "aligned",
		TempDir:        "/tmp",
		SampleRate:     22050,
		ClipSize:       4,
		StepSize:       1,
		MixArea:        0.1,
		Sentinel:       score.DefaultSentinel,
		MinBPM:         60,
		MaxBPM:         200,
		MaxBPMDiff:     20,
		MinSegmentTime: 2,
	}
}
