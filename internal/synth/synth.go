// Package synth renders deterministic beat-driven test tracks: a kick and
// click on every beat over a randomly pitched lead, with an optional held
// chord ("stable passage") preceded by a louder build-up.
package synth

import (
	"errors"
	"math"
	"math/rand"

	"github.com/himanishpuri/discgenius/pkg/models"
)

type Options struct {
	SampleRate int
	BPM        float64
	Duration   float64 // seconds

	// StableBeat is the beat index where the held chord starts; negative
	// disables it.
	StableBeat   int
	StableBeats  int // length of the held chord, in beats
	BuildUpBeats int // louder lead before the chord

	Seed int64
}

func DefaultOptions() Options {
	return Options{
		SampleRate:   11025,
		BPM:          120,
		Duration:     240,
		StableBeat:   -1,
		StableBeats:  8,
		BuildUpBeats: 16,
		Seed:         1,
	}
}

const (
	leadAmplitude = 0.2
	kickAmplitude = 0.4
	clickAmp      = 0.3
	minLeadHz     = 300.0
	maxLeadHz     = 3000.0
	buildUpGain   = 1.5
)

var chordHz = [...]float64{392, 523.25, 659.25, 987.77}

// BeatPeriod returns the beat length in seconds.
func (o Options) BeatPeriod() float64 { return 60 / o.BPM }

// BeatTime returns the onset of beat i in seconds.
func (o Options) BeatTime(i int) float64 { return float64(i) * o.BeatPeriod() }

// BeatAt returns the index of the beat closest to fraction of the duration.
func (o Options) BeatAt(fraction float64) int {
	return int(math.Round(fraction * o.Duration / o.BeatPeriod()))
}

// Render returns the mono signal.
func Render(o Options) ([]float64, error) {
	if o.SampleRate <= 0 || o.BPM <= 0 || o.Duration <= 0 {
		return nil, errors.New("sample rate, bpm and duration must be positive")
	}

	sr := float64(o.SampleRate)
	total := int(o.Duration * sr)
	out := make([]float64, total)
	beatLen := int(o.BeatPeriod() * sr)
	rng := rand.New(rand.NewSource(o.Seed))

	for beat := 0; ; beat++ {
		start := int(math.Round(o.BeatTime(beat) * sr))
		if start >= total {
			break
		}
		end := start + beatLen
		if end > total {
			end = total
		}

		stable := o.StableBeat >= 0 && beat >= o.StableBeat && beat < o.StableBeat+o.StableBeats
		buildUp := o.StableBeat >= 0 && beat >= o.StableBeat-o.BuildUpBeats && beat < o.StableBeat
		leadHz := minLeadHz + rng.Float64()*(maxLeadHz-minLeadHz)

		for n := start; n < end; n++ {
			t := float64(n) / sr
			local := float64(n-start) / sr
			env := noteEnvelope(n-start, end-start, o.SampleRate)

			v := kickAmplitude * math.Exp(-local/0.04) * math.Sin(2*math.Pi*60*local)
			v += clickAmp * math.Exp(-local/0.004) * math.Sin(2*math.Pi*2500*local)

			switch {
			case stable:
				for _, hz := range chordHz {
					v += env * leadAmplitude / float64(len(chordHz)) * math.Sin(2*math.Pi*hz*t)
				}
			case buildUp:
				v += env * leadAmplitude * buildUpGain * math.Sin(2*math.Pi*leadHz*t)
			default:
				v += env * leadAmplitude * math.Sin(2*math.Pi*leadHz*t)
			}
			out[n] = v
		}
	}
	return out, nil
}

// noteEnvelope is a 5 ms attack and 10 ms release around a flat sustain.
func noteEnvelope(i, length, sampleRate int) float64 {
	attack := sampleRate / 200
	release := sampleRate / 100
	switch {
	case i < attack:
		return float64(i) / float64(attack)
	case i > length-release:
		return math.Max(0, float64(length-i)/float64(release))
	default:
		return 1
	}
}

// Track renders o as a Track with identical channels.
func Track(name string, o Options) (*models.Track, error) {
	mono, err := Render(o)
	if err != nil {
		return nil, err
	}
	return models.NewTrack(name, mono, nil, o.SampleRate, o.BPM)
}
