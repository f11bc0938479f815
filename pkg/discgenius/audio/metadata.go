package audio

import (
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Metadata struct {
	Filename    string
	Title       string
	Artist      string
	BPM         float64
	DurationSec float64
	SampleRate  int
	Channels    int
	BitDepth    int
	Format      string
}

type ffprobeOutput struct {
	Format struct {
		Filename string            `json:"filename"`
		Duration string            `json:"duration"`
		Format   string            `json:"format_name"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	CodecType     string            `json:"codec_type"`
	SampleRate    string            `json:"sample_rate"`
	Channels      int               `json:"channels"`
	BitsPerSample int               `json:"bits_per_sample"`
	Tags          map[string]string `json:"tags"`
}

func (p *ffprobeOutput) firstAudioStream() *ffprobeStream {
	for i := range p.Streams {
		if p.Streams[i].CodecType == "audio" {
			return &p.Streams[i]
		}
	}
	return nil
}

// tagBPM finds a tempo tag; ID3 uses TBPM, most other containers "bpm".
// Tag keys are matched case-insensitively.
func tagBPM(tags map[string]string) float64 {
	for k, v := range tags {
		switch strings.ToLower(k) {
		case "bpm", "tbpm", "tempo":
			if bpm, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && bpm > 0 {
				return bpm
			}
		}
	}
	return 0
}

func parseProbe(out []byte, path string) (*Metadata, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, err
	}

	stream := probe.firstAudioStream()
	if stream == nil {
		return nil, errors.New("no audio stream found")
	}

	duration, _ := strconv.ParseFloat(probe.Format.Duration, 64)
	sampleRate, _ := strconv.Atoi(stream.SampleRate)

	meta := &Metadata{
		Filename:    filepath.Base(path),
		DurationSec: duration,
		SampleRate:  sampleRate,
		Channels:    stream.Channels,
		BitDepth:    stream.BitsPerSample,
		Format:      probe.Format.Format,
		Title:       probe.Format.Tags["title"],
		Artist:      probe.Format.Tags["artist"],
		BPM:         tagBPM(probe.Format.Tags),
	}
	if meta.BPM == 0 {
		meta.BPM = tagBPM(stream.Tags)
	}
	return meta, nil
}

// ReadMetadataFFmpeg runs ffprobe on path.
func ReadMetadataFFmpeg(ctx context.Context, path string) (*Metadata, error) {
	ctx, cancel := withDefaultTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(
		ctx,
		"ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return parseProbe(out, path)
}
