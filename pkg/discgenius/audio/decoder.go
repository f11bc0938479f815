// Package audio turns audio files into Tracks and back. WAV and MP3 are
// decoded in-process; other formats go through ffmpeg.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/himanishpuri/discgenius/pkg/models"
	"github.com/himanishpuri/discgenius/pkg/utils"
)

type LoadOptions struct {
	// TempDir receives ffmpeg output for formats that are not decoded
	// in-process.
	TempDir string
	// SampleRate is passed to ffmpeg when transcoding. Zero keeps the
	// source rate.
	SampleRate int
	// ProbeMetadata allows an ffprobe call when the file name has no BPM
	// suffix.
	ProbeMetadata bool
}

// Load decodes path into a Track named after the file. BPM comes from a
// "_<bpm>" name suffix, then from the file's bpm tag; it is 0 if neither
// is present.
func Load(ctx context.Context, path string, opts LoadOptions) (*models.Track, error) {
	channels, sampleRate, err := decodeAny(ctx, path, opts)
	if err != nil {
		return nil, err
	}

	name := utils.TrackName(path)
	bpm, err := utils.ParseBPMFromName(name)
	if err != nil && opts.ProbeMetadata {
		if meta, merr := ReadMetadataFFmpeg(ctx, path); merr == nil && meta.BPM > 0 {
			bpm = meta.BPM
		}
	}

	return TrackFromChannels(name, channels, sampleRate, bpm)
}

func decodeAny(ctx context.Context, path string, opts LoadOptions) ([][]float64, int, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return DecodeWAV(path)
	case ".mp3":
		return DecodeMP3(path)
	default:
		dir := opts.TempDir
		if dir == "" {
			dir = os.TempDir()
		}
		wavPath, err := ConvertToWAV(ctx, path, dir, ConvertWAVConfig{SampleRate: opts.SampleRate})
		if err != nil {
			return nil, 0, fmt.Errorf("audio conversion failed: %w", err)
		}
		defer os.Remove(wavPath)
		return DecodeWAV(wavPath)
	}
}

// TrackFromChannels builds a Track from decoded channels. Channels past
// the second are dropped.
func TrackFromChannels(name string, channels [][]float64, sampleRate int, bpm float64) (*models.Track, error) {
	switch len(channels) {
	case 0:
		return nil, errors.New("no audio channels decoded")
	case 1:
		return models.NewTrack(name, channels[0], nil, sampleRate, bpm)
	default:
		return models.NewTrack(name, channels[0], channels[1], sampleRate, bpm)
	}
}

// DecodeWAV returns the channels of a PCM or IEEE float WAV normalized to
// [-1, 1].
func DecodeWAV(path string) ([][]float64, int, error) {
	format, err := probeFormat(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read WAV header: %w", err)
	}
	if format == formatIEEEFloat {
		return readFloatWAV(path)
	}
	if format != formatPCM {
		return nil, 0, fmt.Errorf("unsupported WAV audio format %d", format)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid WAV file: %s", path)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read samples from %s: %w", path, err)
	}

	numChans := buf.Format.NumChannels
	if numChans < 1 {
		return nil, 0, errors.New("wav has no channels")
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(d.BitDepth)
	}

	frames := len(buf.Data) / numChans
	out := make([][]float64, numChans)
	for c := range out {
		out[c] = make([]float64, frames)
	}

	// 8-bit WAV is unsigned, everything wider is signed.
	offset := 0.0
	scale := float64(int(1) << (uint(bitDepth) - 1))
	if bitDepth == 8 {
		offset = 128
		scale = 128
	}
	for i := 0; i < frames; i++ {
		for c := 0; c < numChans; c++ {
			out[c][i] = (float64(buf.Data[i*numChans+c]) - offset) / scale
		}
	}
	return out, buf.Format.SampleRate, nil
}

// DecodeMP3 decodes an MP3 file to two normalized channels.
func DecodeMP3(path string) ([][]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	d, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	// go-mp3 always yields 16-bit little-endian interleaved stereo.
	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode mp3: %w", err)
	}

	frames := len(raw) / 4
	left := make([]float64, frames)
	right := make([]float64, frames)
	for i := 0; i < frames; i++ {
		l := int16(uint16(raw[4*i]) | uint16(raw[4*i+1])<<8)
		r := int16(uint16(raw[4*i+2]) | uint16(raw[4*i+3])<<8)
		left[i] = float64(l) / 32768
		right[i] = float64(r) / 32768
	}
	return [][]float64{left, right}, d.SampleRate(), nil
}
