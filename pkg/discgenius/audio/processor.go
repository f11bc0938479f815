package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/himanishpuri/discgenius/pkg/utils"
)

type ConvertWAVConfig struct {
	SampleRate int // 0 keeps the source rate
	Channels   int // 0 means stereo
}

func withDefaultTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// ConvertToWAV transcodes inputPath into a 16-bit PCM WAV in outputDir with
// ffmpeg and returns the new path.
func ConvertToWAV(ctx context.Context, inputPath, outputDir string, cfg ConvertWAVConfig) (string, error) {
	if cfg.Channels == 0 {
		cfg.Channels = 2
	}

	ctx, cancel := withDefaultTimeout(ctx, 2*time.Minute)
	defer cancel()

	if err := utils.MakeDir(outputDir); err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(outputDir, base+".wav")
	tmpPath := utils.TempPath(outputPath) + ".wav"
	defer os.Remove(tmpPath)

	args := []string{"-y", "-v", "quiet", "-i", inputPath, "-ac", strconv.Itoa(cfg.Channels)}
	if cfg.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(cfg.SampleRate))
	}
	args = append(args, "-c:a", "pcm_s16le", tmpPath)

	if out, err := exec.CommandContext(ctx, "ffmpeg", args...).CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ffmpeg failed: %v (%s)", err, out)
	}

	if err := utils.MoveFile(tmpPath, outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}

// ConvertToMP3 encodes a WAV file to MP3 with ffmpeg's LAME encoder.
func ConvertToMP3(ctx context.Context, wavPath, mp3Path string, bitrateKbps int) error {
	if bitrateKbps == 0 {
		bitrateKbps = 320
	}

	ctx, cancel := withDefaultTimeout(ctx, 2*time.Minute)
	defer cancel()

	if err := utils.MakeDir(filepath.Dir(mp3Path)); err != nil {
		return err
	}
	tmpPath := utils.TempPath(mp3Path) + ".mp3"
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-v", "quiet",
		"-i", wavPath,
		"-codec:a", "libmp3lame",
		"-b:a", fmt.Sprintf("%dk", bitrateKbps),
		tmpPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg failed: %v (%s)", err, out)
	}
	return utils.MoveFile(tmpPath, mp3Path)
}
