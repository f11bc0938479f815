package audio

import (
	"errors"
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/himanishpuri/discgenius/pkg/models"
	"github.com/himanishpuri/discgenius/pkg/utils"
)

const writeChunkFrames = 1 << 16

// WriteWAV writes track as a 32-bit IEEE float WAV with the track's channel
// count. The file appears at path only once it is complete.
func WriteWAV(path string, track *models.Track) error {
	if track == nil || track.SampleRate <= 0 {
		return errors.New("cannot write track without a sample rate")
	}
	channels := track.Channels
	if channels != 1 {
		channels = 2
	}

	return utils.WriteFileAtomic(path, func(f *os.File) error {
		enc := wav.NewEncoder(f, track.SampleRate, 32, channels, formatIEEEFloat)

		buf := &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: channels, SampleRate: track.SampleRate},
			SourceBitDepth: 32,
		}
		for start := 0; start < track.Frames(); start += writeChunkFrames {
			end := min(start+writeChunkFrames, track.Frames())
			buf.Data = buf.Data[:0]
			for i := start; i < end; i++ {
				// The encoder writes int32 words verbatim, so the float bit
				// pattern passes through unchanged.
				buf.Data = append(buf.Data, floatBits(track.Left[i]))
				if channels == 2 {
					buf.Data = append(buf.Data, floatBits(track.Right[i]))
				}
			}
			if err := enc.Write(buf); err != nil {
				return fmt.Errorf("failed to encode %s: %w", path, err)
			}
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to finalize %s: %w", path, err)
		}
		return nil
	})
}

func floatBits(v float64) int {
	return int(int32(math.Float32bits(float32(v))))
}

// WritePCM16 writes track as 16-bit PCM, the format most players and
// encoders expect.
func WritePCM16(path string, track *models.Track) error {
	if track == nil || track.SampleRate <= 0 {
		return errors.New("cannot write track without a sample rate")
	}

	return utils.WriteFileAtomic(path, func(f *os.File) error {
		enc := wav.NewEncoder(f, track.SampleRate, 16, 2, formatPCM)
		buf := &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: 2, SampleRate: track.SampleRate},
			Data:           make([]int, 0, 2*writeChunkFrames),
			SourceBitDepth: 16,
		}
		for start := 0; start < track.Frames(); start += writeChunkFrames {
			end := min(start+writeChunkFrames, track.Frames())
			buf.Data = buf.Data[:0]
			for i := start; i < end; i++ {
				buf.Data = append(buf.Data, toPCM16(track.Left[i]), toPCM16(track.Right[i]))
			}
			if err := enc.Write(buf); err != nil {
				return fmt.Errorf("failed to encode %s: %w", path, err)
			}
		}
		return enc.Close()
	})
}

func toPCM16(v float64) int {
	v = math.Max(-1, math.Min(1, v))
	return int(math.Round(v * 32767))
}
