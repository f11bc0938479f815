package cache

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/himanishpuri/discgenius/pkg/discgenius/audio"
	"github.com/himanishpuri/discgenius/pkg/models"
	"github.com/himanishpuri/discgenius/pkg/utils"
)

// AudioFiles stores aligned tracks as float32 WAV files named after the
// track.
type AudioFiles struct {
	Dir string
}

func NewAudioFiles(dir string) *AudioFiles {
	return &AudioFiles{Dir: dir}
}

func (c *AudioFiles) Path(name string) string {
	return filepath.Join(c.Dir, name+".wav")
}

func (c *AudioFiles) Load(name string) (*models.Track, bool, error) {
	path := c.Path(name)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}

	channels, sr, err := audio.DecodeWAV(path)
	if err != nil {
		return nil, false, err
	}
	bpm, _ := utils.ParseBPMFromName(name)
	track, err := audio.TrackFromChannels(name, channels, sr, bpm)
	if err != nil {
		return nil, false, err
	}
	return track, true, nil
}

func (c *AudioFiles) Store(track *models.Track) error {
	return audio.WriteWAV(c.Path(track.Name), track)
}
