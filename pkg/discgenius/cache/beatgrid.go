// Package cache persists beat grids and aligned audio under plain
// directories. Every write goes through a temp file and a rename.
//
// A whole-track grid lives at <dir>/<track>_<bpm>.json, the record name
// shared with other analysis tools. Range-restricted grids add "_r<range>"
// and never replace it.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/himanishpuri/discgenius/pkg/models"
	"github.com/himanishpuri/discgenius/pkg/utils"
)

// BeatGridFiles stores beat grids as JSON records in Dir.
type BeatGridFiles struct {
	Dir string
}

func NewBeatGridFiles(dir string) *BeatGridFiles {
	return &BeatGridFiles{Dir: dir}
}

func (c *BeatGridFiles) Path(key models.BeatGridKey) string {
	return filepath.Join(c.Dir, key.FileName())
}

// Load returns ok=false when no record exists for key.
func (c *BeatGridFiles) Load(key models.BeatGridKey) (*models.BeatGrid, bool, error) {
	data, err := os.ReadFile(c.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var grid models.BeatGrid
	if err := json.Unmarshal(data, &grid); err != nil {
		return nil, false, fmt.Errorf("corrupt beat grid %s: %w", key.FileName(), err)
	}
	return &grid, true, nil
}

func (c *BeatGridFiles) Store(key models.BeatGridKey, grid *models.BeatGrid) error {
	data, err := json.Marshal(grid)
	if err != nil {
		return fmt.Errorf("failed to encode beat grid: %w", err)
	}
	return utils.WriteFileAtomic(c.Path(key), func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}
