// Package storage keeps beat grids in a SQLite database. It is an
// alternative to the JSON file cache for large libraries.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/himanishpuri/discgenius/pkg/models"
	"github.com/himanishpuri/discgenius/pkg/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const DefaultDBFile = "discgenius.sqlite3"
const errDBClientNil = "db client is nil"

// BeatGridRecord is one analyzed track. Beats holds the JSON array of
// beat times so the row mirrors the file cache record.
type BeatGridRecord struct {
	ID        string  `gorm:"primaryKey;type:varchar(36)"`
	Track     string  `gorm:"uniqueIndex:idx_grid_key,priority:1"`
	SourceBPM float64 `gorm:"uniqueIndex:idx_grid_key,priority:2"`
	Range     float64 `gorm:"column:analysis_range;uniqueIndex:idx_grid_key,priority:3"`
	BPM       float64
	Beats     string `gorm:"type:text"`
	BeatCount int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type BeatGridStore struct {
	DB *gorm.DB
	db *sql.DB
}

// NewBeatGridStore opens (and migrates) the database at dbPath.
func NewBeatGridStore(dbPath string) (*BeatGridStore, error) {
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}
	// SQLite serializes writers; one connection avoids "database is locked".
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&BeatGridRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &BeatGridStore{DB: db, db: sqlDB}, nil
}

func (s *BeatGridStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *BeatGridStore) Load(key models.BeatGridKey) (*models.BeatGrid, bool, error) {
	if s == nil || s.DB == nil {
		return nil, false, errors.New(errDBClientNil)
	}

	var rec BeatGridRecord
	err := s.DB.Where("track = ? AND source_bpm = ? AND analysis_range = ?", key.Track, key.BPM, key.Range).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying beat grid: %w", err)
	}

	grid := &models.BeatGrid{BPM: rec.BPM}
	if err := json.Unmarshal([]byte(rec.Beats), &grid.Beats); err != nil {
		return nil, false, fmt.Errorf("decoding beats for %s: %w", key.Track, err)
	}
	return grid, true, nil
}

// Store inserts or replaces the grid for key.
func (s *BeatGridStore) Store(key models.BeatGridKey, grid *models.BeatGrid) error {
	if s == nil || s.DB == nil {
		return errors.New(errDBClientNil)
	}

	beats, err := json.Marshal(grid.Beats)
	if err != nil {
		return fmt.Errorf("encoding beats: %w", err)
	}

	rec := BeatGridRecord{
		ID:        utils.GenerateUUID(),
		Track:     key.Track,
		SourceBPM: key.BPM,
		Range:     key.Range,
		BPM:       grid.BPM,
		Beats:     string(beats),
		BeatCount: len(grid.Beats),
	}
	err = s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "track"}, {Name: "source_bpm"}, {Name: "analysis_range"}},
		DoUpdates: clause.AssignmentColumns([]string{"bpm", "beats", "beat_count", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("storing beat grid: %w", err)
	}
	return nil
}

// Tracks lists every analyzed track name.
func (s *BeatGridStore) Tracks() ([]string, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var names []string
	if err := s.DB.Model(&BeatGridRecord{}).Distinct().Order("track").Pluck("track", &names).Error; err != nil {
		return nil, fmt.Errorf("listing tracks: %w", err)
	}
	return names, nil
}

// Delete removes every grid stored for track.
func (s *BeatGridStore) Delete(track string) error {
	if s == nil || s.DB == nil {
		return errors.New(errDBClientNil)
	}
	if err := s.DB.Where("track = ?", track).Delete(&BeatGridRecord{}).Error; err != nil {
		return fmt.Errorf("deleting grids for %s: %w", track, err)
	}
	return nil
}
