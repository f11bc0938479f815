package utils

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// TrackName returns the file name of path without directory or extension.
// A numeric "extension" is part of a fractional BPM suffix and is kept.
func TrackName(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if ext == "" {
		return base
	}
	if _, err := strconv.ParseFloat(ext[1:], 64); err == nil {
		return base
	}
	return strings.TrimSuffix(base, ext)
}

// ParseBPMFromName extracts the tempo from names shaped like
// "artist-title_128" or "artist-title_124.5.wav".
func ParseBPMFromName(name string) (float64, error) {
	name = TrackName(name)
	idx := strings.LastIndex(name, "_")
	if idx < 0 || idx == len(name)-1 {
		return 0, fmt.Errorf("no bpm suffix in %q", name)
	}

	bpm, err := strconv.ParseFloat(name[idx+1:], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid bpm suffix in %q: %w", name, err)
	}
	if bpm <= 0 {
		return 0, fmt.Errorf("bpm must be positive in %q", name)
	}
	return bpm, nil
}

// BaseName strips a trailing "_<bpm>" from a track name if present.
func BaseName(name string) string {
	name = TrackName(name)
	if _, err := ParseBPMFromName(name); err == nil {
		return name[:strings.LastIndex(name, "_")]
	}
	return name
}
