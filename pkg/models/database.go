package models

import (
	"fmt"
	"strconv"
)

// BeatGridKey identifies one cached beat grid.
// Range is the analysis cut fraction; 0 means the whole track.
type BeatGridKey struct {
	Track string
	BPM   float64
	Range float64
}

// FileName returns "<track>_<bpm>.json", with "_r<range>" before the
// extension when the analysis was restricted. Whole-track grids keep the
// plain name, so other tools reading the analysis directory find them
// where they expect.
func (k BeatGridKey) FileName() string {
	name := fmt.Sprintf("%s_%s", k.Track, FormatBPM(k.BPM))
	if k.Range > 0 && k.Range < 1 {
		name += "_r" + strconv.FormatFloat(k.Range, 'f', -1, 64)
	}
	return name + ".json"
}

// FormatBPM renders a tempo the way cache names expect: "120", "124.5".
func FormatBPM(bpm float64) string {
	return strconv.FormatFloat(bpm, 'f', -1, 64)
}
