package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/himanishpuri/discgenius/pkg/models"
)

func TestBeatGridFilesMiss(t *testing.T) {
	c := NewBeatGridFiles(t.TempDir())

	grid, ok, err := c.Load(models.BeatGridKey{Track: "absent", BPM: 120})
	if err != nil || ok || grid != nil {
		t.Errorf("Load on empty dir = (%v, %v, %v), want miss", grid, ok, err)
	}
}

func TestBeatGridFilesStoreLoad(t *testing.T) {
	dir := t.TempDir()
	c := NewBeatGridFiles(dir)
	key := models.BeatGridKey{Track: "intro", BPM: 120, Range: 0.7}
	want := &models.BeatGrid{BPM: 119.8, Beats: []float64{84.02, 84.52, 85.01}}

	if err := c.Store(key, want); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "intro_120_r0.7.json")); err != nil {
		t.Fatalf("expected record file: %v", err)
	}

	got, ok, err := c.Load(key)
	if err != nil || !ok {
		t.Fatalf("Load = (%v, %v)", ok, err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("grid mismatch (-want +got):\n%s", diff)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the record in %s, found %d entries", dir, len(entries))
	}
}

func TestBeatGridFilesRecordShape(t *testing.T) {
	dir := t.TempDir()
	c := NewBeatGridFiles(dir)
	key := models.BeatGridKey{Track: "intro", BPM: 120}

	if err := c.Store(key, &models.BeatGrid{BPM: 120, Beats: []float64{0.5, 1}}); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "intro_120.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"bpm":120,"beats":[0.5,1]}` {
		t.Errorf("unexpected record %s", data)
	}
}

func TestBeatGridFilesCorruptRecord(t *testing.T) {
	dir := t.TempDir()
	c := NewBeatGridFiles(dir)
	key := models.BeatGridKey{Track: "broken", BPM: 128}

	if err := os.WriteFile(c.Path(key), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.Load(key); err == nil {
		t.Error("expected error for corrupt record")
	}
}

func TestAudioFilesStoreLoad(t *testing.T) {
	c := NewAudioFiles(t.TempDir())

	if _, ok, err := c.Load("missing_120"); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	left := []float64{0, 0.25, -0.5, 0.75}
	right := []float64{0.1, -0.1, 0.2, -0.2}
	track, err := models.NewTrack("loop_124", left, right, 11025, 124)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Store(track); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	got, ok, err := c.Load("loop_124")
	if err != nil || !ok {
		t.Fatalf("Load = (%v, %v)", ok, err)
	}
	if got.BPM != 124 || got.SampleRate != 11025 || got.Channels != 2 {
		t.Errorf("unexpected track header: bpm=%v sr=%d ch=%d", got.BPM, got.SampleRate, got.Channels)
	}
	if diff := cmp.Diff(left, got.Left); diff != "" {
		t.Errorf("left channel mismatch (-want +got):\n%s", diff)
	}
}

func TestBeatGridFilesRangeKeepsSharedRecord(t *testing.T) {
	dir := t.TempDir()
	c := NewBeatGridFiles(dir)
	whole := models.BeatGridKey{Track: "intro", BPM: 120}
	head := models.BeatGridKey{Track: "intro", BPM: 120, Range: 0.3}

	if err := c.Store(whole, &models.BeatGrid{BPM: 120, Beats: []float64{0.5, 1, 1.5}}); err != nil {
		t.Fatalf("Store whole failed: %v", err)
	}
	if err := c.Store(head, &models.BeatGrid{BPM: 120, Beats: []float64{0.5, 1}}); err != nil {
		t.Fatalf("Store head failed: %v", err)
	}

	for _, name := range []string{"intro_120.json", "intro_120_r0.3.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
	got, ok, err := c.Load(whole)
	if err != nil || !ok {
		t.Fatalf("Load whole = (%v, %v)", ok, err)
	}
	if len(got.Beats) != 3 {
		t.Errorf("whole-track record has %d beats, want 3", len(got.Beats))
	}
}
